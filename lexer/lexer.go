// Package lexer implements KASM's token scanner (spec §4.1): a single
// rune-lookahead scan over a source.Unit producing token.Tokens with
// resolved literal payloads for numbers and strings.
package lexer

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/kerbalasm/kasm/diag"
	"github.com/kerbalasm/kasm/source"
	"github.com/kerbalasm/kasm/token"
	"github.com/kerbalasm/kasm/value"
)

// runeReader walks a byte buffer one rune at a time with a settable mark, so
// a scan loop can peek/unread freely and later recover the exact bytes it
// consumed since the mark via text().
type runeReader struct {
	data []byte
	pos  int
	mark int
}

func (r *runeReader) peek() (rune, int) {
	if r.pos >= len(r.data) {
		return 0, 0
	}
	ru, sz := utf8.DecodeRune(r.data[r.pos:])
	return ru, sz
}

func (r *runeReader) advance() (rune, bool) {
	ru, sz := r.peek()
	if sz == 0 {
		return 0, false
	}
	r.pos += sz
	return ru, true
}

func (r *runeReader) setMark() { r.mark = r.pos }
func (r *runeReader) text() string { return string(r.data[r.mark:r.pos]) }
func (r *runeReader) eof() bool { return r.pos >= len(r.data) }

// reservedDirectives is the set of directive keywords recognized as such;
// a '.'-prefixed identifier not in this set is an inner-label reference
// rather than a directive (spec §4.1).
var reservedDirectives = map[string]bool{
	"define": true, "undef": true, "macro": true, "endmacro": true,
	"unmacro": true, "rep": true, "endrep": true, "include": true,
	"if": true, "ifn": true, "ifdef": true, "ifndef": true,
	"elif": true, "elifn": true, "elifdef": true, "elifndef": true,
	"else": true, "endif": true, "line": true,
	"extern": true, "global": true, "local": true, "type": true, "func": true,
	"section": true, "text": true, "data": true,
	"b": true, "i16": true, "i32": true, "f32": true, "f64v": true,
	"s": true, "sv": true, "bl": true, "bv": true, "si": true, "sd": true,
}

// Lexer scans one source.Unit into a flat token slice.
type Lexer struct {
	unit *source.Unit
	rr   *runeReader
	h    *diag.Handler
}

// New builds a Lexer over unit, reporting diagnostics to h.
func New(unit *source.Unit, h *diag.Handler) *Lexer {
	return &Lexer{unit: unit, rr: &runeReader{data: unit.Data()}, h: h}
}

// Lex scans the entire unit and returns its tokens, terminated by a single
// EOF token. Returns the handler's terminal error if a Lex diagnostic
// halted scanning.
func (l *Lexer) Lex() ([]token.Token, error) {
	var toks []token.Token
	for {
		t, ok := l.next()
		if !ok {
			if err := l.h.Error(); err != nil {
				return toks, err
			}
			toks = append(toks, token.New(token.EOF, "", l.span()))
			return toks, nil
		}
		toks = append(toks, t)
		if t.Kind == token.EOF {
			return toks, nil
		}
	}
}

func (l *Lexer) span() source.Span {
	return source.Span{Unit: l.unit, Start: l.rr.pos, End: l.rr.pos}
}

func (l *Lexer) spanFrom(start int) source.Span {
	return source.Span{Unit: l.unit, Start: start, End: l.rr.pos}
}

func (l *Lexer) errorf(start int, format string, args ...any) {
	l.h.HandleError(diag.Errorf(diag.KindLex, l.spanFrom(start), format, args...))
}

// next scans and returns the next token. ok is false only once the handler
// has recorded a halting error; callers should stop and consult Error().
func (l *Lexer) next() (token.Token, bool) {
	for {
		l.skipSpaceAndComments()
		if l.rr.eof() {
			return token.New(token.EOF, "", l.span()), true
		}
		start := l.rr.pos
		ru, _ := l.rr.peek()

		switch {
		case ru == '\n':
			l.rr.advance()
			return token.New(token.EOL, "\n", l.spanFrom(start)), true
		case ru == '"':
			return l.lexString(start, "")
		case ru == '$':
			l.rr.advance()
			if r2, _ := l.rr.peek(); r2 == '"' {
				return l.lexString(start, "$")
			}
			return token.New(token.Dollar, "$", l.spanFrom(start)), true
		case ru == '.':
			return l.lexDotWord(start)
		case isDigit(ru):
			return l.lexNumber(start)
		case isIdentStart(ru):
			return l.lexIdentOrLabel(start)
		default:
			return l.lexPunct(start)
		}
	}
}

func (l *Lexer) skipSpaceAndComments() {
	for {
		ru, sz := l.rr.peek()
		if sz == 0 {
			return
		}
		switch {
		case ru == '\\':
			// Line continuation: a backslash immediately before a newline
			// elides both (spec §4.1). Anywhere else '\\' falls through to
			// lexPunct as an unrecognized character.
			if l.peekAt(sz) == '\n' {
				l.rr.advance()
				l.rr.advance()
				continue
			}
			return
		case ru == ';':
			for {
				r2, sz2 := l.rr.peek()
				if sz2 == 0 || r2 == '\n' {
					break
				}
				l.rr.advance()
			}
		case ru == ' ' || ru == '\t' || ru == '\r':
			l.rr.advance()
		default:
			return
		}
	}
}

func (l *Lexer) peekAt(offset int) rune {
	if l.rr.pos+offset >= len(l.rr.data) {
		return 0
	}
	ru, _ := utf8.DecodeRune(l.rr.data[l.rr.pos+offset:])
	return ru
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentCont(r rune) bool { return isIdentStart(r) || isDigit(r) }

func (l *Lexer) lexIdentOrLabel(start int) (token.Token, bool) {
	for {
		ru, sz := l.rr.peek()
		if sz == 0 || !isIdentCont(ru) {
			break
		}
		l.rr.advance()
	}
	text := string(l.rr.data[start:l.rr.pos])
	switch text {
	case "true":
		return token.NewLit(token.True, text, value.NewBool(true), l.spanFrom(start)), true
	case "false":
		return token.NewLit(token.False, text, value.NewBool(false), l.spanFrom(start)), true
	case "null":
		return token.NewLit(token.Null, text, value.NullValue, l.spanFrom(start)), true
	}
	if ru, _ := l.rr.peek(); ru == ':' {
		l.rr.advance()
		return token.New(token.Label, text, l.spanFrom(start)), true
	}
	return token.New(token.Ident, text, l.spanFrom(start)), true
}

// lexDotWord handles a '.'-led token: a reserved directive keyword, or an
// inner-label reference (spec §4.1).
func (l *Lexer) lexDotWord(start int) (token.Token, bool) {
	l.rr.advance() // consume '.'
	wordStart := l.rr.pos
	for {
		ru, sz := l.rr.peek()
		if sz == 0 || !isIdentCont(ru) {
			break
		}
		l.rr.advance()
	}
	if l.rr.pos == wordStart {
		l.errorf(start, "'.' not followed by a directive or label name")
		return token.Token{}, false
	}
	word := string(l.rr.data[wordStart:l.rr.pos])
	text := "." + word
	if reservedDirectives[strings.ToLower(word)] {
		return token.New(token.Directive, text, l.spanFrom(start)), true
	}
	if ru, _ := l.rr.peek(); ru == ':' {
		l.rr.advance()
		return token.New(token.InnerLabelDef, text, l.spanFrom(start)), true
	}
	return token.New(token.InnerLabel, text, l.spanFrom(start)), true
}

func (l *Lexer) lexPunct(start int) (token.Token, bool) {
	ru, _ := l.rr.advance()
	switch ru {
	case ',':
		return token.New(token.Comma, ",", l.spanFrom(start)), true
	case ':':
		return token.New(token.Colon, ":", l.spanFrom(start)), true
	case '(':
		return token.New(token.LParen, "(", l.spanFrom(start)), true
	case ')':
		return token.New(token.RParen, ")", l.spanFrom(start)), true
	case '+':
		return token.New(token.Plus, "+", l.spanFrom(start)), true
	case '-':
		return token.New(token.Minus, "-", l.spanFrom(start)), true
	case '*':
		return token.New(token.Star, "*", l.spanFrom(start)), true
	case '/':
		return token.New(token.Slash, "/", l.spanFrom(start)), true
	case '%':
		return token.New(token.Percent, "%", l.spanFrom(start)), true
	case '~':
		return token.New(token.Tilde, "~", l.spanFrom(start)), true
	case '@':
		return token.NewLit(token.At, "@", value.ArgMark, l.spanFrom(start)), true
	case '#':
		return token.NewLit(token.Hash, "#", value.NullValue, l.spanFrom(start)), true
	case '&':
		if r2, sz2 := l.rr.peek(); sz2 != 0 && r2 == '&' {
			l.rr.advance()
			return token.New(token.AndAnd, "&&", l.spanFrom(start)), true
		}
		return token.New(token.Amp, "&", l.spanFrom(start)), true
	case '|':
		if r2, sz2 := l.rr.peek(); sz2 != 0 && r2 == '|' {
			l.rr.advance()
			return token.New(token.OrOr, "||", l.spanFrom(start)), true
		}
		l.errorf(start, "unexpected character %q", ru)
		return token.Token{}, false
	case '!':
		if r2, sz2 := l.rr.peek(); sz2 != 0 && r2 == '=' {
			l.rr.advance()
			return token.New(token.NotEq, "!=", l.spanFrom(start)), true
		}
		return token.New(token.Bang, "!", l.spanFrom(start)), true
	case '=':
		if r2, sz2 := l.rr.peek(); sz2 != 0 && r2 == '=' {
			l.rr.advance()
			return token.New(token.EqEq, "==", l.spanFrom(start)), true
		}
		l.errorf(start, "unexpected character %q", ru)
		return token.Token{}, false
	case '<':
		if r2, sz2 := l.rr.peek(); sz2 != 0 && r2 == '=' {
			l.rr.advance()
			return token.New(token.Lte, "<=", l.spanFrom(start)), true
		}
		return token.New(token.Lt, "<", l.spanFrom(start)), true
	case '>':
		if r2, sz2 := l.rr.peek(); sz2 != 0 && r2 == '=' {
			l.rr.advance()
			return token.New(token.Gte, ">=", l.spanFrom(start)), true
		}
		return token.New(token.Gt, ">", l.spanFrom(start)), true
	default:
		l.errorf(start, "unexpected character %q", ru)
		return token.Token{}, false
	}
}

func (l *Lexer) lexNumber(start int) (token.Token, bool) {
	if ru, _ := l.rr.peek(); ru == '0' {
		next := l.peekAt(1)
		if next == 'x' || next == 'X' {
			l.rr.advance()
			l.rr.advance()
			return l.lexRadixInt(start, 16, isHexDigit)
		}
		if next == 'b' || next == 'B' {
			l.rr.advance()
			l.rr.advance()
			return l.lexRadixInt(start, 2, isBinDigit)
		}
	}
	for {
		ru, sz := l.rr.peek()
		if sz == 0 || !(isDigit(ru) || ru == '_') {
			break
		}
		l.rr.advance()
	}
	isDouble := false
	if ru, _ := l.rr.peek(); ru == '.' && isDigit(l.peekAt(1)) {
		isDouble = true
		l.rr.advance()
		for {
			ru, sz := l.rr.peek()
			if sz == 0 || !(isDigit(ru) || ru == '_') {
				break
			}
			l.rr.advance()
		}
	}
	if ru, _ := l.rr.peek(); ru == 'e' || ru == 'E' {
		save := l.rr.pos
		l.rr.advance()
		if r2, _ := l.rr.peek(); r2 == '+' || r2 == '-' {
			l.rr.advance()
		}
		if isDigit(l.mustPeek()) {
			isDouble = true
			for isDigit(l.mustPeek()) {
				l.rr.advance()
			}
		} else {
			l.rr.pos = save
		}
	}
	text := string(l.rr.data[start:l.rr.pos])
	clean := strings.ReplaceAll(text, "_", "")
	if isDouble {
		f, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			l.errorf(start, "malformed double literal %q", text)
			return token.Token{}, false
		}
		return token.NewLit(token.Double, text, value.NewDouble(f), l.spanFrom(start)), true
	}
	i, err := strconv.ParseInt(clean, 10, 64)
	if err != nil {
		l.errorf(start, "malformed integer literal %q", text)
		return token.Token{}, false
	}
	return token.NewLit(token.Integer, text, value.NewInteger(i), l.spanFrom(start)), true
}

func (l *Lexer) mustPeek() rune {
	ru, _ := l.rr.peek()
	return ru
}

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func isBinDigit(r rune) bool { return r == '0' || r == '1' }

func (l *Lexer) lexRadixInt(start int, base int, accept func(rune) bool) (token.Token, bool) {
	digitsStart := l.rr.pos
	for {
		ru, sz := l.rr.peek()
		if sz == 0 || !(accept(ru) || ru == '_') {
			break
		}
		l.rr.advance()
	}
	if l.rr.pos == digitsStart {
		l.errorf(start, "malformed numeric literal: no digits after radix prefix")
		return token.Token{}, false
	}
	digits := strings.ReplaceAll(string(l.rr.data[digitsStart:l.rr.pos]), "_", "")
	i, err := strconv.ParseInt(digits, base, 64)
	if err != nil {
		l.errorf(start, "malformed numeric literal %q", string(l.rr.data[start:l.rr.pos]))
		return token.Token{}, false
	}
	return token.NewLit(token.Integer, string(l.rr.data[start:l.rr.pos]), value.NewInteger(i), l.spanFrom(start)), true
}

// lexString scans a double-quoted string literal with backslash escapes.
// prefix ("" or "$") is prepended to the decoded content (spec §4.1: a
// '$'-prefixed quoted string is an ordinary string).
func (l *Lexer) lexString(start int, prefix string) (token.Token, bool) {
	l.rr.advance() // opening quote
	var sb strings.Builder
	sb.WriteString(prefix)
	for {
		ru, sz := l.rr.peek()
		if sz == 0 {
			l.errorf(start, "unterminated string literal")
			return token.Token{}, false
		}
		if ru == '"' {
			l.rr.advance()
			break
		}
		if ru == '\n' {
			l.errorf(start, "unterminated string literal")
			return token.Token{}, false
		}
		if ru == '\\' {
			l.rr.advance()
			esc, sz2 := l.rr.peek()
			if sz2 == 0 {
				l.errorf(start, "unterminated string literal")
				return token.Token{}, false
			}
			l.rr.advance()
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\':
				sb.WriteByte('\\')
			case '"':
				sb.WriteByte('"')
			case '0':
				sb.WriteByte(0)
			default:
				l.errorf(start, "unknown escape sequence \\%c", esc)
				return token.Token{}, false
			}
			continue
		}
		l.rr.advance()
		sb.WriteRune(ru)
	}
	text := string(l.rr.data[start:l.rr.pos])
	return token.NewLit(token.String, text, value.NewString(sb.String()), l.spanFrom(start)), true
}
