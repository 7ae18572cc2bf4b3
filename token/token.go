// Package token defines the lexical units the lexer produces and every
// later phase (preprocessor, expression evaluator, parser) consumes.
package token

import (
	"fmt"

	"github.com/kerbalasm/kasm/source"
	"github.com/kerbalasm/kasm/value"
)

// Kind classifies a token. KASM's lexical grammar is small: identifiers,
// directive keywords (a leading '.'), labels (a leading ':' is not used —
// labels are bare identifiers followed by ':'), literals, operators/
// punctuation used by the expression grammar, and end-of-line/end-of-file
// sentinels (KASM, like assembly generally, is newline-sensitive).
type Kind int

const (
	EOF Kind = iota
	EOL
	Ident     // bare identifier: mnemonic, label reference, macro name
	Directive // .word beginning with '.': .macro, .if, .data, .i32, ...
	Label      // identifier immediately followed by ':'
	InnerLabel // '.' + identifier (not a reserved directive), operand position
	InnerLabelDef // '.' + identifier (not a reserved directive) immediately followed by ':'
	String    // "quoted string", with escapes resolved
	Integer   // 123, 0x1F, 0b101
	Double    // 1.5, 1e10
	True
	False
	Null
	At       // '@' ArgMarker literal
	Comma
	Colon
	LParen
	RParen
	Plus
	Minus
	Star
	Slash
	Percent
	Amp
	Tilde
	Bang
	EqEq
	NotEq
	Lt
	Lte
	Gt
	Gte
	AndAnd
	OrOr
	Dollar // bare '$' not starting a string; no later phase accepts it
	Hash   // '#' Null literal
)

var kindNames = map[Kind]string{
	EOF: "eof", EOL: "eol", Ident: "identifier", Directive: "directive",
	Label: "label", InnerLabel: "inner-label", InnerLabelDef: "inner-label-def", String: "string", Integer: "integer", Double: "double",
	True: "true", False: "false", Null: "null", At: "@", Comma: ",", Colon: ":",
	LParen: "(", RParen: ")", Plus: "+", Minus: "-", Star: "*", Slash: "/",
	Percent: "%", Amp: "&", Tilde: "~", Bang: "!",
	EqEq: "==", NotEq: "!=", Lt: "<", Lte: "<=",
	Gt: ">", Gte: ">=", AndAnd: "&&", OrOr: "||", Dollar: "$", Hash: "#",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Token is a single lexical unit with its resolved literal value (where
// applicable) and the span it was scanned from. Tokens produced by macro
// expansion keep the span they were scanned with: a token from a
// definition body points into the definition, a substituted argument
// token points at the invocation site.
type Token struct {
	Kind Kind
	Text string // original spelling, for Ident/Directive/Label
	Lit  value.Value
	Span source.Span
}

// New builds a Token with no literal payload (punctuation, EOF, EOL).
func New(kind Kind, text string, span source.Span) Token {
	return Token{Kind: kind, Text: text, Span: span}
}

// NewLit builds a Token carrying a resolved literal.
func NewLit(kind Kind, text string, lit value.Value, span source.Span) Token {
	return Token{Kind: kind, Text: text, Lit: lit, Span: span}
}

func (t Token) String() string {
	switch t.Kind {
	case Label, InnerLabelDef:
		// Text is stored without the trailing ':' (see lexer.lexIdentOrLabel/
		// lexDotWord), so it must be reattached here for Render to round-trip.
		return t.Text + ":"
	}
	if t.Text != "" {
		return t.Text
	}
	return t.Kind.String()
}

// IsEnd reports whether t terminates a logical line (EOL or EOF), the
// boundary most parser loops scan up to.
func (t Token) IsEnd() bool { return t.Kind == EOL || t.Kind == EOF }
