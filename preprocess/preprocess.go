// Package preprocess implements KASM's text-substitution preprocessor
// (spec §4.2): conditional assembly, overloaded single-line definitions,
// multi-line macros with arity ranges and default tails, .rep repetition,
// and file inclusion. Input and output are both token streams.
package preprocess

import (
	"path/filepath"
	"strings"

	"github.com/kerbalasm/kasm/diag"
	"github.com/kerbalasm/kasm/expr"
	"github.com/kerbalasm/kasm/source"
	"github.com/kerbalasm/kasm/token"
)

// maxExpandDepth bounds single-line/macro expansion nesting (spec §4.2:
// "a recursion counter bounds expansion depth; exceeding it is an error
// naming the innermost macro").
const maxExpandDepth = 256

// maxIncludeDepth bounds nested .include depth independent of the cycle
// check, as a backstop against pathological include graphs.
const maxIncludeDepth = 64

// frame is one source of tokens currently being scanned: the root unit, an
// expanded macro/definition body, a .rep repetition, or an included file.
type frame struct {
	toks []token.Token
	pos  int

	// includePath is set when this frame was pushed by .include, so Run
	// can pop it from the include cycle-detection stack when exhausted.
	includePath string
	// expandName is set when this frame was pushed by macro/definition
	// expansion, so the recursion-depth error can name it.
	expandName string
}

func (f *frame) done() bool { return f.pos >= len(f.toks) }

func (f *frame) peek() token.Token { return f.toks[f.pos] }

func (f *frame) next() token.Token {
	t := f.toks[f.pos]
	f.pos++
	return t
}

// Preprocessor holds all state spec §4.2 attributes to this phase:
// definition table, macro table, conditional stack, include stack, and a
// repetition/expansion nesting counter.
type Preprocessor struct {
	h        *diag.Handler
	resolver source.Resolver

	defs   *definitionTable
	macros *macroTables
	cond   []condFrame

	includeStack []string
	stack        []*frame
	expandDepth  int

	out []token.Token
}

// New builds a Preprocessor. resolver may be nil if the unit is known not
// to use .include.
func New(resolver source.Resolver, h *diag.Handler) *Preprocessor {
	return &Preprocessor{
		resolver: resolver,
		h:        h,
		defs:     newDefinitionTable(),
		macros:   newMacroTables(),
	}
}

// Run preprocesses unit's tokens (as produced by lexer.Lex) and returns the
// expanded token stream, terminated by a single EOF.
func (p *Preprocessor) Run(unit *source.Unit, toks []token.Token) ([]token.Token, error) {
	p.stack = []*frame{{toks: toks}}
	for len(p.stack) > 0 {
		top := p.stack[len(p.stack)-1]
		if top.done() {
			p.popFrame()
			continue
		}
		t := top.next()
		if t.Kind == token.EOF {
			// The stream gets a single EOF of its own below.
			continue
		}
		if err := p.step(t); err != nil {
			return p.out, err
		}
		if err := p.h.Error(); err != nil {
			return p.out, err
		}
	}
	if len(p.cond) != 0 {
		p.errAt(diag.KindPreprocess, p.lastSpan(), "unterminated conditional: missing .endif")
	}
	p.out = append(p.out, token.New(token.EOF, "", p.lastSpan()))
	return p.out, p.h.Error()
}

func (p *Preprocessor) lastSpan() source.Span {
	if len(p.out) > 0 {
		return p.out[len(p.out)-1].Span
	}
	return source.Span{}
}

func (p *Preprocessor) popFrame() {
	f := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	if f.includePath != "" {
		p.popInclude(f.includePath)
	}
	if f.expandName != "" {
		p.expandDepth--
	}
}

func (p *Preprocessor) errAt(kind diag.Kind, span source.Span, format string, args ...any) {
	p.h.HandleError(diag.Errorf(kind, span, format, args...))
}

func (p *Preprocessor) warnAt(kind diag.Kind, span source.Span, format string, args ...any) {
	p.h.HandleWarning(diag.Warningf(kind, span, format, args...))
}

// step processes one token from the current top frame.
func (p *Preprocessor) step(t token.Token) error {
	if t.Kind == token.Directive {
		return p.directive(t)
	}
	if !p.effectiveActive() {
		return nil
	}
	if t.Kind == token.Ident {
		if expanded, ok := p.tryExpand(t); ok {
			return p.push(expanded, t.Text)
		}
	}
	p.out = append(p.out, t)
	return nil
}

// push installs toks as a new top frame, enforcing the expansion recursion
// limit when name != "" (a macro/definition expansion, as opposed to an
// include or .rep body).
func (p *Preprocessor) push(toks []token.Token, name string) error {
	f := &frame{toks: toks}
	if name != "" {
		p.expandDepth++
		if p.expandDepth > maxExpandDepth {
			p.errAt(diag.KindPreprocess, p.lastSpan(), "macro expansion recursion limit exceeded in %q", name)
			return p.h.Error()
		}
		f.expandName = name
	}
	p.stack = append(p.stack, f)
	return nil
}

// curFrame returns the frame currently being scanned (always the top of
// the stack while step/directive run).
func (p *Preprocessor) curFrame() *frame { return p.stack[len(p.stack)-1] }

// Definitions exposes the preprocessor's single-line definition table as
// an expr.Definitions, so the parser can resolve zero-arity definitions
// referenced directly inside operand expressions (spec §4.3: "identifier
// resolving to a single-line definition of arity 0").
func (p *Preprocessor) Definitions() expr.Definitions { return p.defs }

// directive dispatches a '.'-keyword token. Conditional-stack-management
// directives always run; every other directive only takes effect when the
// enclosing conditional region is active, so that e.g. a .define inside a
// false .if branch never registers (spec §4.2/§4.8: "emission is gated by
// the conjunction of all stacked active flags" — read here as gating every
// directive's side effect, not only instruction/data emission).
func (p *Preprocessor) directive(t token.Token) error {
	name := strings.ToLower(strings.TrimPrefix(t.Text, "."))
	switch name {
	case "if", "ifn", "ifdef", "ifndef":
		return p.doIf(name, t)
	case "elif", "elifn", "elifdef", "elifndef":
		return p.doElif(name, t)
	case "else":
		if !p.elif(true) {
			p.errAt(diag.KindPreprocess, t.Span, "'.else' with no matching '.if'")
		}
		return nil
	case "endif":
		if !p.endif() {
			p.errAt(diag.KindPreprocess, t.Span, "'.endif' with no matching '.if'")
		}
		return nil
	}
	if !p.effectiveActive() {
		p.skipDirectiveBody(name, t)
		return nil
	}
	switch name {
	case "define":
		p.doDefine(t)
	case "undef":
		p.doUndef(t)
	case "macro":
		p.doMacro(t)
	case "unmacro":
		p.doUnmacro(t)
	case "rep":
		p.doRep(t)
	case "include":
		p.doInclude(t)
	case "line":
		p.errAt(diag.KindPreprocess, t.Span, "'.line' is not implemented")
	default:
		// Not a preprocessor directive; pass through to the parser (e.g.
		// .extern, .global, .section, .i32, ...).
		p.out = append(p.out, t)
	}
	return nil
}

// skipDirectiveBody discards a directive's tokens up to end-of-line when
// the surrounding conditional region is inactive, including an entire
// .macro/.rep body so that its .endmacro/.endrep is consumed along with it
// rather than leaking past the gate.
func (p *Preprocessor) skipDirectiveBody(name string, t token.Token) {
	switch name {
	case "macro":
		p.skipToMatching(t, "endmacro")
	case "rep":
		p.skipToMatching(t, "endrep")
	default:
		p.skipLine()
	}
}

// skipToMatching discards tokens through the end of the current line, then
// continues discarding whole lines until a directive named end is seen,
// itself discarded too.
func (p *Preprocessor) skipToMatching(t token.Token, end string) {
	p.skipLine()
	f := p.curFrame()
	for !f.done() {
		tok := f.next()
		if tok.Kind == token.Directive && strings.ToLower(strings.TrimPrefix(tok.Text, ".")) == end {
			p.skipLine()
			return
		}
		if tok.IsEnd() {
			continue
		}
	}
}

// skipLine discards tokens from the current frame through the next EOL.
func (p *Preprocessor) skipLine() {
	f := p.curFrame()
	for !f.done() {
		if f.next().Kind == token.EOL {
			return
		}
	}
}

// restOfLine collects tokens from the current frame up to (excluding) the
// next EOL/EOF.
func (p *Preprocessor) restOfLine() []token.Token {
	f := p.curFrame()
	var out []token.Token
	for !f.done() && !f.peek().IsEnd() {
		out = append(out, f.next())
	}
	if !f.done() && f.peek().Kind == token.EOL {
		f.next()
	}
	return out
}

// parseIntLit reads a single integer literal token, reporting ok=false for
// any other token. Used for macro/.rep arity and count literals, which are
// grammar positions, not general expressions.
func parseIntLit(t token.Token) (int, bool) {
	if t.Kind == token.Integer {
		return int(t.Lit.Int()), true
	}
	return 0, false
}

func resolveDir(t token.Token) string {
	if t.Span.Unit == nil || t.Span.Unit.Path() == "" {
		return "."
	}
	return filepath.Dir(t.Span.Unit.Path())
}
