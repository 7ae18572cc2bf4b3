// Package expr implements KASM's constant expression evaluator (spec §4.3):
// a recursive-descent operator-precedence parser over an already-lexed
// token slice, folding to a single value.Value of kind Integer, Double, or
// Bool.
package expr

import (
	"github.com/kerbalasm/kasm/diag"
	"github.com/kerbalasm/kasm/source"
	"github.com/kerbalasm/kasm/token"
	"github.com/kerbalasm/kasm/value"
)

// Definitions resolves a zero-arity identifier to its constant value, for
// primary expressions that name a single-line .define (spec §4.3: "a
// parenthesized...or identifier resolving to a single-line definition of
// arity 0, recursively evaluated at use site"). The preprocess package
// supplies the concrete implementation; expr only depends on this
// interface to avoid an import cycle (preprocess depends on expr to
// evaluate .if conditions).
type Definitions interface {
	// ResolveConstant evaluates the zero-arity definition named name,
	// returning ok=false if no such definition exists.
	ResolveConstant(name string) (value.Value, bool)
}

// Eval parses and folds toks (a single expression, not newline-terminated)
// to a constant value. defs may be nil if the expression is known not to
// reference any identifier.
func Eval(toks []token.Token, defs Definitions, h *diag.Handler) (value.Value, error) {
	p := &parser{toks: toks, defs: defs, h: h}
	v := p.parseOr()
	if p.failed {
		return value.Value{}, h.Error()
	}
	if p.pos != len(p.toks) {
		p.errorf(p.cur(), "unexpected trailing token %q in expression", p.cur().Text)
		return value.Value{}, h.Error()
	}
	return v, nil
}

type parser struct {
	toks   []token.Token
	pos    int
	defs   Definitions
	h      *diag.Handler
	failed bool

	depth   int
	visited map[string]bool
}

const maxConstDepth = 64

func (p *parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		if len(p.toks) > 0 {
			return p.toks[len(p.toks)-1]
		}
		return token.Token{}
	}
	return p.toks[p.pos]
}

func (p *parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t token.Token, format string, args ...any) {
	if p.failed {
		return
	}
	p.failed = true
	p.h.HandleError(diag.Errorf(diag.KindExpr, t.Span, format, args...))
}

func zero() value.Value { return value.Value{} }

// parseOr .. parseUnary implement the precedence ladder from spec §4.3,
// lowest to highest: || ; && ; ==/!= ; </<=/>/>= ; +/- ; */%/ ; unary -/~/!.
func (p *parser) parseOr() value.Value {
	left := p.parseAnd()
	for !p.failed && p.cur().Kind == token.OrOr {
		p.advance()
		right := p.parseAnd()
		left = p.boolOp(left, right, func(a, b bool) bool { return a || b })
	}
	return left
}

func (p *parser) parseAnd() value.Value {
	left := p.parseEquality()
	for !p.failed && p.cur().Kind == token.AndAnd {
		p.advance()
		right := p.parseEquality()
		left = p.boolOp(left, right, func(a, b bool) bool { return a && b })
	}
	return left
}

func (p *parser) boolOp(a, b value.Value, f func(a, b bool) bool) value.Value {
	if p.failed {
		return zero()
	}
	if a.Kind() != value.Bool || b.Kind() != value.Bool {
		p.errorf(p.cur(), "operands of a logical operator must be boolean")
		return zero()
	}
	return value.NewBool(f(a.Bool(), b.Bool()))
}

func (p *parser) parseEquality() value.Value {
	left := p.parseRelational()
	for !p.failed {
		switch p.cur().Kind {
		case token.EqEq:
			p.advance()
			right := p.parseRelational()
			left = p.equalityOp(left, right, true)
		case token.NotEq:
			p.advance()
			right := p.parseRelational()
			left = p.equalityOp(left, right, false)
		default:
			return left
		}
	}
	return left
}

func (p *parser) equalityOp(a, b value.Value, wantEq bool) value.Value {
	if p.failed {
		return zero()
	}
	a, b, ok := promote(a, b)
	if !ok {
		p.errorf(p.cur(), "type mismatch in equality comparison")
		return zero()
	}
	eq := a.Equal(b)
	if !wantEq {
		eq = !eq
	}
	return value.NewBool(eq)
}

func (p *parser) parseRelational() value.Value {
	left := p.parseAdditive()
	for !p.failed {
		var op token.Kind
		switch p.cur().Kind {
		case token.Lt, token.Lte, token.Gt, token.Gte:
			op = p.cur().Kind
		default:
			return left
		}
		p.advance()
		right := p.parseAdditive()
		left = p.relOp(left, right, op)
	}
	return left
}

func (p *parser) relOp(a, b value.Value, op token.Kind) value.Value {
	if p.failed {
		return zero()
	}
	a, b, ok := promote(a, b)
	if !ok || a.Kind() == value.Bool || a.Kind() == value.String {
		p.errorf(p.cur(), "relational operators require numeric operands")
		return zero()
	}
	var lt, gt bool
	if a.Kind() == value.Double {
		lt, gt = a.Float() < b.Float(), a.Float() > b.Float()
	} else {
		lt, gt = a.Int() < b.Int(), a.Int() > b.Int()
	}
	switch op {
	case token.Lt:
		return value.NewBool(lt)
	case token.Lte:
		return value.NewBool(lt || !gt)
	case token.Gt:
		return value.NewBool(gt)
	default: // Gte
		return value.NewBool(gt || !lt)
	}
}

func (p *parser) parseAdditive() value.Value {
	left := p.parseMultiplicative()
	for !p.failed {
		switch p.cur().Kind {
		case token.Plus:
			p.advance()
			left = p.arith(left, p.parseMultiplicative(), '+')
		case token.Minus:
			p.advance()
			left = p.arith(left, p.parseMultiplicative(), '-')
		default:
			return left
		}
	}
	return left
}

func (p *parser) parseMultiplicative() value.Value {
	left := p.parseUnary()
	for !p.failed {
		switch p.cur().Kind {
		case token.Star:
			p.advance()
			left = p.arith(left, p.parseUnary(), '*')
		case token.Slash:
			p.advance()
			left = p.arith(left, p.parseUnary(), '/')
		case token.Percent:
			p.advance()
			left = p.arith(left, p.parseUnary(), '%')
		default:
			return left
		}
	}
	return left
}

func (p *parser) arith(a, b value.Value, op byte) value.Value {
	if p.failed {
		return zero()
	}
	if op == '%' {
		if a.Kind() != value.Integer || b.Kind() != value.Integer {
			p.errorf(p.cur(), "%% requires integer operands")
			return zero()
		}
		if b.Int() == 0 {
			p.errorf(p.cur(), "division by zero")
			return zero()
		}
		return value.NewInteger(a.Int() % b.Int())
	}
	a, b, ok := promote(a, b)
	if !ok {
		p.errorf(p.cur(), "type mismatch in arithmetic expression")
		return zero()
	}
	if a.Kind() == value.Double {
		x, y := a.Float(), b.Float()
		switch op {
		case '+':
			return value.NewDouble(x + y)
		case '-':
			return value.NewDouble(x - y)
		case '*':
			return value.NewDouble(x * y)
		default:
			if y == 0 {
				p.errorf(p.cur(), "division by zero")
				return zero()
			}
			return value.NewDouble(x / y)
		}
	}
	x, y := a.Int(), b.Int()
	switch op {
	case '+':
		return value.NewInteger(x + y)
	case '-':
		return value.NewInteger(x - y)
	case '*':
		return value.NewInteger(x * y)
	default:
		if y == 0 {
			p.errorf(p.cur(), "division by zero")
			return zero()
		}
		return value.NewInteger(x / y) // integer division per spec §4.3
	}
}

func (p *parser) parseUnary() value.Value {
	switch p.cur().Kind {
	case token.Minus:
		p.advance()
		v := p.parseUnary()
		if p.failed {
			return zero()
		}
		switch v.Kind() {
		case value.Integer:
			return value.NewInteger(-v.Int())
		case value.Double:
			return value.NewDouble(-v.Float())
		default:
			p.errorf(p.cur(), "unary - requires a numeric operand")
			return zero()
		}
	case token.Tilde:
		p.advance()
		v := p.parseUnary()
		if p.failed {
			return zero()
		}
		if v.Kind() != value.Integer {
			p.errorf(p.cur(), "unary ~ requires an integer operand")
			return zero()
		}
		return value.NewInteger(^v.Int())
	case token.Bang:
		p.advance()
		v := p.parseUnary()
		if p.failed {
			return zero()
		}
		if v.Kind() != value.Bool {
			p.errorf(p.cur(), "unary ! requires a boolean operand")
			return zero()
		}
		return value.NewBool(!v.Bool())
	default:
		return p.parsePrimary()
	}
}

func (p *parser) parsePrimary() value.Value {
	t := p.cur()
	switch t.Kind {
	case token.Integer, token.Double, token.String, token.True, token.False, token.Null:
		p.advance()
		return t.Lit
	case token.At:
		p.advance()
		return value.ArgMark
	case token.LParen:
		p.advance()
		v := p.parseOr()
		if p.failed {
			return zero()
		}
		if p.cur().Kind != token.RParen {
			p.errorf(p.cur(), "expected ')'")
			return zero()
		}
		p.advance()
		return v
	case token.Ident:
		p.advance()
		return p.resolveIdent(t)
	default:
		p.errorf(t, "unexpected token %q in expression", t.Text)
		return zero()
	}
}

func (p *parser) resolveIdent(t token.Token) value.Value {
	if p.defs == nil {
		p.errorf(t, "undefined identifier %q", t.Text)
		return zero()
	}
	if p.visited == nil {
		p.visited = map[string]bool{}
	}
	if p.visited[t.Text] {
		p.errorf(t, "circular definition referencing %q", t.Text)
		return zero()
	}
	v, ok := p.defs.ResolveConstant(t.Text)
	if !ok {
		p.errorf(t, "undefined identifier %q", t.Text)
		return zero()
	}
	p.depth++
	p.visited[t.Text] = true
	defer func() {
		p.depth--
		delete(p.visited, t.Text)
	}()
	if p.depth > maxConstDepth {
		p.errorf(t, "expansion recursion limit exceeded resolving %q", t.Text)
		return zero()
	}
	return v
}

// promote brings two numeric values to a common kind per spec §4.3: mixed
// integer/double promotes to double; booleans and strings never promote.
// ok is false if the kinds cannot be compared/combined at all.
func promote(a, b value.Value) (value.Value, value.Value, bool) {
	if a.Kind() == b.Kind() {
		return a, b, true
	}
	if a.Kind() == value.Integer && b.Kind() == value.Double {
		return value.NewDouble(float64(a.Int())), b, true
	}
	if a.Kind() == value.Double && b.Kind() == value.Integer {
		return a, value.NewDouble(float64(b.Int())), true
	}
	return a, b, false
}

// Pos is re-exported for callers that need to build a synthetic span for a
// diagnostic outside the normal token flow (e.g. preprocess reporting an
// .if with no expression at all).
type Pos = source.Pos
