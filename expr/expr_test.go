package expr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerbalasm/kasm/diag"
	"github.com/kerbalasm/kasm/expr"
	"github.com/kerbalasm/kasm/lexer"
	"github.com/kerbalasm/kasm/source"
	"github.com/kerbalasm/kasm/token"
	"github.com/kerbalasm/kasm/value"
)

func lexExpr(t *testing.T, src string) []token.Token {
	t.Helper()
	unit := source.NewUnit("expr_test", "", []byte(src))
	h := diag.NewHandler(nil)
	toks, err := lexer.New(unit, h).Lex()
	require.NoError(t, err)
	// Drop the trailing EOL/EOF the lexer appends, expr.Eval wants just the
	// expression's own tokens.
	for len(toks) > 0 && toks[len(toks)-1].IsEnd() {
		toks = toks[:len(toks)-1]
	}
	return toks
}

type definitions map[string]value.Value

func (d definitions) ResolveConstant(name string) (value.Value, bool) {
	v, ok := d[name]
	return v, ok
}

func TestEvalArithmeticPrecedence(t *testing.T) {
	h := diag.NewHandler(nil)
	v, err := expr.Eval(lexExpr(t, "2 + 3 * 4"), nil, h)
	require.NoError(t, err)
	assert.Equal(t, value.NewInteger(14), v)
}

func TestEvalMixedIntDoublePromotes(t *testing.T) {
	h := diag.NewHandler(nil)
	v, err := expr.Eval(lexExpr(t, "1 + 2.5"), nil, h)
	require.NoError(t, err)
	assert.Equal(t, value.Double, v.Kind())
	assert.Equal(t, 3.5, v.Float())
}

func TestEvalIntegerDivisionTruncates(t *testing.T) {
	h := diag.NewHandler(nil)
	v, err := expr.Eval(lexExpr(t, "7 / 2"), nil, h)
	require.NoError(t, err)
	assert.Equal(t, value.NewInteger(3), v)
}

func TestEvalBooleanOperatorRequiresBoolOperands(t *testing.T) {
	h := diag.NewHandler(nil)
	_, err := expr.Eval(lexExpr(t, "1 && true"), nil, h)
	assert.Error(t, err)
}

func TestEvalDivisionByZero(t *testing.T) {
	h := diag.NewHandler(nil)
	_, err := expr.Eval(lexExpr(t, "1 / 0"), nil, h)
	assert.Error(t, err)
}

func TestEvalResolvesZeroArityDefinition(t *testing.T) {
	h := diag.NewHandler(nil)
	defs := definitions{"NUM": value.NewInteger(25)}
	v, err := expr.Eval(lexExpr(t, "NUM + 5"), defs, h)
	require.NoError(t, err)
	assert.Equal(t, value.NewInteger(30), v)
}

func TestEvalUndefinedIdentifierIsError(t *testing.T) {
	h := diag.NewHandler(nil)
	_, err := expr.Eval(lexExpr(t, "MISSING"), definitions{}, h)
	assert.Error(t, err)
}
