package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerbalasm/kasm/diag"
	"github.com/kerbalasm/kasm/lexer"
	"github.com/kerbalasm/kasm/source"
	"github.com/kerbalasm/kasm/token"
)

func lex(t *testing.T, src string) []token.Token {
	t.Helper()
	h := diag.NewHandler(nil)
	unit := source.NewUnit("t.kasm", "", []byte(src))
	toks, err := lexer.New(unit, h).Lex()
	require.NoError(t, err)
	return toks
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestLexPushWithIntegerOperand(t *testing.T) {
	toks := lex(t, `push 2`)
	assert.Equal(t, []token.Kind{token.Ident, token.Integer, token.EOF}, kinds(toks))
	assert.Equal(t, int64(2), toks[1].Lit.Int())
}

func TestLexIntegerRadices(t *testing.T) {
	toks := lex(t, "123\n0x1_F\n0b101")
	ints := []token.Token{toks[0], toks[2], toks[4]}
	assert.Equal(t, int64(123), ints[0].Lit.Int())
	assert.Equal(t, int64(0x1F), ints[1].Lit.Int())
	assert.Equal(t, int64(0b101), ints[2].Lit.Int())
}

func TestLexDoubleRequiresBothSides(t *testing.T) {
	toks := lex(t, "1.5")
	assert.Equal(t, token.Double, toks[0].Kind)
	assert.Equal(t, 1.5, toks[0].Lit.Float())
}

func TestLexStringEscapes(t *testing.T) {
	toks := lex(t, `"hi\n"`)
	assert.Equal(t, "hi\n", toks[0].Lit.Str())
	assert.Equal(t, `"hi\n"`, toks[0].Text)
}

func TestLexLineCommentStopsAtNewline(t *testing.T) {
	toks := lex(t, "push 1 ; a comment\npush 2")
	assert.Equal(t, []token.Kind{
		token.Ident, token.Integer, token.EOL, token.Ident, token.Integer, token.EOF,
	}, kinds(toks))
}

func TestLexLineContinuationJoinsLines(t *testing.T) {
	toks := lex(t, "push 1 \\\n+ 2")
	// The continuation elides the newline, so this scans as one logical
	// line with no intervening EOL.
	assert.NotContains(t, kinds(toks), token.EOL)
}

func TestLexLabelAndInnerLabel(t *testing.T) {
	toks := lex(t, "outer:\n.inner:\njmp .inner")
	assert.Equal(t, token.Label, toks[0].Kind)
	assert.Equal(t, "outer", toks[0].Text)
	assert.Equal(t, token.InnerLabelDef, toks[2].Kind)
	assert.Equal(t, ".inner", toks[2].Text)
}

func TestLexDirectiveVsInnerLabel(t *testing.T) {
	toks := lex(t, ".global foo\n.notadirective")
	assert.Equal(t, token.Directive, toks[0].Kind)
	assert.Equal(t, token.InnerLabel, toks[3].Kind)
}

func TestLexBooleanAndNullKeywords(t *testing.T) {
	toks := lex(t, "true false null")
	assert.Equal(t, []token.Kind{token.True, token.False, token.Null, token.EOF}, kinds(toks))
}
