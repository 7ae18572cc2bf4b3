package token_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kerbalasm/kasm/source"
	"github.com/kerbalasm/kasm/token"
)

func TestRenderRoundTripsLabelsAndOperators(t *testing.T) {
	var sp source.Span
	toks := []token.Token{
		token.New(token.Label, "start", sp),
		token.New(token.Ident, "push", sp),
		token.New(token.Integer, "2", sp),
		token.New(token.EOL, "", sp),
		token.New(token.InnerLabelDef, ".loop", sp),
		token.New(token.Ident, "jmp", sp),
		token.New(token.InnerLabel, ".loop", sp),
		token.New(token.EOL, "", sp),
		token.New(token.EOF, "", sp),
	}
	out := token.Render(toks)
	assert.Equal(t, "start: push 2\n.loop: jmp .loop\n", out)
}

func TestRenderPreservesLiteralSpelling(t *testing.T) {
	var sp source.Span
	toks := []token.Token{
		token.New(token.Ident, "push", sp),
		token.New(token.Integer, "0x1_F", sp),
		token.New(token.EOL, "", sp),
		token.New(token.Ident, "sto", sp),
		token.New(token.String, `"hi\n"`, sp),
		token.New(token.EOF, "", sp),
	}
	assert.Equal(t, "push 0x1_F\nsto \"hi\\n\"", token.Render(toks))
}
