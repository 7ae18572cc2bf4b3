package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerbalasm/kasm/diag"
	"github.com/kerbalasm/kasm/lexer"
	"github.com/kerbalasm/kasm/parser"
	"github.com/kerbalasm/kasm/source"
	"github.com/kerbalasm/kasm/value"
)

func parseSrc(t *testing.T, src string) (*parser.Program, error) {
	t.Helper()
	h := diag.NewHandler(nil)
	unit := source.NewUnit("t.kasm", "", []byte(src))
	toks, err := lexer.New(unit, h).Lex()
	require.NoError(t, err)
	return parser.New(toks, nil, h).Parse()
}

func TestLabelAndInnerLabelAreQualified(t *testing.T) {
	prog, err := parseSrc(t, "main:\n.loop:\npush 1\n")
	require.NoError(t, err)
	require.Len(t, prog.Items, 3)
	assert.Equal(t, "main", prog.Items[0].Label.Name)
	assert.False(t, prog.Items[0].Label.Inner)
	assert.Equal(t, "main.loop", prog.Items[1].Label.Name)
	assert.True(t, prog.Items[1].Label.Inner)
}

func TestInnerLabelWithoutOuterIsError(t *testing.T) {
	_, err := parseSrc(t, ".loop: push 1\n")
	assert.Error(t, err)
}

func TestSectionSwitchAndDataEntry(t *testing.T) {
	prog, err := parseSrc(t, ".section .data\nfoo .i32 5\n.section .text\npush 1\n")
	require.NoError(t, err)
	require.Len(t, prog.Items, 4)
	assert.Equal(t, parser.SectionData, prog.Items[0].Switch.Section)
	assert.Equal(t, "foo", prog.Items[1].Data.Name)
	assert.Equal(t, value.TKInt32, prog.Items[1].Data.TypeKind)
	assert.Equal(t, int64(5), prog.Items[1].Data.Lit.Int())
	assert.Equal(t, parser.SectionText, prog.Items[2].Switch.Section)
	assert.NotNil(t, prog.Items[3].Instruction)
}

func TestDataEntryTypeKindMismatchIsError(t *testing.T) {
	_, err := parseSrc(t, ".section .data\nfoo .i32 \"nope\"\n")
	assert.Error(t, err)
}

func TestDataEntryRejectsLabelLiteral(t *testing.T) {
	_, err := parseSrc(t, ".section .data\nfoo .i32 bar\n")
	assert.Error(t, err)
}

func TestBindingAndTypeDirectivesAttachAttrs(t *testing.T) {
	prog, err := parseSrc(t, ".extern foo\n.global bar\n.local baz\n.type .i32 qux\n")
	require.NoError(t, err)
	require.Len(t, prog.Items, 4)
	assert.Equal(t, "foo", prog.Items[0].Attr.Name)
	assert.Equal(t, parser.BindExtern, *prog.Items[0].Attr.Binding)
	assert.Equal(t, "bar", prog.Items[1].Attr.Name)
	assert.Equal(t, parser.BindGlobal, *prog.Items[1].Attr.Binding)
	assert.Equal(t, "baz", prog.Items[2].Attr.Name)
	assert.Equal(t, parser.BindLocal, *prog.Items[2].Attr.Binding)
	assert.Equal(t, "qux", prog.Items[3].Attr.Name)
	assert.Equal(t, parser.TypeTypedData, *prog.Items[3].Attr.Type)
	assert.Equal(t, value.TKInt32, prog.Items[3].Attr.TypeKind)
}

func TestFuncDirectiveMarksRegion(t *testing.T) {
	prog, err := parseSrc(t, ".func\nmain:\n")
	require.NoError(t, err)
	require.Len(t, prog.Items, 2)
	assert.True(t, prog.Items[0].Attr.Func)
}

func TestPushAcceptsNarrowedIntegerWidths(t *testing.T) {
	for _, src := range []string{"push 5\n", "push 40000\n", "push @\n", "push #\n", `push "hi"` + "\n"} {
		_, err := parseSrc(t, src)
		assert.NoError(t, err, "src=%q", src)
	}
}

func TestPushRejectsPlainDouble(t *testing.T) {
	_, err := parseSrc(t, "push 1.5\n")
	assert.Error(t, err)
}

func TestPushvWrapsOperandsToValueForms(t *testing.T) {
	for _, src := range []string{"pushv 5\n", "pushv 1.5\n", "pushv true\n"} {
		_, err := parseSrc(t, src)
		assert.NoError(t, err, "src=%q", src)
	}
}

func TestCallAcceptsOneOrTwoOperandOverloads(t *testing.T) {
	_, err := parseSrc(t, `call "foo"`+"\n")
	assert.NoError(t, err)
	_, err = parseSrc(t, `call "foo", 200`+"\n")
	assert.NoError(t, err)
}

func TestCallRejectsThreeOperands(t *testing.T) {
	_, err := parseSrc(t, `call "foo", 200, 3`+"\n")
	assert.Error(t, err)
}

func TestJumpTargetAcceptsLabelReference(t *testing.T) {
	_, err := parseSrc(t, "jmp foo\n")
	assert.NoError(t, err)
}

func TestUnknownMnemonicIsError(t *testing.T) {
	_, err := parseSrc(t, "frobnicate\n")
	assert.Error(t, err)
}
