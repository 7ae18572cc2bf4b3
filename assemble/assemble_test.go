package assemble_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerbalasm/kasm/assemble"
	"github.com/kerbalasm/kasm/diag"
	"github.com/kerbalasm/kasm/lexer"
	"github.com/kerbalasm/kasm/parser"
	"github.com/kerbalasm/kasm/source"
	"github.com/kerbalasm/kasm/value"
)

func assembleSrc(t *testing.T, src string) (*assemble.Object, error) {
	t.Helper()
	h := diag.NewHandler(nil)
	unit := source.NewUnit("t.kasm", "", []byte(src))
	toks, err := lexer.New(unit, h).Lex()
	require.NoError(t, err)
	prog, err := parser.New(toks, nil, h).Parse()
	require.NoError(t, err)
	return assemble.Assemble(prog, diag.NewHandler(nil))
}

func TestLocationCounterMatchesEmittedInstructionCount(t *testing.T) {
	obj, err := assembleSrc(t, "main:\npush 1\npush 2\nadd\n")
	require.NoError(t, err)
	sym, ok := obj.Symbols.Lookup("main")
	require.True(t, ok)
	assert.Equal(t, 1, sym.Offset)
	assert.Len(t, obj.Text, 3)
}

func TestDuplicateSymbolIsError(t *testing.T) {
	_, err := assembleSrc(t, "main:\nmain:\n")
	assert.Error(t, err)
}

func TestBindingConflictIsError(t *testing.T) {
	_, err := assembleSrc(t, ".extern foo\n.global foo\n")
	assert.Error(t, err)
}

func TestFuncAttributeUpgradesFollowingLabel(t *testing.T) {
	obj, err := assembleSrc(t, ".func\nmain:\npush 1\n")
	require.NoError(t, err)
	sym, ok := obj.Symbols.Lookup("main")
	require.True(t, ok)
	assert.Equal(t, parser.TypeFunc, sym.Type)
}

func TestIntegerOperandsNarrowToSmallestTag(t *testing.T) {
	obj, err := assembleSrc(t, "push 1\npush 200\npush 40000\n")
	require.NoError(t, err)
	require.Len(t, obj.Text, 3)
	assert.Equal(t, value.KOKindByte, obj.Text[0].Operands[0].Kind)
	assert.Equal(t, value.KOKindInt16, obj.Text[1].Operands[0].Kind)
	assert.Equal(t, value.KOKindInt32, obj.Text[2].Operands[0].Kind)
}

func TestLabelOperandResolvesToRelativeDelta(t *testing.T) {
	obj, err := assembleSrc(t, "main:\npush 1\njmp main\n")
	require.NoError(t, err)
	require.Len(t, obj.Text, 2)
	jmpOperand := obj.Text[1].Operands[0]
	// main sits at LC 1; jmp is the instruction at LC 2, so the target
	// resolves to the signed delta -1, not main's absolute offset.
	assert.Equal(t, value.KOKindInt32, jmpOperand.Kind)
	assert.Equal(t, int64(-1), jmpOperand.Lit.Int())
}

func TestLabelOperandResolvesFuncTargetByName(t *testing.T) {
	obj, err := assembleSrc(t, ".func\nadd_two:\nadd\nret 200\nmain:\npush 1\ncall add_two\n")
	require.NoError(t, err)
	callOperand := obj.Text[len(obj.Text)-1].Operands[0]
	assert.Equal(t, value.KOKindStringValue, callOperand.Kind)
	assert.Equal(t, "add_two", callOperand.Lit.Str())
}

func TestExternSymbolEmitsRelocation(t *testing.T) {
	obj, err := assembleSrc(t, ".extern helper\ncall helper\n")
	require.NoError(t, err)
	require.Len(t, obj.Relocations, 1)
	reloc := obj.Relocations[0]
	assert.Equal(t, "helper", reloc.Symbol)
	assert.Equal(t, parser.SectionText, reloc.Section)
	assert.Equal(t, 0, reloc.Offset)
	assert.Equal(t, value.KOKindInt32, obj.Text[0].Operands[0].Kind)
}

func TestUndefinedInternalReferenceIsError(t *testing.T) {
	_, err := assembleSrc(t, "jmp nosuchlabel\n")
	assert.Error(t, err)
}
