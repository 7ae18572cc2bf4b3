package kasm_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerbalasm/kasm"
	"github.com/kerbalasm/kasm/parser"
	"github.com/kerbalasm/kasm/source"
	"github.com/kerbalasm/kasm/value"
)

func unitOf(src string) *source.Unit {
	return source.NewUnit("t.kasm", "", []byte(src))
}

func TestAssemblePushPushAddSto(t *testing.T) {
	asm := kasm.New(kasm.Config{})
	obj, err := asm.AssembleObject(unitOf(`push 2
push 4
add
sto "$x"
`))
	require.NoError(t, err)
	require.Len(t, obj.Text, 4)

	assert.Equal(t, value.KOKindByte, obj.Text[0].Operands[0].Kind)
	assert.Equal(t, int64(2), obj.Text[0].Operands[0].Lit.Int())
	assert.Equal(t, value.KOKindByte, obj.Text[1].Operands[0].Kind)
	assert.Equal(t, int64(4), obj.Text[1].Operands[0].Lit.Int())
	assert.Empty(t, obj.Text[2].Operands)
	assert.Equal(t, value.KOKindString, obj.Text[3].Operands[0].Kind)
	assert.Equal(t, "$x", obj.Text[3].Operands[0].Lit.Str())
}

func TestAssembleRedefinedConstantsEvaluateThroughLatestBinding(t *testing.T) {
	asm := kasm.New(kasm.Config{})
	obj, err := asm.AssembleObject(unitOf(`.define NUM 25
.define OTHERNUM NUM + 5
push OTHERNUM
.define NUM 10
push OTHERNUM
`))
	require.NoError(t, err)
	require.Len(t, obj.Text, 2)
	assert.Equal(t, int64(30), obj.Text[0].Operands[0].Lit.Int())
	assert.Equal(t, int64(15), obj.Text[1].Operands[0].Lit.Int())
}

func TestAssembleMacroArityOverloadsExpandToDistinctOperands(t *testing.T) {
	asm := kasm.New(kasm.Config{})
	obj, err := asm.AssembleObject(unitOf(`.macro RET 0-1 200
ret &1
.endmacro
RET
RET(300)
`))
	require.NoError(t, err)
	require.Len(t, obj.Text, 2)
	assert.Equal(t, int64(200), obj.Text[0].Operands[0].Lit.Int())
	assert.Equal(t, int64(300), obj.Text[1].Operands[0].Lit.Int())
}

func TestAssembleExternFunctionProducesRelocationNotDefinition(t *testing.T) {
	asm := kasm.New(kasm.Config{})
	mainObj, err := asm.AssembleObject(unitOf(`.extern add_two
push 2
push 3
call add_two
`))
	require.NoError(t, err)
	require.Len(t, mainObj.Relocations, 1)
	assert.Equal(t, "add_two", mainObj.Relocations[0].Symbol)

	sym, ok := mainObj.Symbols.Lookup("add_two")
	require.True(t, ok)
	assert.False(t, sym.Defined)
	assert.Equal(t, parser.BindExtern, sym.Binding)
}

func TestAssembleGlobalFunctionDefinitionHasNoRelocation(t *testing.T) {
	asm := kasm.New(kasm.Config{})
	mathObj, err := asm.AssembleObject(unitOf(`.func
.global add_two
add_two:
add
ret 200
`))
	require.NoError(t, err)
	assert.Empty(t, mathObj.Relocations)

	sym, ok := mathObj.Symbols.Lookup("add_two")
	require.True(t, ok)
	assert.True(t, sym.Defined)
	assert.Equal(t, parser.BindGlobal, sym.Binding)
	assert.Equal(t, parser.TypeFunc, sym.Type)
}

func TestAssembleNestedConditionalsPickVerboseBranch(t *testing.T) {
	src := func(verbose string) string {
		return `.define DEBUG 1
.define VERBOSE ` + verbose + `
.ifdef DEBUG
.if VERBOSE == 2
push 2
.else
push 1
.endif
.endif
`
	}

	asm := kasm.New(kasm.Config{})
	two, err := asm.AssembleObject(unitOf(src("2")))
	require.NoError(t, err)
	require.Len(t, two.Text, 1)
	assert.Equal(t, int64(2), two.Text[0].Operands[0].Lit.Int())

	one, err := asm.AssembleObject(unitOf(src("1")))
	require.NoError(t, err)
	require.Len(t, one.Text, 1)
	assert.Equal(t, int64(1), one.Text[0].Operands[0].Lit.Int())
}

func TestAssembleDuplicateLabelIsError(t *testing.T) {
	asm := kasm.New(kasm.Config{})
	_, err := asm.AssembleObject(unitOf("foo:\nfoo:\n"))
	assert.Error(t, err)
}

func TestPreprocessThenSkipPreprocessMatchesDirectAssembly(t *testing.T) {
	src := unitOf(`.define NUM 5
push NUM
`)

	asm := kasm.New(kasm.Config{SourceName: "t.kasm"})
	direct, err := asm.Assemble(src)
	require.NoError(t, err)

	preprocessed, err := asm.Preprocess(src)
	require.NoError(t, err)

	skipAsm := kasm.New(kasm.Config{SourceName: "t.kasm", SkipPreprocess: true})
	viaPreproc, err := skipAsm.Assemble(unitOf(preprocessed))
	require.NoError(t, err)

	if diff := cmp.Diff(direct, viaPreproc); diff != "" {
		t.Errorf("KO bytes differ after round-tripping through -p/-a (-direct +viaPreproc):\n%s", diff)
	}
}

func TestAssembleRecursiveDefineNamesOffendingConstant(t *testing.T) {
	asm := kasm.New(kasm.Config{})
	_, err := asm.AssembleObject(unitOf(".define a a\npush a\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a")
}

func TestAssembleUndefinedInternalReferenceIsError(t *testing.T) {
	asm := kasm.New(kasm.Config{})
	_, err := asm.AssembleObject(unitOf("jmp nosuchlabel\n"))
	assert.Error(t, err)
}

func TestAssembleObject_instructionCountMatchesLocationCounter(t *testing.T) {
	asm := kasm.New(kasm.Config{})
	obj, err := asm.AssembleObject(unitOf("a:\npush 1\nb:\npush 2\nadd\n"))
	require.NoError(t, err)

	symA, _ := obj.Symbols.Lookup("a")
	symB, _ := obj.Symbols.Lookup("b")
	assert.Equal(t, 1, symA.Offset)
	assert.Equal(t, 2, symB.Offset)
	assert.Len(t, obj.Text, 3)
}
