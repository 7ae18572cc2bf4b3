package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kerbalasm/kasm/value"
)

func TestIsTruthy(t *testing.T) {
	assert.False(t, value.NullValue.IsTruthy())
	assert.True(t, value.ArgMark.IsTruthy())
	assert.False(t, value.NewBool(false).IsTruthy())
	assert.True(t, value.NewBool(true).IsTruthy())
	assert.False(t, value.NewInteger(0).IsTruthy())
	assert.True(t, value.NewInteger(-1).IsTruthy())
	assert.False(t, value.NewDouble(0).IsTruthy())
	assert.False(t, value.NewString("").IsTruthy())
	assert.True(t, value.NewString("x").IsTruthy())
}

func TestEqual(t *testing.T) {
	assert.True(t, value.NewInteger(5).Equal(value.NewInteger(5)))
	assert.False(t, value.NewInteger(5).Equal(value.NewInteger(6)))
	// Mixed-kind comparisons are never equal directly; the expression
	// evaluator promotes before calling Equal.
	assert.False(t, value.NewInteger(5).Equal(value.NewDouble(5)))
	assert.True(t, value.NullValue.Equal(value.NullValue))
	assert.True(t, value.ArgMark.Equal(value.ArgMark))
	assert.False(t, value.NullValue.Equal(value.ArgMark))
}

func TestStringFormatting(t *testing.T) {
	assert.Equal(t, "42", value.NewInteger(42).String())
	assert.Equal(t, "true", value.NewBool(true).String())
	assert.Equal(t, "@", value.ArgMark.String())
	assert.Equal(t, "null", value.NullValue.String())
}

func TestTypeKindDirectiveMapping(t *testing.T) {
	cases := []struct {
		tk   value.TypeKind
		dir  string
		kind value.KOKind
	}{
		{value.TKByte, ".b", value.KOKindByte},
		{value.TKInt16, ".i16", value.KOKindInt16},
		{value.TKInt32, ".i32", value.KOKindInt32},
		{value.TKFloat32, ".f32", value.KOKindFloat},
		{value.TKFloat64Value, ".f64v", value.KOKindScalarDbl},
		{value.TKString, ".s", value.KOKindString},
		{value.TKStringValue, ".sv", value.KOKindStringValue},
		{value.TKBool, ".bl", value.KOKindBool},
		{value.TKBoolValue, ".bv", value.KOKindBoolValue},
		{value.TKScalarInt, ".si", value.KOKindScalarInt},
		{value.TKScalarDouble, ".sd", value.KOKindScalarDbl},
	}
	for _, c := range cases {
		assert.Equal(t, c.dir, c.tk.Directive())
		assert.Equal(t, c.kind, c.tk.KOKind())
	}
}
