// Package value implements KASM's tagged-union literal model (spec §3 "Value"):
// the six literal kinds a token, expression, or .data directive can produce,
// plus the "plain" vs kOS "value"-wrapped distinction the emitter needs to
// pick a KO kind tag.
package value

import "fmt"

// Kind identifies which arm of the Value union is populated.
type Kind int

const (
	Null Kind = iota
	ArgMarker
	Bool
	Integer
	Double
	String
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case ArgMarker:
		return "argmarker"
	case Bool:
		return "bool"
	case Integer:
		return "integer"
	case Double:
		return "double"
	case String:
		return "string"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is an immutable literal of one of the six kinds above. The
// intermediate integer representation is always int64 (spec §3: "integer
// literals are carried as 64-bit during assembly and narrowed only at KO
// emission time"); narrowing to Byte/Int16/Int32 happens in the assemble
// package's second pass.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
}

// NullValue is the singular null literal.
var NullValue = Value{kind: Null}

// ArgMark is the singular @ sentinel literal.
var ArgMark = Value{kind: ArgMarker}

// NewBool builds a Bool value.
func NewBool(b bool) Value { return Value{kind: Bool, b: b} }

// NewInteger builds an Integer value from its 64-bit intermediate form.
func NewInteger(i int64) Value { return Value{kind: Integer, i: i} }

// NewDouble builds a Double value (IEEE-754 64-bit, per spec §3).
func NewDouble(f float64) Value { return Value{kind: Double, f: f} }

// NewString builds a String value.
func NewString(s string) Value { return Value{kind: String, s: s} }

// Kind reports which arm of the union is populated.
func (v Value) Kind() Kind { return v.kind }

// Bool returns the value's boolean payload; valid only when Kind() == Bool.
func (v Value) Bool() bool { return v.b }

// Int returns the value's 64-bit integer payload; valid only when
// Kind() == Integer.
func (v Value) Int() int64 { return v.i }

// Float returns the value's float payload; valid only when Kind() == Double.
func (v Value) Float() float64 { return v.f }

// Str returns the value's string payload; valid only when Kind() == String.
func (v Value) Str() string { return v.s }

// IsTruthy implements the expression evaluator's notion of truthiness for
// conditional-assembly tests (spec §4.3): zero/empty/false/null are false,
// everything else true.
func (v Value) IsTruthy() bool {
	switch v.kind {
	case Null:
		return false
	case ArgMarker:
		return true
	case Bool:
		return v.b
	case Integer:
		return v.i != 0
	case Double:
		return v.f != 0
	case String:
		return v.s != ""
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.kind {
	case Null:
		return "null"
	case ArgMarker:
		return "@"
	case Bool:
		if v.b {
			return "true"
		}
		return "false"
	case Integer:
		return fmt.Sprintf("%d", v.i)
	case Double:
		return fmt.Sprintf("%g", v.f)
	case String:
		return v.s
	default:
		return "?"
	}
}

// Equal reports whether two values are equal under the expression
// evaluator's equality rules (spec §4.3): same kind and same payload. Mixed
// Integer/Double comparisons are not equal here — the evaluator promotes
// operands to a common kind before calling Equal when a mixed comparison is
// permitted (the == and != operators).
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Null, ArgMarker:
		return true
	case Bool:
		return v.b == o.b
	case Integer:
		return v.i == o.i
	case Double:
		return v.f == o.f
	case String:
		return v.s == o.s
	default:
		return false
	}
}
