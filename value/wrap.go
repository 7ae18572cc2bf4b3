package value

// Wrap selects between a value's "plain" VM representation and its kOS
// "value"-wrapped representation (spec §3, §6): the same Integer Value kind
// emits as either a plain narrowed integer (Byte/Int16/Int32) or a wrapped
// ScalarInt depending on whether it reached the emitter via push or pushv
// (or via a .data directive naming a wrapped typekind directly). Wrap only
// distinguishes the four kinds kOS actually wraps (Bool, Integer, Double,
// String); the structural kinds (Null, ArgMarker) have no wrapped form.
type Wrap int

const (
	Plain Wrap = iota
	Wrapped
)

// KOKind is a KO container kind tag (spec §6, 13 fixed values).
type KOKind int

const (
	KOKindNull        KOKind = 0
	KOKindBool        KOKind = 1
	KOKindByte        KOKind = 2
	KOKindInt16       KOKind = 3
	KOKindInt32       KOKind = 4
	KOKindFloat       KOKind = 5
	KOKindDouble      KOKind = 6
	KOKindString      KOKind = 7
	KOKindArgMarker   KOKind = 8
	KOKindScalarInt   KOKind = 9
	KOKindScalarDbl   KOKind = 10
	KOKindBoolValue   KOKind = 11
	KOKindStringValue KOKind = 12
)

// TypeKind names one of the .data section's eleven explicit typekind
// directives. No directive maps to Null, ArgMarker or plain Double.
type TypeKind int

const (
	TKByte         TypeKind = iota // .b    -> Byte
	TKInt16                        // .i16  -> Int16
	TKInt32                        // .i32  -> Int32
	TKFloat32                      // .f32  -> Float
	TKFloat64Value                 // .f64v -> ScalarDouble
	TKString                       // .s    -> String
	TKStringValue                  // .sv   -> StringValue
	TKBool                         // .bl   -> Bool
	TKBoolValue                    // .bv   -> BoolValue
	TKScalarInt                    // .si   -> ScalarInt
	TKScalarDouble                 // .sd   -> ScalarDouble (from an integer source narrowed to double)
)

// KOKind reports the container kind tag a given directive always emits.
func (t TypeKind) KOKind() KOKind {
	switch t {
	case TKByte:
		return KOKindByte
	case TKInt16:
		return KOKindInt16
	case TKInt32:
		return KOKindInt32
	case TKFloat32:
		return KOKindFloat
	case TKFloat64Value:
		return KOKindScalarDbl
	case TKString:
		return KOKindString
	case TKStringValue:
		return KOKindStringValue
	case TKBool:
		return KOKindBool
	case TKBoolValue:
		return KOKindBoolValue
	case TKScalarInt:
		return KOKindScalarInt
	case TKScalarDouble:
		return KOKindScalarDbl
	default:
		return KOKindNull
	}
}

// Directive returns the directive token spelling for a TypeKind, for
// re-emission in diagnostics and disassembly-style dumps.
func (t TypeKind) Directive() string {
	switch t {
	case TKByte:
		return ".b"
	case TKInt16:
		return ".i16"
	case TKInt32:
		return ".i32"
	case TKFloat32:
		return ".f32"
	case TKFloat64Value:
		return ".f64v"
	case TKString:
		return ".s"
	case TKStringValue:
		return ".sv"
	case TKBool:
		return ".bl"
	case TKBoolValue:
		return ".bv"
	case TKScalarInt:
		return ".si"
	case TKScalarDouble:
		return ".sd"
	default:
		return ""
	}
}
