package ko

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/kerbalasm/kasm/assemble"
	"github.com/kerbalasm/kasm/parser"
	"github.com/kerbalasm/kasm/value"
)

// Decoded is a read-back KO container: everything Encode wrote, without
// re-hydrating it into an assemble.Object (pass-2's richer types — label
// names, wrap flags — don't survive the round trip, only what §6 commits
// to keeping).
type Decoded struct {
	Symbols     []DecodedSymbol
	Text        []assemble.EncodedInstruction
	Data        []assemble.EncodedData
	Relocations []DecodedRelocation
	Meta        Meta
}

// DecodedSymbol is one read-back symbol-table entry.
type DecodedSymbol struct {
	Name     string
	Binding  parser.Binding
	Type     parser.SymType
	Section  parser.Section
	Offset   int
	Defined  bool
	TypeKind value.TypeKind
}

// DecodedRelocation is one read-back relocation entry, with the symbol
// index resolved back to its name.
type DecodedRelocation struct {
	Section     parser.Section
	Offset      int
	OperandSlot int
	Symbol      string
}

// Decode parses a KO container written by Encode. It rejects a Version
// newer than this package understands (spec §6, §9).
func Decode(data []byte) (*Decoded, error) {
	r := &reader{buf: data}

	var magic [4]byte
	if err := r.bytes(magic[:]); err != nil {
		return nil, fmt.Errorf("ko: reading magic: %w", err)
	}
	if magic != Magic {
		return nil, fmt.Errorf("ko: bad magic %q, expected %q", magic, Magic)
	}
	version, err := r.u16()
	if err != nil {
		return nil, fmt.Errorf("ko: reading version: %w", err)
	}
	if version > Version {
		return nil, fmt.Errorf("ko: version %d is newer than supported version %d", version, Version)
	}

	strs, err := readStringTable(r)
	if err != nil {
		return nil, err
	}

	numSections, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("ko: reading section count: %w", err)
	}
	for i := uint32(0); i < numSections; i++ {
		if _, _, _, err := readSectionEntry(r); err != nil {
			return nil, err
		}
	}

	numSymbols, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("ko: reading symbol count: %w", err)
	}
	symbols := make([]DecodedSymbol, numSymbols)
	for i := range symbols {
		s, err := readSymbol(r, strs)
		if err != nil {
			return nil, err
		}
		symbols[i] = s
	}

	numText, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("ko: reading text count: %w", err)
	}
	text := make([]assemble.EncodedInstruction, numText)
	for i := range text {
		ins, err := readInstruction(r, strs)
		if err != nil {
			return nil, err
		}
		text[i] = ins
	}

	numData, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("ko: reading data count: %w", err)
	}
	dataEntries := make([]assemble.EncodedData, numData)
	for i := range dataEntries {
		d, err := readDataEntry(r, strs)
		if err != nil {
			return nil, err
		}
		dataEntries[i] = d
	}

	numRelocs, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("ko: reading relocation count: %w", err)
	}
	relocs := make([]DecodedRelocation, numRelocs)
	for i := range relocs {
		rel, err := readRelocation(r, strs, symbols)
		if err != nil {
			return nil, err
		}
		relocs[i] = rel
	}

	srcNameIdx, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("ko: reading source-name index: %w", err)
	}
	commentIdx, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("ko: reading comment index: %w", err)
	}
	srcName, err := strs.at(srcNameIdx)
	if err != nil {
		return nil, err
	}
	comment, err := strs.at(commentIdx)
	if err != nil {
		return nil, err
	}

	return &Decoded{
		Symbols:     symbols,
		Text:        text,
		Data:        dataEntries,
		Relocations: relocs,
		Meta:        Meta{SourceName: srcName, Comment: comment},
	}, nil
}

func readStringTable(r *reader) (*readStrings, error) {
	n, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("ko: reading string table count: %w", err)
	}
	strs := make([]string, n)
	for i := range strs {
		l, err := r.u32()
		if err != nil {
			return nil, fmt.Errorf("ko: reading string %d length: %w", i, err)
		}
		b := make([]byte, l)
		if err := r.bytes(b); err != nil {
			return nil, fmt.Errorf("ko: reading string %d: %w", i, err)
		}
		strs[i] = string(b)
	}
	return &readStrings{strs: strs}, nil
}

type readStrings struct{ strs []string }

func (s *readStrings) at(i uint32) (string, error) {
	if int(i) >= len(s.strs) {
		return "", fmt.Errorf("ko: string index %d out of range (table has %d entries)", i, len(s.strs))
	}
	return s.strs[i], nil
}

func readSectionEntry(r *reader) (nameIdx, count, size uint32, err error) {
	if nameIdx, err = r.u32(); err != nil {
		return
	}
	if count, err = r.u32(); err != nil {
		return
	}
	size, err = r.u32()
	return
}

func readSymbol(r *reader, strs *readStrings) (DecodedSymbol, error) {
	var s DecodedSymbol
	nameIdx, err := r.u32()
	if err != nil {
		return s, err
	}
	name, err := strs.at(nameIdx)
	if err != nil {
		return s, err
	}
	binding, err := r.u8()
	if err != nil {
		return s, err
	}
	typ, err := r.u8()
	if err != nil {
		return s, err
	}
	sectionIdx, err := r.u8()
	if err != nil {
		return s, err
	}
	offset, err := r.u32()
	if err != nil {
		return s, err
	}
	defined, err := r.u8()
	if err != nil {
		return s, err
	}
	typeKind, err := r.u8()
	if err != nil {
		return s, err
	}
	s = DecodedSymbol{
		Name:     name,
		Binding:  parser.Binding(binding),
		Type:     parser.SymType(typ),
		Section:  sectionFromIndex(sectionIdx),
		Offset:   int(offset),
		Defined:  defined != 0,
		TypeKind: value.TypeKind(typeKind),
	}
	return s, nil
}

func sectionFromIndex(i byte) parser.Section {
	if i == 1 {
		return parser.SectionData
	}
	return parser.SectionText
}

func readInstruction(r *reader, strs *readStrings) (assemble.EncodedInstruction, error) {
	opcode, err := r.u8()
	if err != nil {
		return assemble.EncodedInstruction{}, err
	}
	count, err := r.u8()
	if err != nil {
		return assemble.EncodedInstruction{}, err
	}
	ins := assemble.EncodedInstruction{Opcode: opcode}
	for i := byte(0); i < count; i++ {
		op, err := readOperand(r, strs)
		if err != nil {
			return ins, err
		}
		ins.Operands = append(ins.Operands, op)
	}
	return ins, nil
}

func readDataEntry(r *reader, strs *readStrings) (assemble.EncodedData, error) {
	nameIdx, err := r.u32()
	if err != nil {
		return assemble.EncodedData{}, err
	}
	name, err := strs.at(nameIdx)
	if err != nil {
		return assemble.EncodedData{}, err
	}
	op, err := readOperand(r, strs)
	if err != nil {
		return assemble.EncodedData{}, err
	}
	return assemble.EncodedData{Name: name, Kind: op.Kind, Lit: op.Lit}, nil
}

func readOperand(r *reader, strs *readStrings) (assemble.EncodedOperand, error) {
	kindByte, err := r.u8()
	if err != nil {
		return assemble.EncodedOperand{}, err
	}
	kind := value.KOKind(kindByte)
	switch kind {
	case value.KOKindNull, value.KOKindArgMarker:
		return assemble.EncodedOperand{Kind: kind}, nil
	case value.KOKindBool, value.KOKindBoolValue:
		b, err := r.u8()
		if err != nil {
			return assemble.EncodedOperand{}, err
		}
		return assemble.EncodedOperand{Kind: kind, Lit: value.NewBool(b != 0)}, nil
	case value.KOKindByte:
		b, err := r.u8()
		if err != nil {
			return assemble.EncodedOperand{}, err
		}
		return assemble.EncodedOperand{Kind: kind, Lit: value.NewInteger(int64(int8(b)))}, nil
	case value.KOKindInt16:
		v, err := r.u16()
		if err != nil {
			return assemble.EncodedOperand{}, err
		}
		return assemble.EncodedOperand{Kind: kind, Lit: value.NewInteger(int64(int16(v)))}, nil
	case value.KOKindInt32:
		v, err := r.u32()
		if err != nil {
			return assemble.EncodedOperand{}, err
		}
		return assemble.EncodedOperand{Kind: kind, Lit: value.NewInteger(int64(int32(v)))}, nil
	case value.KOKindFloat:
		v, err := r.u32()
		if err != nil {
			return assemble.EncodedOperand{}, err
		}
		return assemble.EncodedOperand{Kind: kind, Lit: value.NewDouble(float64(math.Float32frombits(v)))}, nil
	case value.KOKindDouble, value.KOKindScalarDbl:
		v, err := r.u64()
		if err != nil {
			return assemble.EncodedOperand{}, err
		}
		return assemble.EncodedOperand{Kind: kind, Lit: value.NewDouble(math.Float64frombits(v))}, nil
	case value.KOKindScalarInt:
		v, err := r.u64()
		if err != nil {
			return assemble.EncodedOperand{}, err
		}
		return assemble.EncodedOperand{Kind: kind, Lit: value.NewInteger(int64(v))}, nil
	case value.KOKindString, value.KOKindStringValue:
		idx, err := r.u32()
		if err != nil {
			return assemble.EncodedOperand{}, err
		}
		s, err := strs.at(idx)
		if err != nil {
			return assemble.EncodedOperand{}, err
		}
		return assemble.EncodedOperand{Kind: kind, Lit: value.NewString(s)}, nil
	default:
		return assemble.EncodedOperand{}, fmt.Errorf("ko: unknown operand kind tag %d", kindByte)
	}
}

func readRelocation(r *reader, strs *readStrings, symbols []DecodedSymbol) (DecodedRelocation, error) {
	sectionByte, err := r.u8()
	if err != nil {
		return DecodedRelocation{}, err
	}
	offset, err := r.u32()
	if err != nil {
		return DecodedRelocation{}, err
	}
	slot, err := r.u8()
	if err != nil {
		return DecodedRelocation{}, err
	}
	symIdx, err := r.u32()
	if err != nil {
		return DecodedRelocation{}, err
	}
	if int(symIdx) >= len(symbols) {
		return DecodedRelocation{}, fmt.Errorf("ko: relocation symbol index %d out of range", symIdx)
	}
	return DecodedRelocation{
		Section:     sectionFromIndex(sectionByte),
		Offset:      int(offset),
		OperandSlot: int(slot),
		Symbol:      symbols[symIdx].Name,
	}, nil
}

// reader is a bounds-checked cursor over an in-memory KO buffer, in the
// style of chazu-maggie's Chunk.Deserialize position tracking.
type reader struct {
	buf []byte
	pos int
}

func (r *reader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return fmt.Errorf("ko: unexpected end of file at offset %d (need %d more bytes)", r.pos, n)
	}
	return nil
}

func (r *reader) bytes(dst []byte) error {
	if err := r.need(len(dst)); err != nil {
		return err
	}
	copy(dst, r.buf[r.pos:])
	r.pos += len(dst)
	return nil
}

func (r *reader) u8() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) u16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) u64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}
