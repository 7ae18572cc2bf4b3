package ko

import (
	"encoding/binary"
	"math"

	"github.com/kerbalasm/kasm/assemble"
	"github.com/kerbalasm/kasm/parser"
	"github.com/kerbalasm/kasm/value"
)

// Encode serializes obj into a KO container (spec §6). Section offsets
// are already final coming out of pass 2; this package only needs to lay
// the records out in the documented order and assign string-table
// indices.
func Encode(obj *assemble.Object, meta Meta) ([]byte, error) {
	strs := newStringTable()
	textNameIdx := strs.intern(".text")
	dataNameIdx := strs.intern(".data")

	symbols := obj.Symbols.All()
	symIndex := make(map[string]uint32, len(symbols))
	for i, s := range symbols {
		symIndex[s.Name] = uint32(i)
		strs.intern(s.Name)
	}

	textBuf := encodeText(obj.Text, strs)
	dataBuf := encodeData(obj.Data, strs)
	symBuf := encodeSymbols(symbols, strs)
	relocBuf := encodeRelocations(obj.Relocations, symIndex)

	srcNameIdx := strs.intern(meta.SourceName)
	commentIdx := strs.intern(meta.Comment)

	out := make([]byte, 0, 64+len(strs.strs)*16+len(symBuf)+len(textBuf)+len(dataBuf)+len(relocBuf))
	out = append(out, Magic[:]...)
	out = binary.BigEndian.AppendUint16(out, Version)

	out = binary.BigEndian.AppendUint32(out, uint32(len(strs.strs)))
	for _, s := range strs.strs {
		out = binary.BigEndian.AppendUint32(out, uint32(len(s)))
		out = append(out, s...)
	}

	// Section table: fixed two entries, .text then .data, each
	// (name-index, record-count, byte-size).
	out = binary.BigEndian.AppendUint32(out, 2)
	out = appendSectionEntry(out, textNameIdx, uint32(len(obj.Text)), uint32(len(textBuf)))
	out = appendSectionEntry(out, dataNameIdx, uint32(len(obj.Data)), uint32(len(dataBuf)))

	out = binary.BigEndian.AppendUint32(out, uint32(len(symbols)))
	out = append(out, symBuf...)

	out = binary.BigEndian.AppendUint32(out, uint32(len(obj.Text)))
	out = append(out, textBuf...)

	out = binary.BigEndian.AppendUint32(out, uint32(len(obj.Data)))
	out = append(out, dataBuf...)

	out = binary.BigEndian.AppendUint32(out, uint32(len(obj.Relocations)))
	out = append(out, relocBuf...)

	out = binary.BigEndian.AppendUint32(out, srcNameIdx)
	out = binary.BigEndian.AppendUint32(out, commentIdx)

	return out, nil
}

func appendSectionEntry(out []byte, nameIdx, count, size uint32) []byte {
	out = binary.BigEndian.AppendUint32(out, nameIdx)
	out = binary.BigEndian.AppendUint32(out, count)
	out = binary.BigEndian.AppendUint32(out, size)
	return out
}

// encodeSymbols writes (name-index, binding, type, section-index,
// offset, defined?, typekind) per symbol (spec §6 record 4), in the same order
// SymbolTable.All returns (ascending name).
func encodeSymbols(symbols []*assemble.Symbol, strs *stringTable) []byte {
	var out []byte
	for _, s := range symbols {
		out = binary.BigEndian.AppendUint32(out, strs.intern(s.Name))
		out = append(out, byte(s.Binding))
		out = append(out, byte(s.Type))
		out = append(out, byte(sectionIndex(s.Section)))
		out = binary.BigEndian.AppendUint32(out, uint32(s.Offset))
		out = append(out, boolByte(s.Defined))
		out = append(out, byte(s.TypeKind))
	}
	return out
}

func sectionIndex(s parser.Section) int {
	if s == parser.SectionData {
		return 1
	}
	return 0
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// encodeText writes the `.text` instruction stream: `(opcode_byte,
// operand_count, operand_records…)` per instruction (spec §6 record 5).
func encodeText(instrs []assemble.EncodedInstruction, strs *stringTable) []byte {
	var out []byte
	for _, ins := range instrs {
		out = append(out, ins.Opcode, byte(len(ins.Operands)))
		for _, op := range ins.Operands {
			out = appendOperand(out, op, strs)
		}
	}
	return out
}

// encodeData writes the `.data` section: named typed entries in
// declared order (spec §6 record 6).
func encodeData(entries []assemble.EncodedData, strs *stringTable) []byte {
	var out []byte
	for _, d := range entries {
		out = binary.BigEndian.AppendUint32(out, strs.intern(d.Name))
		out = appendOperand(out, assemble.EncodedOperand{Kind: d.Kind, Lit: d.Lit}, strs)
	}
	return out
}

// appendOperand writes one `(kind_tag, payload)` record (spec §3, §6).
func appendOperand(out []byte, op assemble.EncodedOperand, strs *stringTable) []byte {
	out = append(out, byte(op.Kind))
	switch op.Kind {
	case value.KOKindNull, value.KOKindArgMarker:
		// singleton kinds: no payload
	case value.KOKindBool, value.KOKindBoolValue:
		out = append(out, boolByte(op.Lit.Bool()))
	case value.KOKindByte:
		out = append(out, byte(int8(op.Lit.Int())))
	case value.KOKindInt16:
		out = binary.BigEndian.AppendUint16(out, uint16(int16(op.Lit.Int())))
	case value.KOKindInt32:
		out = binary.BigEndian.AppendUint32(out, uint32(int32(op.Lit.Int())))
	case value.KOKindFloat:
		out = binary.BigEndian.AppendUint32(out, math.Float32bits(float32(op.Lit.Float())))
	case value.KOKindDouble, value.KOKindScalarDbl:
		out = binary.BigEndian.AppendUint64(out, math.Float64bits(op.Lit.Float()))
	case value.KOKindScalarInt:
		out = binary.BigEndian.AppendUint64(out, uint64(op.Lit.Int()))
	case value.KOKindString, value.KOKindStringValue:
		out = binary.BigEndian.AppendUint32(out, strs.intern(op.Lit.Str()))
	}
	return out
}

// encodeRelocations writes `(section, offset-within-section,
// operand-slot, symbol-index)` per entry (spec §6 record 7).
func encodeRelocations(relocs []assemble.Relocation, symIndex map[string]uint32) []byte {
	var out []byte
	for _, r := range relocs {
		out = append(out, byte(sectionIndex(r.Section)))
		out = binary.BigEndian.AppendUint32(out, uint32(r.Offset))
		out = append(out, byte(r.OperandSlot))
		out = binary.BigEndian.AppendUint32(out, symIndex[r.Symbol])
	}
	return out
}
