// Object-file serialization and disassembly for compiled programs.
//
// File Format Specification:
//
// A Sparkling object file is a sequence of little-endian fields: the
// header and function bodies are 32-bit words, the symbol table is not
// (spec.md §6):
//
//	[Header]
//	  Magic Number (4 bytes): "SPRK" (0x5350524B)
//	  Version (4 bytes): format version, currently 1
//
//	[Program]
//	  Words 0..N-1:       function header (argc, nregs, body length,
//	                      symtab entry count)
//	  Words N..N+len-1:   executable body, one word per instruction
//	                      slot (multi-word instructions occupy several
//	                      consecutive slots)
//	  symbol table:       symtab-entry-count entries, byte-oriented and
//	                      not word-aligned: a one-byte kind tag, a
//	                      32-bit name length and the name bytes; a
//	                      FUNCDEF entry is followed by the nested
//	                      function's header and body words
//
// Instruction words use one of three forms:
//
//	ABC:  opcode:8 | A:8  | B:8  | C:8
//	AX:   opcode:8 | A:8  | mid:16
//	X:    opcode:8 | long:24
//
// This mirrors the on-disk layout the teacher's format.go used for its
// own (stack-based) bytecode, scaled to the register machine's wider
// operands; see bytecode.go for the in-memory Instr representation
// this package encodes and decodes.
package bytecode

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const (
	// Magic is the object-file signature: "SPRK".
	Magic uint32 = 0x5350524B
	// Version is the current object-file format version.
	Version uint32 = 1
)

// EncodeABC packs the three-register instruction form into one word.
func EncodeABC(op Opcode, a, b, c byte) uint32 {
	return uint32(op) | uint32(a)<<8 | uint32(b)<<16 | uint32(c)<<24
}

// DecodeABC unpacks the three-register instruction form.
func DecodeABC(w uint32) (op Opcode, a, b, c byte) {
	return Opcode(w), byte(w >> 8), byte(w >> 16), byte(w >> 24)
}

// EncodeAX packs the register-plus-16-bit-immediate form.
func EncodeAX(op Opcode, a byte, mid uint16) uint32 {
	return uint32(op) | uint32(a)<<8 | uint32(mid)<<16
}

// DecodeAX unpacks the register-plus-16-bit-immediate form.
func DecodeAX(w uint32) (op Opcode, a byte, mid uint16) {
	return Opcode(w), byte(w >> 8), uint16(w >> 16)
}

// EncodeX packs the bare-24-bit-immediate form (used for jump
// displacements).
func EncodeX(op Opcode, long uint32) uint32 {
	return uint32(op) | (long&0x00FFFFFF)<<8
}

// DecodeX unpacks the bare-24-bit-immediate form, sign-extending the
// 24-bit field.
func DecodeX(w uint32) (op Opcode, long int32) {
	raw := int32(w>>8) & 0x00FFFFFF
	if raw&0x00800000 != 0 {
		raw |= ^int32(0x00FFFFFF) // sign-extend
	}
	return Opcode(w), raw
}

// Encode writes proto and its nested function definitions to w in the
// object-file layout described above. proto must be a top-level
// program (its SymTab populated).
func Encode(w io.Writer, proto *FuncProto) error {
	if err := binary.Write(w, binary.LittleEndian, Magic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, Version); err != nil {
		return err
	}
	return encodeFunc(w, proto, true)
}

func encodeFunc(w io.Writer, proto *FuncProto, top bool) error {
	words := instrWords(proto.Code)
	header := []uint32{uint32(proto.Argc), uint32(proto.Nregs), uint32(len(words))}
	if top {
		header = append(header, uint32(len(proto.SymTab)))
	}
	for _, h := range header {
		if err := binary.Write(w, binary.LittleEndian, h); err != nil {
			return err
		}
	}
	for _, word := range words {
		if err := binary.Write(w, binary.LittleEndian, word); err != nil {
			return err
		}
	}
	if !top {
		return nil
	}
	for _, sym := range proto.SymTab {
		if err := encodeSym(w, sym); err != nil {
			return err
		}
	}
	return nil
}

func encodeSym(w io.Writer, sym SymEntry) error {
	switch sym.Kind {
	case SymStrConst:
		return writeTaggedString(w, byte(SymStrConst), sym.Str)
	case SymStub:
		return writeTaggedString(w, byte(SymStub), sym.Name)
	case SymFuncDef:
		if err := binary.Write(w, binary.LittleEndian, byte(SymFuncDef)); err != nil {
			return err
		}
		if err := writeString(w, sym.Name); err != nil {
			return err
		}
		return encodeFunc(w, sym.Proto, false)
	default:
		return fmt.Errorf("bytecode: unknown symbol kind %d", sym.Kind)
	}
}

func writeTaggedString(w io.Writer, tag byte, s string) error {
	if err := binary.Write(w, binary.LittleEndian, tag); err != nil {
		return err
	}
	return writeString(w, s)
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// instrWords flattens a decoded instruction slice into its packed word
// representation; multi-word instructions (LDCONST payload, CALL
// argument list, GLBVAL name, CLOSURE upvalues) append their extra
// words immediately after the opcode word.
func instrWords(code []Instr) []uint32 {
	var words []uint32
	for _, in := range code {
		switch in.Op {
		case OpJmp, OpJze, OpJnz:
			if in.Op == OpJmp {
				words = append(words, EncodeX(in.Op, uint32(in.Disp)))
			} else {
				words = append(words, EncodeAX(in.Op, in.A, uint16(in.Disp)))
			}
		case OpLdConst:
			words = append(words, EncodeAX(in.Op, in.A, uint16(in.Kind)))
			switch in.Kind {
			case ConstInt:
				words = append(words, uint32(in.IntVal), uint32(in.IntVal>>32))
			case ConstFloat:
				bits := math.Float64bits(in.FloatVal)
				words = append(words, uint32(bits), uint32(bits>>32))
			}
		case OpLdSym, OpLdUpval:
			words = append(words, EncodeAX(in.Op, in.A, uint16(in.SymIdx)))
		case OpCall:
			words = append(words, EncodeABC(in.Op, in.A, in.B, in.C))
			words = append(words, packArgWords(in.Args)...)
		case OpGlbVal:
			words = append(words, EncodeAX(in.Op, in.A, uint16(len(in.Name))))
			words = append(words, packStringWords(in.Name)...)
		case OpClosure:
			words = append(words, EncodeAX(in.Op, in.A, uint16(len(in.Upvals))))
			for _, uv := range in.Upvals {
				words = append(words, EncodeABC(OpClosure, byte(uv.Kind), uv.Index, 0))
			}
		default:
			words = append(words, EncodeABC(in.Op, in.A, in.B, in.C))
		}
	}
	return words
}

// packArgWords packs a CALL's argument register list four per word,
// padded to a whole word, matching spec.md §4.2's CALL encoding.
func packArgWords(args []byte) []uint32 {
	var words []uint32
	for i := 0; i < len(args); i += 4 {
		var w uint32
		for j := 0; j < 4 && i+j < len(args); j++ {
			w |= uint32(args[i+j]) << (8 * j)
		}
		words = append(words, w)
	}
	return words
}

func packStringWords(s string) []uint32 {
	b := []byte(s)
	var words []uint32
	for i := 0; i < len(b); i += 4 {
		var w uint32
		for j := 0; j < 4 && i+j < len(b); j++ {
			w |= uint32(b[i+j]) << (8 * j)
		}
		words = append(words, w)
	}
	return words
}

// Decode reads an object file written by Encode back into a FuncProto
// tree.
func Decode(r io.Reader) (*FuncProto, error) {
	var magic, version uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, fmt.Errorf("bytecode: bad magic %#x", magic)
	}
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version != Version {
		return nil, fmt.Errorf("bytecode: unsupported object-file version %d", version)
	}
	return decodeFunc(r, true)
}

func decodeFunc(r io.Reader, top bool) (*FuncProto, error) {
	argc, err := readWord(r)
	if err != nil {
		return nil, err
	}
	nregs, err := readWord(r)
	if err != nil {
		return nil, err
	}
	bodyLen, err := readWord(r)
	if err != nil {
		return nil, err
	}
	var symCount uint32
	if top {
		if symCount, err = readWord(r); err != nil {
			return nil, err
		}
	}
	body := make([]uint32, bodyLen)
	for i := range body {
		if body[i], err = readWord(r); err != nil {
			return nil, err
		}
	}
	proto := &FuncProto{Argc: int(argc), Nregs: int(nregs), Code: decodeWords(body)}
	if !top {
		return proto, nil
	}
	proto.SymTab = make([]SymEntry, symCount)
	for i := range proto.SymTab {
		sym, err := decodeSym(r)
		if err != nil {
			return nil, err
		}
		proto.SymTab[i] = sym
	}
	return proto, nil
}

func readWord(r io.Reader) (uint32, error) {
	var w uint32
	err := binary.Read(r, binary.LittleEndian, &w)
	return w, err
}

func readString(r io.Reader) (string, error) {
	n, err := readWord(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func decodeSym(r io.Reader) (SymEntry, error) {
	var tag byte
	if err := binary.Read(r, binary.LittleEndian, &tag); err != nil {
		return SymEntry{}, err
	}
	switch SymEntryKind(tag) {
	case SymStrConst:
		s, err := readString(r)
		return SymEntry{Kind: SymStrConst, Str: s}, err
	case SymStub:
		s, err := readString(r)
		return SymEntry{Kind: SymStub, Name: s}, err
	case SymFuncDef:
		name, err := readString(r)
		if err != nil {
			return SymEntry{}, err
		}
		proto, err := decodeFunc(r, false)
		if err != nil {
			return SymEntry{}, err
		}
		return SymEntry{Kind: SymFuncDef, Name: name, Proto: proto}, nil
	default:
		return SymEntry{}, fmt.Errorf("bytecode: unknown symbol tag %d", tag)
	}
}

// decodeWords re-derives the Instr slice that produced a packed word
// stream. It relies on each opcode's fixed word-width rule from
// instrWords: an opcode either has no trailing words, a fixed count,
// or a count determined by a field in its own first word (LDCONST's
// kind, CALL's C register count, GLBVAL's inlined name length,
// CLOSURE's upvalue count).
func decodeWords(words []uint32) []Instr {
	var code []Instr
	for i := 0; i < len(words); {
		w := words[i]
		op := Opcode(w)
		switch op {
		case OpJmp:
			_, disp := DecodeX(w)
			code = append(code, Instr{Op: op, Disp: disp})
			i++
		case OpJze, OpJnz:
			_, a, mid := DecodeAX(w)
			code = append(code, Instr{Op: op, A: a, Disp: int32(int16(mid))})
			i++
		case OpLdConst:
			_, a, mid := DecodeAX(w)
			kind := ConstKind(mid)
			in := Instr{Op: op, A: a, Kind: kind}
			i++
			switch kind {
			case ConstInt:
				in.IntVal = int64(words[i]) | int64(words[i+1])<<32
				i += 2
			case ConstFloat:
				bits := uint64(words[i]) | uint64(words[i+1])<<32
				in.FloatVal = math.Float64frombits(bits)
				i += 2
			}
			code = append(code, in)
		case OpLdSym, OpLdUpval:
			_, a, mid := DecodeAX(w)
			code = append(code, Instr{Op: op, A: a, SymIdx: int(mid)})
			i++
		case OpCall:
			_, a, b, c := DecodeABC(w)
			i++
			nargWords := (int(c) + 3) / 4
			args := make([]byte, 0, c)
			for k := 0; k < nargWords; k++ {
				aw := words[i+k]
				for j := 0; j < 4 && len(args) < int(c); j++ {
					args = append(args, byte(aw>>(8*j)))
				}
			}
			i += nargWords
			code = append(code, Instr{Op: op, A: a, B: b, C: c, Args: args})
		case OpGlbVal:
			_, a, mid := DecodeAX(w)
			i++
			nameLen := int(mid)
			nwords := (nameLen + 3) / 4
			buf := make([]byte, 0, nameLen)
			for k := 0; k < nwords; k++ {
				nw := words[i+k]
				for j := 0; j < 4 && len(buf) < nameLen; j++ {
					buf = append(buf, byte(nw>>(8*j)))
				}
			}
			i += nwords
			code = append(code, Instr{Op: op, A: a, Name: string(buf)})
		case OpClosure:
			_, a, mid := DecodeAX(w)
			i++
			n := int(mid)
			uvs := make([]UpvalDesc, n)
			for k := 0; k < n; k++ {
				_, kind, idx, _ := DecodeABC(words[i+k])
				uvs[k] = UpvalDesc{Kind: UpvalKind(kind), Index: idx}
			}
			i += n
			code = append(code, Instr{Op: op, A: a, Upvals: uvs})
		default:
			_, a, b, c := DecodeABC(w)
			code = append(code, Instr{Op: op, A: a, B: b, C: c})
			i++
		}
	}
	return code
}

// Disassemble renders proto's instruction stream as human-readable
// mnemonics, recursing into FUNCDEF symbol entries. It is a debugging
// aid for the CLI's --dump-bytecode flag, not a correctness surface.
func Disassemble(w io.Writer, proto *FuncProto) {
	disasmFunc(w, proto, "")
}

func disasmFunc(w io.Writer, proto *FuncProto, indent string) {
	fmt.Fprintf(w, "%sfunction %s(argc=%d, nregs=%d)\n", indent, name(proto.Name), proto.Argc, proto.Nregs)
	for i, in := range proto.Code {
		fmt.Fprintf(w, "%s  %4d  %s\n", indent, i, disasmInstr(in))
	}
	for _, sym := range proto.SymTab {
		if sym.Kind == SymFuncDef {
			disasmFunc(w, sym.Proto, indent+"  ")
		}
	}
}

func name(s string) string {
	if s == "" {
		return "<anonymous>"
	}
	return s
}

func disasmInstr(in Instr) string {
	switch in.Op {
	case OpLdConst:
		switch in.Kind {
		case ConstNil:
			return fmt.Sprintf("LDCONST r%d, nil", in.A)
		case ConstTrue:
			return fmt.Sprintf("LDCONST r%d, true", in.A)
		case ConstFalse:
			return fmt.Sprintf("LDCONST r%d, false", in.A)
		case ConstInt:
			return fmt.Sprintf("LDCONST r%d, %d", in.A, in.IntVal)
		case ConstFloat:
			return fmt.Sprintf("LDCONST r%d, %g", in.A, in.FloatVal)
		}
	case OpLdSym:
		return fmt.Sprintf("LDSYM r%d, sym[%d]", in.A, in.SymIdx)
	case OpLdUpval:
		return fmt.Sprintf("LDUPVAL r%d, uv[%d]", in.A, in.SymIdx)
	case OpJmp:
		return fmt.Sprintf("JMP %+d", in.Disp)
	case OpJze:
		return fmt.Sprintf("JZE r%d, %+d", in.A, in.Disp)
	case OpJnz:
		return fmt.Sprintf("JNZ r%d, %+d", in.A, in.Disp)
	case OpCall:
		return fmt.Sprintf("CALL r%d, r%d, argv=%v", in.A, in.B, in.Args)
	case OpGlbVal:
		return fmt.Sprintf("GLBVAL r%d, %q", in.A, in.Name)
	case OpClosure:
		return fmt.Sprintf("CLOSURE r%d, upvals=%v", in.A, in.Upvals)
	case OpRet:
		return fmt.Sprintf("RET r%d", in.A)
	}
	return fmt.Sprintf("%s r%d, r%d, r%d", in.Op, in.A, in.B, in.C)
}
