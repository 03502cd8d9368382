package bytecode_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkling-lang/sparkling/pkg/bytecode"
)

func sampleProto() *bytecode.FuncProto {
	return &bytecode.FuncProto{
		Name:  "<top-level>",
		Argc:  0,
		Nregs: 3,
		Code: []bytecode.Instr{
			{Op: bytecode.OpLdConst, A: 0, Kind: bytecode.ConstInt, IntVal: 42},
			{Op: bytecode.OpLdSym, A: 1, SymIdx: 0},
			{Op: bytecode.OpCall, A: 2, B: 1, C: 1, Args: []byte{0}},
			{Op: bytecode.OpJze, A: 2, Disp: 1},
			{Op: bytecode.OpRet, A: 2},
		},
		SymTab: []bytecode.SymEntry{
			{Kind: bytecode.SymStub, Name: "println"},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	proto := sampleProto()

	var buf bytes.Buffer
	require.NoError(t, bytecode.Encode(&buf, proto))

	decoded, err := bytecode.Decode(&buf)
	require.NoError(t, err)

	assert.Equal(t, proto.Argc, decoded.Argc)
	assert.Equal(t, proto.Nregs, decoded.Nregs)
	require.Len(t, decoded.Code, len(proto.Code))
	for i, instr := range proto.Code {
		assert.Equal(t, instr.Op, decoded.Code[i].Op, "instruction %d opcode", i)
		assert.Equal(t, instr.A, decoded.Code[i].A, "instruction %d operand A", i)
	}
	require.Len(t, decoded.SymTab, 1)
	assert.Equal(t, "println", decoded.SymTab[0].Name)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	buf := bytes.NewReader([]byte{0, 0, 0, 0, 0, 0, 0, 0})
	_, err := bytecode.Decode(buf)
	require.Error(t, err)
}

func TestCallArgWordCountMatchesInvariant(t *testing.T) {
	// spec.md §8: for every CALL the number of argument-index words
	// following equals ceil(argc / 4).
	for _, argc := range []int{0, 1, 4, 5, 8, 9} {
		args := make([]byte, argc)
		proto := &bytecode.FuncProto{
			Nregs: 1,
			Code:  []bytecode.Instr{{Op: bytecode.OpCall, A: 0, B: 0, C: byte(argc), Args: args}},
		}
		var buf bytes.Buffer
		require.NoError(t, bytecode.Encode(&buf, proto))
		decoded, err := bytecode.Decode(&buf)
		require.NoError(t, err)
		require.Len(t, decoded.Code, 1)
		assert.Equal(t, argc, len(decoded.Code[0].Args))
	}
}

func TestDisassembleDoesNotPanic(t *testing.T) {
	var buf bytes.Buffer
	assert.NotPanics(t, func() { bytecode.Disassemble(&buf, sampleProto()) })
	assert.Contains(t, buf.String(), "LDCONST")
}
