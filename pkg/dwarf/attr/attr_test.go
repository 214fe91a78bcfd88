package attr

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeLocationExprRegister(t *testing.T) {
	// DW_OP_reg3
	loc := decodeLocationExpr([]byte{opReg0 + 3})
	assert.Equal(t, LocationRegister, loc.Kind)
	assert.Equal(t, uint32(3), loc.Register)
}

func TestDecodeLocationExprBreg(t *testing.T) {
	// DW_OP_breg5 -16
	loc := decodeLocationExpr([]byte{opBreg0 + 5, 0x70})
	assert.Equal(t, LocationFrameOffset, loc.Kind)
	assert.Equal(t, uint32(5), loc.Register)
	assert.Equal(t, int64(-16), loc.Offset)
}

func TestDecodeLocationExprFbreg(t *testing.T) {
	// DW_OP_fbreg -8
	loc := decodeLocationExpr([]byte{opFbreg, 0x78})
	assert.Equal(t, LocationFrameOffset, loc.Kind)
	assert.Equal(t, int64(-8), loc.Offset)
}

func TestDecodeLocationExprAddr(t *testing.T) {
	expr := []byte{opAddr, 0x10, 0x20, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	loc := decodeLocationExpr(expr)
	assert.Equal(t, LocationAddress, loc.Kind)
	assert.Equal(t, uint64(0x2010), loc.Address)
}

func TestDecodeLocationExprConstu(t *testing.T) {
	loc := decodeLocationExpr([]byte{opConstu, 0x2a})
	assert.Equal(t, LocationConstant, loc.Kind)
	assert.Equal(t, int64(42), loc.Value)
}

func TestDecodeLocationExprEmptyIsUnsupported(t *testing.T) {
	loc := decodeLocationExpr(nil)
	assert.Equal(t, LocationUnsupported, loc.Kind)
}

func TestDecodeLocationExprUnknownOpcode(t *testing.T) {
	loc := decodeLocationExpr([]byte{0xff})
	assert.Equal(t, LocationUnsupported, loc.Kind)
}

func TestDecodeExprOffsetPlusUconst(t *testing.T) {
	// DW_OP_plus_uconst 24, the common DW_AT_data_member_loc block form.
	off, ok := decodeExprOffset([]byte{opPlusUconst, 24})
	assert.True(t, ok)
	assert.Equal(t, uint64(24), off)
}

func TestDecodeExprOffsetConstu(t *testing.T) {
	off, ok := decodeExprOffset([]byte{opConstu, 0x2a})
	assert.True(t, ok)
	assert.Equal(t, uint64(42), off)
}

func TestDecodeExprOffsetUnknownOpcodeIsMaxUint64(t *testing.T) {
	off, ok := decodeExprOffset([]byte{0xff})
	assert.True(t, ok)
	assert.Equal(t, uint64(math.MaxUint64), off)
}

func TestDecodeExprOffsetEmptyIsFalse(t *testing.T) {
	_, ok := decodeExprOffset(nil)
	assert.False(t, ok)
}
