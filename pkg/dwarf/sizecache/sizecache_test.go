package sizecache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Manu343726/dwarfcore/pkg/diag"
	"github.com/Manu343726/dwarfcore/pkg/dwarf/core"
	"github.com/Manu343726/dwarfcore/pkg/strpool"
)

func newTestCU() *core.CU {
	return core.NewCU(0, 0, 0, 0, 0)
}

func TestNonBitfieldMemberUsesPlainTypeSize(t *testing.T) {
	cu := newTestCU()
	pool := strpool.New()

	intType := &core.BaseType{Header: core.Header{Kind: core.KindBaseType}, BitSize: 32}
	cu.Insert(intType, 0x10)

	member := &core.ClassMember{Header: core.Header{Kind: core.KindClassMember, Type: intType.SmallID}}
	cu.Insert(member, 0x20)

	New(cu, pool, DefaultConfig(), diag.New(false)).Run()

	assert.Equal(t, 4, member.ByteSize)
	assert.Equal(t, 32, member.BitSize)
}

func TestBitfieldMemberResolvesIntegralStorageSize(t *testing.T) {
	cu := newTestCU()
	pool := strpool.New()
	intName := pool.AddString("int")

	intType := &core.BaseType{Header: core.Header{Kind: core.KindBaseType}, Name: intName, BitSize: 3, Signed: true}
	cu.Insert(intType, 0x10)

	member := &core.ClassMember{
		Header:       core.Header{Kind: core.KindClassMember, Type: intType.SmallID},
		BitfieldSize: 3,
	}
	cu.Insert(member, 0x20)

	New(cu, pool, DefaultConfig(), diag.New(false)).Run()

	assert.Equal(t, 4, member.ByteSize, "storage unit for 'int' is 32 bits == 4 bytes")
	assert.Equal(t, 3, member.BitSize)
	assert.Equal(t, 3, member.BitfieldSize, "without fixup_silly_bitfields the declared width is untouched")
}

func TestBitfieldFollowsTypedefAndQualifierChain(t *testing.T) {
	cu := newTestCU()
	pool := strpool.New()
	intName := pool.AddString("unsigned int")

	uintType := &core.BaseType{Header: core.Header{Kind: core.KindBaseType}, Name: intName, BitSize: 5}
	cu.Insert(uintType, 0x10)

	constQual := &core.Qualifier{Header: core.Header{Kind: core.KindConst, Type: uintType.SmallID}}
	cu.Insert(constQual, 0x20)

	typedef := &core.NamespaceLike{Header: core.Header{Kind: core.KindNamespaceLike, Type: constQual.SmallID}, LinkedDecl: -1}
	cu.Insert(typedef, 0x30)

	member := &core.ClassMember{
		Header:       core.Header{Kind: core.KindClassMember, Type: typedef.SmallID},
		BitfieldSize: 5,
	}
	cu.Insert(member, 0x40)

	New(cu, pool, DefaultConfig(), diag.New(false)).Run()

	assert.Equal(t, 4, member.ByteSize)
	assert.Equal(t, 5, member.BitSize)
}

func TestFixupSillyBitfieldsZeroesExactWidthBitfield(t *testing.T) {
	cu := newTestCU()
	pool := strpool.New()
	intName := pool.AddString("int")

	intType := &core.BaseType{Header: core.Header{Kind: core.KindBaseType}, Name: intName, BitSize: 32}
	cu.Insert(intType, 0x10)

	member := &core.ClassMember{
		Header:         core.Header{Kind: core.KindClassMember, Type: intType.SmallID},
		BitfieldSize:   32,
		BitfieldOffset: 7,
	}
	cu.Insert(member, 0x20)

	conf := DefaultConfig()
	conf.FixupSillyBitfields = true
	New(cu, pool, conf, diag.New(false)).Run()

	assert.Equal(t, 0, member.BitfieldSize)
	assert.Equal(t, 0, member.BitfieldOffset)
	assert.Equal(t, 32, member.BitSize)
}

func TestUnknownBaseTypeNameLeavesSizesZero(t *testing.T) {
	cu := newTestCU()
	pool := strpool.New()
	weirdName := pool.AddString("__int20_t")

	weirdType := &core.BaseType{Header: core.Header{Kind: core.KindBaseType}, Name: weirdName, BitSize: 5}
	cu.Insert(weirdType, 0x10)

	member := &core.ClassMember{
		Header:       core.Header{Kind: core.KindClassMember, Type: weirdType.SmallID},
		BitfieldSize: 5,
	}
	cu.Insert(member, 0x20)

	New(cu, pool, DefaultConfig(), diag.New(false)).Run()

	assert.Equal(t, 0, member.ByteSize)
	assert.Equal(t, 0, member.BitSize)
}

func TestArrayTypeSizeMultipliesDimensions(t *testing.T) {
	cu := newTestCU()
	pool := strpool.New()

	intType := &core.BaseType{Header: core.Header{Kind: core.KindBaseType}, BitSize: 32}
	cu.Insert(intType, 0x10)

	array := &core.ArrayType{
		Header:     core.Header{Kind: core.KindArrayType, Type: intType.SmallID},
		Dimensions: []core.ArrayDimension{{UpperBound: 4}, {UpperBound: 2}},
	}
	cu.Insert(array, 0x20)

	member := &core.ClassMember{Header: core.Header{Kind: core.KindClassMember, Type: array.SmallID}}
	cu.Insert(member, 0x30)

	New(cu, pool, DefaultConfig(), diag.New(false)).Run()

	require.Equal(t, 32, member.ByteSize, "4 bytes/int * 4 * 2 elements")
}

func TestPointerTypeUsesConfiguredPointerSize(t *testing.T) {
	cu := newTestCU()
	pool := strpool.New()

	intType := &core.BaseType{Header: core.Header{Kind: core.KindBaseType}, BitSize: 32}
	cu.Insert(intType, 0x10)

	ptr := &core.Qualifier{Header: core.Header{Kind: core.KindPointer, Type: intType.SmallID}}
	cu.Insert(ptr, 0x20)

	member := &core.ClassMember{Header: core.Header{Kind: core.KindClassMember, Type: ptr.SmallID}}
	cu.Insert(member, 0x30)

	New(cu, pool, DefaultConfig(), diag.New(false)).Run()

	assert.Equal(t, 8, member.ByteSize)
}
