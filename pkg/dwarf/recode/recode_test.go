package recode

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

func TestRecodeResolvesPointerTypeReference(t *testing.T) {
	cu := newTestCU()

	base := &core.BaseType{Header: core.Header{Kind: core.KindBaseType, Scratch: &core.Record{ID: 0x10}}}
	cu.Insert(base, 0x10)

	ptr := &core.Qualifier{Header: core.Header{Kind: core.KindPointer, Scratch: &core.Record{ID: 0x20, TypeRef: 0x10}}}
	cu.Insert(ptr, 0x20)
	ptr.Header.Type = 0x10 // raw offset, mirrors what header() sets before recode

	New(cu, strpool.New(), diag.New(false)).Run()

	assert.Equal(t, base.SmallID, ptr.Header.Type)
	assert.Nil(t, ptr.Header.Scratch, "recode must clear Scratch once a tag is consumed")
	assert.True(t, cu.Recoded)
}

func TestRecodeIsIdempotent(t *testing.T) {
	cu := newTestCU()
	base := &core.BaseType{Header: core.Header{Kind: core.KindBaseType, Scratch: &core.Record{ID: 0x10}}}
	cu.Insert(base, 0x10)

	ptr := &core.Qualifier{Header: core.Header{Kind: core.KindPointer, Scratch: &core.Record{ID: 0x20, TypeRef: 0x10}, Type: 0x10}}
	cu.Insert(ptr, 0x20)

	r := New(cu, strpool.New(), diag.New(false))
	r.Run()
	want := ptr.Header.Type

	// Re-running must be a no-op: nothing should panic on the nil Scratch,
	// and the already-resolved type id must not change.
	r.Run()
	assert.Equal(t, want, ptr.Header.Type)
}

func TestRecodeDanglingTypeReferenceFallsBackToVoid(t *testing.T) {
	cu := newTestCU()
	ptr := &core.Qualifier{Header: core.Header{Kind: core.KindPointer, Scratch: &core.Record{ID: 0x20, TypeRef: 0xBAD}, Type: 0xBAD}}
	cu.Insert(ptr, 0x20)

	New(cu, strpool.New(), diag.New(false)).Run()

	assert.Equal(t, core.Void, ptr.Header.Type)
}

func TestRecodeBorrowsNameAndTypeFromAbstractOrigin(t *testing.T) {
	cu := newTestCU()
	pool := strpool.New()
	originName := pool.AddString("count")

	base := &core.BaseType{Header: core.Header{Kind: core.KindBaseType, Scratch: &core.Record{ID: 0x10}}}
	cu.Insert(base, 0x10)

	origin := &core.Parameter{
		Header: core.Header{Kind: core.KindParameter, Scratch: &core.Record{ID: 0x30, TypeRef: 0x10}, Type: 0x10},
		Name:   originName,
	}
	cu.Insert(origin, 0x30)

	inlined := &core.Parameter{
		Header: core.Header{Kind: core.KindParameter, Scratch: &core.Record{ID: 0x40, AbstractOrigin: 0x30, HasOrigin: true}},
	}
	cu.Insert(inlined, 0x40)

	New(cu, pool, diag.New(false)).Run()

	assert.Equal(t, originName, inlined.Name)
	assert.Equal(t, base.SmallID, inlined.Header.Type)
}

func TestRecodePtrToMemberResolvesContainingType(t *testing.T) {
	cu := newTestCU()

	class := &core.NamespaceLike{Header: core.Header{Kind: core.KindNamespaceLike, Scratch: &core.Record{ID: 0x10}}, LinkedDecl: -1}
	cu.Insert(class, 0x10)

	member := &core.PtrToMember{
		Header:         core.Header{Kind: core.KindPtrToMember, Scratch: &core.Record{ID: 0x50, HasContaining: true, ContainingType: 0x10}},
		ContainingType: 0x10,
	}
	cu.Insert(member, 0x50)

	New(cu, strpool.New(), diag.New(false)).Run()

	assert.Equal(t, class.SmallID, member.ContainingType)
}

func TestRecodeInlineExpansionResolvesOriginFunction(t *testing.T) {
	cu := newTestCU()

	fn := &core.Function{Header: core.Header{Kind: core.KindFunction, Scratch: &core.Record{ID: 0x60}}, OriginFn: -1, VtableNode: -1}
	cu.Insert(fn, 0x60)

	inline := &core.InlineExpansion{
		Header:   core.Header{Kind: core.KindInlineExpansion, Scratch: &core.Record{ID: 0x70, AbstractOrigin: 0x60, HasOrigin: true}},
		OriginFn: -1,
	}
	cu.Insert(inline, 0x70)

	New(cu, strpool.New(), diag.New(false)).Run()

	assert.Equal(t, fn.Header.SmallID, inline.OriginFn)
}

func TestRecodeVariableSpecificationResolvesToOutOfLineDeclaration(t *testing.T) {
	cu := newTestCU()

	decl := &core.Variable{
		Header:          core.Header{Kind: core.KindVariable, Scratch: &core.Record{ID: 0x80}},
		SpecificationOf: -1,
	}
	cu.Insert(decl, 0x80)

	def := &core.Variable{
		Header:          core.Header{Kind: core.KindVariable, Scratch: &core.Record{ID: 0x90, HasSpecification: true, Specification: 0x80}},
		SpecificationOf: -1,
	}
	cu.Insert(def, 0x90)

	New(cu, strpool.New(), diag.New(false)).Run()

	assert.Equal(t, decl.Header.SmallID, def.SpecificationOf)
}

func TestRecodeFunctionSpecificationResolvesNameFromDeclaration(t *testing.T) {
	cu := newTestCU()
	pool := strpool.New()
	declName := pool.AddString("ns::Widget::method")

	decl := &core.Function{
		Header:          core.Header{Kind: core.KindFunction, Scratch: &core.Record{ID: 0x80}},
		Name:            declName,
		OriginFn:        -1,
		SpecificationOf: -1,
		VtableNode:      -1,
	}
	cu.Insert(decl, 0x80)

	def := &core.Function{
		Header:          core.Header{Kind: core.KindFunction, Scratch: &core.Record{ID: 0x90, HasSpecification: true, Specification: 0x80}},
		OriginFn:        -1,
		SpecificationOf: -1,
		VtableNode:      -1,
	}
	cu.Insert(def, 0x90)

	New(cu, pool, diag.New(false)).Run()

	assert.Equal(t, decl.Header.SmallID, def.SpecificationOf)
	assert.Equal(t, declName, def.Name)
}

func TestRecodeBitfieldSynthesizesBaseTypeOnce(t *testing.T) {
	cu := newTestCU()
	pool := strpool.New()
	intName := pool.AddString("int")

	intType := &core.BaseType{
		Header:  core.Header{Kind: core.KindBaseType, Scratch: &core.Record{ID: 0x10}},
		Name:    intName,
		BitSize: 32,
		Signed:  true,
	}
	cu.Insert(intType, 0x10)

	memberA := &core.ClassMember{
		Header:       core.Header{Kind: core.KindClassMember, Scratch: &core.Record{ID: 0x20, TypeRef: 0x10}, Type: 0x10},
		BitfieldSize: 3,
	}
	cu.Insert(memberA, 0x20)

	memberB := &core.ClassMember{
		Header:       core.Header{Kind: core.KindClassMember, Scratch: &core.Record{ID: 0x30, TypeRef: 0x10}, Type: 0x10},
		BitfieldSize: 3,
	}
	cu.Insert(memberB, 0x30)

	New(cu, pool, diag.New(false)).Run()

	require.NotEqual(t, intType.SmallID, memberA.Header.Type, "bitfield member must get a synthetic type, not the 32-bit int")
	assert.Equal(t, memberA.Header.Type, memberB.Header.Type, "two members with the same (name, bit_size) must dedup to one synthetic type")

	synth, ok := cu.TypesTable[memberA.Header.Type].(*core.BaseType)
	require.True(t, ok)
	assert.Equal(t, 3, synth.BitSize)
	assert.Equal(t, intName, synth.Name)
	assert.True(t, synth.Signed, "synthetic bitfield type preserves the underlying type's signedness")
}

func TestRecodeBitfieldSynthesizesSharedEnum(t *testing.T) {
	cu := newTestCU()
	pool := strpool.New()
	enumName := pool.AddString("color")

	enumerators := []core.Enumerator{{Name: pool.AddString("RED")}, {Name: pool.AddString("BLUE"), Value: 1}}
	enumType := &core.EnumerationType{
		Header:      core.Header{Kind: core.KindEnumerationType, Scratch: &core.Record{ID: 0x10}},
		Name:        enumName,
		SizeBits:    32,
		Enumerators: enumerators,
	}
	cu.Insert(enumType, 0x10)

	member := &core.ClassMember{
		Header:       core.Header{Kind: core.KindClassMember, Scratch: &core.Record{ID: 0x20, TypeRef: 0x10}, Type: 0x10},
		BitfieldSize: 2,
	}
	cu.Insert(member, 0x20)

	New(cu, pool, diag.New(false)).Run()

	synth, ok := cu.TypesTable[member.Header.Type].(*core.EnumerationType)
	require.True(t, ok)
	assert.True(t, synth.SharedTags)
	assert.Equal(t, 2, synth.SizeBits)
	assert.Same(t, &enumerators[0], &synth.Enumerators[0], "the synthetic enum must share the original's enumerator list, not copy it")
}

func TestRecodeBitfieldSkippedWhenSizeZero(t *testing.T) {
	cu := newTestCU()

	intType := &core.BaseType{Header: core.Header{Kind: core.KindBaseType, Scratch: &core.Record{ID: 0x10}}, BitSize: 32}
	cu.Insert(intType, 0x10)

	member := &core.ClassMember{
		Header: core.Header{Kind: core.KindClassMember, Scratch: &core.Record{ID: 0x20, TypeRef: 0x10}, Type: 0x10},
	}
	cu.Insert(member, 0x20)

	New(cu, strpool.New(), diag.New(false)).Run()

	assert.Equal(t, intType.SmallID, member.Header.Type, "non-bitfield members keep their plain resolved type")
}
