package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCUReservesVoidSlot(t *testing.T) {
	cu := NewCU(0x10, 0, 0, 0, 0)
	require.Len(t, cu.TypesTable, 1)
	assert.Nil(t, cu.TypesTable[Void])
}

func TestInsertRoutesByKind(t *testing.T) {
	cu := NewCU(0, 0, 0, 0, 0)

	base := &BaseType{Header: Header{Kind: KindBaseType}}
	id := cu.Insert(base, 0x100)
	assert.Equal(t, 1, id, "base type takes the slot after the reserved void entry")
	assert.Equal(t, 1, base.SmallID)
	assert.Same(t, Tag(base), cu.TypesTable[1])

	variable := &Variable{Header: Header{Kind: KindVariable}}
	id = cu.Insert(variable, 0x200)
	assert.Equal(t, 0, id)
	assert.Equal(t, 0, variable.SmallID)
	assert.Same(t, Tag(variable), cu.TagsTable[0])

	fn := &Function{Header: Header{Kind: KindFunction}}
	id = cu.Insert(fn, 0x300)
	assert.Equal(t, 0, id)
	assert.Same(t, fn, cu.FunctionsTable[0])
}

func TestFindRoundTripsByRawOffset(t *testing.T) {
	cu := NewCU(0, 0, 0, 0, 0)

	base := &BaseType{Header: Header{Kind: KindBaseType}}
	cu.Insert(base, 0x100)

	variable := &Variable{Header: Header{Kind: KindVariable}}
	cu.Insert(variable, 0x200)

	got, ok := cu.FindType(0x100)
	require.True(t, ok)
	assert.Same(t, Tag(base), got)

	got, ok = cu.FindTag(0x200)
	require.True(t, ok)
	assert.Same(t, Tag(variable), got)

	_, ok = cu.FindType(0x200)
	assert.False(t, ok, "a tag-table entry must not be found through the type hash")

	got, ok = cu.Find(0x200)
	require.True(t, ok)
	assert.Same(t, Tag(variable), got)

	_, ok = cu.Find(0xDEAD)
	assert.False(t, ok)
}

func TestFunctionLookupThroughTagHash(t *testing.T) {
	cu := NewCU(0, 0, 0, 0, 0)

	fn := &Function{Header: Header{Kind: KindFunction}, Name: 7}
	cu.Insert(fn, 0x400)

	got, ok := cu.Function(0x400)
	require.True(t, ok)
	assert.Equal(t, fn, got)

	_, ok = cu.Function(0x999)
	assert.False(t, ok)
}

func TestHashTableChainsCollisions(t *testing.T) {
	ht := newHashTable()

	// Force two different offsets into the same bucket and confirm both
	// remain independently retrievable (separate-chaining correctness).
	var a, b int
	for i := 0; i < 1<<20; i++ {
		if hash64(i)%hashBuckets == hash64(0)%hashBuckets && i != 0 {
			a, b = 0, i
			break
		}
	}
	require.NotZero(t, b, "expected to find a colliding offset within range")

	tagA := &BaseType{}
	tagB := &BaseType{Name: 1}
	ht.put(a, tagA)
	ht.put(b, tagB)

	got, ok := ht.get(a)
	require.True(t, ok)
	assert.Same(t, Tag(tagA), got)

	got, ok = ht.get(b)
	require.True(t, ok)
	assert.Same(t, Tag(tagB), got)

	assert.Equal(t, 2, ht.len())
}
