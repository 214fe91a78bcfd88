package strpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyStringIsAlwaysID0(t *testing.T) {
	p := New()
	assert.Equal(t, ID(0), p.AddString(""))
	assert.Equal(t, ID(0), p.Add(nil))
	assert.Equal(t, ID(0), p.Add([]byte{}))
	assert.Equal(t, "", p.Ptr(0))
}

func TestAddDedupsRepeatedStrings(t *testing.T) {
	p := New()

	first := p.AddString("int")
	second := p.AddString("int")
	third := p.Add([]byte("int"))

	assert.Equal(t, first, second)
	assert.Equal(t, first, third)
	assert.NotEqual(t, ID(0), first)
}

func TestAddAssignsDenseIncreasingIDs(t *testing.T) {
	p := New()

	tests := []struct {
		in   string
		want ID
	}{
		{"char", 1},
		{"int", 2},
		{"char", 1}, // repeat: must reuse, not advance
		{"long", 3},
	}

	for _, tt := range tests {
		got := p.AddString(tt.in)
		assert.Equal(t, tt.want, got, "interning %q", tt.in)
	}
}

func TestPtrRoundTripsAddedStrings(t *testing.T) {
	p := New()

	id := p.AddString("struct Foo")
	assert.Equal(t, "struct Foo", p.Ptr(id))
}

func TestPtrOutOfRangeReturnsEmpty(t *testing.T) {
	p := New()
	assert.Equal(t, "", p.Ptr(ID(42)))
	assert.Equal(t, "", p.Ptr(ID(-1)))
}

func TestLenCountsReservedEmptyString(t *testing.T) {
	p := New()
	require.Equal(t, 1, p.Len())

	p.AddString("a")
	p.AddString("b")
	p.AddString("a")
	assert.Equal(t, 3, p.Len())
}

func TestStringsReturnsInIDOrder(t *testing.T) {
	p := New()
	p.AddString("one")
	p.AddString("two")
	p.AddString("three")

	got := p.Strings()
	require.Len(t, got, 4)
	assert.Equal(t, []string{"", "one", "two", "three"}, got)
}
