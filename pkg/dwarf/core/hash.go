package core

import "golang.org/x/exp/constraints"

// hash64 distributes a raw DIE byte offset across a fixed bucket count.
// It is Murmur3's 64-bit finalizer: offsets in a DWARF section cluster in
// narrow, densely packed ranges, and a finalizer-style avalanche keeps
// adjacent offsets from piling into the same bucket the way a naive
// offset%256 would. Generic over any integer key so the same finalizer
// serves both the offset-keyed hash tables below and any future
// address-keyed index (DWARF offsets and addresses are both just
// unsigned quantities in different int widths).
func hash64[T constraints.Integer](key T) uint64 {
	v := uint64(key)
	v ^= v >> 33
	v *= 0xff51afd7ed558ccd
	v ^= v >> 33
	v *= 0xc4ceb9fe1a85ec53
	v ^= v >> 33
	return v
}

const hashBuckets = 256

type hashNode struct {
	offset int
	tag    Tag
	next   *hashNode
}

// hashTable is a per-CU chained hash table keyed by hash64(offset) mod 256
// (spec §3's hash_tags/hash_types). Collisions chain; lookups walk the
// bucket comparing raw offsets, same as any textbook separate-chaining
// table, kept explicit here (rather than a plain Go map) because the
// bucket count and chaining discipline are part of the data model spec.md
// describes, not an implementation detail.
type hashTable struct {
	buckets [hashBuckets]*hashNode
}

func newHashTable() *hashTable {
	return &hashTable{}
}

func (h *hashTable) put(offset int, tag Tag) {
	b := hash64(offset) % hashBuckets
	h.buckets[b] = &hashNode{offset: offset, tag: tag, next: h.buckets[b]}
}

func (h *hashTable) get(offset int) (Tag, bool) {
	b := hash64(offset) % hashBuckets
	for n := h.buckets[b]; n != nil; n = n.next {
		if n.offset == offset {
			return n.tag, true
		}
	}
	return nil, false
}

// len reports the total number of entries across all buckets, for tests
// and diagnostics (not a spec-mandated operation).
func (h *hashTable) len() int {
	n := 0
	for _, head := range h.buckets {
		for cur := head; cur != nil; cur = cur.next {
			n++
		}
	}
	return n
}
