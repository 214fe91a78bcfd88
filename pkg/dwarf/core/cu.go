package core

import "github.com/Manu343726/dwarfcore/pkg/strpool"

// CU is one compilation unit's dense tables and hash indices (spec §3's
// "Per-CU structures"). Every tag born while parsing this CU is owned by
// exactly one of TypesTable, TagsTable, or FunctionsTable (invariant 1),
// and indexed by its raw DIE offset through HashTags or HashTypes
// (invariant 2) so that forward references resolve during recode.
type CU struct {
	Offset   int // raw DWARF .debug_info offset of this CU's root DIE
	Name     strpool.ID
	CompDir  strpool.ID
	Producer strpool.ID
	Language int64 // DW_LANG_* constant, as read from debug/dwarf

	// TypesTable holds every type-kind tag (base, array, enum, struct,
	// union, typedef, pointer, reference, const, volatile, ptr-to-member,
	// subroutine type, namespace). Index 0 is reserved for void.
	TypesTable []Tag

	// TagsTable holds every non-type, non-function tag: variables,
	// parameters, labels, imported declarations/modules, class members
	// (each also linked from its structural parent's child list).
	TagsTable []Tag

	// FunctionsTable holds every subprogram, dense and appendable like the
	// other two, but indexed through HashTags rather than a table of its
	// own (spec §4.4's inlined_subroutine/abstract_origin resolution looks
	// functions up through the TAG hash).
	FunctionsTable []*Function

	// TopLevel is the CU's root children in visitation order: namespaces,
	// classes, free functions, global variables. Exactly one DW_TAG_*unit
	// root is expected per CU (invariant: a second top-level sibling is a
	// WRONG_ROOT diagnostic, not a crash).
	TopLevel []Tag

	HashTags  *hashTable
	HashTypes *hashTable

	// Recoded is set once pkg/dwarf/recode has rewritten every tag's raw
	// DIE-offset references into dense ids. A CU must never be recoded
	// twice (spec §8's round-trip idempotence property): recode checks
	// this flag and is a no-op if it is already set.
	Recoded bool
}

// NewCU allocates an empty CU with index 0 of TypesTable reserved for void.
func NewCU(offset int, name, compDir, producer strpool.ID, language int64) *CU {
	cu := &CU{
		Offset:    offset,
		Name:      name,
		CompDir:   compDir,
		Producer:  producer,
		Language:  language,
		HashTags:  newHashTable(),
		HashTypes: newHashTable(),
	}
	cu.TypesTable = append(cu.TypesTable, nil) // small id 0 == void
	return cu
}

// Insert assigns tag its dense small id, appends it to the table its Kind
// belongs in, and indexes it by raw DIE offset in the matching hash table.
// Callers (pkg/dwarf/parse) call this exactly once per allocated tag,
// immediately after filling in the tag's fields, which is what guarantees
// invariant 1 (every tag lives in exactly one table).
func (cu *CU) Insert(tag Tag, offset int) int {
	h := tag.Head()

	switch {
	case h.Kind == KindFunction:
		id := len(cu.FunctionsTable)
		fn, ok := tag.(*Function)
		if !ok {
			panic("core: KindFunction tag is not a *Function")
		}
		cu.FunctionsTable = append(cu.FunctionsTable, fn)
		h.SmallID = id
		cu.HashTags.put(offset, tag)
		return id

	case h.Kind.IsTypeKind():
		id := len(cu.TypesTable)
		cu.TypesTable = append(cu.TypesTable, tag)
		h.SmallID = id
		cu.HashTypes.put(offset, tag)
		return id

	default:
		id := len(cu.TagsTable)
		cu.TagsTable = append(cu.TagsTable, tag)
		h.SmallID = id
		cu.HashTags.put(offset, tag)
		return id
	}
}

// FindTag looks a raw DIE offset up in the non-type hash (variables,
// parameters, labels, imported declarations/modules, class members,
// subprograms).
func (cu *CU) FindTag(offset int) (Tag, bool) {
	return cu.HashTags.get(offset)
}

// FindType looks a raw DIE offset up in the type hash.
func (cu *CU) FindType(offset int) (Tag, bool) {
	return cu.HashTypes.get(offset)
}

// Find looks a raw DIE offset up in the tag hash first and falls back to
// the type hash, mirroring spec §4.4's imported_declaration resolution
// rule ("try tag hash first; fall back to type hash") generalized into a
// single helper the recoder can reach for whenever it does not already
// know which table a reference must land in.
func (cu *CU) Find(offset int) (Tag, bool) {
	if t, ok := cu.FindTag(offset); ok {
		return t, true
	}
	return cu.FindType(offset)
}

// Function looks up a subprogram by raw DIE offset, for abstract-origin
// resolution of inlined_subroutine and out-of-line definitions.
func (cu *CU) Function(offset int) (*Function, bool) {
	t, ok := cu.FindTag(offset)
	if !ok {
		return nil, false
	}
	fn, ok := t.(*Function)
	return fn, ok
}
