package recode

import (
	"github.com/Manu343726/dwarfcore/pkg/diag"
	"github.com/Manu343726/dwarfcore/pkg/dwarf/core"
	"github.com/Manu343726/dwarfcore/pkg/strpool"
)

// recodeBitfield implements spec §4.5: given the already-recoded small id
// of a member's declared type and its bitfield width N, returns the id of
// the type that should actually represent the member — synthesizing a new
// base/enum/qualifier node when no existing one already has the right
// (name, N) shape. This is the only place the type graph gains nodes
// after the initial parse, which is why the search goes through
// types_table directly rather than through HashTypes: synthetic nodes
// have no DIE offset to hash by.
func (rc *Recoder) recodeBitfield(targetType int, n int) int {
	if targetType == core.Void || targetType >= len(rc.cu.TypesTable) {
		return targetType
	}
	t := rc.cu.TypesTable[targetType]
	if t == nil {
		return targetType
	}

	switch v := t.(type) {
	case *core.Qualifier:
		inner := rc.recodeBitfield(v.Head().Type, n)
		if inner == v.Head().Type {
			return targetType
		}
		fresh := &core.Qualifier{
			Header: core.Header{Kind: v.Head().Kind, TopLevel: true, Type: inner},
			Name:   v.Name,
		}
		return rc.appendSyntheticType(fresh)

	case *core.NamespaceLike:
		// A typedef is modeled as a namespace-like node with Type set and no
		// members (core.NamespaceLike's doc comment); that is the "typedef"
		// case of §4.5's wrapped-type rule. Class/struct/union/namespace
		// nodes never reach here: a bitfield member's declared type is
		// always a typedef/qualifier chain over a base type or enum.
		inner := rc.recodeBitfield(v.Head().Type, n)
		if inner == v.Head().Type {
			return targetType
		}
		fresh := &core.NamespaceLike{
			Header:     core.Header{Kind: core.KindNamespaceLike, TopLevel: true, Type: inner},
			Name:       v.Name,
			LinkedDecl: -1,
		}
		return rc.appendSyntheticType(fresh)

	case *core.BaseType:
		if existing, ok := rc.findSyntheticBaseType(v.Name, n); ok {
			return existing
		}
		fresh := &core.BaseType{
			Header:  core.Header{Kind: core.KindBaseType, TopLevel: true},
			Name:    v.Name,
			BitSize: n,
			Boolean: v.Boolean,
			Signed:  v.Signed,
		}
		return rc.appendSyntheticType(fresh)

	case *core.EnumerationType:
		if existing, ok := rc.findSyntheticEnum(v.Name, n); ok {
			return existing
		}
		fresh := &core.EnumerationType{
			Header:      core.Header{Kind: core.KindEnumerationType, TopLevel: true},
			Name:        v.Name,
			SizeBits:    n,
			Enumerators: v.Enumerators, // shared: borrowed, never independently freed
			SharedTags:  true,
		}
		return rc.appendSyntheticType(fresh)

	default:
		rc.diagSink.Warn(diag.KindMalformedExpression, "bitfield_type",
			"bitfield member's type is neither a base type, enum, nor a qualifier chain over one")
		return targetType
	}
}

// findSyntheticBaseType searches types_table (not the per-CU hash) for a
// previously synthesized base type with the same (name, bit_size), per
// spec §4.5's and §5's dedup requirement.
func (rc *Recoder) findSyntheticBaseType(name strpool.ID, n int) (int, bool) {
	for id, t := range rc.cu.TypesTable {
		if id == core.Void {
			continue
		}
		if b, ok := t.(*core.BaseType); ok && b.BitSize == n && b.Name == name {
			return id, true
		}
	}
	return 0, false
}

func (rc *Recoder) findSyntheticEnum(name strpool.ID, n int) (int, bool) {
	for id, t := range rc.cu.TypesTable {
		if id == core.Void {
			continue
		}
		if e, ok := t.(*core.EnumerationType); ok && e.SizeBits == n && e.Name == name {
			return id, true
		}
	}
	return 0, false
}

// appendSyntheticType registers a freshly allocated type node directly in
// types_table, bypassing HashTypes since it has no DIE offset of its own.
func (rc *Recoder) appendSyntheticType(t core.Tag) int {
	id := len(rc.cu.TypesTable)
	t.Head().SmallID = id
	rc.cu.TypesTable = append(rc.cu.TypesTable, t)
	rc.syntheticTypes++
	return id
}
