// Package recode implements the second pass over a parsed compilation unit
// (spec §4.4): every tag's raw DIE-offset references are rewritten into
// dense intra-CU ids now that every DIE in the CU has been visited once
// and assigned a small id (pkg/dwarf/parse's job). A tag's small id never
// changes between parse and recode — only the meaning of the fields that
// still held raw offsets does.
package recode

import (
	"fmt"

	"github.com/Manu343726/dwarfcore/pkg/diag"
	"github.com/Manu343726/dwarfcore/pkg/dwarf/core"
	"github.com/Manu343726/dwarfcore/pkg/strpool"
)

// Recoder rewrites one CU's raw offsets into dense ids and synthesizes the
// bitfield base/enum/typedef types spec §4.5 describes.
type Recoder struct {
	cu       *core.CU
	pool     *strpool.Pool
	diagSink *diag.Sink

	// syntheticTypes counts every fresh base/enum/qualifier/typedef node
	// bitfield.go's recodeBitfield allocates (not the ones it dedups
	// against an existing entry), for the load subcommand's per-file
	// summary (SPEC_FULL.md §3's "total synthetic bitfield types created").
	syntheticTypes int
}

// SyntheticTypesCreated reports how many fresh bitfield-synthesis types
// (spec §4.5) this Recoder allocated while recoding its CU.
func (rc *Recoder) SyntheticTypesCreated() int { return rc.syntheticTypes }

// New creates a Recoder for cu. pool is needed only by the bitfield
// synthesis pass (new type names are interned the same way parse interns
// everything else).
func New(cu *core.CU, pool *strpool.Pool, sink *diag.Sink) *Recoder {
	return &Recoder{cu: cu, pool: pool, diagSink: sink}
}

// Run recodes every tag in the CU exactly once. Calling Run on an
// already-recoded CU is a no-op (spec §8's round-trip idempotence
// property): Header.Scratch is nil'd out as each tag is consumed, and a
// nil Scratch is recode's signal that a tag needs no further work.
func (rc *Recoder) Run() {
	if rc.cu.Recoded {
		return
	}

	for _, t := range rc.cu.TypesTable {
		if t == nil {
			continue // index 0, the reserved void slot
		}
		rc.recodeOne(t)
	}
	for _, t := range rc.cu.TagsTable {
		rc.recodeOne(t)
	}
	for _, fn := range rc.cu.FunctionsTable {
		rc.recodeOne(fn)
	}

	rc.cu.Recoded = true
}

// resolveType maps a raw DW_AT_type offset to the dense types_table id it
// names, 0 (void) if raw is 0, or 0 plus a DANGLING_REFERENCE diagnostic if
// raw is non-zero but names no known type.
func (rc *Recoder) resolveType(raw int) int {
	if raw == 0 {
		return core.Void
	}
	if t, ok := rc.cu.FindType(raw); ok {
		return t.Head().SmallID
	}
	rc.diagSink.Warn(diag.KindDanglingReference, fmt.Sprintf("type@0x%x", raw),
		"type reference does not resolve to any known type in this unit")
	return core.Void
}

// typeOf returns tag's resolved type id regardless of whether tag itself
// has been recoded yet: abstract-origin borrowing (below) can run into an
// origin that recode has not reached yet in table iteration order, even
// though the origin's own small id was already fixed at parse time.
func (rc *Recoder) typeOf(tag core.Tag) int {
	h := tag.Head()
	if h.Scratch != nil {
		return rc.resolveType(h.Scratch.TypeRef)
	}
	return h.Type
}

func (rc *Recoder) recodeOne(t core.Tag) {
	h := t.Head()
	if h.Scratch == nil {
		return
	}
	rec := h.Scratch

	h.Type = rc.resolveType(rec.TypeRef)

	// "A field with type==0 and a non-zero abstract_origin borrows the
	// origin's name and type" (spec §4.4), for the tags that can carry one
	// without a dedicated resolution slot of their own: formal parameters,
	// local variables, and labels declared once out-of-line and reused by
	// every inlined copy.
	if h.Type == core.Void && rec.HasOrigin && canBorrowFromOrigin(t) {
		if origin, ok := rc.cu.Find(rec.AbstractOrigin); ok {
			borrowNameAndType(t, origin, rc.typeOf(origin))
		} else {
			rc.diagSink.Warn(diag.KindDanglingReference, fmt.Sprintf("origin@0x%x", rec.AbstractOrigin),
				"abstract_origin does not resolve to any known tag in this unit")
		}
	}

	switch v := t.(type) {
	case *core.PtrToMember:
		v.ContainingType = rc.resolveType(v.ContainingType)

	case *core.NamespaceLike:
		if rec.HasSpecification {
			if counterpart, ok := rc.cu.FindType(rec.Specification); ok {
				v.LinkedDecl = counterpart.Head().SmallID
				if v.Name == 0 {
					if cp, ok := counterpart.(*core.NamespaceLike); ok {
						v.Name = cp.Name
					}
				}
			} else {
				rc.diagSink.Warn(diag.KindDanglingReference, fmt.Sprintf("spec@0x%x", rec.Specification),
					"specification does not resolve to any known type")
			}
		}

	case *core.Variable:
		if rec.HasSpecification {
			if counterpart, ok := rc.cu.FindTag(rec.Specification); ok {
				v.SpecificationOf = counterpart.Head().SmallID
			} else {
				rc.diagSink.Warn(diag.KindDanglingReference, fmt.Sprintf("spec@0x%x", rec.Specification),
					"specification does not resolve to any known variable")
			}
		}

	case *core.InlineExpansion:
		if rec.HasOrigin {
			if fn, ok := rc.cu.Function(rec.AbstractOrigin); ok {
				v.OriginFn = fn.SmallID
			} else {
				rc.diagSink.Warn(diag.KindDanglingReference, fmt.Sprintf("origin@0x%x", rec.AbstractOrigin),
					"inlined_subroutine abstract_origin does not resolve to any known function")
			}
		}

	case *core.Function:
		if rec.HasOrigin {
			if fn, ok := rc.cu.Function(rec.AbstractOrigin); ok {
				v.OriginFn = fn.SmallID
				if v.Name == 0 {
					v.Name = fn.Name
				}
			} else {
				rc.diagSink.Warn(diag.KindDanglingReference, fmt.Sprintf("origin@0x%x", rec.AbstractOrigin),
					"function abstract_origin does not resolve to any known function")
			}
		}
		// "resolve missing name via abstract_origin then specification"
		// (spec §4.4): a namespaced method defined out-of-line carries
		// DW_AT_specification pointing back at its declaration, which is
		// where its (possibly qualified) name actually lives.
		if rec.HasSpecification {
			if counterpart, ok := rc.cu.Function(rec.Specification); ok {
				v.SpecificationOf = counterpart.SmallID
				if v.Name == 0 {
					v.Name = counterpart.Name
				}
			} else {
				rc.diagSink.Warn(diag.KindDanglingReference, fmt.Sprintf("spec@0x%x", rec.Specification),
					"function specification does not resolve to any known function")
			}
		}

	case *core.ClassMember:
		// §4.5: a bitfield member's stored type is replaced by the
		// synthetic (or shared) node sized to its declared bit width.
		if v.BitfieldSize > 0 {
			h.Type = rc.recodeBitfield(h.Type, v.BitfieldSize)
		}
	}

	h.Scratch = nil
}

// canBorrowFromOrigin reports whether t is one of the kinds spec §4.4's
// abstract-origin borrowing rule applies to: formal parameters, local
// variables, and labels. Functions and inline expansions resolve their
// origin through a dedicated field (OriginFn) instead.
func canBorrowFromOrigin(t core.Tag) bool {
	switch t.(type) {
	case *core.Parameter, *core.Variable, *core.Label:
		return true
	default:
		return false
	}
}

// borrowNameAndType copies origin's name (for the kinds that have one) and
// already-resolved type id into t.
func borrowNameAndType(t core.Tag, origin core.Tag, originType int) {
	switch v := t.(type) {
	case *core.Parameter:
		if o, ok := origin.(*core.Parameter); ok {
			v.Name = o.Name
		}
	case *core.Variable:
		if o, ok := origin.(*core.Variable); ok {
			v.Name = o.Name
		}
	case *core.Label:
		if o, ok := origin.(*core.Label); ok {
			v.Name = o.Name
		}
	}
	t.Head().Type = originType
}
