// Package sizecache implements spec.md §4.6: after a CU has been parsed
// and recoded, every class_member/inheritance tag gets its byte_size and
// bit_size fields resolved by walking its (possibly synthetic) type.
package sizecache

import (
	"fmt"

	"github.com/Manu343726/dwarfcore/pkg/diag"
	"github.com/Manu343726/dwarfcore/pkg/dwarf/core"
	"github.com/Manu343726/dwarfcore/pkg/strpool"
	"github.com/Manu343726/dwarfcore/pkg/utils"
)

// integralBitSize maps a canonical C base-type name to the storage-unit
// width a bitfield of that underlying type occupies (spec §4.6's
// "int -> 32, long long -> 64" example, generalized to the full set of
// standard integer type names a C/C++ compiler emits in DW_AT_name).
var integralBitSize = map[string]int{
	"_Bool":              8,
	"bool":               8,
	"char":               8,
	"signed char":        8,
	"unsigned char":      8,
	"short":              16,
	"short int":          16,
	"unsigned short":     16,
	"short unsigned int": 16,
	"int":                32,
	"unsigned int":       32,
	"long":               64,
	"long int":           64,
	"unsigned long":      64,
	"long unsigned int":  64,
	"long long":          64,
	"long long int":      64,
	"unsigned long long": 64,
	"long long unsigned int": 64,
}

// Config is spec §4.1's conf.*, restricted to the fields the size cacher
// reads.
type Config struct {
	// PointerSize is the target's pointer width in bytes, used for
	// pointer/reference/ptr-to-member sizing. 8 unless overridden.
	PointerSize int

	// FixupSillyBitfields, when set, zeros BitfieldSize/BitfieldOffset on a
	// member whose declared bit width exactly matches its underlying type's
	// natural storage width (spec §4.6) — a "bitfield" that is not actually
	// packed any tighter than the plain field it masquerades as.
	FixupSillyBitfields bool
}

// DefaultConfig mirrors the common LP64 case the teacher's own target
// (x86-64) uses.
func DefaultConfig() Config {
	return Config{PointerSize: 8}
}

// Cacher resolves member sizes for one CU.
type Cacher struct {
	cu       *core.CU
	pool     *strpool.Pool
	conf     Config
	diagSink *diag.Sink
}

func New(cu *core.CU, pool *strpool.Pool, conf Config, sink *diag.Sink) *Cacher {
	return &Cacher{cu: cu, pool: pool, conf: conf, diagSink: sink}
}

// Run resolves ByteSize/BitSize for every class_member in the CU.
func (c *Cacher) Run() {
	for _, t := range c.cu.TagsTable {
		m, ok := t.(*core.ClassMember)
		if !ok {
			continue
		}
		c.resolveMember(m)
	}
}

func (c *Cacher) resolveMember(m *core.ClassMember) {
	if m.BitfieldSize == 0 {
		m.ByteSize = c.sizeOfType(m.Header.Type)
		m.BitSize = utils.Bits(m.ByteSize)
		return
	}

	base, ok := c.underlyingBase(m.Header.Type)
	if !ok {
		c.diagSink.Warn(diag.KindMalformedExpression, fmt.Sprintf("member_type@%d", m.Header.Type),
			"bitfield member's type chain does not reach a base type or enum")
		m.ByteSize, m.BitSize = 0, 0
		return
	}

	typeBitSize := base.bitSize
	integral := integralBitSize[c.pool.Ptr(base.name)]

	if integral == 0 {
		c.diagSink.Warn(diag.KindMalformedExpression, fmt.Sprintf("base_name=%s", c.pool.Ptr(base.name)),
			"bitfield member's underlying base type has no recognized canonical storage size")
		m.ByteSize, m.BitSize = 0, 0
		return
	}

	m.ByteSize = integral / 8
	m.BitSize = typeBitSize

	if typeBitSize == integral && c.conf.FixupSillyBitfields {
		m.BitfieldSize = 0
		m.BitfieldOffset = 0
	}
}

// resolvedBase is what underlyingBase reports about the base/enum type at
// the end of a typedef/qualifier chain.
type resolvedBase struct {
	name    strpool.ID
	bitSize int
}

// underlyingBase follows typedefs and drops qualifiers (spec §4.6: "follow
// typedefs and drop qualifiers to reach a base type or enum") starting
// from typeID, returning that type's canonical name and bit size.
func (c *Cacher) underlyingBase(typeID int) (resolvedBase, bool) {
	seen := map[int]bool{}
	for {
		if typeID == core.Void || typeID < 0 || typeID >= len(c.cu.TypesTable) {
			return resolvedBase{}, false
		}
		if seen[typeID] {
			return resolvedBase{}, false // cyclic typedef chain, malformed input
		}
		seen[typeID] = true

		switch v := c.cu.TypesTable[typeID].(type) {
		case *core.BaseType:
			return resolvedBase{name: v.Name, bitSize: v.BitSize}, true
		case *core.EnumerationType:
			return resolvedBase{name: v.Name, bitSize: v.SizeBits}, true
		case *core.NamespaceLike: // typedef
			typeID = v.Head().Type
		case *core.Qualifier: // const/volatile
			typeID = v.Head().Type
		default:
			return resolvedBase{}, false
		}
	}
}

// sizeOfType resolves a type's size in bytes for a non-bitfield member,
// following typedefs/qualifiers and computing arrays/pointers/enums/
// classes along the way.
func (c *Cacher) sizeOfType(typeID int) int {
	seen := map[int]bool{}
	for {
		if typeID == core.Void || typeID < 0 || typeID >= len(c.cu.TypesTable) {
			return 0
		}
		if seen[typeID] {
			return 0
		}
		seen[typeID] = true

		switch v := c.cu.TypesTable[typeID].(type) {
		case *core.BaseType:
			return v.BitSize / 8
		case *core.EnumerationType:
			return v.SizeBits / 8
		case *core.Qualifier:
			switch v.Head().Kind {
			case core.KindPointer, core.KindReference:
				return c.conf.PointerSize
			default: // const/volatile/imported_*: same size as the wrapped type
				typeID = v.Head().Type
				continue
			}
		case *core.PtrToMember:
			return c.conf.PointerSize
		case *core.ArrayType:
			elemSize := c.sizeOfType(v.Head().Type)
			count := 1
			for _, d := range v.Dimensions {
				if d.UpperBound > 0 {
					count *= int(d.UpperBound)
				}
			}
			return elemSize * count
		case *core.NamespaceLike:
			if v.Head().Type != core.Void {
				// typedef: a namespace-like node with Type set is standing
				// in for the type it names, not for itself.
				typeID = v.Head().Type
				continue
			}
			return v.Size
		case *core.FuncType:
			return 0 // function types have no storage size of their own
		default:
			return 0
		}
	}
}
