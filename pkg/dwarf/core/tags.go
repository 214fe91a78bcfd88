// Package core holds the in-memory, cross-linked model of DWARF
// declarations produced by this loader: the tag-kind variants of spec.md
// §3, the common header every tag shares, the per-tag dwarf-side scratch
// record, and the per-CU dense tables and hash indices tags live in.
//
// This package defines the data only. Building it (parse), rewriting raw
// DWARF offsets into dense ids (recode) and caching member sizes
// (sizecache) live in sibling packages so the dependency order mirrors
// spec.md §2: core has no dependency on them.
package core

import "github.com/Manu343726/dwarfcore/pkg/strpool"

// Kind discriminates the tagged-variant union of spec.md §3. Every factory
// in pkg/dwarf/parse returns a Tag whose Header().Kind is one of these.
type Kind int

const (
	KindInvalid Kind = iota

	// "Simple tag" kinds (spec §3): pointer, reference, const, volatile,
	// imported declaration/module.
	KindPointer
	KindReference
	KindConst
	KindVolatile
	KindImportedDeclaration
	KindImportedModule

	KindPtrToMember
	KindBaseType
	KindArrayType
	KindEnumerationType
	KindNamespaceLike // class/struct/union/namespace/typedef
	KindClassMember
	KindParameter
	KindVariable
	KindLabel
	KindFuncType
	KindFunction // subprogram
	KindLexicalBlock
	KindInlineExpansion
)

func (k Kind) String() string {
	switch k {
	case KindPointer:
		return "pointer"
	case KindReference:
		return "reference"
	case KindConst:
		return "const"
	case KindVolatile:
		return "volatile"
	case KindImportedDeclaration:
		return "imported_declaration"
	case KindImportedModule:
		return "imported_module"
	case KindPtrToMember:
		return "ptr_to_member"
	case KindBaseType:
		return "base_type"
	case KindArrayType:
		return "array_type"
	case KindEnumerationType:
		return "enumeration_type"
	case KindNamespaceLike:
		return "namespace_like"
	case KindClassMember:
		return "class_member"
	case KindParameter:
		return "parameter"
	case KindVariable:
		return "variable"
	case KindLabel:
		return "label"
	case KindFuncType:
		return "func_type"
	case KindFunction:
		return "function"
	case KindLexicalBlock:
		return "lexical_block"
	case KindInlineExpansion:
		return "inline_expansion"
	default:
		return "invalid"
	}
}

// IsTypeKind reports whether a tag of this kind belongs in a CU's
// types_table / hash_types, per spec.md §3's "Per-CU structures" list.
// Everything else belongs in tags_table, except KindFunction, which has its
// own functions_table but is still indexed through hash_tags (see
// invariant 2 and §4.4's inlined_subroutine/abstract_origin resolution,
// which looks functions up through the TAG hash).
func (k Kind) IsTypeKind() bool {
	switch k {
	case KindPointer, KindReference, KindConst, KindVolatile,
		KindPtrToMember, KindBaseType, KindArrayType, KindEnumerationType,
		KindNamespaceLike, KindFuncType:
		return true
	default:
		return false
	}
}

// Void is the reserved small id for "no type" (index 0 of types_table).
const Void = 0

// Header is the common header present on every tag (spec §3): discriminant,
// top-level flag, and the type-reference field whose meaning transitions
// from raw DWARF offset to dense intra-CU index during recode. Scratch
// points at the side-record that carries raw offsets through the parse
// phase; it is set to nil once recode has consumed it (the round-trip
// idempotence test in spec §8 detects "already recoded" via Scratch == nil).
type Header struct {
	Kind     Kind
	TopLevel bool

	// Type is the type reference: a raw DIE offset while Scratch != nil,
	// a dense types_table index once recoded. 0 means void/absent.
	Type int

	// SmallID is this tag's dense index within whichever table it lives in
	// (types_table, tags_table, or functions_table), assigned at insertion
	// time during parse (invariant 1).
	SmallID int

	Scratch *Record
}

// Tag is implemented by every concrete node kind. A single method is enough
// because Go interfaces are structural and every payload embeds Header.
// The accessor is named Head, not Header, because every payload already
// embeds a field named Header (promoted from the anonymous embed) and Go
// does not allow a method and a field to share a name on the same type.
type Tag interface {
	Head() *Header
}

// Record is the dwarf-side scratch attached to every allocated node (spec
// §3's "Dwarf side-record"): the raw DIE offset identifying this node, the
// raw references it makes to other DIEs, and bookkeeping needed only
// during parse/recode. One Record arena lives per CU and is dropped en
// bloc at CU end unless extra_dbg_info asks to keep it (see
// pkg/dwarf/load).
type Record struct {
	ID int // DIE byte offset identifying this node

	TypeRef int // raw DW_AT_type offset, 0 if absent

	// AbstractOrigin and ContainingType are mutually exclusive by kind
	// (spec's "tagged union by kind"): pointer-to-member nodes use
	// ContainingType, everything else that can have an abstract origin
	// (inlined instances, imported declarations) uses AbstractOrigin.
	AbstractOrigin  int
	HasOrigin       bool
	ContainingType  int
	HasContaining   bool
	Specification   int
	HasSpecification bool

	DeclFile strpool.ID
	DeclLine int
}

// --- Concrete tag payloads ------------------------------------------------

// Qualifier models the "simple tag" kinds: pointer, reference, const,
// volatile, imported declaration, imported module. All of them are "a tag
// plus an optional type reference"; imported declaration/module additionally
// carry a name (the imported entity) via Name.
type Qualifier struct {
	Header
	Name strpool.ID
}

// PtrToMember is a pointer-to-member type: the member's type (Header.Type)
// plus the containing class (ContainingType, resolved through Scratch
// during parse and rewritten to a dense id during recode).
type PtrToMember struct {
	Header
	ContainingType int
}

// BaseType models a fundamental type: name, bit-size, and flags (spec §3).
// Synthetic bitfield base types (spec §4.5) are BaseType values with
// TopLevel set and a Scratch of nil (they are born already recoded).
type BaseType struct {
	Header
	Name     strpool.ID
	BitSize  int
	Boolean  bool
	Signed   bool
	Varargs  bool
}

// ArrayDimension is one subrange of an array type: the declared upper bound
// plus one (spec §4.1's attr_upper_bound), or 0 if the subrange carried no
// bound.
type ArrayDimension struct {
	UpperBound uint64
}

// ArrayType models an array: element type (Header.Type), ordered
// dimensions (capped at 64 per spec §4.3), and the DWARF vector flag.
type ArrayType struct {
	Header
	Dimensions []ArrayDimension
	Vector     bool
}

// Enumerator is one member of an enumeration's value list. Enumerators are
// never independently addressed by DIE offset (nothing in the DWARF model
// references one directly), so they carry no Header/small id of their own.
type Enumerator struct {
	Name  strpool.ID
	Value int64
}

// EnumerationType models an enum: size in bits and its ordered enumerator
// list. SharedTags marks an enum created by bitfield synthesis (spec §4.5)
// that borrows another enum's Enumerators slice by reference; such a node
// must never mutate or free that slice.
type EnumerationType struct {
	Header
	Name        strpool.ID
	SizeBits    int
	Enumerators []Enumerator
	SharedTags  bool
}

// NamespaceLike models class/struct/union/namespace, and typedef (a
// namespace-like with Type set and no members), per spec §3.
type NamespaceLike struct {
	Header
	Name     strpool.ID
	Children []Tag // ordered child-tag references
	Members  []*ClassMember
	Size     int
	DeclOnly bool

	NrMembers      int
	SharedTags     bool
	HasForwardDecl bool
	// LinkedDecl is the dense types_table id of the counterpart this node's
	// DW_AT_specification points at (a declaration's definition, or a
	// definition's forward declaration), resolved during recode. -1 if
	// HasForwardDecl is false or the reference was dangling.
	LinkedDecl int

	Vtable    []int
	Holes     int
	HoleBytes int
}

// ClassMember is a struct/union/class field or a base-class inheritance
// entry (spec §3). ByteSize/BitSize are populated by the size cacher
// (pkg/dwarf/sizecache), not by parse/recode.
type ClassMember struct {
	Header
	Name           strpool.ID
	ByteOffset     int
	BitfieldOffset int
	BitfieldSize   int
	ByteSize       int
	BitSize        int
	Accessibility  int
	Virtuality     int
}

// Parameter is a formal parameter of a function or function type.
type Parameter struct {
	Header
	Name strpool.ID
}

// VLocation classifies where a variable's value can be found at runtime
// (spec §4.1's dwarf_location).
type VLocation int

const (
	LocationUnknown VLocation = iota
	LocationOptimized
	LocationGlobal
	LocationRegister
	LocationLocal
)

// Variable models a global or local variable declaration.
type Variable struct {
	Header
	Name     strpool.ID
	External bool
	DeclOnly bool
	Location VLocation
	Address  uint64 // valid when Location == LocationGlobal

	// SpecificationOf is the dense tags_table id of the out-of-line
	// declaration this definition completes (DW_AT_specification),
	// resolved during recode. -1 if absent or dangling.
	SpecificationOf int
}

// Label models a DWARF label.
type Label struct {
	Header
	Name    strpool.ID
	Address uint64
}

// FuncType is the "ftype" view shared by subprograms and subroutine types:
// an ordered parameter list plus the return type (Header.Type) and the
// "unspecified parameters" (varargs-style `...`) flag.
type FuncType struct {
	Header
	Parameters            []*Parameter
	UnspecifiedParameters bool
}

// Function models a subprogram: it composes a FuncType view and a
// LexicalBlock (its outermost scope) plus subprogram-specific fields
// (spec §3). The two are named, not embedded, fields: both FuncType and
// LexicalBlock carry their own Header for their standalone uses
// (KindFuncType subroutine types, nested KindLexicalBlock scopes), and
// embedding both anonymously into Function would make "Header" an
// ambiguous promoted selector. A subprogram's return type is its own
// Header.Type; the Headers of its FuncType and Scope fields stay zero.
type Function struct {
	Header
	FuncType FuncType
	Scope    LexicalBlock

	Name              strpool.ID
	LinkageName       strpool.ID
	Inlined           bool
	External          bool
	AbstractOrigin    bool
	Accessibility     int
	Virtuality        int
	VtableEntryOffset int
	VtableNode        int // small id of the vtable-owning type, -1 if none

	// OriginFn is the dense functions_table id this concrete instance's
	// DW_AT_abstract_origin resolves to (the out-of-line subprogram it was
	// inlined or specialized from), resolved during recode. -1 if
	// AbstractOrigin is false or the reference was dangling.
	OriginFn int

	// SpecificationOf is the dense functions_table id of the out-of-line
	// declaration this definition completes (DW_AT_specification), e.g. a
	// namespaced method's prior forward declaration. -1 if absent or
	// dangling.
	SpecificationOf int
}

// LexicalBlock is a lexical scope: a block or a function's top-level scope.
type LexicalBlock struct {
	Header
	Address int

	Labels      []*Label
	Variables   []*Variable
	Inlines     []*InlineExpansion
	SubBlocks   []*LexicalBlock

	Size                 int
	NrLabels             int
	NrVariables          int
	NrInlineExpansions   int
	NrSubBlocks          int
	TotalInlineExpansionSize int
}

// InlineExpansion models an inlined_subroutine: the origin it was inlined
// from plus the address range(s) it occupies. Size sums non-contiguous
// ranges (spec §8 scenario 4).
type InlineExpansion struct {
	Header
	AbstractOrigin int // raw DIE offset, kept for diagnostics after recode
	Address        uint64
	HighPC         uint64
	Size           uint64

	// OriginFn is AbstractOrigin resolved to a dense functions_table id
	// during recode, via the TAG hash (spec §4.4). -1 if unresolved.
	OriginFn int
}

// Head accessors — one per concrete type, satisfying the Tag interface.
// Declared together, last, so the variant list above reads like the spec's
// data model section.
func (t *Qualifier) Head() *Header       { return &t.Header }
func (t *PtrToMember) Head() *Header     { return &t.Header }
func (t *BaseType) Head() *Header        { return &t.Header }
func (t *ArrayType) Head() *Header       { return &t.Header }
func (t *EnumerationType) Head() *Header { return &t.Header }
func (t *NamespaceLike) Head() *Header   { return &t.Header }
func (t *ClassMember) Head() *Header     { return &t.Header }
func (t *Parameter) Head() *Header       { return &t.Header }
func (t *Variable) Head() *Header        { return &t.Header }
func (t *Label) Head() *Header           { return &t.Header }
func (t *FuncType) Head() *Header        { return &t.Header }
func (t *Function) Head() *Header        { return &t.Header }
func (t *LexicalBlock) Head() *Header    { return &t.Header }
func (t *InlineExpansion) Head() *Header { return &t.Header }
