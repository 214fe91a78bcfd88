// Package parse walks a single DWARF compilation unit's DIE tree with
// debug/dwarf.Reader and builds the in-memory model of pkg/dwarf/core: one
// Driver per CU, dispatching each DIE to the factory matching its tag
// (pkg/dwarf/parse/factories.go) and threading the reader through nested
// scopes (classes, namespaces, function bodies, lexical blocks).
//
// References that cross DIEs — DW_AT_type, DW_AT_abstract_origin,
// DW_AT_specification, DW_AT_containing_type — are recorded as raw DIE
// offsets in each tag's Header.Scratch and left unresolved here; turning
// them into dense intra-CU ids is pkg/dwarf/recode's job, run as a second
// pass once every DIE in the CU has been seen once (the two-phase parse
// this package implements exists exactly so a forward reference to a DIE
// not yet visited still resolves correctly).
package parse

import (
	"debug/dwarf"
	"fmt"

	"github.com/Manu343726/dwarfcore/pkg/diag"
	"github.com/Manu343726/dwarfcore/pkg/dwarf/attr"
	"github.com/Manu343726/dwarfcore/pkg/dwarf/core"
	"github.com/Manu343726/dwarfcore/pkg/strpool"
)

// Driver parses one compilation unit at a time into a *core.CU.
type Driver struct {
	dwarfData *dwarf.Data
	pool      *strpool.Pool
	diagSink  *diag.Sink

	cu    *core.CU
	files []*dwarf.LineFile

	// diesProcessed counts every DIE that reached core.CU.Insert while
	// parsing the current unit, for the load subcommand's per-file summary
	// (SPEC_FULL.md §3's "total DIEs processed").
	diesProcessed int
}

// DIEsProcessed reports how many DIEs the most recently parsed unit
// inserted into its CU's tables (i.e. every DIE this loader recognized and
// modeled, excluding skipped/unsupported tags and subrange children).
func (d *Driver) DIEsProcessed() int { return d.diesProcessed }

// New creates a Driver reading from data, interning strings into pool and
// routing diagnostics to sink. A single Driver is reused across every CU
// in a file (ProcessUnit resets its per-CU state).
func New(data *dwarf.Data, pool *strpool.Pool, sink *diag.Sink) *Driver {
	return &Driver{dwarfData: data, pool: pool, diagSink: sink}
}

// ProcessUnit parses the compilation unit rooted at root, read from r
// (whose next entry must be root's first child, i.e. r.Next() must just
// have returned root), and returns its fully parsed, not-yet-recoded CU.
func (d *Driver) ProcessUnit(r *dwarf.Reader, root *dwarf.Entry) (*core.CU, error) {
	if root.Tag != dwarf.TagCompileUnit && root.Tag != dwarf.TagPartialUnit {
		return nil, fmt.Errorf("parse: unit root has unexpected tag %v", root.Tag)
	}

	name := attr.String(root, dwarf.AttrName, d.pool)
	compDir := attr.String(root, dwarf.AttrCompDir, d.pool)
	producer := attr.String(root, dwarf.AttrProducer, d.pool)
	lang, _ := attr.Numeric(root, dwarf.AttrLanguage)

	d.cu = core.NewCU(int(root.Offset), name, compDir, producer, lang)
	d.files = nil
	d.diesProcessed = 0
	if lr, err := d.dwarfData.LineReader(root); err == nil && lr != nil {
		d.files = lr.Files()
	}

	if !root.Children {
		return d.cu, nil
	}

	for {
		child, err := r.Next()
		if err != nil {
			return nil, err
		}
		if child == nil {
			break
		}

		if child.Tag == dwarf.TagCompileUnit || child.Tag == dwarf.TagPartialUnit {
			// A second unit root nested where a sibling was expected: the
			// object file's DIE tree is malformed. Record it and keep
			// going rather than losing everything parsed so far, unless
			// the sink is in strict mode, which makes it an error.
			d.diagSink.Warn(diag.KindSecondTopLevelSibling, fmt.Sprintf("0x%x", child.Offset),
				"unexpected nested compilation-unit root")
			if d.diagSink.Strict() {
				return nil, fmt.Errorf("parse: unexpected nested compilation-unit root at 0x%x", child.Offset)
			}
			if child.Children {
				if err := r.SkipChildren(); err != nil {
					return nil, err
				}
			}
			continue
		}

		tag, err := d.processTag(r, child, true)
		if err != nil {
			return nil, err
		}
		if tag != nil {
			d.cu.TopLevel = append(d.cu.TopLevel, tag)
		}
	}

	return d.cu, nil
}

// resolveDeclFile turns a DW_AT_decl_file index (1-based in DWARF ≤4,
// 0-based from DWARF 5 on; debug/dwarf normalizes the index space to match
// LineReader.Files, so no version branching is needed here) into an
// interned path.
func (d *Driver) resolveDeclFile(fileIndex int64) strpool.ID {
	if fileIndex < 0 || int(fileIndex) >= len(d.files) {
		return 0
	}
	f := d.files[fileIndex]
	if f == nil {
		return 0
	}
	return d.pool.AddString(f.Name)
}

// simpleLeaf builds a tag with build, then discards any children the
// producer unexpectedly attached to what this loader treats as a
// childless DIE kind, keeping the reader's position consistent.
func (d *Driver) simpleLeaf(r *dwarf.Reader, entry *dwarf.Entry, build func() core.Tag) (core.Tag, error) {
	t := build()
	if entry.Children {
		if err := r.SkipChildren(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// processTag is the general dispatcher (spec §4.3's process_tag): given an
// entry positioned by r, it builds the matching core.Tag (recursing into
// r for the composite kinds that own children) and returns it, or nil for
// a tag kind this loader does not model (after raising an UNSUPPORTED_TAG
// diagnostic and skipping its children, if any).
func (d *Driver) processTag(r *dwarf.Reader, entry *dwarf.Entry, topLevel bool) (core.Tag, error) {
	switch entry.Tag {
	case dwarf.TagPointerType:
		return d.simpleLeaf(r, entry, func() core.Tag { return d.simpleTag(entry, core.KindPointer, topLevel) })
	case dwarf.TagReferenceType, dwarf.TagRvalueReferenceType:
		return d.simpleLeaf(r, entry, func() core.Tag { return d.simpleTag(entry, core.KindReference, topLevel) })
	case dwarf.TagConstType:
		return d.simpleLeaf(r, entry, func() core.Tag { return d.simpleTag(entry, core.KindConst, topLevel) })
	case dwarf.TagVolatileType:
		return d.simpleLeaf(r, entry, func() core.Tag { return d.simpleTag(entry, core.KindVolatile, topLevel) })
	case dwarf.TagImportedDeclaration:
		return d.simpleLeaf(r, entry, func() core.Tag { return d.simpleTag(entry, core.KindImportedDeclaration, topLevel) })
	case dwarf.TagImportedModule:
		return d.simpleLeaf(r, entry, func() core.Tag { return d.simpleTag(entry, core.KindImportedModule, topLevel) })

	case dwarf.TagPtrToMemberType:
		return d.simpleLeaf(r, entry, func() core.Tag { return d.ptrToMember(entry, topLevel) })
	case dwarf.TagBaseType, dwarf.TagUnspecifiedType:
		return d.simpleLeaf(r, entry, func() core.Tag { return d.baseType(entry, topLevel) })
	case dwarf.TagArrayType:
		return d.arrayType(r, entry, topLevel)
	case dwarf.TagEnumerationType:
		return d.enumerationType(r, entry, topLevel)

	case dwarf.TagStructType, dwarf.TagUnionType, dwarf.TagClassType, dwarf.TagInterfaceType:
		return d.classType(r, entry, topLevel)
	case dwarf.TagTypedef:
		return d.simpleLeaf(r, entry, func() core.Tag { return d.namespaceLike(entry, core.KindNamespaceLike, topLevel) })
	case dwarf.TagNamespace:
		return d.namespace(r, entry, topLevel)

	case dwarf.TagSubprogram:
		return d.function(r, entry, topLevel)
	case dwarf.TagSubroutineType:
		return d.subroutineType(r, entry, topLevel)

	case dwarf.TagVariable:
		return d.simpleLeaf(r, entry, func() core.Tag { return d.variable(entry, topLevel) })
	case dwarf.TagFormalParameter:
		return d.simpleLeaf(r, entry, func() core.Tag { return d.parameter(entry) })
	case dwarf.TagLabel:
		return d.simpleLeaf(r, entry, func() core.Tag { return d.label(entry) })
	case dwarf.TagLexDwarfBlock:
		return d.lexicalBlock(r, entry)
	case dwarf.TagInlinedSubroutine:
		ie, err := d.simpleLeaf(r, entry, func() core.Tag { return d.inlineExpansion(entry) })
		if err == nil {
			if exp, ok := ie.(*core.InlineExpansion); ok && exp.Size == 0 {
				d.diagSink.Warn(diag.KindEmptyInlineRange, fmt.Sprintf("0x%x", entry.Offset),
					"inlined_subroutine has an empty address range")
			}
		}
		return ie, err

	default:
		if entry.Children {
			if err := r.SkipChildren(); err != nil {
				return nil, err
			}
		}
		d.diagSink.Warn(diag.KindUnsupportedTag, entry.Tag.String(), "unsupported DWARF tag")
		return nil, nil
	}
}

// classType handles struct/union/class/interface: members and inheritance
// tags become *core.ClassMember entries on the type's member list; any
// other child is dispatched through processTag and linked into Children
// (spec §4.3's process_class).
func (d *Driver) classType(r *dwarf.Reader, entry *dwarf.Entry, topLevel bool) (*core.NamespaceLike, error) {
	n := d.namespaceLike(entry, core.KindNamespaceLike, topLevel)
	if !entry.Children {
		return n, nil
	}

	for {
		child, err := r.Next()
		if err != nil {
			return nil, err
		}
		if child == nil {
			break
		}

		switch child.Tag {
		case dwarf.TagMember:
			m := d.classMember(child, false)
			n.Members = append(n.Members, m)
			if child.Children {
				if err := r.SkipChildren(); err != nil {
					return nil, err
				}
			}
		case dwarf.TagInheritance:
			m := d.classMember(child, true)
			n.Members = append(n.Members, m)
			if child.Children {
				if err := r.SkipChildren(); err != nil {
					return nil, err
				}
			}
		default:
			tag, err := d.processTag(r, child, false)
			if err != nil {
				return nil, err
			}
			if tag != nil {
				n.Children = append(n.Children, tag)
			}
		}
	}

	n.NrMembers = len(n.Members)
	return n, nil
}

// namespace handles DW_TAG_namespace: like classType, but every child is
// dispatched through processTag and linked into Children — a namespace has
// no member list of its own (spec §4.3's process_namespace).
func (d *Driver) namespace(r *dwarf.Reader, entry *dwarf.Entry, topLevel bool) (*core.NamespaceLike, error) {
	n := d.namespaceLike(entry, core.KindNamespaceLike, topLevel)
	if !entry.Children {
		return n, nil
	}

	for {
		child, err := r.Next()
		if err != nil {
			return nil, err
		}
		if child == nil {
			break
		}
		tag, err := d.processTag(r, child, false)
		if err != nil {
			return nil, err
		}
		if tag != nil {
			n.Children = append(n.Children, tag)
		}
	}

	return n, nil
}

// function handles DW_TAG_subprogram: formal parameters fill its FuncType
// view, everything else (variables, labels, nested blocks, inlined calls)
// fills its outermost LexicalBlock scope (spec §4.3's process_function).
func (d *Driver) function(r *dwarf.Reader, entry *dwarf.Entry, topLevel bool) (*core.Function, error) {
	fn := &core.Function{Header: d.header(entry, core.KindFunction, topLevel)}
	fn.Name = attr.String(entry, dwarf.AttrName, d.pool)
	fn.LinkageName = attr.String(entry, dwarf.AttrLinkageName, d.pool)
	fn.External = attr.Flag(entry, dwarf.AttrExternal)
	fn.AbstractOrigin = fn.Header.Scratch.HasOrigin
	fn.VtableNode = -1
	fn.OriginFn = -1
	fn.SpecificationOf = -1

	if inl, ok := attr.Numeric(entry, dwarf.AttrInline); ok {
		fn.Inlined = inl != 0
	}
	if acc, ok := attr.Numeric(entry, dwarf.AttrAccessibility); ok {
		fn.Accessibility = int(acc)
	}
	if virt, ok := attr.Numeric(entry, dwarf.AttrVirtuality); ok {
		fn.Virtuality = int(virt)
	}
	if voff, ok := attr.ExprOffset(entry, dwarf.AttrVtableElemLoc); ok {
		fn.VtableEntryOffset = int(voff)
	}

	if entry.Children {
		if err := d.processScope(r, &fn.Scope, &fn.FuncType); err != nil {
			return nil, err
		}
	}

	d.insert(fn, entry)
	return fn, nil
}

// subroutineType handles DW_TAG_subroutine_type (a function type with no
// body, used for function pointers): only its formal-parameter children
// matter, read into a throwaway scope.
func (d *Driver) subroutineType(r *dwarf.Reader, entry *dwarf.Entry, topLevel bool) (*core.FuncType, error) {
	f := d.funcTypeHeader(entry, topLevel)
	if entry.Children {
		var discard core.LexicalBlock
		if err := d.processScope(r, &discard, f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// lexicalBlock handles DW_TAG_lexical_block: a nested scope within a
// function body, recursively populated the same way the function's
// outermost scope is.
func (d *Driver) lexicalBlock(r *dwarf.Reader, entry *dwarf.Entry) (*core.LexicalBlock, error) {
	lb := &core.LexicalBlock{Header: d.header(entry, core.KindLexicalBlock, false)}
	if pc, ok := attr.Numeric(entry, dwarf.AttrLowpc); ok {
		lb.Address = int(pc)
	}
	if entry.Children {
		if err := d.processScope(r, lb, nil); err != nil {
			return nil, err
		}
	}
	d.insert(lb, entry)

	lb.NrLabels = len(lb.Labels)
	lb.NrVariables = len(lb.Variables)
	lb.NrInlineExpansions = len(lb.Inlines)
	lb.NrSubBlocks = len(lb.SubBlocks)
	for _, ie := range lb.Inlines {
		lb.TotalInlineExpansionSize += int(ie.Size)
	}

	return lb, nil
}

// processScope reads the children of a function body or lexical block:
// formal parameters (and the varargs marker) feed ftype when non-nil,
// everything else feeds scope. A nested declaration that is neither a
// parameter, variable, label, inlined call, nor lexical block (e.g. a
// local type definition) is still dispatched through processTag so it
// gets a table entry, but is not linked from scope's structural lists.
func (d *Driver) processScope(r *dwarf.Reader, scope *core.LexicalBlock, ftype *core.FuncType) error {
	for {
		child, err := r.Next()
		if err != nil {
			return err
		}
		if child == nil {
			return nil
		}

		switch child.Tag {
		case dwarf.TagFormalParameter:
			p := d.parameter(child)
			if ftype != nil {
				ftype.Parameters = append(ftype.Parameters, p)
			}
			if child.Children {
				if err := r.SkipChildren(); err != nil {
					return err
				}
			}

		case dwarf.TagUnspecifiedParameters:
			if ftype != nil {
				ftype.UnspecifiedParameters = true
			}
			if child.Children {
				if err := r.SkipChildren(); err != nil {
					return err
				}
			}

		case dwarf.TagVariable:
			v := d.variable(child, false)
			scope.Variables = append(scope.Variables, v)
			if child.Children {
				if err := r.SkipChildren(); err != nil {
					return err
				}
			}

		case dwarf.TagLabel:
			l := d.label(child)
			scope.Labels = append(scope.Labels, l)
			if child.Children {
				if err := r.SkipChildren(); err != nil {
					return err
				}
			}

		case dwarf.TagLexDwarfBlock:
			nested, err := d.lexicalBlock(r, child)
			if err != nil {
				return err
			}
			scope.SubBlocks = append(scope.SubBlocks, nested)

		case dwarf.TagInlinedSubroutine:
			ie := d.inlineExpansion(child)
			scope.Inlines = append(scope.Inlines, ie)
			if ie.Size == 0 {
				d.diagSink.Warn(diag.KindEmptyInlineRange, fmt.Sprintf("0x%x", child.Offset),
					"inlined_subroutine has an empty address range")
			}
			if child.Children {
				if err := r.SkipChildren(); err != nil {
					return err
				}
			}

		default:
			if _, err := d.processTag(r, child, false); err != nil {
				return err
			}
		}
	}
}
