// Package dump implements the "dwarfcore dump" subcommand: render every
// compilation unit's top-level declarations as C-like source text, with
// struct/class member layouts drawn as ASCII frame diagrams.
package dump

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Manu343726/dwarfcore/pkg/diag"
	"github.com/Manu343726/dwarfcore/pkg/dwarf/core"
	"github.com/Manu343726/dwarfcore/pkg/dwarf/load"
	"github.com/Manu343726/dwarfcore/pkg/strpool"
	"github.com/Manu343726/dwarfcore/pkg/utils"
)

var plainOutput bool

var DumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Render an object file's DWARF declarations as C-like source text",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func init() {
	DumpCmd.Flags().BoolVar(&plainOutput, "plain", false, "disable C syntax highlighting")
}

func runDump(cmd *cobra.Command, args []string) error {
	conf := load.Config{
		PointerSize:         viper.GetInt("pointer_size"),
		FixupSillyBitfields: viper.GetBool("fixup_silly_bitfields"),
		Strict:              viper.GetBool("strict"),
	}
	if conf.PointerSize == 0 {
		conf = load.DefaultConfig()
	}

	loader := load.New(conf, diag.New(conf.Strict))
	result, err := loader.LoadFile(args[0], load.KeepAll)
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}

	pool := loader.Pool()
	for _, cu := range result.CUs {
		d := &dumper{cu: cu, pool: pool}
		d.dumpUnit()
	}
	return nil
}

type dumper struct {
	cu   *core.CU
	pool *strpool.Pool
}

func (d *dumper) dumpUnit() {
	fmt.Printf("// %s\n", d.pool.Ptr(d.cu.Name))
	for _, tag := range d.cu.TopLevel {
		d.emit(tag)
	}
}

func (d *dumper) emit(tag core.Tag) {
	var src string
	switch v := tag.(type) {
	case *core.NamespaceLike:
		src = d.renderNamespaceLike(v)
	case *core.Variable:
		src = d.renderVariable(v) + ";"
	case *core.Function:
		src = d.renderFunction(v) + ";"
	default:
		return
	}

	if plainOutput {
		fmt.Println(src)
	} else {
		utils.PrintHighlightedCCode(src)
	}
	fmt.Println()
}

func (d *dumper) name(id strpool.ID) string {
	s := d.pool.Ptr(id)
	if s == "" {
		return "<anonymous>"
	}
	return s
}

// typeName renders typeID as a C type expression. The recursion is bounded
// by the CU's own finite type graph; a cyclic typedef chain (malformed
// input) is caught by the visited set and rendered as "<cycle>" rather
// than looping forever.
func (d *dumper) typeName(typeID int) string {
	return d.typeNameVisiting(typeID, map[int]bool{})
}

func (d *dumper) typeNameVisiting(typeID int, seen map[int]bool) string {
	if typeID == core.Void || typeID < 0 || typeID >= len(d.cu.TypesTable) {
		return "void"
	}
	if seen[typeID] {
		return "<cycle>"
	}
	seen[typeID] = true

	switch v := d.cu.TypesTable[typeID].(type) {
	case *core.BaseType:
		return d.name(v.Name)
	case *core.Qualifier:
		inner := d.typeNameVisiting(v.Head().Type, seen)
		switch v.Head().Kind {
		case core.KindPointer:
			return inner + " *"
		case core.KindReference:
			return inner + " &"
		case core.KindConst:
			return "const " + inner
		case core.KindVolatile:
			return "volatile " + inner
		default:
			return inner
		}
	case *core.PtrToMember:
		return d.typeNameVisiting(v.Head().Type, seen) + " " + d.typeNameVisiting(v.ContainingType, seen) + "::*"
	case *core.ArrayType:
		var dims strings.Builder
		for _, dim := range v.Dimensions {
			if dim.UpperBound > 0 {
				fmt.Fprintf(&dims, "[%d]", dim.UpperBound)
			} else {
				dims.WriteString("[]")
			}
		}
		return d.typeNameVisiting(v.Head().Type, seen) + " " + dims.String()
	case *core.EnumerationType:
		return "enum " + d.name(v.Name)
	case *core.NamespaceLike:
		if v.Head().Type != core.Void {
			return d.name(v.Name) // typedef: its own name already names the target
		}
		return "struct " + d.name(v.Name)
	case *core.FuncType:
		return d.typeNameVisiting(v.Head().Type, seen) + " (*)(" + d.paramList(v) + ")"
	default:
		return "void"
	}
}

func (d *dumper) paramList(ft *core.FuncType) string {
	parts := make([]string, 0, len(ft.Parameters))
	for _, p := range ft.Parameters {
		parts = append(parts, d.typeName(p.Head().Type))
	}
	if ft.UnspecifiedParameters {
		parts = append(parts, "...")
	}
	if len(parts) == 0 {
		return "void"
	}
	return utils.FormatSlice(parts, ", ")
}

func (d *dumper) renderVariable(v *core.Variable) string {
	return d.typeName(v.Header.Type) + " " + d.name(v.Name)
}

func (d *dumper) renderFunction(fn *core.Function) string {
	return d.typeName(fn.Header.Type) + " " + d.name(fn.Name) + "(" + d.paramList(&fn.FuncType) + ")"
}

func (d *dumper) renderNamespaceLike(n *core.NamespaceLike) string {
	if n.Header.Type != core.Void {
		return fmt.Sprintf("typedef %s %s;", d.typeName(n.Header.Type), d.name(n.Name))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "struct %s {\n", d.name(n.Name))
	for _, m := range n.Members {
		if m.BitfieldSize > 0 {
			mask := uint64(1<<uint(m.BitfieldSize)-1) << uint(m.BitfieldOffset)
			fmt.Fprintf(&b, "    %s %s : %d; // offset %d, byte_size %d, storage bits %s\n",
				d.typeName(m.Header.Type), d.name(m.Name), m.BitfieldSize, m.ByteOffset, m.ByteSize,
				utils.FormatUintBinary(mask, m.ByteSize*8))
		} else {
			fmt.Fprintf(&b, "    %s %s; // offset %d, size %d\n",
				d.typeName(m.Header.Type), d.name(m.Name), m.ByteOffset, m.ByteSize)
		}
	}
	b.WriteString("};")

	if layout := d.memberLayout(n); layout != "" {
		b.WriteString("\n")
		b.WriteString(layout)
	}
	return b.String()
}

// memberLayout draws n's member byte layout as an ASCII frame. Bitfield
// members are left out of the frame, so it is skipped for empty or
// bitfield-only (sub-byte) structs where a byte-grained frame would not be
// meaningful.
func (d *dumper) memberLayout(n *core.NamespaceLike) string {
	if n.Size == 0 || len(n.Members) == 0 {
		return ""
	}

	fields := make([]utils.AsciiFrameField, 0, len(n.Members))
	for _, m := range n.Members {
		if m.ByteSize == 0 || m.BitfieldSize > 0 {
			continue
		}
		fields = append(fields, utils.AsciiFrameField{
			Name:  d.name(m.Name),
			Begin: m.ByteOffset,
			Width: m.ByteSize,
		})
	}
	if len(fields) == 0 {
		return ""
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Begin < fields[j].Begin })

	return utils.AsciiFrame(fields, n.Size, "byte", utils.AsciiFrameUnitLayout_LeftToRight, 2)
}
