// Package browse implements the "dwarfcore browse" subcommand: an
// interactive tview/tcell tree view over a loaded object file's DIE model,
// for inspecting compilation units, declarations, and scopes without
// re-running dump for every question.
package browse

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Manu343726/dwarfcore/pkg/diag"
	"github.com/Manu343726/dwarfcore/pkg/dwarf/core"
	"github.com/Manu343726/dwarfcore/pkg/dwarf/load"
	"github.com/Manu343726/dwarfcore/pkg/strpool"
	"github.com/Manu343726/dwarfcore/pkg/utils"
)

var BrowseCmd = &cobra.Command{
	Use:   "browse <file>",
	Short: "Interactively browse an object file's DWARF declarations",
	Args:  cobra.ExactArgs(1),
	RunE:  runBrowse,
}

func runBrowse(cmd *cobra.Command, args []string) error {
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
		return fmt.Errorf("browse: %w", err)
	}

	b := &browser{pool: loader.Pool()}
	return b.run(args[0], result)
}

type browser struct {
	pool *strpool.Pool
}

// run builds the two-pane layout (tree on the left, detail view on the
// right) and blocks until the user quits.
func (b *browser) run(path string, result *load.Result) error {
	detail := tview.NewTextView().SetDynamicColors(true).SetWordWrap(true)
	detail.SetBorder(true).SetTitle("Details")

	root := tview.NewTreeNode(path).SetColor(tcell.ColorYellow)
	tree := tview.NewTreeView().SetRoot(root).SetCurrentNode(root)
	tree.SetBorder(true).SetTitle("DWARF declarations")

	for i, cu := range result.CUs {
		b.addCUNode(root, i, cu)
	}

	tree.SetChangedFunc(func(node *tview.TreeNode) {
		ref := node.GetReference()
		detail.SetText(b.describe(ref))
	})

	flex := tview.NewFlex().
		AddItem(tree, 0, 1, true).
		AddItem(detail, 0, 1, false)

	app := tview.NewApplication().SetRoot(flex, true).SetFocus(tree)
	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC || event.Rune() == 'q' {
			app.Stop()
			return nil
		}
		return event
	})

	return app.Run()
}

// describe renders the detail pane's text for whatever node.GetReference()
// returned when the tree was built.
func (b *browser) describe(ref any) string {
	switch v := ref.(type) {
	case *core.CU:
		return fmt.Sprintf("CU @ 0x%x\nname: %s\ncomp_dir: %s\nlanguage: %d\ntypes: %d  tags: %d  functions: %d",
			v.Offset, b.pool.Ptr(v.Name), b.pool.Ptr(v.CompDir), v.Language, len(v.TypesTable)-1, len(v.TagsTable), len(v.FunctionsTable))
	case *core.NamespaceLike:
		return fmt.Sprintf("[yellow]namespace_like[-]\nname: %s\nmembers: %d\ndecl_only: %t\nsize: %d bytes",
			b.pool.Ptr(v.Name), len(v.Members), v.DeclOnly, v.Size)
	case *core.ClassMember:
		return fmt.Sprintf("[yellow]class_member[-]\nname: %s\nbyte_offset: %d\nbyte_size: %d\nbitfield_size: %d\nbitfield_offset: %d",
			b.pool.Ptr(v.Name), v.ByteOffset, v.ByteSize, v.BitfieldSize, v.BitfieldOffset)
	case *core.Variable:
		return fmt.Sprintf("[yellow]variable[-]\nname: %s\nexternal: %t\nlocation: %d\naddress: %s",
			b.pool.Ptr(v.Name), v.External, v.Location, utils.FormatUintHex(v.Address, 16))
	case *core.Function:
		return fmt.Sprintf("[yellow]function[-]\nname: %s\nlinkage_name: %s\ninlined: %t\nexternal: %t\nparameters: %d",
			b.pool.Ptr(v.Name), b.pool.Ptr(v.LinkageName), v.Inlined, v.External, len(v.FuncType.Parameters))
	case *core.LexicalBlock:
		return fmt.Sprintf("[yellow]lexical_block[-]\nvariables: %d\nlabels: %d\nsub_blocks: %d\ninlined calls: %d",
			len(v.Variables), len(v.Labels), len(v.SubBlocks), len(v.Inlines))
	case *core.InlineExpansion:
		return fmt.Sprintf("[yellow]inline_expansion[-]\norigin_fn: %d\naddress: %s\nsize: %d bytes",
			v.OriginFn, utils.FormatUintHex(v.Address, 16), v.Size)
	default:
		return b.describeGeneric(ref)
	}
}

// describeGeneric handles the tag kinds with no dedicated case above
// (qualifiers, base types, arrays, enumerations, pointer-to-member,
// parameters, labels, function types): rather than special-case every one
// of these simpler kinds, it reflects out whatever Name field the payload
// happens to carry, which covers most of them with one code path.
func (b *browser) describeGeneric(ref any) string {
	tag, ok := ref.(core.Tag)
	if !ok {
		return ""
	}
	kind := tag.Head().Kind.String()

	nameVal, err := utils.Member("Name", ref)
	if err != nil {
		return fmt.Sprintf("[yellow]%s[-]", kind)
	}
	id, ok := nameVal.(strpool.ID)
	if !ok {
		return fmt.Sprintf("[yellow]%s[-]", kind)
	}
	return fmt.Sprintf("[yellow]%s[-]\nname: %s", kind, b.nameOr(id, "<anonymous>"))
}

func (b *browser) addCUNode(root *tview.TreeNode, index int, cu *core.CU) {
	label := fmt.Sprintf("CU[%d] %s", index, b.pool.Ptr(cu.Name))
	node := tview.NewTreeNode(label).SetReference(cu).SetColor(tcell.ColorAqua)
	root.AddChild(node)

	for _, tag := range cu.TopLevel {
		if child := b.tagNode(tag); child != nil {
			node.AddChild(child)
		}
	}
}

// tagNode builds one tree node (and, recursively, its children) for tag, or
// nil for a kind this browser has nothing useful to show beyond its
// presence in the parent's child list.
func (b *browser) tagNode(tag core.Tag) *tview.TreeNode {
	switch v := tag.(type) {
	case *core.NamespaceLike:
		node := tview.NewTreeNode("struct " + b.nameOr(v.Name, "<anonymous>")).SetReference(v)
		for _, m := range v.Members {
			node.AddChild(tview.NewTreeNode(b.nameOr(m.Name, "<anonymous>")).SetReference(m))
		}
		for _, child := range v.Children {
			if n := b.tagNode(child); n != nil {
				node.AddChild(n)
			}
		}
		return node

	case *core.Variable:
		return tview.NewTreeNode(b.nameOr(v.Name, "<anonymous>")).SetReference(v)

	case *core.Function:
		node := tview.NewTreeNode(b.nameOr(v.Name, "<anonymous>") + "()").SetReference(v).SetColor(tcell.ColorGreen)
		b.addScopeChildren(node, &v.Scope)
		return node

	default:
		return nil
	}
}

// addScopeChildren populates node with scope's variables, labels, inlined
// calls, and nested blocks. node's own reference is left untouched — the
// caller already set it (to the owning *core.Function for a function's
// outermost scope, or to the sub-block itself for a nested one).
func (b *browser) addScopeChildren(node *tview.TreeNode, scope *core.LexicalBlock) {
	for _, v := range scope.Variables {
		node.AddChild(tview.NewTreeNode(b.nameOr(v.Name, "<anonymous>")).SetReference(v))
	}
	for _, l := range scope.Labels {
		node.AddChild(tview.NewTreeNode(b.nameOr(l.Name, "<anonymous>") + ":"))
	}
	for _, ie := range scope.Inlines {
		node.AddChild(tview.NewTreeNode(fmt.Sprintf("inlined @ 0x%x", ie.Address)).SetReference(ie))
	}
	for _, sub := range scope.SubBlocks {
		subNode := tview.NewTreeNode("{ }").SetReference(sub)
		b.addScopeChildren(subNode, sub)
		node.AddChild(subNode)
	}
}

func (b *browser) nameOr(id strpool.ID, fallback string) string {
	s := b.pool.Ptr(id)
	if s == "" {
		return fallback
	}
	return s
}
