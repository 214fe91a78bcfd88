// Package load implements the "dwarfcore load" subcommand: run the full
// parse/recode/size-cache pipeline over an object file's compilation
// units and report what was found.
package load

import (
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Manu343726/dwarfcore/pkg/diag"
	"github.com/Manu343726/dwarfcore/pkg/dwarf/core"
	"github.com/Manu343726/dwarfcore/pkg/dwarf/load"
	"github.com/Manu343726/dwarfcore/pkg/utils"
)

var (
	colorHeader  = color.New(color.FgWhite, color.Bold, color.Underline)
	colorOK      = color.New(color.FgGreen)
	colorWarn    = color.New(color.FgYellow)
	colorCountOf = color.New(color.FgCyan, color.Bold)
)

var LoadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Load an object file's DWARF debug info and report a summary",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoad,
}

func confFromViper() load.Config {
	return load.Config{
		PointerSize:         viper.GetInt("pointer_size"),
		FixupSillyBitfields: viper.GetBool("fixup_silly_bitfields"),
		Strict:              viper.GetBool("strict"),
	}
}

func runLoad(cmd *cobra.Command, args []string) error {
	conf := confFromViper()
	if conf.PointerSize == 0 {
		conf = load.DefaultConfig()
	}

	sink := diag.New(conf.Strict)
	loader := load.New(conf, sink)

	result, err := loader.LoadFile(args[0], load.KeepAll)
	if err != nil {
		return utils.MakeError(err, "load")
	}

	colorHeader.Fprintln(os.Stdout, "Summary")
	fmt.Printf("  modules loaded:    %s\n", colorCountOf.Sprint(result.ModulesLoaded))
	fmt.Printf("  compilation units: parsed %s, kept %s, stolen %s\n",
		colorCountOf.Sprint(result.CUsParsed), colorCountOf.Sprint(result.CUsKept), colorCountOf.Sprint(result.CUsStolen))
	fmt.Printf("  DIEs processed:    %s\n", colorCountOf.Sprint(result.DIEsProcessed))
	fmt.Printf("  synthetic bitfield types created: %s\n", colorCountOf.Sprint(result.SyntheticBitfieldTypes))
	if result.Stopped {
		colorWarn.Fprintln(os.Stdout, "  load stopped early by the steal hook")
	}

	for _, cu := range result.CUs {
		printUnitSummary(cu)
	}

	if len(result.Diagnostics) > 0 {
		colorHeader.Fprintln(os.Stdout, "\nDiagnostics")
		for _, line := range result.Diagnostics {
			colorWarn.Println("  " + line)
		}
		printTopRepeatedDiagnostics(sink)
	} else {
		colorOK.Println("\nno diagnostics raised")
	}

	return nil
}

func printUnitSummary(cu *core.CU) {
	fmt.Printf("\n  CU @ 0x%x: %d types, %d tags, %d functions, %d top-level declarations\n",
		cu.Offset, len(cu.TypesTable)-1, len(cu.TagsTable), len(cu.FunctionsTable), len(cu.TopLevel))
}

// printTopRepeatedDiagnostics lists the (kind, key) diagnostics the sink
// rate-limited the most, so a user staring at thousands of identical DWARF
// oddities can tell which one actually dominates without counting lines by
// hand.
func printTopRepeatedDiagnostics(sink *diag.Sink) {
	counts := sink.Counts()
	if len(counts) == 0 {
		return
	}

	repeats := utils.ZipMap(counts)
	sort.Slice(repeats, func(i, j int) bool { return repeats[i].Second > repeats[j].Second })

	const topN = 5
	if len(repeats) > topN {
		repeats = repeats[:topN]
	}

	colorHeader.Fprintln(os.Stdout, "\nMost repeated diagnostics")
	for _, rk := range repeats {
		fmt.Printf("  %s -> %s\n", rk.First, colorCountOf.Sprint(rk.Second))
	}
}
