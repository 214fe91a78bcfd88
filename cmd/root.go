package cmd

import (
	"fmt"
	"os"

	"github.com/Manu343726/dwarfcore/cmd/browse"
	"github.com/Manu343726/dwarfcore/cmd/dump"
	"github.com/Manu343726/dwarfcore/cmd/load"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "dwarfcore",
	Short: "A DWARF debug-information loader for C/C++ object files",
	Long: `dwarfcore ingests the DWARF debugging information of an ELF object's
compilation units and builds a strongly-typed, cross-linked model of the
C/C++ declarations it describes: types, variables, functions, and scopes.

This CLI is the entry point to the loader: load a file and report what was
found, dump its declarations, or browse its DIE tree interactively.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.dwarfcore.yaml)")
	RootCmd.PersistentFlags().Bool("strict", false, "treat an unexpected second compilation-unit root as an error instead of a warning")
	RootCmd.PersistentFlags().Bool("fixup-silly-bitfields", false, "zero bitfield_size/bitfield_offset on members whose declared width exactly matches their storage unit")
	RootCmd.PersistentFlags().Int("pointer-size", 8, "pointer width in bytes, used to size pointer/reference/ptr-to-member members")
	viper.BindPFlag("strict", RootCmd.PersistentFlags().Lookup("strict"))
	viper.BindPFlag("fixup_silly_bitfields", RootCmd.PersistentFlags().Lookup("fixup-silly-bitfields"))
	viper.BindPFlag("pointer_size", RootCmd.PersistentFlags().Lookup("pointer-size"))

	RootCmd.AddCommand(load.LoadCmd, dump.DumpCmd, browse.BrowseCmd)
	cobra.OnInitialize(initConfig)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".dwarfcore")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
