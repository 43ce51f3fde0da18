package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Reverier-Xu/LibAFL/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "gramatron",
	Short: "Grammar-to-automaton compiler for grammar-aware fuzzing",
	Long:  `Gramatron compiles context-free grammars into finite automatons that a fuzzer can walk to generate and mutate grammar-conformant inputs`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setupColor applies the --color flag to the global color state.
func setupColor(cmd *cobra.Command) {
	flag, _ := cmd.Root().PersistentFlags().GetString("color")
	switch flag {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		color.NoColor = !isTerminal(os.Stdout)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
