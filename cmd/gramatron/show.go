package main

import (
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Reverier-Xu/LibAFL/internal/automaton"
	"github.com/Reverier-Xu/LibAFL/internal/build"
	"github.com/Reverier-Xu/LibAFL/internal/export"
	"github.com/Reverier-Xu/LibAFL/internal/grammar"
)

var showCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Print a readable dump of an automaton",
	Long: `Show prints every state of an automaton with its outgoing edges.
The argument is either a compiled .auto file or a grammar .json, which
is compiled in memory first.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().String("start", "PROGRAM", "start nonterminal when showing a grammar file")
	showCmd.Flags().Int("stack-limit", 0, "max queued continuation tokens per expansion (0 = default)")
}

func runShow(cmd *cobra.Command, args []string) error {
	setupColor(cmd)

	path := args[0]
	a, err := loadAutomaton(cmd, path)
	if err != nil {
		return err
	}

	header := color.New(color.FgCyan, color.Bold)
	header.Fprintf(cmd.OutOrStdout(), "%s\n", filepath.Base(path))
	return export.RenderDebug(cmd.OutOrStdout(), a)
}

func loadAutomaton(cmd *cobra.Command, path string) (*automaton.Automaton, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		startSym, _ := cmd.Flags().GetString("start")
		stackLimit, _ := cmd.Flags().GetInt("stack-limit")
		g, err := grammar.LoadFile(path, startSym)
		if err != nil {
			return nil, err
		}
		return build.Build(g, build.Options{StackLimit: stackLimit})
	}
	return export.ReadFile(path)
}
