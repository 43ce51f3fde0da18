package main

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Reverier-Xu/LibAFL/internal/automaton"
	"github.com/Reverier-Xu/LibAFL/internal/build"
	"github.com/Reverier-Xu/LibAFL/internal/export"
	"github.com/Reverier-Xu/LibAFL/internal/grammar"
	"github.com/Reverier-Xu/LibAFL/internal/observ"
)

var compileCmd = &cobra.Command{
	Use:   "compile [grammar.json]",
	Short: "Compile a grammar into a generation automaton",
	Long: `Compile reads a JSON grammar, checks that every reachable nonterminal
can derive a finite terminal string, and writes the expanded automaton.

Without an argument the grammar is taken from the nearest gramatron.toml.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCompile,
}

func init() {
	compileCmd.Flags().String("start", "", "start nonterminal (default manifest, else PROGRAM)")
	compileCmd.Flags().StringP("out", "o", "", "output path (default <grammar>.auto)")
	compileCmd.Flags().Int("stack-limit", 0, "max queued continuation tokens per expansion (0 = default)")
	compileCmd.Flags().Int("max-states", 0, "abort if the automaton exceeds this many states (0 = default)")
	compileCmd.Flags().IntP("jobs", "j", 0, "expand with N parallel workers (0 = sequential, -1 = NumCPU)")
	compileCmd.Flags().Bool("timings", false, "print per-phase timings")
}

func runCompile(cmd *cobra.Command, args []string) error {
	setupColor(cmd)

	var grammarPath string
	if len(args) > 0 {
		grammarPath = args[0]
	}
	startSym, _ := cmd.Flags().GetString("start")
	outPath, _ := cmd.Flags().GetString("out")
	stackLimit, _ := cmd.Flags().GetInt("stack-limit")
	maxStates, _ := cmd.Flags().GetInt("max-states")
	jobs, _ := cmd.Flags().GetInt("jobs")
	timings, _ := cmd.Flags().GetBool("timings")

	// A broken manifest is reported even when the grammar comes from
	// the command line: silently dropping its start symbol and limits
	// would change what gets compiled.
	manifest, haveManifest, err := loadManifest(".")
	if err != nil {
		return err
	}
	if haveManifest && manifest != nil {
		if grammarPath == "" {
			grammarPath = manifest.grammarPath()
		}
		if startSym == "" {
			startSym = manifest.Config.Grammar.Start
		}
		if stackLimit == 0 {
			stackLimit = manifest.Config.Limits.StackLimit
		}
		if maxStates == 0 {
			maxStates = manifest.Config.Limits.MaxStates
		}
		if outPath == "" {
			outPath = manifest.outputPath()
		}
	}
	if grammarPath == "" {
		return fmt.Errorf("no grammar given and no gramatron.toml found")
	}
	if startSym == "" {
		startSym = "PROGRAM"
	}
	if outPath == "" {
		outPath = deriveOutPath(grammarPath)
	}

	timer := observ.NewTimer()

	ph := timer.Begin("load")
	g, err := grammar.LoadFile(grammarPath, startSym)
	if err != nil {
		return err
	}
	timer.End(ph, fmt.Sprintf("%d rules", len(g.Rules)))

	opts := build.Options{StackLimit: stackLimit, MaxStates: maxStates}

	ph = timer.Begin("build")
	a, err := buildAutomaton(cmd, g, opts, jobs)
	if err != nil {
		return err
	}
	timer.End(ph, fmt.Sprintf("%d states, %d edges", a.StateCount(), a.EdgeCount()))

	ph = timer.Begin("export")
	if err := export.WriteFile(outPath, a); err != nil {
		return err
	}
	timer.End(ph, outPath)

	fmt.Fprintf(cmd.OutOrStdout(), "compiled %s: %d states, %d edges -> %s\n",
		filepath.Base(grammarPath), a.StateCount(), a.EdgeCount(), outPath)
	if timings {
		fmt.Fprint(cmd.OutOrStdout(), timer.Summary())
	}
	return nil
}

func buildAutomaton(cmd *cobra.Command, g *grammar.Grammar, opts build.Options, jobs int) (*automaton.Automaton, error) {
	if jobs < 0 {
		jobs = runtime.NumCPU()
	}
	if jobs > 1 {
		return build.BuildParallel(cmd.Context(), g, opts, jobs)
	}
	return build.Build(g, opts)
}

func deriveOutPath(grammarPath string) string {
	ext := filepath.Ext(grammarPath)
	if strings.EqualFold(ext, ".json") {
		return strings.TrimSuffix(grammarPath, ext) + ".auto"
	}
	return grammarPath + ".auto"
}
