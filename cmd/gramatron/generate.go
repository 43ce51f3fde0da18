package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/Reverier-Xu/LibAFL/internal/automaton"
	"github.com/Reverier-Xu/LibAFL/internal/export"
)

var generateCmd = &cobra.Command{
	Use:   "generate <automaton.auto>",
	Short: "Generate random inputs by walking an automaton",
	Long: `Generate performs random walks over a compiled automaton and prints
one grammar-conformant input per line. Every printed input is a word
the source grammar derives.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().IntP("count", "n", 10, "number of inputs to generate")
	generateCmd.Flags().Int64("seed", 0, "PRNG seed (0 = time-based)")
	generateCmd.Flags().Int("max-len", 0, "soft cap on edges per walk (0 = default)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	setupColor(cmd)

	count, _ := cmd.Flags().GetInt("count")
	seed, _ := cmd.Flags().GetInt64("seed")
	maxLen, _ := cmd.Flags().GetInt("max-len")

	a, err := export.ReadFile(args[0])
	if err != nil {
		return err
	}

	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	w := automaton.NewWalker(a, rand.New(rand.NewSource(seed)))
	if maxLen > 0 {
		w.SetMaxLen(maxLen)
	}

	for i := 0; i < count; i++ {
		fmt.Fprintln(cmd.OutOrStdout(), w.Generate())
	}
	return nil
}
