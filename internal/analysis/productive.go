// Package analysis decides, before any automaton construction, whether
// a grammar can be expanded at all: a nonterminal is productive when it
// admits at least one finite derivation consisting only of terminals.
// Expanding a non-productive nonterminal would never bottom out, so the
// builder refuses grammars whose start symbol depends on one.
package analysis

import (
	"sort"

	"github.com/Reverier-Xu/LibAFL/internal/grammar"
)

// Result holds the outcome of grammar analysis.
type Result struct {
	// Productive marks every nonterminal admitting a finite derivation.
	Productive map[string]bool
	// Reachable marks every nonterminal reachable from the start
	// symbol, the start symbol included.
	Reachable map[string]bool
	// MinLen maps each productive nonterminal to the minimum number of
	// terminal tokens in any finite derivation. Used as a walk-length
	// heuristic downstream; not a correctness input.
	MinLen map[string]int
	// Iterations counts fixed-point rounds, for diagnostics.
	Iterations int
}

// Analyze validates termination of the grammar. It returns a
// NonTerminatingError when the start nonterminal, or any nonterminal
// reachable from it, never becomes productive.
//
// The grammar is assumed to have passed Validate.
func Analyze(g *grammar.Grammar) (*Result, error) {
	res := &Result{
		Productive: make(map[string]bool, len(g.Rules)),
		Reachable:  make(map[string]bool, len(g.Rules)),
		MinLen:     make(map[string]int, len(g.Rules)),
	}

	names := g.RuleNames()

	// Fixed point: a nonterminal becomes productive once one of its
	// alternatives consists of terminals and already-productive
	// references. MinLen tightens in the same passes; both stabilize
	// within len(names) rounds.
	for {
		res.Iterations++
		changed := false
		for _, name := range names {
			if length, ok := minAltLen(g.Rules[name], res); ok {
				if cur, known := res.MinLen[name]; !known || length < cur {
					res.MinLen[name] = length
					changed = true
				}
				if !res.Productive[name] {
					res.Productive[name] = true
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}

	markReachable(g, g.Start, res.Reachable)

	var stuck []string
	for name := range res.Reachable {
		if !res.Productive[name] {
			stuck = append(stuck, name)
		}
	}
	if len(stuck) > 0 {
		sort.Strings(stuck)
		return nil, &NonTerminatingError{Symbols: stuck}
	}
	return res, nil
}

// minAltLen returns the cheapest finite derivation length over all
// alternatives, measured in terminal tokens. ok is false while every
// alternative still depends on a non-productive reference.
func minAltLen(alts []grammar.Alternative, res *Result) (int, bool) {
	best, found := 0, false
	for _, alt := range alts {
		length, ok := 0, true
		for _, tok := range alt {
			switch tok.Kind {
			case grammar.Terminal:
				length++
			case grammar.NonTerminal:
				sub, known := res.MinLen[tok.Text]
				if !known {
					ok = false
				}
				length += sub
			}
			if !ok {
				break
			}
		}
		if ok && (!found || length < best) {
			best, found = length, true
		}
	}
	return best, found
}

func markReachable(g *grammar.Grammar, name string, seen map[string]bool) {
	if seen[name] {
		return
	}
	seen[name] = true
	for _, alt := range g.Rules[name] {
		for _, tok := range alt {
			if tok.Kind == grammar.NonTerminal {
				markReachable(g, tok.Text, seen)
			}
		}
	}
}
