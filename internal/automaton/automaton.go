// Package automaton defines the compiled grammar graph: states
// connected by trigger-labeled edges, with final states marking legal
// stopping points for a generator walk. Automatons are produced once
// by the builder and never mutated afterwards.
package automaton

import (
	"errors"
	"fmt"
)

// StateID indexes a state within an Automaton. Ids are dense; the
// automaton owns all states in a single arena slice.
type StateID uint32

// Edge is one outgoing transition: the trigger text consumed by a
// walk, and the destination state. An empty trigger is a structural
// bridge between sub-expansions and contributes nothing to output.
type Edge struct {
	Trigger string
	Dst     StateID
}

// State holds the outgoing edges in declaration order and the final
// flag. Final means a derivation may legally stop here: the expansion
// and its continuation are both exhausted.
type State struct {
	Edges []Edge
	Final bool
}

// Automaton is the compiled graph, rooted at Start.
type Automaton struct {
	Start  StateID
	States []State
}

// ErrNoFiniteWalk reports that no final state is reachable from the
// start state, so the automaton could never produce a finite string.
var ErrNoFiniteWalk = errors.New("automaton: start state cannot reach a final state")

// StateCount returns the number of states.
func (a *Automaton) StateCount() int { return len(a.States) }

// EdgeCount returns the total number of edges.
func (a *Automaton) EdgeCount() int {
	n := 0
	for i := range a.States {
		n += len(a.States[i].Edges)
	}
	return n
}

// Validate checks the structural invariants: the start id is in
// range, no edge dangles, every state is reachable from start, and
// every state can reach a final state. A state that cannot reach a
// final state would strand the walker, so it fails validation even
// when the rest of the graph is fine.
func (a *Automaton) Validate() error {
	if int(a.Start) >= len(a.States) {
		return fmt.Errorf("automaton: start id %d out of range (%d states)", a.Start, len(a.States))
	}
	for id := range a.States {
		for _, e := range a.States[id].Edges {
			if int(e.Dst) >= len(a.States) {
				return fmt.Errorf("automaton: state %d has dangling edge to %d", id, e.Dst)
			}
		}
	}
	seen := make([]bool, len(a.States))
	queue := []StateID{a.Start}
	seen[a.Start] = true
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, e := range a.States[id].Edges {
			if !seen[e.Dst] {
				seen[e.Dst] = true
				queue = append(queue, e.Dst)
			}
		}
	}
	for id, ok := range seen {
		if !ok {
			return fmt.Errorf("automaton: state %d unreachable from start", id)
		}
	}
	refs := make([]*State, len(a.States))
	for id := range a.States {
		refs[id] = &a.States[id]
	}
	alive := coaccessible(refs)
	if !alive[a.Start] {
		return ErrNoFiniteWalk
	}
	for id, ok := range alive {
		if !ok {
			return fmt.Errorf("automaton: state %d cannot reach a final state", id)
		}
	}
	return nil
}
