package automaton

import (
	"math/rand"
	"strings"
)

// Walker generates grammar-conformant strings by random walks over a
// compiled automaton: start at the start state, pick an outgoing edge,
// append its trigger, move on, and stop at some final state. The edge
// selection policy lives here, not in the automaton.
//
// A Walker is not safe for concurrent use; give each goroutine its
// own, seeded from an independent rand source.
type Walker struct {
	a      *Automaton
	rng    *rand.Rand
	dist   []int // min edge-distance to a final state, per state
	maxLen int   // soft cap on walk length, in edges
}

// DefaultMaxWalkLen bounds walks on cyclic automatons. Beyond the cap
// the walker stops meandering and heads straight for a final state.
const DefaultMaxWalkLen = 512

// NewWalker builds a walker over a normalized automaton. The
// distance-to-final table is precomputed once; normalization
// guarantees it is finite for every state.
func NewWalker(a *Automaton, rng *rand.Rand) *Walker {
	return &Walker{
		a:      a,
		rng:    rng,
		dist:   distancesToFinal(a),
		maxLen: DefaultMaxWalkLen,
	}
}

// SetMaxLen overrides the soft walk-length cap.
func (w *Walker) SetMaxLen(n int) {
	if n > 0 {
		w.maxLen = n
	}
}

// Generate performs one walk and returns the concatenated triggers.
func (w *Walker) Generate() string {
	var sb strings.Builder
	cur := w.a.Start
	for steps := 0; ; steps++ {
		st := &w.a.States[cur]
		over := steps >= w.maxLen
		if st.Final && (len(st.Edges) == 0 || over || w.rng.Intn(2) == 0) {
			return sb.String()
		}
		var e Edge
		if over {
			e = w.closestEdge(st)
		} else {
			e = st.Edges[w.rng.Intn(len(st.Edges))]
		}
		sb.WriteString(e.Trigger)
		cur = e.Dst
	}
}

// closestEdge picks the edge whose destination is nearest to a final
// state, first declared wins ties.
func (w *Walker) closestEdge(st *State) Edge {
	best := st.Edges[0]
	for _, e := range st.Edges[1:] {
		if w.dist[e.Dst] < w.dist[best.Dst] {
			best = e
		}
	}
	return best
}

// distancesToFinal computes, per state, the minimum number of edges to
// any final state, by BFS over reversed edges.
func distancesToFinal(a *Automaton) []int {
	rev := make([][]StateID, len(a.States))
	dist := make([]int, len(a.States))
	var queue []StateID
	for id := range a.States {
		for _, e := range a.States[id].Edges {
			rev[e.Dst] = append(rev[e.Dst], StateID(id))
		}
		dist[id] = -1
	}
	for id := range a.States {
		if a.States[id].Final {
			dist[id] = 0
			queue = append(queue, StateID(id))
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, pred := range rev[id] {
			if dist[pred] < 0 {
				dist[pred] = dist[id] + 1
				queue = append(queue, pred)
			}
		}
	}
	return dist
}
