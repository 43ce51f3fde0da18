package automaton

// Normalize turns a raw construction arena into a canonical
// Automaton. It prunes states that cannot reach a final state (dead
// ends left behind by culled alternatives), then renumbers the
// survivors breadth-first from the start state in edge-declaration
// order. The result has dense ids and is independent of construction
// scheduling, so the parallel and sequential builders serialize to
// identical bytes.
//
// Returns ErrNoFiniteWalk when the start state itself cannot reach a
// final state.
func Normalize(start StateID, states []*State) (*Automaton, error) {
	alive := coaccessible(states)
	if !alive[start] {
		return nil, ErrNoFiniteWalk
	}

	const unmapped = ^StateID(0)
	remap := make([]StateID, len(states))
	for i := range remap {
		remap[i] = unmapped
	}

	order := make([]StateID, 0, len(states))
	remap[start] = 0
	order = append(order, start)
	for i := 0; i < len(order); i++ {
		for _, e := range states[order[i]].Edges {
			if !alive[e.Dst] || remap[e.Dst] != unmapped {
				continue
			}
			remap[e.Dst] = StateID(len(order))
			order = append(order, e.Dst)
		}
	}

	out := &Automaton{Start: 0, States: make([]State, len(order))}
	for newID, oldID := range order {
		src := states[oldID]
		dst := &out.States[newID]
		dst.Final = src.Final
		dst.Edges = make([]Edge, 0, len(src.Edges))
		for _, e := range src.Edges {
			if !alive[e.Dst] {
				continue
			}
			dst.Edges = append(dst.Edges, Edge{Trigger: e.Trigger, Dst: remap[e.Dst]})
		}
	}
	return out, nil
}

// coaccessible marks every state that can reach a final state, by
// fixed point over reversed edges.
func coaccessible(states []*State) []bool {
	rev := make([][]StateID, len(states))
	var queue []StateID
	alive := make([]bool, len(states))
	for id, st := range states {
		for _, e := range st.Edges {
			rev[e.Dst] = append(rev[e.Dst], StateID(id))
		}
		if st.Final {
			alive[id] = true
			queue = append(queue, StateID(id))
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, pred := range rev[id] {
			if !alive[pred] {
				alive[pred] = true
				queue = append(queue, pred)
			}
		}
	}
	return alive
}
