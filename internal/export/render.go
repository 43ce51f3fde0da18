package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/Reverier-Xu/LibAFL/internal/automaton"
)

// RenderDebug writes a human-readable listing of the automaton: one
// block per state with its final marker and trigger -> destination
// rows. Diagnostics only; the binary format is Marshal's job.
func RenderDebug(w io.Writer, a *automaton.Automaton) error {
	if _, err := fmt.Fprintf(w, "automaton: %d states, %d edges, start %d\n",
		a.StateCount(), a.EdgeCount(), a.Start); err != nil {
		return err
	}
	for id := range a.States {
		st := &a.States[id]
		marker := " "
		if st.Final {
			marker = "*"
		}
		if _, err := fmt.Fprintf(w, "%5d%s\n", id, marker); err != nil {
			return err
		}
		for _, e := range st.Edges {
			trigger := strconv.Quote(e.Trigger)
			if e.Trigger == "" {
				trigger = "eps"
			}
			if _, err := fmt.Fprintf(w, "        %s -> %d\n", trigger, e.Dst); err != nil {
				return err
			}
		}
	}
	return nil
}
