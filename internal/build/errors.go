package build

import "fmt"

// StateLimitError reports that construction exceeded Options.MaxStates.
type StateLimitError struct {
	Limit int
}

func (e *StateLimitError) Error() string {
	return fmt.Sprintf("build: state limit %d exceeded", e.Limit)
}

// StackLimitError reports that no finite derivation survived the
// continuation depth limit: every path through the automaton was
// culled before reaching a final state. Raising Options.StackLimit is
// the fix.
type StackLimitError struct {
	Limit int
}

func (e *StackLimitError) Error() string {
	return fmt.Sprintf("build: no finite derivation survives stack limit %d", e.Limit)
}
