package analysis

import (
	"fmt"
	"strings"
)

// NonTerminatingError reports nonterminals reachable from the start
// symbol that admit no finite derivation.
type NonTerminatingError struct {
	Symbols []string // sorted
}

func (e *NonTerminatingError) Error() string {
	return fmt.Sprintf("analysis: no finite derivation for %s", strings.Join(e.Symbols, ", "))
}
