package grammar

import (
	"errors"
	"fmt"
)

// ErrEmptyGrammar reports a grammar with no rules, or one whose
// designated start nonterminal is absent.
var ErrEmptyGrammar = errors.New("grammar: no rules")

// UndefinedSymbolError reports an alternative referencing a
// nonterminal that is not a rule key.
type UndefinedSymbolError struct {
	Symbol string // the unresolved reference
	Rule   string // the rule whose alternative contains it
}

func (e *UndefinedSymbolError) Error() string {
	return fmt.Sprintf("grammar: rule %q references undefined nonterminal %q", e.Rule, e.Symbol)
}
