package grammar

import (
	"fmt"
	"sort"
)

// TokenKind discriminates the two token variants. The set is closed:
// everything that walks tokens switches on Kind exhaustively.
type TokenKind uint8

const (
	// Terminal is literal text emitted verbatim by the generator.
	Terminal TokenKind = iota
	// NonTerminal references another rule by name.
	NonTerminal
)

// Token is one element of an alternative: either literal text or a
// reference to another rule. Immutable once the grammar is loaded.
type Token struct {
	Kind TokenKind
	Text string
}

// Term builds a terminal token.
func Term(text string) Token { return Token{Kind: Terminal, Text: text} }

// Ref builds a nonterminal reference.
func Ref(name string) Token { return Token{Kind: NonTerminal, Text: name} }

// Alternative is one ordered derivation choice of a nonterminal.
// Declaration order is preserved: it drives state numbering during
// construction, not the language accepted.
type Alternative []Token

// Grammar maps nonterminal names to their alternatives. Rules must
// not be mutated after Validate; the builder treats it as read-only.
type Grammar struct {
	Start string
	Rules map[string][]Alternative
}

// RuleNames returns the rule names sorted, for deterministic
// validation and reporting order.
func (g *Grammar) RuleNames() []string {
	names := make([]string, 0, len(g.Rules))
	for name := range g.Rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate enforces the closure invariant: the grammar has at least
// one rule, the start nonterminal is defined, and every NonTerminal
// reference resolves to a rule key. Violations are construction-time
// errors, never silent no-ops.
func (g *Grammar) Validate() error {
	if len(g.Rules) == 0 {
		return ErrEmptyGrammar
	}
	if _, ok := g.Rules[g.Start]; !ok {
		return fmt.Errorf("start nonterminal %q has no rule: %w", g.Start, ErrEmptyGrammar)
	}
	for _, name := range g.RuleNames() {
		for _, alt := range g.Rules[name] {
			for _, tok := range alt {
				if tok.Kind != NonTerminal {
					continue
				}
				if _, ok := g.Rules[tok.Text]; !ok {
					return &UndefinedSymbolError{Symbol: tok.Text, Rule: name}
				}
			}
		}
	}
	return nil
}
