package grammar

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Load reads the JSON grammar format consumed by the preprocessing
// pipeline: an object mapping rule names to lists of alternatives,
// each alternative an ordered list of token strings, e.g.
//
//	{"S": [["a", "S", "b"], ["c"]]}
//
// A token is a nonterminal reference when it names a rule; anything
// else is a terminal. Wrapping a token in single quotes ('if') forces
// it terminal even when a rule of that name exists. A zero-token
// alternative is legal and derives the empty string.
func Load(r io.Reader, start string) (*Grammar, error) {
	var raw map[string][][]string
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("grammar: failed to parse JSON: %w", err)
	}
	g := &Grammar{Start: start, Rules: make(map[string][]Alternative, len(raw))}
	for name, alts := range raw {
		rules := make([]Alternative, len(alts))
		for i, alt := range alts {
			tokens := make(Alternative, 0, len(alt))
			for _, s := range alt {
				tokens = append(tokens, classify(raw, s))
			}
			rules[i] = tokens
		}
		g.Rules[name] = rules
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// LoadFile reads and parses a grammar file.
func LoadFile(path, start string) (*Grammar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("grammar: failed to open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	g, err := Load(f, start)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

func classify(raw map[string][][]string, s string) Token {
	if len(s) >= 2 && strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'") {
		return Term(s[1 : len(s)-1])
	}
	if _, ok := raw[s]; ok {
		return Ref(s)
	}
	return Term(s)
}
