// Package build compiles a validated grammar into a finite automaton.
//
// The construction is a memoized expansion: every distinct pair of
// (nonterminal, continuation) owns exactly one state, where the
// continuation is the token sequence still to be matched after the
// nonterminal finishes. The state id is registered under its key
// before the body is expanded, so recursion that re-enters a pending
// key closes a cycle in the graph instead of unfolding forever. An
// explicit worklist keeps the expansion off the call stack.
//
// Recursion that grows the continuation on every step (self-embedding
// rules like S -> a S b) would mint fresh keys without bound, so the
// continuation length is capped: an alternative whose expansion would
// exceed Options.StackLimit is culled at that state. Culling keeps
// every surviving walk an exact derivation of the grammar; what it
// costs is derivations nested deeper than the cap.
package build

import (
	"strconv"
	"strings"
	"sync"

	"fortio.org/safecast"

	"github.com/Reverier-Xu/LibAFL/internal/analysis"
	"github.com/Reverier-Xu/LibAFL/internal/automaton"
	"github.com/Reverier-Xu/LibAFL/internal/grammar"
)

// Options bound a construction run.
type Options struct {
	// StackLimit caps the continuation length, in tokens, carried into
	// nested expansions. Zero means DefaultStackLimit.
	StackLimit int
	// MaxStates aborts construction once the state arena grows past
	// it; a safety valve against pathological grammars. Zero means
	// DefaultMaxStates.
	MaxStates int
}

const (
	DefaultStackLimit = 32
	DefaultMaxStates  = 1 << 20
)

func (o Options) withDefaults() Options {
	if o.StackLimit <= 0 {
		o.StackLimit = DefaultStackLimit
	}
	if o.MaxStates <= 0 {
		o.MaxStates = DefaultMaxStates
	}
	return o
}

// continuationKey is the memoization key: the nonterminal under
// expansion plus a canonical fingerprint of its continuation.
type continuationKey struct {
	name string
	cont string
}

// workItem is one pending expansion: the pre-allocated state that owns
// the key, the nonterminal to expand, and the continuation to thread
// after each alternative.
type workItem struct {
	st   *automaton.State
	name string
	cont []grammar.Token
}

type builder struct {
	g    *grammar.Grammar
	opts Options

	mu     sync.Mutex
	states []*automaton.State
	memo   map[continuationKey]automaton.StateID
}

// Build compiles the grammar sequentially. It validates the grammar
// and runs the termination analysis first; on any failure no partial
// automaton is returned.
func Build(g *grammar.Grammar, opts Options) (*automaton.Automaton, error) {
	b, root, queue, err := newBuilder(g, opts)
	if err != nil {
		return nil, err
	}
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		more, err := b.process(item)
		if err != nil {
			return nil, err
		}
		queue = append(queue, more...)
	}
	return b.finish(root)
}

// newBuilder validates, analyzes, and seeds the expansion with the
// start nonterminal under an empty continuation.
func newBuilder(g *grammar.Grammar, opts Options) (*builder, automaton.StateID, []workItem, error) {
	if err := g.Validate(); err != nil {
		return nil, 0, nil, err
	}
	if _, err := analysis.Analyze(g); err != nil {
		return nil, 0, nil, err
	}
	b := &builder{
		g:    g,
		opts: opts.withDefaults(),
		memo: make(map[continuationKey]automaton.StateID),
	}
	var queue []workItem
	root, err := b.expand(g.Start, nil, &queue)
	if err != nil {
		return nil, 0, nil, err
	}
	return b, root, queue, nil
}

func (b *builder) finish(root automaton.StateID) (*automaton.Automaton, error) {
	a, err := automaton.Normalize(root, b.states)
	if err != nil {
		return nil, &StackLimitError{Limit: b.opts.StackLimit}
	}
	return a, nil
}

// process expands every alternative of one pending key. It returns
// the expansions newly registered while threading, which the caller
// feeds back into its worklist.
func (b *builder) process(item workItem) ([]workItem, error) {
	var more []workItem
	for _, alt := range b.g.Rules[item.name] {
		if err := b.thread(item.st, alt, item.cont, &more); err != nil {
			return nil, err
		}
	}
	return more, nil
}

// thread lays out one alternative from src, followed by the
// continuation. Terminals chain fresh intermediate states; the first
// nonterminal folds the remainder plus the continuation into a nested
// expansion reached over an empty-trigger bridge. An exhausted chain
// with an empty continuation marks the current state final.
func (b *builder) thread(src *automaton.State, alt grammar.Alternative, cont []grammar.Token, more *[]workItem) error {
	// Cull before emitting anything, so a skipped alternative leaves
	// no half-built chain behind.
	if i := firstRef(alt); i >= 0 {
		if len(alt)-i-1+len(cont) > b.opts.StackLimit {
			return nil
		}
	}
	cur := src
	for i, tok := range alt {
		switch tok.Kind {
		case grammar.Terminal:
			id, next, err := b.alloc()
			if err != nil {
				return err
			}
			cur.Edges = append(cur.Edges, automaton.Edge{Trigger: tok.Text, Dst: id})
			cur = next
		case grammar.NonTerminal:
			rest := concatTokens(alt[i+1:], cont)
			dst, err := b.expand(tok.Text, rest, more)
			if err != nil {
				return err
			}
			cur.Edges = append(cur.Edges, automaton.Edge{Dst: dst})
			return nil
		}
	}
	if len(cont) == 0 {
		cur.Final = true
		return nil
	}
	// The alternative ran out of tokens without recursing: the
	// continuation is matched inline from here. Its own length is
	// already within the limit, so no further culling applies.
	return b.thread(cur, grammar.Alternative(cont), nil, more)
}

// expand returns the state owning (name, cont), allocating and
// registering it first if the key is new. Eager registration is what
// resolves self- and mutual recursion to the same id instead of
// looping.
func (b *builder) expand(name string, cont []grammar.Token, more *[]workItem) (automaton.StateID, error) {
	key := continuationKey{name: name, cont: fingerprint(cont)}
	b.mu.Lock()
	if id, ok := b.memo[key]; ok {
		b.mu.Unlock()
		return id, nil
	}
	id, st, err := b.allocLocked()
	if err != nil {
		b.mu.Unlock()
		return 0, err
	}
	b.memo[key] = id
	b.mu.Unlock()
	*more = append(*more, workItem{st: st, name: name, cont: cont})
	return id, nil
}

func (b *builder) alloc() (automaton.StateID, *automaton.State, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.allocLocked()
}

func (b *builder) allocLocked() (automaton.StateID, *automaton.State, error) {
	if len(b.states) >= b.opts.MaxStates {
		return 0, nil, &StateLimitError{Limit: b.opts.MaxStates}
	}
	st := &automaton.State{}
	b.states = append(b.states, st)
	id, err := safecast.Conv[uint32](len(b.states) - 1)
	if err != nil {
		return 0, nil, err
	}
	return automaton.StateID(id), st, nil
}

// fingerprint renders a continuation canonically: kind tag plus
// length-prefixed text per token, so distinct sequences never collide.
func fingerprint(cont []grammar.Token) string {
	if len(cont) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, tok := range cont {
		if tok.Kind == grammar.Terminal {
			sb.WriteByte('t')
		} else {
			sb.WriteByte('n')
		}
		sb.WriteString(strconv.Itoa(len(tok.Text)))
		sb.WriteByte(':')
		sb.WriteString(tok.Text)
	}
	return sb.String()
}

// firstRef returns the index of the first nonterminal, or -1.
func firstRef(alt grammar.Alternative) int {
	for i, tok := range alt {
		if tok.Kind == grammar.NonTerminal {
			return i
		}
	}
	return -1
}

// concatTokens copies a ++ b into a fresh slice; continuations are
// never aliased between work items.
func concatTokens(a, b []grammar.Token) []grammar.Token {
	if len(a)+len(b) == 0 {
		return nil
	}
	out := make([]grammar.Token, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}
