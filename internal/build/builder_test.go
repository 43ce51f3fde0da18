package build

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/Reverier-Xu/LibAFL/internal/analysis"
	"github.com/Reverier-Xu/LibAFL/internal/automaton"
	"github.com/Reverier-Xu/LibAFL/internal/grammar"
)

// anbn is the reference grammar {"S": [["a","S","b"], ["c"]]}.
func anbn() *grammar.Grammar {
	return &grammar.Grammar{
		Start: "S",
		Rules: map[string][]grammar.Alternative{
			"S": {
				{grammar.Term("a"), grammar.Ref("S"), grammar.Term("b")},
				{grammar.Term("c")},
			},
		},
	}
}

// accept simulates the automaton as an NFA with epsilon bridges and
// reports whether s is the concatenation of some walk ending final.
func accept(a *automaton.Automaton, s string) bool {
	type cfg struct {
		id  automaton.StateID
		pos int
	}
	seen := make(map[cfg]bool)
	stack := []cfg{{a.Start, 0}}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[c] {
			continue
		}
		seen[c] = true
		st := &a.States[c.id]
		if c.pos == len(s) && st.Final {
			return true
		}
		for _, e := range st.Edges {
			if strings.HasPrefix(s[c.pos:], e.Trigger) {
				stack = append(stack, cfg{e.Dst, c.pos + len(e.Trigger)})
			}
		}
	}
	return false
}

// walkStrings collects every distinct string produced by a walk of at
// most maxEdges edges ending at a final state.
func walkStrings(a *automaton.Automaton, maxEdges int) []string {
	found := make(map[string]bool)
	var dfs func(id automaton.StateID, out string, depth int)
	dfs = func(id automaton.StateID, out string, depth int) {
		st := &a.States[id]
		if st.Final {
			found[out] = true
		}
		if depth == maxEdges {
			return
		}
		for _, e := range st.Edges {
			dfs(e.Dst, out+e.Trigger, depth+1)
		}
	}
	dfs(a.Start, "", 0)
	var out []string
	for s := range found {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// derivations enumerates every terminal string derivable from the
// start symbol in at most maxApps rule applications, by leftmost
// substitution over sentential forms.
func derivations(g *grammar.Grammar, maxApps int) []string {
	found := make(map[string]bool)
	var expand func(form []grammar.Token, apps int)
	expand = func(form []grammar.Token, apps int) {
		i := -1
		for j, tok := range form {
			if tok.Kind == grammar.NonTerminal {
				i = j
				break
			}
		}
		if i < 0 {
			var sb strings.Builder
			for _, tok := range form {
				sb.WriteString(tok.Text)
			}
			found[sb.String()] = true
			return
		}
		if apps == maxApps {
			return
		}
		for _, alt := range g.Rules[form[i].Text] {
			next := make([]grammar.Token, 0, len(form)+len(alt))
			next = append(next, form[:i]...)
			next = append(next, alt...)
			next = append(next, form[i+1:]...)
			expand(next, apps+1)
		}
	}
	expand([]grammar.Token{grammar.Ref(g.Start)}, 0)
	var out []string
	for s := range found {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func TestBuildScenario(t *testing.T) {
	a, err := Build(anbn(), Options{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if err := a.Validate(); err != nil {
		t.Fatalf("invalid automaton: %v", err)
	}

	start := a.States[a.Start]
	if len(start.Edges) != 2 {
		t.Fatalf("start state must branch on both alternatives, got %d edges", len(start.Edges))
	}
	if start.Edges[0].Trigger != "a" || start.Edges[1].Trigger != "c" {
		t.Fatalf("edges must follow declaration order: %+v", start.Edges)
	}
	if !a.States[start.Edges[1].Dst].Final {
		t.Fatalf("the c edge must lead directly to a final state")
	}

	// The a edge runs into the recursive sub-expansion over a bridge.
	sub := a.States[start.Edges[0].Dst]
	if len(sub.Edges) != 1 || sub.Edges[0].Trigger != "" {
		t.Fatalf("the a chain must bridge into the nested expansion: %+v", sub.Edges)
	}

	// Walk a c b ends at a final state: S => a S b => a c b.
	if !accept(a, "acb") {
		t.Fatalf("walk acb must end final")
	}
	if accept(a, "ac") || accept(a, "cb") || accept(a, "ab") {
		t.Fatalf("automaton accepts strings the grammar cannot derive")
	}
}

func TestBuildSoundness(t *testing.T) {
	a, err := Build(anbn(), Options{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	derivable := make(map[string]bool)
	for _, s := range derivations(anbn(), 6) {
		derivable[s] = true
	}
	for _, s := range walkStrings(a, 12) {
		if !derivable[s] {
			t.Fatalf("walk produced %q, which the grammar cannot derive", s)
		}
	}
}

func TestBuildCompleteness(t *testing.T) {
	a, err := Build(anbn(), Options{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	for _, s := range derivations(anbn(), 3) {
		if !accept(a, s) {
			t.Fatalf("derivation %q has no accepting walk", s)
		}
	}
}

func TestBuildClosesLinearRecursionExactly(t *testing.T) {
	// Right-linear recursion never grows the continuation, so the memo
	// closes a true cycle and the language is exact at any stack limit.
	g := &grammar.Grammar{
		Start: "S",
		Rules: map[string][]grammar.Alternative{
			"S": {{}, {grammar.Term("a"), grammar.Ref("S")}},
		},
	}
	a, err := Build(g, Options{StackLimit: 1})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	for _, s := range []string{"", "a", "aaaaaaaaaa"} {
		if !accept(a, s) {
			t.Fatalf("a* automaton must accept %q", s)
		}
	}
	if accept(a, "b") {
		t.Fatalf("a* automaton must reject b")
	}
	// The whole of a* needs a handful of states, not one per length.
	if a.StateCount() > 4 {
		t.Fatalf("memoization must keep the cycle compact: %d states", a.StateCount())
	}
}

func TestBuildDeterminism(t *testing.T) {
	a1, err := Build(anbn(), Options{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	a2, err := Build(anbn(), Options{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if !reflect.DeepEqual(a1, a2) {
		t.Fatalf("two builds of the same grammar differ")
	}
}

func TestBuildParallelMatchesSequential(t *testing.T) {
	g, err := grammar.LoadFile("testdata/expr.json", "EXPR")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	seq, err := Build(g, Options{})
	if err != nil {
		t.Fatalf("sequential build failed: %v", err)
	}
	par, err := BuildParallel(context.Background(), g, Options{}, 4)
	if err != nil {
		t.Fatalf("parallel build failed: %v", err)
	}
	if !reflect.DeepEqual(seq, par) {
		t.Fatalf("parallel build differs from sequential: %d vs %d states",
			par.StateCount(), seq.StateCount())
	}
}

func TestBuildRejectsNonTerminatingGrammar(t *testing.T) {
	g := &grammar.Grammar{
		Start: "A",
		Rules: map[string][]grammar.Alternative{
			"A": {{grammar.Ref("A")}},
		},
	}
	_, err := Build(g, Options{})
	var nt *analysis.NonTerminatingError
	if !errors.As(err, &nt) {
		t.Fatalf("expected NonTerminatingError, got %v", err)
	}
}

func TestBuildRejectsUndefinedSymbol(t *testing.T) {
	g := &grammar.Grammar{
		Start: "S",
		Rules: map[string][]grammar.Alternative{
			"S": {{grammar.Ref("X")}},
		},
	}
	_, err := Build(g, Options{})
	var undef *grammar.UndefinedSymbolError
	if !errors.As(err, &undef) {
		t.Fatalf("expected UndefinedSymbolError, got %v", err)
	}
	if undef.Symbol != "X" {
		t.Fatalf("error must name X, got %q", undef.Symbol)
	}
}

func TestBuildStateLimit(t *testing.T) {
	_, err := Build(anbn(), Options{MaxStates: 2})
	var lim *StateLimitError
	if !errors.As(err, &lim) {
		t.Fatalf("expected StateLimitError, got %v", err)
	}
}

func TestBuildStackLimitCullsDeepNesting(t *testing.T) {
	a, err := Build(anbn(), Options{StackLimit: 1})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if !accept(a, "c") || !accept(a, "acb") {
		t.Fatalf("derivations within the limit must survive")
	}
	if accept(a, "aacbb") {
		t.Fatalf("nesting beyond the stack limit must be culled, not approximated")
	}
}

func TestBuildStackLimitTooSmall(t *testing.T) {
	// Every derivation of S carries two tokens of continuation into
	// the expansion of A, so a limit of one culls everything.
	g := &grammar.Grammar{
		Start: "S",
		Rules: map[string][]grammar.Alternative{
			"S": {{grammar.Ref("A"), grammar.Term("b"), grammar.Term("c")}},
			"A": {{grammar.Term("a")}},
		},
	}
	_, err := Build(g, Options{StackLimit: 1})
	var lim *StackLimitError
	if !errors.As(err, &lim) {
		t.Fatalf("expected StackLimitError, got %v", err)
	}
	if lim.Limit != 1 {
		t.Fatalf("error must carry the limit, got %d", lim.Limit)
	}
}

func TestBuildTerminationBound(t *testing.T) {
	g, err := grammar.LoadFile("testdata/expr.json", "EXPR")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	a, err := Build(g, Options{StackLimit: 8})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	// The state count stays proportional to grammar size times the
	// stack limit, far below the safety valve.
	if a.StateCount() > 16384 {
		t.Fatalf("state explosion: %d states", a.StateCount())
	}
	if err := a.Validate(); err != nil {
		t.Fatalf("invalid automaton: %v", err)
	}
}
