package build

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/Reverier-Xu/LibAFL/internal/automaton"
	"github.com/Reverier-Xu/LibAFL/internal/grammar"
)

// BuildParallel compiles the grammar with a pool of workers expanding
// pending keys level by level. The memo table and the state arena are
// shared behind the builder's mutex; each state's edges are written
// only by the worker that owns its work item. Normalization
// canonicalizes the ids afterwards, so the output is byte-identical
// to the sequential Build regardless of scheduling.
func BuildParallel(ctx context.Context, g *grammar.Grammar, opts Options, jobs int) (*automaton.Automaton, error) {
	b, root, frontier, err := newBuilder(g, opts)
	if err != nil {
		return nil, err
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	for len(frontier) > 0 {
		next := make([][]workItem, len(frontier))
		eg, gctx := errgroup.WithContext(ctx)
		eg.SetLimit(min(jobs, len(frontier)))
		for i, item := range frontier {
			i, item := i, item
			eg.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				more, err := b.process(item)
				if err != nil {
					return err
				}
				next[i] = more
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for _, more := range next {
			frontier = append(frontier, more...)
		}
	}
	return b.finish(root)
}
