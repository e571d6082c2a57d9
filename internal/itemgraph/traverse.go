package itemgraph

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/hashmap-kz/itemflow/internal/itemid"
)

// TryForEachConcurrent drives fn across every item in forward topological
// order: an item is only launched once every item with an edge into it has
// completed. Siblings (no edge between them) run concurrently, bounded by
// opts.ConcurrencyLimit (BufferedFuturesMax if zero).
//
// Before each new item is launched, opts.Interrupt is polled; once it
// fires, no further items are launched, but items already in flight run to
// completion and their outcomes are still reported through fn before this
// returns.
func (g *Graph) TryForEachConcurrent(ctx context.Context, opts StreamOpts, fn func(context.Context, itemid.ID) error) (StreamOutcome[struct{}], error) {
	return traverse(ctx, g.ids, g.rev, g.edges, opts, fn)
}

// TryForEachConcurrentRev is TryForEachConcurrent but in reverse
// topological order — used by Clean, which tears items down in the
// opposite order Ensure builds them up.
func (g *Graph) TryForEachConcurrentRev(ctx context.Context, opts StreamOpts, fn func(context.Context, itemid.ID) error) (StreamOutcome[struct{}], error) {
	return traverse(ctx, g.ids, g.edges, g.rev, opts, fn)
}

// traverse is shared by both directions: preds is "what must finish before
// this id may run" and succs is "what this id unblocks" for the direction
// being walked.
//
// Concurrency is bounded with a semaphore.Weighted rather than a fixed pool
// of worker goroutines, and in-flight item futures are tracked with an
// errgroup.Group, both promoted from client-go's transitive dependency
// closure to a direct one here — the same structured-concurrency
// primitives the teacher's own waitStatus layers a context deadline under.
func traverse(
	ctx context.Context,
	ids []itemid.ID,
	preds, succs map[itemid.ID][]itemid.ID,
	opts StreamOpts,
	fn func(context.Context, itemid.ID) error,
) (StreamOutcome[struct{}], error) {
	if len(ids) == 0 {
		return StreamOutcome[struct{}]{State: Finished}, nil
	}

	limit := opts.ConcurrencyLimit
	if limit <= 0 {
		limit = BufferedFuturesMax
	}
	sem := semaphore.NewWeighted(int64(limit))

	remaining := make(map[itemid.ID]int, len(ids))
	var ready []itemid.ID
	for _, id := range ids {
		remaining[id] = len(preds[id])
		if remaining[id] == 0 {
			ready = append(ready, id)
		}
	}

	type result struct {
		id  itemid.ID
		err error
	}
	doneCh := make(chan result)
	eg, _ := errgroup.WithContext(context.Background())
	inFlight := 0
	launched := 0
	interrupted := false
	var firstErr error

	checkInterrupt := func() bool {
		if opts.Interrupt == nil {
			return false
		}
		select {
		case <-opts.Interrupt:
			return true
		default:
			return false
		}
	}

	launch := func(id itemid.ID) {
		inFlight++
		eg.Go(func() error {
			defer sem.Release(1)
			err := fn(ctx, id)
			doneCh <- result{id: id, err: err}
			return nil // item errors are reported via doneCh, not eg.Wait
		})
	}

	for launched < len(ids) {
		if !interrupted && checkInterrupt() {
			interrupted = true
		}
		for !interrupted && firstErr == nil && len(ready) > 0 && sem.TryAcquire(1) {
			id := ready[0]
			ready = ready[1:]
			launch(id)
		}
		if inFlight == 0 {
			// Either interrupted or stopped by an error from fn with
			// nothing left in flight, or (in a well-formed DAG) every item
			// has been launched and we fall out of the outer loop
			// naturally below.
			break
		}
		r := <-doneCh
		inFlight--
		launched++
		if r.err != nil && firstErr == nil {
			firstErr = r.err
		}
		if r.err == nil && !interrupted {
			for _, succ := range succs[r.id] {
				remaining[succ]--
				if remaining[succ] == 0 {
					ready = append(ready, succ)
				}
			}
		}
	}
	_ = eg.Wait()

	state := Finished
	if interrupted || launched < len(ids) {
		state = Interrupted
	}
	return StreamOutcome[struct{}]{State: state}, firstErr
}
