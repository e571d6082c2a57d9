package cmdrt

import (
	"context"

	"github.com/hashmap-kz/itemflow/internal/itemgraph"
	"github.com/hashmap-kz/itemflow/internal/itemid"
	"github.com/hashmap-kz/itemflow/internal/progress"
)

// Block is the contract a single staged phase of a command implements.
//
// In pulls the block's input out of the Resource store; Out is inserted
// back on success; Acc is the per-item accumulation built up while the
// block streams items through the graph; Partial is the one event emitted
// per item during streaming.
//
// A block either produces a Single outcome (Exec returns a nil
// StreamOutcome — e.g. deserializing a file) or an ItemWise one (Exec
// returns the StreamOutcome of the traversal it drove, with one Partial
// sent per item along the way).
type Block[In, Out, Acc, Partial any] interface {
	// Name identifies the block in diagnostics.
	Name() string

	// InputFetch pulls In from the Resource store. An absence error here
	// is wrapped by the execution into a diagnostic enumerating the
	// preceding blocks' output types, so a mis-ordered pipeline is
	// debuggable from the message alone.
	InputFetch(view *CmdView) (In, error)

	// InputTypeNames and OutcomeTypeNames name the types this block
	// consumes and produces, for those diagnostics.
	InputTypeNames() []string
	OutcomeTypeNames() []string

	// OutcomeAccInit seeds the accumulator from the fetched input.
	OutcomeAccInit(in In) Acc

	// OutcomeFromAcc finalizes the accumulator into the block outcome.
	OutcomeFromAcc(acc Acc) Out

	// OutcomeInsert places the outcome into the Resource store for
	// subsequent blocks (and the final outcome fetch) to find.
	OutcomeInsert(view *CmdView, out Out)

	// Exec performs the block's work, sending one Partial per item to
	// outcomesTx when streaming. It must not close outcomesTx; the boxed
	// wrapper owns the channel. A nil StreamOutcome means the block is
	// Single (non-itemwise).
	Exec(ctx context.Context, in In, view *CmdView, outcomesTx chan<- Partial, progressTx progress.Sender) (*itemgraph.StreamOutcome[struct{}], error)

	// OutcomeCollate folds one Partial into the accumulator and the
	// per-item errors map. An error return is a framework-level failure,
	// not a per-item one.
	OutcomeCollate(acc *Acc, errs map[itemid.ID]error, partial Partial) error
}

// BlockRun is the erased result of running one boxed block.
type BlockRun struct {
	// InputFetchErr is set when the block's input was missing from the
	// Resource store — a pipeline wiring error.
	InputFetchErr error
	// ExecErr is a framework-level error from Exec or OutcomeCollate.
	ExecErr error
	// Errors are the per-item errors collated while streaming.
	Errors map[itemid.ID]error
	// StreamState is Finished for Single blocks, and the traversal's
	// terminal state for ItemWise blocks.
	StreamState itemgraph.StreamState
}

// BoxedBlock is the type-erased block the CmdExecution queue holds.
type BoxedBlock interface {
	Name() string
	InputTypeNames() []string
	OutcomeTypeNames() []string
	Exec(ctx context.Context, view *CmdView, progressTx progress.Sender) BlockRun
}

type boxed[In, Out, Acc, Partial any] struct {
	b Block[In, Out, Acc, Partial]
}

// Box erases a typed Block into a BoxedBlock.
func Box[In, Out, Acc, Partial any](b Block[In, Out, Acc, Partial]) BoxedBlock {
	return &boxed[In, Out, Acc, Partial]{b: b}
}

func (x *boxed[In, Out, Acc, Partial]) Name() string             { return x.b.Name() }
func (x *boxed[In, Out, Acc, Partial]) InputTypeNames() []string { return x.b.InputTypeNames() }
func (x *boxed[In, Out, Acc, Partial]) OutcomeTypeNames() []string {
	return x.b.OutcomeTypeNames()
}

func (x *boxed[In, Out, Acc, Partial]) Exec(ctx context.Context, view *CmdView, progressTx progress.Sender) BlockRun {
	in, err := x.b.InputFetch(view)
	if err != nil {
		return BlockRun{InputFetchErr: err}
	}

	acc := x.b.OutcomeAccInit(in)
	errs := make(map[itemid.ID]error)

	// Exec streams partials while the collate loop below drains them; the
	// channel is closed (by us, not the block) once Exec returns, which
	// ends the loop. The buffer only smooths bursts — correctness does
	// not depend on its size.
	outcomesCh := make(chan Partial, itemgraph.BufferedFuturesMax)
	var (
		streamOutcome *itemgraph.StreamOutcome[struct{}]
		execErr       error
	)
	go func() {
		defer close(outcomesCh)
		streamOutcome, execErr = x.b.Exec(ctx, in, view, outcomesCh, progressTx)
	}()

	var collateErr error
	for partial := range outcomesCh {
		if collateErr != nil {
			continue // drain remaining partials so Exec never blocks
		}
		collateErr = x.b.OutcomeCollate(&acc, errs, partial)
	}

	run := BlockRun{Errors: errs, StreamState: itemgraph.Finished}
	switch {
	case execErr != nil:
		run.ExecErr = execErr
		return run
	case collateErr != nil:
		run.ExecErr = collateErr
		return run
	}
	if streamOutcome != nil {
		if streamOutcome.State == itemgraph.NotStarted {
			// A traversal that never starts is a bug in the graph
			// operator, not a condition a caller can handle.
			panic("cmdrt: stream outcome NotStarted reached block collation")
		}
		run.StreamState = streamOutcome.State
	}

	// The accumulated outcome is inserted even when items failed or the
	// stream was interrupted: the last successful outcome stays in the
	// Resource store for diagnostic inspection.
	x.b.OutcomeInsert(view, x.b.OutcomeFromAcc(acc))
	return run
}

// SingleOutcome is a convenience for blocks that are not itemwise: their
// Exec does all the work inline and returns no StreamOutcome.
func SingleOutcome() (*itemgraph.StreamOutcome[struct{}], error) {
	return nil, nil
}

// Itemwise wraps a traversal result for blocks that streamed the graph.
func Itemwise(so itemgraph.StreamOutcome[struct{}]) *itemgraph.StreamOutcome[struct{}] {
	return &so
}
