package cmdrt

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/hashmap-kz/itemflow/internal/item"
	"github.com/hashmap-kz/itemflow/internal/itemgraph"
	"github.com/hashmap-kz/itemflow/internal/progress"
	"github.com/hashmap-kz/itemflow/internal/resource"
)

// InputFetchError reports a block whose input was missing from the
// Resource store when its turn came, enumerating what the blocks before it
// actually produced — almost always this means a pipeline was assembled
// with a block missing or out of order.
type InputFetchError struct {
	BlockName         string
	InputTypeNames    []string
	PrecedingOutcomes []string
	Err               error
}

func (e *InputFetchError) Error() string {
	return fmt.Sprintf(
		"cmdrt: block %q could not fetch its input (wants: %s; blocks before it produced: %s): %v",
		e.BlockName,
		strings.Join(e.InputTypeNames, ", "),
		strings.Join(e.PrecedingOutcomes, ", "),
		e.Err,
	)
}

func (e *InputFetchError) Unwrap() error { return e.Err }

// OutcomeFetch extracts the final public outcome from the Resource store
// once every block has completed.
type OutcomeFetch func(r *resource.Store[resource.SetUp]) (any, error)

// ProgressDrain consumes progress events for the duration of one
// execution. The channel is closed when the execution finishes, which is
// the drain's signal to terminate.
type ProgressDrain func(<-chan progress.Event)

// CmdExecution is an ordered queue of boxed blocks plus the closure that
// extracts the final outcome.
type CmdExecution struct {
	blocks        []BoxedBlock
	outcomeFetch  OutcomeFetch
	progressDrain ProgressDrain
}

// ExecutionBuilder assembles a CmdExecution.
type ExecutionBuilder struct {
	e CmdExecution
}

// NewExecution starts an empty builder.
func NewExecution() *ExecutionBuilder {
	return &ExecutionBuilder{}
}

// WithBlock appends a block to the queue.
func (b *ExecutionBuilder) WithBlock(block BoxedBlock) *ExecutionBuilder {
	b.e.blocks = append(b.e.blocks, block)
	return b
}

// WithExecutionOutcomeFetch sets the final outcome extraction closure.
func (b *ExecutionBuilder) WithExecutionOutcomeFetch(fetch OutcomeFetch) *ExecutionBuilder {
	b.e.outcomeFetch = fetch
	return b
}

// WithProgressDrain enables progress reporting: a channel is opened for
// the duration of the execution and handed to drain on its own goroutine.
func (b *ExecutionBuilder) WithProgressDrain(drain ProgressDrain) *ExecutionBuilder {
	b.e.progressDrain = drain
	return b
}

// Build finalizes the execution.
func (b *ExecutionBuilder) Build() *CmdExecution {
	return &b.e
}

// Exec runs every block in order against the view.
//
// The protocol per block: check the interrupt signal, fetch input, run,
// classify. An input fetch failure or a framework-level error aborts the
// execution; per-item errors and interruption stop it after the current
// block with the corresponding outcome kind; otherwise the next block
// observes every Resource-store mutation of this one. On full completion
// the execution outcome fetch produces the public value.
func (e *CmdExecution) Exec(ctx context.Context, view *CmdView) item.CmdOutcome[any] {
	if view.ExecutionID == "" {
		view.ExecutionID = uuid.NewString()
	}
	logger := view.logger().WithValues("executionId", view.ExecutionID, "flowId", view.Flow.ID)

	progressTx, closeProgress := e.openProgress()
	defer closeProgress()

	var precedingOutcomes []string
	for _, block := range e.blocks {
		if interrupted(view.Interrupt) {
			logger.V(1).Info("execution interrupted at block boundary", "block", block.Name())
			return item.BlockInterrupted[any](nil)
		}

		logger.V(1).Info("block start", "block", block.Name())
		run := block.Exec(ctx, view, progressTx)
		switch {
		case run.InputFetchErr != nil:
			return item.ExecutionErrorOutcome[any](&InputFetchError{
				BlockName:         block.Name(),
				InputTypeNames:    block.InputTypeNames(),
				PrecedingOutcomes: precedingOutcomes,
				Err:               run.InputFetchErr,
			})
		case run.ExecErr != nil:
			logger.V(1).Info("block failed", "block", block.Name(), "error", run.ExecErr.Error())
			return item.ExecutionErrorOutcome[any](run.ExecErr)
		case len(run.Errors) > 0:
			logger.V(1).Info("block completed with item errors", "block", block.Name(), "errorCount", len(run.Errors))
			out := item.ItemErrorOutcome[any](nil, run.Errors)
			out.StreamOutcomeTag = run.StreamState.String()
			return out
		case run.StreamState == itemgraph.Interrupted:
			logger.V(1).Info("block interrupted", "block", block.Name())
			return item.BlockInterrupted[any](nil)
		}
		logger.V(1).Info("block complete", "block", block.Name())
		precedingOutcomes = append(precedingOutcomes, block.OutcomeTypeNames()...)
	}

	if e.outcomeFetch == nil {
		return item.Complete[any](nil)
	}
	v, err := e.outcomeFetch(view.Resources)
	if err != nil {
		return item.ExecutionErrorOutcome[any](err)
	}
	return item.Complete(v)
}

// openProgress opens the execution-scoped progress channel and starts the
// drain, returning a Sender for blocks and a close function that drops the
// sender side and waits for the drain to terminate. With no drain
// configured the Sender is a no-op.
func (e *CmdExecution) openProgress() (progress.Sender, func()) {
	if e.progressDrain == nil {
		return progress.NewSender(nil), func() {}
	}
	ch := make(chan progress.Event, progress.ChannelCapacity)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		e.progressDrain(ch)
	}()
	return progress.NewSender(ch), func() {
		close(ch)
		wg.Wait()
	}
}

func interrupted(ch <-chan struct{}) bool {
	if ch == nil {
		return false
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
