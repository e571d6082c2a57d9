// Package cmds exposes the user-facing commands: discovering states,
// diffing, ensuring, and cleaning a flow. Each command wires concrete
// cmdblocks into a cmdrt.CmdExecution and runs it against a CmdCtx.
package cmds

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/hashmap-kz/itemflow/internal/cmdrt"
	"github.com/hashmap-kz/itemflow/internal/flow"
	"github.com/hashmap-kz/itemflow/internal/itemid"
	"github.com/hashmap-kz/itemflow/internal/paramspec"
	"github.com/hashmap-kz/itemflow/internal/resource"
	"github.com/hashmap-kz/itemflow/internal/storage"
)

// MismatchError reports that the flow's provided params specs disagree
// with the specs recorded by a previous run — an item was added without a
// spec, an id was renamed, or a mapping-fn spec can no longer be
// reconstructed. The command context refuses to build until the caller
// reconciles them.
type MismatchError struct {
	Mismatch paramspec.Mismatch
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf(
		"cmds: params specs mismatch: no specs for items %v; provided specs mismatched for %v; stored specs orphaned for %v; mapping-fn specs not re-provided for %v",
		e.Mismatch.ItemIDsWithNoParamsSpecs,
		e.Mismatch.ParamsSpecsProvidedMismatches,
		e.Mismatch.ParamsSpecsStoredMismatches,
		e.Mismatch.SpecNotProvidedForPreviouslyStoredMappingFn,
	)
}

// CmdCtx is the per-flow command context: the flow, its resolved resource
// store (every item's Setup has run), the params specs validated against
// the stored record, and the storage scope commands persist into.
type CmdCtx struct {
	Flow        *flow.Flow
	ParamsSpecs paramspec.Specs
	Resources   *resource.Store[resource.SetUp]
	Storage     storage.Store
	Paths       storage.Paths
	Registry    *storage.TypedRegistry

	Interrupt     <-chan struct{}
	Logger        logr.Logger
	ProgressDrain cmdrt.ProgressDrain
}

// CmdCtxOpts configures NewCmdCtx.
type CmdCtxOpts struct {
	Flow        *flow.Flow
	Profile     itemid.ProfileID
	ParamsSpecs paramspec.Specs
	Storage     storage.Store

	// Interrupt, when non-nil, cooperatively cancels command executions.
	Interrupt <-chan struct{}
	// Logger defaults to a discard logger.
	Logger logr.Logger
	// ProgressDrain, when non-nil, receives progress events for each
	// execution.
	ProgressDrain cmdrt.ProgressDrain
}

// NewCmdCtx builds a command context: it runs every item's Setup to
// populate the resource store, validates the provided params specs against
// the record persisted by previous runs (failing with *MismatchError on
// any discrepancy), and persists the reconciled record.
func NewCmdCtx(ctx context.Context, opts CmdCtxOpts) (*CmdCtx, error) {
	if opts.Flow == nil {
		return nil, fmt.Errorf("cmds: flow is required")
	}
	if opts.Storage == nil {
		return nil, fmt.Errorf("cmds: storage is required")
	}

	paths := storage.Paths{Profile: opts.Profile, Flow: opts.Flow.ID}

	registry := storage.NewTypedRegistry()
	for id, rt := range opts.Flow.Items {
		registry.Register(id, rt.UnmarshalState)
	}

	empty := resource.New[resource.Empty]()
	for _, id := range opts.Flow.Graph.IDs() {
		if err := opts.Flow.Items[id].Setup(empty); err != nil {
			return nil, fmt.Errorf("cmds: setup of item %q: %w", id, err)
		}
	}
	resources := resource.SetUpFrom(empty)

	stored, _, err := storage.LoadParamsSpecs(ctx, opts.Storage, paths.ParamsSpecs())
	if err != nil {
		return nil, err
	}
	mismatch := paramspec.Compare(opts.Flow.Graph.IDs(), opts.ParamsSpecs, stored)
	if !mismatch.IsEmpty() {
		return nil, &MismatchError{Mismatch: mismatch}
	}
	if err := storage.SaveParamsSpecs(ctx, opts.Storage, paths.ParamsSpecs(), opts.ParamsSpecs); err != nil {
		return nil, err
	}

	return &CmdCtx{
		Flow:          opts.Flow,
		ParamsSpecs:   opts.ParamsSpecs,
		Resources:     resources,
		Storage:       opts.Storage,
		Paths:         paths,
		Registry:      registry,
		Interrupt:     opts.Interrupt,
		Logger:        opts.Logger,
		ProgressDrain: opts.ProgressDrain,
	}, nil
}

// view builds the per-execution CmdView.
func (c *CmdCtx) view() *cmdrt.CmdView {
	return &cmdrt.CmdView{
		Flow:        c.Flow,
		ParamsSpecs: c.ParamsSpecs,
		Resources:   c.Resources,
		Interrupt:   c.Interrupt,
		Logger:      c.Logger,
	}
}

// execution starts an execution builder with this context's progress
// drain preconfigured.
func (c *CmdCtx) execution() *cmdrt.ExecutionBuilder {
	b := cmdrt.NewExecution()
	if c.ProgressDrain != nil {
		b.WithProgressDrain(c.ProgressDrain)
	}
	return b
}
