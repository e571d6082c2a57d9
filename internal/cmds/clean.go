package cmds

import (
	"context"

	"github.com/hashmap-kz/itemflow/internal/cmdblocks"
	"github.com/hashmap-kz/itemflow/internal/item"
	"github.com/hashmap-kz/itemflow/internal/resource"
)

// CleanOpts configures a Clean execution.
type CleanOpts struct {
	// Sync selects stored-state drift checks. Only the current states
	// are ever checked for Clean — the target is each item's clean
	// state, not the stored goal, so goal drift is irrelevant.
	Sync ApplyStoredStateSync
	// AbortOnError stops launching further items once one fails.
	AbortOnError bool
}

// CleanOutcome is the public result of a Clean.
type CleanOutcome struct {
	Previous item.States[item.Previous]
	Cleaned  item.States[item.Cleaned]
}

// CleanDryOutcome is CleanOutcome for a dry run.
type CleanDryOutcome struct {
	Previous item.States[item.Previous]
	Cleaned  item.States[item.CleanedDry]
}

// Clean tears every item down to its clean state, walking the graph in
// reverse dependency order. The post-apply current states are persisted
// even when items fail partway, matching Ensure.
func Clean(ctx context.Context, c *CmdCtx, opts CleanOpts) item.CmdOutcome[CleanOutcome] {
	b := c.execution().
		WithBlock(cmdblocks.NewStatesCurrentRead(c.Storage, c.Paths, c.Registry, false)).
		WithBlock(cmdblocks.NewStatesDiscover(cmdblocks.DiscoverCurrent))
	if opts.Sync&SyncCurrent != 0 {
		b.WithBlock(cmdblocks.NewApplyStateSyncCheck(cmdblocks.SyncCurrent))
	}
	exec := b.
		WithBlock(cmdblocks.NewStatesCleanInsertion()).
		WithBlock(cmdblocks.NewApplyExecClean(opts.AbortOnError)).
		WithBlock(cmdblocks.NewStatesCurrentSerialize[item.Cleaned](c.Storage, c.Paths)).
		WithExecutionOutcomeFetch(func(r *resource.Store[resource.SetUp]) (any, error) {
			var out CleanOutcome
			var err error
			if out.Previous, err = fetchFromStore[item.States[item.Previous]](r); err != nil {
				return nil, err
			}
			if out.Cleaned, err = fetchFromStore[item.States[item.Cleaned]](r); err != nil {
				return nil, err
			}
			return out, nil
		}).
		Build()

	outcome := retype[CleanOutcome](exec.Exec(ctx, c.view()))
	persistPartialApply[item.Cleaned](ctx, c, outcome.Kind)
	return outcome
}

// CleanDry is Clean without side effects; nothing is persisted.
func CleanDry(ctx context.Context, c *CmdCtx, opts CleanOpts) item.CmdOutcome[CleanDryOutcome] {
	b := c.execution().
		WithBlock(cmdblocks.NewStatesCurrentRead(c.Storage, c.Paths, c.Registry, false)).
		WithBlock(cmdblocks.NewStatesDiscover(cmdblocks.DiscoverCurrent))
	if opts.Sync&SyncCurrent != 0 {
		b.WithBlock(cmdblocks.NewApplyStateSyncCheck(cmdblocks.SyncCurrent))
	}
	exec := b.
		WithBlock(cmdblocks.NewStatesCleanInsertion()).
		WithBlock(cmdblocks.NewApplyExecCleanDry(opts.AbortOnError)).
		WithExecutionOutcomeFetch(func(r *resource.Store[resource.SetUp]) (any, error) {
			var out CleanDryOutcome
			var err error
			if out.Previous, err = fetchFromStore[item.States[item.Previous]](r); err != nil {
				return nil, err
			}
			if out.Cleaned, err = fetchFromStore[item.States[item.CleanedDry]](r); err != nil {
				return nil, err
			}
			return out, nil
		}).
		Build()
	return retype[CleanDryOutcome](exec.Exec(ctx, c.view()))
}
