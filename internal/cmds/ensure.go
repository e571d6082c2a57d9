package cmds

import (
	"context"

	"github.com/hashmap-kz/itemflow/internal/cmdblocks"
	"github.com/hashmap-kz/itemflow/internal/item"
	"github.com/hashmap-kz/itemflow/internal/resource"
	"github.com/hashmap-kz/itemflow/internal/storage"
)

// ApplyStoredStateSync selects which stored states maps Ensure verifies
// against freshly discovered ones before applying anything. Drift aborts
// the command with an ApplyCmdError.
type ApplyStoredStateSync int

const (
	SyncNone    ApplyStoredStateSync = 0
	SyncCurrent ApplyStoredStateSync = 1 << (iota - 1)
	SyncGoal

	SyncBoth = SyncCurrent | SyncGoal
)

// EnsureOpts configures an Ensure execution.
type EnsureOpts struct {
	// Sync selects the stored-state drift checks to run before applying.
	Sync ApplyStoredStateSync
	// AbortOnError stops launching further items once one fails, instead
	// of the default drain-and-report.
	AbortOnError bool
}

// EnsureOutcome is the public result of an Ensure: the states before the
// apply, the post-apply states, and the goal states each item was
// converged toward.
type EnsureOutcome struct {
	Previous item.States[item.Previous]
	Ensured  item.States[item.Ensured]
	Goal     item.States[item.Goal]
}

// EnsureDryOutcome is EnsureOutcome for a dry run.
type EnsureDryOutcome struct {
	Previous item.States[item.Previous]
	Ensured  item.States[item.EnsuredDry]
	Goal     item.States[item.Goal]
}

// Ensure converges every item toward its goal state: read stored current
// states, discover current and goal (the discovered current states seed
// previous), optionally check stored-state drift, apply in forward
// dependency order, and persist the post-apply current and goal states.
//
// Even when items fail or the run is interrupted, the post-apply current
// states are written, so partial progress is durable; the goal states are
// only persisted on full success.
func Ensure(ctx context.Context, c *CmdCtx, opts EnsureOpts) item.CmdOutcome[EnsureOutcome] {
	b := c.execution().
		WithBlock(cmdblocks.NewStatesCurrentRead(c.Storage, c.Paths, c.Registry, false)).
		WithBlock(cmdblocks.NewStatesDiscover(cmdblocks.DiscoverCurrentAndGoal))
	if opts.Sync&SyncCurrent != 0 {
		b.WithBlock(cmdblocks.NewApplyStateSyncCheck(cmdblocks.SyncCurrent))
	}
	if opts.Sync&SyncGoal != 0 {
		b.WithBlock(cmdblocks.NewStatesGoalRead(c.Storage, c.Paths, c.Registry, false))
		b.WithBlock(cmdblocks.NewApplyStateSyncCheck(cmdblocks.SyncGoal))
	}
	exec := b.
		WithBlock(cmdblocks.NewApplyExecEnsure(opts.AbortOnError)).
		WithBlock(cmdblocks.NewStatesCurrentSerialize[item.Ensured](c.Storage, c.Paths)).
		WithBlock(cmdblocks.NewStatesGoalSerialize(c.Storage, c.Paths)).
		WithExecutionOutcomeFetch(func(r *resource.Store[resource.SetUp]) (any, error) {
			return ensureOutcomeFetch(r)
		}).
		Build()

	outcome := retype[EnsureOutcome](exec.Exec(ctx, c.view()))
	persistPartialApply[item.Ensured](ctx, c, outcome.Kind)
	return outcome
}

// EnsureDry is Ensure without side effects: every item's ApplyDry runs
// instead of Apply, and nothing is persisted.
func EnsureDry(ctx context.Context, c *CmdCtx, opts EnsureOpts) item.CmdOutcome[EnsureDryOutcome] {
	b := c.execution().
		WithBlock(cmdblocks.NewStatesCurrentRead(c.Storage, c.Paths, c.Registry, false)).
		WithBlock(cmdblocks.NewStatesDiscover(cmdblocks.DiscoverCurrentAndGoal))
	if opts.Sync&SyncCurrent != 0 {
		b.WithBlock(cmdblocks.NewApplyStateSyncCheck(cmdblocks.SyncCurrent))
	}
	if opts.Sync&SyncGoal != 0 {
		b.WithBlock(cmdblocks.NewStatesGoalRead(c.Storage, c.Paths, c.Registry, false))
		b.WithBlock(cmdblocks.NewApplyStateSyncCheck(cmdblocks.SyncGoal))
	}
	exec := b.
		WithBlock(cmdblocks.NewApplyExecEnsureDry(opts.AbortOnError)).
		WithExecutionOutcomeFetch(func(r *resource.Store[resource.SetUp]) (any, error) {
			previous, err := fetchFromStore[item.States[item.Previous]](r)
			if err != nil {
				return nil, err
			}
			ensured, err := fetchFromStore[item.States[item.EnsuredDry]](r)
			if err != nil {
				return nil, err
			}
			goal, err := fetchFromStore[item.States[item.Goal]](r)
			if err != nil {
				return nil, err
			}
			return EnsureDryOutcome{Previous: previous, Ensured: ensured, Goal: goal}, nil
		}).
		Build()
	return retype[EnsureDryOutcome](exec.Exec(ctx, c.view()))
}

func ensureOutcomeFetch(r *resource.Store[resource.SetUp]) (EnsureOutcome, error) {
	var out EnsureOutcome
	var err error
	if out.Previous, err = fetchFromStore[item.States[item.Previous]](r); err != nil {
		return out, err
	}
	if out.Ensured, err = fetchFromStore[item.States[item.Ensured]](r); err != nil {
		return out, err
	}
	if out.Goal, err = fetchFromStore[item.States[item.Goal]](r); err != nil {
		return out, err
	}
	return out, nil
}

// persistPartialApply writes the post-apply current states after an apply
// block that stopped early (item errors or interruption). The serialize
// blocks only run on full completion; this keeps partial progress durable
// regardless.
func persistPartialApply[Ts any](ctx context.Context, c *CmdCtx, kind item.OutcomeKind) {
	if kind != item.OutcomeItemError && kind != item.OutcomeBlockInterrupted {
		return
	}
	applied, err := fetchFromStore[item.States[Ts]](c.Resources)
	if err != nil {
		// The apply block never ran; there is nothing to persist.
		return
	}
	_ = storage.SaveStates(ctx, c.Storage, c.Paths.StatesCurrent(), applied, nil)
}
