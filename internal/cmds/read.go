package cmds

import (
	"context"

	"github.com/hashmap-kz/itemflow/internal/cmdblocks"
	"github.com/hashmap-kz/itemflow/internal/item"
	"github.com/hashmap-kz/itemflow/internal/resource"
)

// StatesCurrentRead reads the stored current states without touching the
// managed system. It fails with storage.ErrStatesCurrentDiscoverRequired
// if nothing has been discovered yet.
func StatesCurrentRead(ctx context.Context, c *CmdCtx) item.CmdOutcome[item.States[item.CurrentStored]] {
	exec := c.execution().
		WithBlock(cmdblocks.NewStatesCurrentRead(c.Storage, c.Paths, c.Registry, true)).
		WithExecutionOutcomeFetch(func(r *resource.Store[resource.SetUp]) (any, error) {
			return fetchFromStore[item.States[item.CurrentStored]](r)
		}).
		Build()
	return retype[item.States[item.CurrentStored]](exec.Exec(ctx, c.view()))
}

// StatesGoalRead is StatesCurrentRead for the stored goal states.
func StatesGoalRead(ctx context.Context, c *CmdCtx) item.CmdOutcome[item.States[item.GoalStored]] {
	exec := c.execution().
		WithBlock(cmdblocks.NewStatesGoalRead(c.Storage, c.Paths, c.Registry, true)).
		WithExecutionOutcomeFetch(func(r *resource.Store[resource.SetUp]) (any, error) {
			return fetchFromStore[item.States[item.GoalStored]](r)
		}).
		Build()
	return retype[item.States[item.GoalStored]](exec.Exec(ctx, c.view()))
}
