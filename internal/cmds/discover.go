package cmds

import (
	"context"

	"github.com/hashmap-kz/itemflow/internal/cmdblocks"
	"github.com/hashmap-kz/itemflow/internal/item"
	"github.com/hashmap-kz/itemflow/internal/resource"
)

// DiscoverOutcome pairs the current and goal states produced by a
// current_and_goal discovery.
type DiscoverOutcome struct {
	Current item.States[item.Current]
	Goal    item.States[item.Goal]
}

// StatesDiscoverCurrent discovers every item's current state and persists
// the result as the flow's stored current states.
func StatesDiscoverCurrent(ctx context.Context, c *CmdCtx) item.CmdOutcome[item.States[item.Current]] {
	exec := c.execution().
		WithBlock(cmdblocks.NewStatesDiscover(cmdblocks.DiscoverCurrent)).
		WithBlock(cmdblocks.NewStatesCurrentSerialize[item.Current](c.Storage, c.Paths)).
		WithExecutionOutcomeFetch(func(r *resource.Store[resource.SetUp]) (any, error) {
			return fetchFromStore[item.States[item.Current]](r)
		}).
		Build()
	return retype[item.States[item.Current]](exec.Exec(ctx, c.view()))
}

// StatesDiscoverGoal discovers every item's goal state and persists the
// result as the flow's stored goal states.
func StatesDiscoverGoal(ctx context.Context, c *CmdCtx) item.CmdOutcome[item.States[item.Goal]] {
	exec := c.execution().
		WithBlock(cmdblocks.NewStatesDiscover(cmdblocks.DiscoverGoal)).
		WithBlock(cmdblocks.NewStatesGoalSerialize(c.Storage, c.Paths)).
		WithExecutionOutcomeFetch(func(r *resource.Store[resource.SetUp]) (any, error) {
			return fetchFromStore[item.States[item.Goal]](r)
		}).
		Build()
	return retype[item.States[item.Goal]](exec.Exec(ctx, c.view()))
}

// StatesDiscoverCurrentAndGoal discovers both in one streamed pass and
// persists both.
func StatesDiscoverCurrentAndGoal(ctx context.Context, c *CmdCtx) item.CmdOutcome[DiscoverOutcome] {
	exec := c.execution().
		WithBlock(cmdblocks.NewStatesDiscover(cmdblocks.DiscoverCurrentAndGoal)).
		WithBlock(cmdblocks.NewStatesCurrentSerialize[item.Current](c.Storage, c.Paths)).
		WithBlock(cmdblocks.NewStatesGoalSerialize(c.Storage, c.Paths)).
		WithExecutionOutcomeFetch(func(r *resource.Store[resource.SetUp]) (any, error) {
			current, err := fetchFromStore[item.States[item.Current]](r)
			if err != nil {
				return nil, err
			}
			goal, err := fetchFromStore[item.States[item.Goal]](r)
			if err != nil {
				return nil, err
			}
			return DiscoverOutcome{Current: current, Goal: goal}, nil
		}).
		Build()
	return retype[DiscoverOutcome](exec.Exec(ctx, c.view()))
}
