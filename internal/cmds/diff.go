package cmds

import (
	"context"

	"github.com/hashmap-kz/itemflow/internal/cmdblocks"
	"github.com/hashmap-kz/itemflow/internal/item"
	"github.com/hashmap-kz/itemflow/internal/itemid"
	"github.com/hashmap-kz/itemflow/internal/resource"
	"github.com/hashmap-kz/itemflow/internal/storage"
)

// DiffProfilesCurrent compares the stored current states of two profiles
// of the same flow, item by item. Nothing is discovered: both sides come
// from storage, so either profile never having been discovered is an
// error.
func DiffProfilesCurrent(ctx context.Context, c *CmdCtx, profileA, profileB itemid.ProfileID) item.CmdOutcome[item.StateDiffs] {
	load := func(profile itemid.ProfileID) (item.States[item.Current], error) {
		paths := storage.Paths{Profile: profile, Flow: c.Flow.ID}
		file, found, err := storage.LoadStates[item.Current](ctx, c.Storage, paths.StatesCurrent(), c.Registry)
		if err != nil {
			return item.States[item.Current]{}, err
		}
		if !found {
			return item.States[item.Current]{}, storage.ErrStatesCurrentDiscoverRequired
		}
		return file.States, nil
	}

	statesA, err := load(profileA)
	if err != nil {
		return item.ExecutionErrorOutcome[item.StateDiffs](err)
	}
	statesB, err := load(profileB)
	if err != nil {
		return item.ExecutionErrorOutcome[item.StateDiffs](err)
	}

	// The diff block reads a Current and a Goal map from the store;
	// profile B's current states stand in as the "goal" side.
	resource.Insert(c.Resources, statesA)
	resource.Insert(c.Resources, item.Retag[item.Current, item.Goal](statesB))

	exec := c.execution().
		WithBlock(cmdblocks.NewDiff()).
		WithExecutionOutcomeFetch(func(r *resource.Store[resource.SetUp]) (any, error) {
			return fetchFromStore[item.StateDiffs](r)
		}).
		Build()
	return retype[item.StateDiffs](exec.Exec(ctx, c.view()))
}

// DiffCurrentAndGoal discovers current and goal states, then diffs them
// per item, returning the collected StateDiffs.
func DiffCurrentAndGoal(ctx context.Context, c *CmdCtx) item.CmdOutcome[item.StateDiffs] {
	exec := c.execution().
		WithBlock(cmdblocks.NewStatesDiscover(cmdblocks.DiscoverCurrentAndGoal)).
		WithBlock(cmdblocks.NewDiff()).
		WithExecutionOutcomeFetch(func(r *resource.Store[resource.SetUp]) (any, error) {
			return fetchFromStore[item.StateDiffs](r)
		}).
		Build()
	return retype[item.StateDiffs](exec.Exec(ctx, c.view()))
}
