package cmdblocks

import (
	"context"

	"github.com/hashmap-kz/itemflow/internal/cmdrt"
	"github.com/hashmap-kz/itemflow/internal/item"
	"github.com/hashmap-kz/itemflow/internal/itemgraph"
	"github.com/hashmap-kz/itemflow/internal/itemid"
	"github.com/hashmap-kz/itemflow/internal/progress"
	"github.com/hashmap-kz/itemflow/internal/resource"
)

// DiscoverMode selects which states a discover block discovers.
type DiscoverMode int

const (
	DiscoverCurrent DiscoverMode = 1 << iota
	DiscoverGoal

	DiscoverCurrentAndGoal = DiscoverCurrent | DiscoverGoal
)

func (m DiscoverMode) String() string {
	switch m {
	case DiscoverCurrent:
		return "current"
	case DiscoverGoal:
		return "goal"
	case DiscoverCurrentAndGoal:
		return "current_and_goal"
	default:
		return "unknown"
	}
}

type discoverAcc struct {
	current item.States[item.Current]
	goal    item.States[item.Goal]
}

type discoverPartial struct {
	id itemid.ID
	// When err is set, neither current nor goal is recorded (current may
	// already hold a value if goal discovery failed after current
	// succeeded). current/goal are nil when the item's state is not
	// discoverable yet (TryState* returned nil), which simply produces no
	// entry — the discover block's tolerance for items whose predecessors
	// have not been created.
	current item.Displayable
	goal    item.Displayable
	err     error
}

// statesDiscoverBlock streams every item through the graph, invoking
// TryStateCurrentExec and/or TryStateGoalExec. Per-item failures are
// captured in the errors map without aborting siblings.
type statesDiscoverBlock struct {
	mode DiscoverMode
}

// NewStatesDiscover builds a discover block for the given mode.
func NewStatesDiscover(mode DiscoverMode) cmdrt.BoxedBlock {
	return cmdrt.Box[struct{}, discoverAcc, discoverAcc, discoverPartial](&statesDiscoverBlock{mode: mode})
}

func (b *statesDiscoverBlock) Name() string {
	return "StatesDiscoverCmdBlock(" + b.mode.String() + ")"
}

func (b *statesDiscoverBlock) InputFetch(*cmdrt.CmdView) (struct{}, error) {
	return struct{}{}, nil
}

func (b *statesDiscoverBlock) InputTypeNames() []string { return nil }

func (b *statesDiscoverBlock) OutcomeTypeNames() []string {
	var names []string
	if b.mode&DiscoverCurrent != 0 {
		names = append(names, typeNameOf[item.States[item.Current]]())
	}
	if b.mode&DiscoverGoal != 0 {
		names = append(names, typeNameOf[item.States[item.Goal]]())
	}
	return names
}

func (b *statesDiscoverBlock) OutcomeAccInit(struct{}) discoverAcc {
	return discoverAcc{
		current: item.NewStates[item.Current](),
		goal:    item.NewStates[item.Goal](),
	}
}

func (b *statesDiscoverBlock) OutcomeFromAcc(acc discoverAcc) discoverAcc { return acc }

func (b *statesDiscoverBlock) OutcomeInsert(view *cmdrt.CmdView, out discoverAcc) {
	if b.mode&DiscoverCurrent != 0 {
		resource.Insert(view.Resources, out.current)
	}
	if b.mode&DiscoverGoal != 0 {
		resource.Insert(view.Resources, out.goal)
	}
}

func (b *statesDiscoverBlock) Exec(ctx context.Context, _ struct{}, view *cmdrt.CmdView, outcomesTx chan<- discoverPartial, progressTx progress.Sender) (*itemgraph.StreamOutcome[struct{}], error) {
	opts := itemgraph.StreamOpts{Interrupt: view.Interrupt}
	so, err := view.Flow.Graph.TryForEachConcurrent(ctx, opts, func(ctx context.Context, id itemid.ID) error {
		rt := view.Flow.Items[id]
		partial := discoverPartial{id: id}

		if b.mode&DiscoverCurrent != 0 {
			current, err := rt.TryStateCurrentExec(ctx, progressTx, view.ParamsSpecs, view.Resources)
			if err != nil {
				partial.err = err
				outcomesTx <- partial
				progressTx.Send(progress.Event{Update: progress.Update{ItemID: id.String(), Kind: progress.UpdateCompleteFail, Message: err.Error()}})
				return nil
			}
			partial.current = current
		}
		if b.mode&DiscoverGoal != 0 {
			goal, err := rt.TryStateGoalExec(ctx, progressTx, view.ParamsSpecs, view.Resources)
			if err != nil {
				partial.err = err
				outcomesTx <- partial
				progressTx.Send(progress.Event{Update: progress.Update{ItemID: id.String(), Kind: progress.UpdateCompleteFail, Message: err.Error()}})
				return nil
			}
			partial.goal = goal
		}

		outcomesTx <- partial
		progressTx.Send(progress.Event{Update: progress.Update{ItemID: id.String(), Kind: progress.UpdateCompleteSuccess}})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cmdrt.Itemwise(so), nil
}

func (b *statesDiscoverBlock) OutcomeCollate(acc *discoverAcc, errs map[itemid.ID]error, partial discoverPartial) error {
	if partial.err != nil {
		errs[partial.id] = partial.err
		return nil
	}
	if partial.current != nil {
		acc.current.Set(partial.id, partial.current)
	}
	if partial.goal != nil {
		acc.goal.Set(partial.id, partial.goal)
	}
	return nil
}
