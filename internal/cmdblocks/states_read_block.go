package cmdblocks

import (
	"context"

	"github.com/hashmap-kz/itemflow/internal/cmdrt"
	"github.com/hashmap-kz/itemflow/internal/item"
	"github.com/hashmap-kz/itemflow/internal/itemgraph"
	"github.com/hashmap-kz/itemflow/internal/itemid"
	"github.com/hashmap-kz/itemflow/internal/progress"
	"github.com/hashmap-kz/itemflow/internal/resource"
	"github.com/hashmap-kz/itemflow/internal/storage"
)

// statesReadBlock deserializes a stored states map into a States[Ts]. It
// is Single-outcome: no items are streamed; the one partial it emits is
// the whole loaded file.
type statesReadBlock[Ts any] struct {
	name     string
	store    storage.Store
	path     string
	registry *storage.TypedRegistry
	// requireStored, when non-nil, is the error returned if no stored
	// states file exists — set by the read commands, left nil by Ensure
	// (whose first run legitimately has nothing stored yet).
	requireStored error
}

// NewStatesCurrentRead reads states_current into States[CurrentStored].
// requireStored selects whether an absent file is an error
// (storage.ErrStatesCurrentDiscoverRequired) or yields an empty map.
func NewStatesCurrentRead(store storage.Store, paths storage.Paths, registry *storage.TypedRegistry, requireStored bool) cmdrt.BoxedBlock {
	b := &statesReadBlock[item.CurrentStored]{
		name:     "StatesCurrentReadCmdBlock",
		store:    store,
		path:     paths.StatesCurrent(),
		registry: registry,
	}
	if requireStored {
		b.requireStored = storage.ErrStatesCurrentDiscoverRequired
	}
	return cmdrt.Box[struct{}, storage.StatesFile[item.CurrentStored], storage.StatesFile[item.CurrentStored], storage.StatesFile[item.CurrentStored]](b)
}

// NewStatesGoalRead reads states_goal into States[GoalStored].
func NewStatesGoalRead(store storage.Store, paths storage.Paths, registry *storage.TypedRegistry, requireStored bool) cmdrt.BoxedBlock {
	b := &statesReadBlock[item.GoalStored]{
		name:     "StatesGoalReadCmdBlock",
		store:    store,
		path:     paths.StatesGoal(),
		registry: registry,
	}
	if requireStored {
		b.requireStored = storage.ErrStatesGoalDiscoverRequired
	}
	return cmdrt.Box[struct{}, storage.StatesFile[item.GoalStored], storage.StatesFile[item.GoalStored], storage.StatesFile[item.GoalStored]](b)
}

func (b *statesReadBlock[Ts]) Name() string { return b.name }

func (b *statesReadBlock[Ts]) InputFetch(*cmdrt.CmdView) (struct{}, error) {
	return struct{}{}, nil
}

func (b *statesReadBlock[Ts]) InputTypeNames() []string { return nil }

func (b *statesReadBlock[Ts]) OutcomeTypeNames() []string {
	return []string{typeNameOf[item.States[Ts]]()}
}

func (b *statesReadBlock[Ts]) OutcomeAccInit(struct{}) storage.StatesFile[Ts] {
	return storage.StatesFile[Ts]{States: item.NewStates[Ts]()}
}

func (b *statesReadBlock[Ts]) OutcomeFromAcc(acc storage.StatesFile[Ts]) storage.StatesFile[Ts] {
	return acc
}

func (b *statesReadBlock[Ts]) OutcomeInsert(view *cmdrt.CmdView, out storage.StatesFile[Ts]) {
	resource.Insert(view.Resources, out.States)
	resource.Insert(view.Resources, UnknownEntries[Ts](out.Unknown))
}

func (b *statesReadBlock[Ts]) Exec(ctx context.Context, _ struct{}, view *cmdrt.CmdView, outcomesTx chan<- storage.StatesFile[Ts], _ progress.Sender) (*itemgraph.StreamOutcome[struct{}], error) {
	file, found, err := storage.LoadStates[Ts](ctx, b.store, b.path, b.registry)
	if err != nil {
		return nil, err
	}
	if !found && b.requireStored != nil {
		return nil, b.requireStored
	}
	outcomesTx <- file
	return cmdrt.SingleOutcome()
}

func (b *statesReadBlock[Ts]) OutcomeCollate(acc *storage.StatesFile[Ts], _ map[itemid.ID]error, partial storage.StatesFile[Ts]) error {
	*acc = partial
	return nil
}
