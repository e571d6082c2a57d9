package cmdblocks

import (
	"context"
	"encoding/json"

	"github.com/hashmap-kz/itemflow/internal/cmdrt"
	"github.com/hashmap-kz/itemflow/internal/item"
	"github.com/hashmap-kz/itemflow/internal/itemgraph"
	"github.com/hashmap-kz/itemflow/internal/itemid"
	"github.com/hashmap-kz/itemflow/internal/progress"
	"github.com/hashmap-kz/itemflow/internal/resource"
	"github.com/hashmap-kz/itemflow/internal/storage"
)

// statesSerializeBlock writes a States[Ts] map from the Resource store to
// storage. Unknown entries loaded earlier under the paired stored tag are
// written back unchanged, so a flow revision that knows fewer items than
// the one that produced the file does not silently shed state.
type statesSerializeBlock[Ts, TsStored any] struct {
	name  string
	store storage.Store
	path  string
}

type serializeInput[Ts any] struct {
	states  item.States[Ts]
	unknown map[string]json.RawMessage
}

// NewStatesCurrentSerialize persists a freshly produced States[Ts] as the
// flow's current states. Ts varies because different commands produce the
// post-apply current states under different tags (Current after discover,
// Ensured after ensure, Cleaned after clean).
func NewStatesCurrentSerialize[Ts any](store storage.Store, paths storage.Paths) cmdrt.BoxedBlock {
	b := &statesSerializeBlock[Ts, item.CurrentStored]{
		name:  "StatesCurrentSerializeCmdBlock",
		store: store,
		path:  paths.StatesCurrent(),
	}
	return cmdrt.Box[serializeInput[Ts], struct{}, struct{}, struct{}](b)
}

// NewStatesGoalSerialize persists a States[Goal] as the flow's goal
// states.
func NewStatesGoalSerialize(store storage.Store, paths storage.Paths) cmdrt.BoxedBlock {
	b := &statesSerializeBlock[item.Goal, item.GoalStored]{
		name:  "StatesGoalSerializeCmdBlock",
		store: store,
		path:  paths.StatesGoal(),
	}
	return cmdrt.Box[serializeInput[item.Goal], struct{}, struct{}, struct{}](b)
}

func (b *statesSerializeBlock[Ts, TsStored]) Name() string { return b.name }

func (b *statesSerializeBlock[Ts, TsStored]) InputFetch(view *cmdrt.CmdView) (serializeInput[Ts], error) {
	var in serializeInput[Ts]
	var err error
	if in.states, err = fetchStates[Ts](view); err != nil {
		return in, err
	}
	// Unknown entries are optional: only present when a read block ran
	// earlier in the same execution.
	if ref, err := resource.Borrow[UnknownEntries[TsStored]](view.Resources); err == nil {
		in.unknown = map[string]json.RawMessage(ref.Get())
		ref.Release()
	}
	return in, nil
}

func (b *statesSerializeBlock[Ts, TsStored]) InputTypeNames() []string {
	return []string{typeNameOf[item.States[Ts]]()}
}

func (b *statesSerializeBlock[Ts, TsStored]) OutcomeTypeNames() []string { return nil }

func (b *statesSerializeBlock[Ts, TsStored]) OutcomeAccInit(serializeInput[Ts]) struct{} {
	return struct{}{}
}

func (b *statesSerializeBlock[Ts, TsStored]) OutcomeFromAcc(struct{}) struct{} { return struct{}{} }

func (b *statesSerializeBlock[Ts, TsStored]) OutcomeInsert(*cmdrt.CmdView, struct{}) {}

func (b *statesSerializeBlock[Ts, TsStored]) Exec(ctx context.Context, in serializeInput[Ts], _ *cmdrt.CmdView, _ chan<- struct{}, _ progress.Sender) (*itemgraph.StreamOutcome[struct{}], error) {
	if err := storage.SaveStates(ctx, b.store, b.path, in.states, in.unknown); err != nil {
		return nil, err
	}
	return cmdrt.SingleOutcome()
}

func (b *statesSerializeBlock[Ts, TsStored]) OutcomeCollate(*struct{}, map[itemid.ID]error, struct{}) error {
	return nil
}
