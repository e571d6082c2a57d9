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

type cleanInsertionPartial struct {
	id    itemid.ID
	state item.Displayable
	err   error
}

// statesCleanInsertionBlock populates States[Clean] by invoking each
// item's StateClean. StateClean is pure, but params resolution can still
// fail per item, so the block streams items like any other.
type statesCleanInsertionBlock struct{}

// NewStatesCleanInsertion builds the clean-states block.
func NewStatesCleanInsertion() cmdrt.BoxedBlock {
	return cmdrt.Box[struct{}, item.States[item.Clean], item.States[item.Clean], cleanInsertionPartial](&statesCleanInsertionBlock{})
}

func (b *statesCleanInsertionBlock) Name() string { return "StatesCleanInsertionCmdBlock" }

func (b *statesCleanInsertionBlock) InputFetch(*cmdrt.CmdView) (struct{}, error) {
	return struct{}{}, nil
}

func (b *statesCleanInsertionBlock) InputTypeNames() []string { return nil }

func (b *statesCleanInsertionBlock) OutcomeTypeNames() []string {
	return []string{typeNameOf[item.States[item.Clean]]()}
}

func (b *statesCleanInsertionBlock) OutcomeAccInit(struct{}) item.States[item.Clean] {
	return item.NewStates[item.Clean]()
}

func (b *statesCleanInsertionBlock) OutcomeFromAcc(acc item.States[item.Clean]) item.States[item.Clean] {
	return acc
}

func (b *statesCleanInsertionBlock) OutcomeInsert(view *cmdrt.CmdView, out item.States[item.Clean]) {
	resource.Insert(view.Resources, out)
}

func (b *statesCleanInsertionBlock) Exec(ctx context.Context, _ struct{}, view *cmdrt.CmdView, outcomesTx chan<- cleanInsertionPartial, _ progress.Sender) (*itemgraph.StreamOutcome[struct{}], error) {
	opts := itemgraph.StreamOpts{Interrupt: view.Interrupt}
	so, err := view.Flow.Graph.TryForEachConcurrent(ctx, opts, func(_ context.Context, id itemid.ID) error {
		rt := view.Flow.Items[id]
		state, err := rt.StateCleanExec(view.ParamsSpecs, view.Resources)
		outcomesTx <- cleanInsertionPartial{id: id, state: state, err: err}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cmdrt.Itemwise(so), nil
}

func (b *statesCleanInsertionBlock) OutcomeCollate(acc *item.States[item.Clean], errs map[itemid.ID]error, partial cleanInsertionPartial) error {
	if partial.err != nil {
		errs[partial.id] = partial.err
		return nil
	}
	acc.Set(partial.id, partial.state)
	return nil
}
