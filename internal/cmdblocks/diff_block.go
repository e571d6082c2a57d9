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

type diffInput struct {
	a item.States[item.Current]
	b item.States[item.Goal]
}

type diffPartial struct {
	id   itemid.ID
	diff item.Displayable
	err  error
}

// diffBlock streams each item's StateDiffExec over a States[Current] and a
// States[Goal] map, collecting StateDiffs. Items absent from either map
// produce no diff entry — a diff between a state and nothing is not
// meaningful.
type diffBlock struct{}

// NewDiff builds the current-vs-goal diff block.
func NewDiff() cmdrt.BoxedBlock {
	return cmdrt.Box[diffInput, item.StateDiffs, item.StateDiffs, diffPartial](&diffBlock{})
}

func (b *diffBlock) Name() string { return "DiffCmdBlock" }

func (b *diffBlock) InputFetch(view *cmdrt.CmdView) (diffInput, error) {
	var in diffInput
	var err error
	if in.a, err = fetchStates[item.Current](view); err != nil {
		return in, err
	}
	if in.b, err = fetchStates[item.Goal](view); err != nil {
		return in, err
	}
	return in, nil
}

func (b *diffBlock) InputTypeNames() []string {
	return []string{
		typeNameOf[item.States[item.Current]](),
		typeNameOf[item.States[item.Goal]](),
	}
}

func (b *diffBlock) OutcomeTypeNames() []string {
	return []string{typeNameOf[item.StateDiffs]()}
}

func (b *diffBlock) OutcomeAccInit(diffInput) item.StateDiffs {
	return item.NewStateDiffs()
}

func (b *diffBlock) OutcomeFromAcc(acc item.StateDiffs) item.StateDiffs { return acc }

func (b *diffBlock) OutcomeInsert(view *cmdrt.CmdView, out item.StateDiffs) {
	resource.Insert(view.Resources, out)
}

func (b *diffBlock) Exec(ctx context.Context, in diffInput, view *cmdrt.CmdView, outcomesTx chan<- diffPartial, _ progress.Sender) (*itemgraph.StreamOutcome[struct{}], error) {
	opts := itemgraph.StreamOpts{Interrupt: view.Interrupt}
	so, err := view.Flow.Graph.TryForEachConcurrent(ctx, opts, func(_ context.Context, id itemid.ID) error {
		rt := view.Flow.Items[id]
		a, aOK := in.a.Get(id)
		bState, bOK := in.b.Get(id)
		if !aOK || !bOK {
			return nil
		}
		diff, ok, err := rt.StateDiffExec(view.ParamsSpecs, view.Resources, a, bState)
		if err != nil {
			outcomesTx <- diffPartial{id: id, err: err}
			return nil
		}
		if ok {
			outcomesTx <- diffPartial{id: id, diff: diff}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cmdrt.Itemwise(so), nil
}

func (b *diffBlock) OutcomeCollate(acc *item.StateDiffs, errs map[itemid.ID]error, partial diffPartial) error {
	if partial.err != nil {
		errs[partial.id] = partial.err
		return nil
	}
	acc.Set(partial.id, partial.diff)
	return nil
}
