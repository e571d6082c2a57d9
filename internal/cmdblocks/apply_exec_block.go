package cmdblocks

import (
	"context"
	"errors"

	"github.com/hashmap-kz/itemflow/internal/cmdrt"
	"github.com/hashmap-kz/itemflow/internal/item"
	"github.com/hashmap-kz/itemflow/internal/itemgraph"
	"github.com/hashmap-kz/itemflow/internal/itemid"
	"github.com/hashmap-kz/itemflow/internal/itemrt"
	"github.com/hashmap-kz/itemflow/internal/progress"
	"github.com/hashmap-kz/itemflow/internal/resource"
)

// ApplyFor selects the apply direction and prepare path.
type ApplyFor int

const (
	ApplyForEnsure ApplyFor = iota
	ApplyForClean
)

func (a ApplyFor) String() string {
	if a == ApplyForClean {
		return "Clean"
	}
	return "Ensure"
}

// errAbort is the stop-signal an item branch returns when AbortOnError is
// set: the traversal stops unlocking successors, but the error itself has
// already been reported through the partials channel.
var errAbort = errors.New("cmdblocks: abort on item error")

type applyExecInput[TsTarget any] struct {
	current item.States[item.Current]
	target  item.States[TsTarget]
}

type applyExecAcc[StatesTs, TsTarget any] struct {
	previous item.States[item.Previous]
	applied  item.States[StatesTs]
	target   item.States[TsTarget]
}

type applyPartialKind int

const (
	applyPrepareFail applyPartialKind = iota
	applySuccess
	applyFail
)

type applyExecPartial struct {
	id      itemid.ID
	kind    applyPartialKind
	partial item.ApplyPartial // populated for applyPrepareFail
	outcome item.ApplyOutcome // populated for applySuccess / applyFail
	err     error             // populated for applyPrepareFail / applyFail
}

// applyExecBlock is the engine core: it streams items through the graph
// (forward for Ensure, reverse for Clean), prepares each one, consults the
// apply check, executes the apply (or its dry-run), and collates per-item
// results into previous / applied / target state maps.
type applyExecBlock[StatesTs, TsTarget any] struct {
	applyFor     ApplyFor
	dryRun       bool
	abortOnError bool
}

// NewApplyExecEnsure builds the real Ensure apply block, producing
// States[Ensured].
func NewApplyExecEnsure(abortOnError bool) cmdrt.BoxedBlock {
	return newApplyExec[item.Ensured, item.Goal](ApplyForEnsure, false, abortOnError)
}

// NewApplyExecEnsureDry builds the dry-run Ensure apply block, producing
// States[EnsuredDry].
func NewApplyExecEnsureDry(abortOnError bool) cmdrt.BoxedBlock {
	return newApplyExec[item.EnsuredDry, item.Goal](ApplyForEnsure, true, abortOnError)
}

// NewApplyExecClean builds the real Clean apply block, producing
// States[Cleaned].
func NewApplyExecClean(abortOnError bool) cmdrt.BoxedBlock {
	return newApplyExec[item.Cleaned, item.Clean](ApplyForClean, false, abortOnError)
}

// NewApplyExecCleanDry builds the dry-run Clean apply block, producing
// States[CleanedDry].
func NewApplyExecCleanDry(abortOnError bool) cmdrt.BoxedBlock {
	return newApplyExec[item.CleanedDry, item.Clean](ApplyForClean, true, abortOnError)
}

func newApplyExec[StatesTs, TsTarget any](applyFor ApplyFor, dryRun, abortOnError bool) cmdrt.BoxedBlock {
	b := &applyExecBlock[StatesTs, TsTarget]{
		applyFor:     applyFor,
		dryRun:       dryRun,
		abortOnError: abortOnError,
	}
	return cmdrt.Box[applyExecInput[TsTarget], applyExecAcc[StatesTs, TsTarget], applyExecAcc[StatesTs, TsTarget], applyExecPartial](b)
}

func (b *applyExecBlock[StatesTs, TsTarget]) Name() string {
	name := "ApplyExecCmdBlock(" + b.applyFor.String()
	if b.dryRun {
		name += ", dry"
	}
	return name + ")"
}

func (b *applyExecBlock[StatesTs, TsTarget]) InputFetch(view *cmdrt.CmdView) (applyExecInput[TsTarget], error) {
	var in applyExecInput[TsTarget]
	var err error
	if in.current, err = fetchStates[item.Current](view); err != nil {
		return in, err
	}
	if in.target, err = fetchStates[TsTarget](view); err != nil {
		return in, err
	}
	return in, nil
}

func (b *applyExecBlock[StatesTs, TsTarget]) InputTypeNames() []string {
	return []string{
		typeNameOf[item.States[item.Current]](),
		typeNameOf[item.States[TsTarget]](),
	}
}

func (b *applyExecBlock[StatesTs, TsTarget]) OutcomeTypeNames() []string {
	return []string{
		typeNameOf[item.States[item.Previous]](),
		typeNameOf[item.States[StatesTs]](),
		typeNameOf[item.States[TsTarget]](),
	}
}

// OutcomeAccInit seeds previous and the applied bucket from the discovered
// current states, so items the apply never reaches (interrupt, sibling
// abort) still report their last known state.
func (b *applyExecBlock[StatesTs, TsTarget]) OutcomeAccInit(in applyExecInput[TsTarget]) applyExecAcc[StatesTs, TsTarget] {
	return applyExecAcc[StatesTs, TsTarget]{
		previous: item.Retag[item.Current, item.Previous](in.current),
		applied:  item.Retag[item.Current, StatesTs](in.current),
		target:   in.target.Clone(),
	}
}

func (b *applyExecBlock[StatesTs, TsTarget]) OutcomeFromAcc(acc applyExecAcc[StatesTs, TsTarget]) applyExecAcc[StatesTs, TsTarget] {
	return acc
}

func (b *applyExecBlock[StatesTs, TsTarget]) OutcomeInsert(view *cmdrt.CmdView, out applyExecAcc[StatesTs, TsTarget]) {
	resource.Insert(view.Resources, out.previous)
	resource.Insert(view.Resources, out.applied)
	resource.Insert(view.Resources, out.target)
}

func (b *applyExecBlock[StatesTs, TsTarget]) Exec(ctx context.Context, in applyExecInput[TsTarget], view *cmdrt.CmdView, outcomesTx chan<- applyExecPartial, progressTx progress.Sender) (*itemgraph.StreamOutcome[struct{}], error) {
	opts := itemgraph.StreamOpts{Interrupt: view.Interrupt}
	statesCurrent := in.current

	each := func(ctx context.Context, id itemid.ID) error {
		rt := view.Flow.Items[id]

		var (
			prepared item.ApplyOutcome
			prepFail *itemrt.PrepareFailure
		)
		if b.applyFor == ApplyForEnsure {
			prepared, prepFail = rt.EnsurePrepare(ctx, progressTx, view.ParamsSpecs, view.Resources)
		} else {
			prepared, prepFail = rt.CleanPrepare(ctx, statesCurrent, progressTx, view.ParamsSpecs, view.Resources)
		}
		if prepFail != nil {
			outcomesTx <- applyExecPartial{id: id, kind: applyPrepareFail, partial: prepFail.Partial, err: prepFail.Err}
			progressTx.Send(progress.Event{Update: progress.Update{ItemID: id.String(), Kind: progress.UpdateCompleteFail, Message: prepFail.Err.Error()}})
			if b.abortOnError {
				return errAbort
			}
			return nil
		}

		if !prepared.ApplyCheck.ExecRequired {
			outcomesTx <- applyExecPartial{id: id, kind: applySuccess, outcome: prepared}
			progressTx.Send(progress.Event{Update: progress.Update{ItemID: id.String(), Kind: progress.UpdateCompleteSuccess, Message: "nothing to do!"}})
			return nil
		}

		progressTx.Send(progress.Event{Update: progress.Update{ItemID: id.String(), Kind: progress.UpdateLimit, Limit: prepared.ApplyCheck.Limit}})

		var (
			applied item.Displayable
			err     error
		)
		if b.dryRun {
			applied, err = rt.ApplyExecDry(ctx, progressTx, view.ParamsSpecs, view.Resources, prepared)
		} else {
			applied, err = rt.ApplyExec(ctx, progressTx, view.ParamsSpecs, view.Resources, prepared)
		}
		if err != nil {
			outcomesTx <- applyExecPartial{id: id, kind: applyFail, outcome: prepared, err: err}
			progressTx.Send(progress.Event{Update: progress.Update{ItemID: id.String(), Kind: progress.UpdateCompleteFail, Message: err.Error()}})
			if b.abortOnError {
				return errAbort
			}
			return nil
		}
		prepared.StateApplied = applied
		outcomesTx <- applyExecPartial{id: id, kind: applySuccess, outcome: prepared}
		progressTx.Send(progress.Event{Update: progress.Update{ItemID: id.String(), Kind: progress.UpdateCompleteSuccess}})
		return nil
	}

	var (
		so  itemgraph.StreamOutcome[struct{}]
		err error
	)
	if b.applyFor == ApplyForClean {
		so, err = view.Flow.Graph.TryForEachConcurrentRev(ctx, opts, each)
	} else {
		so, err = view.Flow.Graph.TryForEachConcurrent(ctx, opts, each)
	}
	if err != nil && !errors.Is(err, errAbort) {
		return nil, err
	}
	return cmdrt.Itemwise(so), nil
}

func (b *applyExecBlock[StatesTs, TsTarget]) OutcomeCollate(acc *applyExecAcc[StatesTs, TsTarget], errs map[itemid.ID]error, partial applyExecPartial) error {
	switch partial.kind {
	case applyPrepareFail:
		errs[partial.id] = partial.err
		if b.applyFor == ApplyForEnsure && partial.partial.StateTarget != nil {
			acc.target.Set(partial.id, partial.partial.StateTarget)
		}
	case applySuccess:
		if partial.outcome.StateApplied != nil {
			acc.applied.Set(partial.id, partial.outcome.StateApplied)
		}
		if b.applyFor == ApplyForEnsure {
			acc.target.Set(partial.id, partial.outcome.StateTarget)
		}
	case applyFail:
		errs[partial.id] = partial.err
		if partial.outcome.StateApplied != nil {
			acc.applied.Set(partial.id, partial.outcome.StateApplied)
		}
	}
	return nil
}
