package cmdblocks

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashmap-kz/itemflow/internal/cmdrt"
	"github.com/hashmap-kz/itemflow/internal/item"
	"github.com/hashmap-kz/itemflow/internal/itemgraph"
	"github.com/hashmap-kz/itemflow/internal/itemid"
	"github.com/hashmap-kz/itemflow/internal/progress"
)

// SyncKind discriminates which stored states map drifted.
type SyncKind int

const (
	StatesCurrentOutOfSync SyncKind = iota
	StatesGoalOutOfSync
)

func (k SyncKind) String() string {
	if k == StatesGoalOutOfSync {
		return "StatesGoalOutOfSync"
	}
	return "StatesCurrentOutOfSync"
}

// ApplyCmdError reports drift between a stored states map and freshly
// discovered states. It aborts the command before any apply runs.
type ApplyCmdError struct {
	Kind      SyncKind
	OutOfSync []itemid.ID
}

func (e *ApplyCmdError) Error() string {
	return fmt.Sprintf("apply: %s: items out of sync with stored states: %v", e.Kind, e.OutOfSync)
}

// SyncVariant selects which stored/discovered pairs a sync check compares.
type SyncVariant int

const (
	SyncCurrent SyncVariant = 1 << iota
	SyncGoal

	SyncBoth = SyncCurrent | SyncGoal
)

func (v SyncVariant) String() string {
	switch v {
	case SyncCurrent:
		return "current"
	case SyncGoal:
		return "goal"
	case SyncBoth:
		return "both"
	default:
		return "unknown"
	}
}

type syncCheckInput struct {
	currentStored item.States[item.CurrentStored]
	current       item.States[item.Current]
	goalStored    item.States[item.GoalStored]
	goal          item.States[item.Goal]
}

// applyStateSyncCheckBlock compares a stored states map with a freshly
// discovered one, item by item: both absent is tolerated; one side absent
// is out of sync; both present are compared with the item's semantic
// StateEq. Any mismatch aborts the command with an ApplyCmdError.
type applyStateSyncCheckBlock struct {
	variant SyncVariant
}

// NewApplyStateSyncCheck builds a sync check block for the given variant.
func NewApplyStateSyncCheck(variant SyncVariant) cmdrt.BoxedBlock {
	return cmdrt.Box[syncCheckInput, struct{}, struct{}, struct{}](&applyStateSyncCheckBlock{variant: variant})
}

func (b *applyStateSyncCheckBlock) Name() string {
	return "ApplyStateSyncCheckCmdBlock(" + b.variant.String() + ")"
}

func (b *applyStateSyncCheckBlock) InputFetch(view *cmdrt.CmdView) (syncCheckInput, error) {
	var in syncCheckInput
	var err error
	if b.variant&SyncCurrent != 0 {
		if in.currentStored, err = fetchStates[item.CurrentStored](view); err != nil {
			return in, err
		}
		if in.current, err = fetchStates[item.Current](view); err != nil {
			return in, err
		}
	}
	if b.variant&SyncGoal != 0 {
		if in.goalStored, err = fetchStates[item.GoalStored](view); err != nil {
			return in, err
		}
		if in.goal, err = fetchStates[item.Goal](view); err != nil {
			return in, err
		}
	}
	return in, nil
}

func (b *applyStateSyncCheckBlock) InputTypeNames() []string {
	var names []string
	if b.variant&SyncCurrent != 0 {
		names = append(names,
			typeNameOf[item.States[item.CurrentStored]](),
			typeNameOf[item.States[item.Current]](),
		)
	}
	if b.variant&SyncGoal != 0 {
		names = append(names,
			typeNameOf[item.States[item.GoalStored]](),
			typeNameOf[item.States[item.Goal]](),
		)
	}
	return names
}

func (b *applyStateSyncCheckBlock) OutcomeTypeNames() []string { return nil }

func (b *applyStateSyncCheckBlock) OutcomeAccInit(syncCheckInput) struct{} { return struct{}{} }

func (b *applyStateSyncCheckBlock) OutcomeFromAcc(struct{}) struct{} { return struct{}{} }

func (b *applyStateSyncCheckBlock) OutcomeInsert(*cmdrt.CmdView, struct{}) {}

func (b *applyStateSyncCheckBlock) Exec(_ context.Context, in syncCheckInput, view *cmdrt.CmdView, _ chan<- struct{}, _ progress.Sender) (*itemgraph.StreamOutcome[struct{}], error) {
	if b.variant&SyncCurrent != 0 {
		stored := item.Retag[item.CurrentStored, item.Current](in.currentStored)
		if outOfSync, err := compareStates(view, stored, in.current); err != nil {
			return nil, err
		} else if len(outOfSync) > 0 {
			return nil, &ApplyCmdError{Kind: StatesCurrentOutOfSync, OutOfSync: outOfSync}
		}
	}
	if b.variant&SyncGoal != 0 {
		stored := item.Retag[item.GoalStored, item.Goal](in.goalStored)
		if outOfSync, err := compareStates(view, stored, in.goal); err != nil {
			return nil, err
		} else if len(outOfSync) > 0 {
			return nil, &ApplyCmdError{Kind: StatesGoalOutOfSync, OutOfSync: outOfSync}
		}
	}
	return cmdrt.SingleOutcome()
}

func (b *applyStateSyncCheckBlock) OutcomeCollate(*struct{}, map[itemid.ID]error, struct{}) error {
	return nil
}

// compareStates walks every item in the flow (not just the ids present in
// either map, so an item present on one side only is still caught) and
// returns the ids whose stored and discovered states disagree.
func compareStates[Ts any](view *cmdrt.CmdView, stored, discovered item.States[Ts]) ([]itemid.ID, error) {
	var outOfSync []itemid.ID
	for id, rt := range view.Flow.Items {
		s, storedOK := stored.Get(id)
		d, discoveredOK := discovered.Get(id)
		switch {
		case !storedOK && !discoveredOK:
			continue
		case storedOK != discoveredOK:
			outOfSync = append(outOfSync, id)
		default:
			eq, err := rt.StateEqErased(s, d)
			if err != nil {
				return nil, err
			}
			if !eq {
				outOfSync = append(outOfSync, id)
			}
		}
	}
	sort.Slice(outOfSync, func(i, j int) bool { return outOfSync[i] < outOfSync[j] })
	return outOfSync, nil
}
