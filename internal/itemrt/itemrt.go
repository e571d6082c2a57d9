// Package itemrt type-erases the Item contract so heterogeneous items can
// be stored and driven uniformly by the command execution engine. A
// Wrapper[P, S, D] knows the concrete params, state, and diff types of the
// item it wraps; the RT interface it satisfies only speaks in boxed
// Displayable values, which is all a CmdBlock streaming many unrelated
// items through a graph ever needs.
//
// Beyond plain erasure, this package composes the higher-level prepare
// operations the apply engine runs per item: EnsurePrepare and CleanPrepare
// assemble an ApplyOutcome (discover current, discover target, diff,
// check), and ApplyExec / ApplyExecDry dispatch the actual convergence and
// refresh the per-item phase marker resources so that successor items
// resolving their params via InMemory or MappingFn specs observe the
// post-apply value.
package itemrt

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"sigs.k8s.io/yaml"

	"github.com/hashmap-kz/itemflow/internal/item"
	"github.com/hashmap-kz/itemflow/internal/itemid"
	"github.com/hashmap-kz/itemflow/internal/paramspec"
	"github.com/hashmap-kz/itemflow/internal/progress"
	"github.com/hashmap-kz/itemflow/internal/resource"
)

// ErrDiffNotMeaningful is recorded as a prepare failure when an item's
// StateDiff reports that no diff can be computed between the discovered
// states (e.g. a predecessor is absent).
var ErrDiffNotMeaningful = errors.New("itemrt: state diff not meaningful for discovered states")

// ErrStateNotDiscoverable is recorded as a prepare failure when an item's
// TryStateCurrent (or TryStateGoal) reports the state is not discoverable
// yet — a failure for Ensure, where the current state must be knowable
// before converging toward the goal.
var ErrStateNotDiscoverable = errors.New("itemrt: state not discoverable")

// PrepareFailure carries the error that interrupted EnsurePrepare or
// CleanPrepare alongside whatever partial per-item record had been
// assembled by the time it struck.
type PrepareFailure struct {
	Partial item.ApplyPartial
	Err     error
}

func (p *PrepareFailure) Error() string { return p.Err.Error() }

func (p *PrepareFailure) Unwrap() error { return p.Err }

// RT is the type-erased item runtime. Every method mirrors one of the
// Item contract's lifecycle functions (or a composition of several), with
// State and StateDiff boxed as opaque Displayable values.
type RT interface {
	ID() itemid.ID

	// Setup registers the item's required resources into the flow-wide
	// store, so dependent items' params can resolve.
	Setup(r *resource.Store[resource.Empty]) error

	// StateCleanExec resolves params in Clean mode and invokes StateClean.
	StateCleanExec(specs paramspec.Specs, r *resource.Store[resource.SetUp]) (item.Displayable, error)

	// TryStateCurrentExec resolves params in Current mode and invokes
	// TryStateCurrent. A (nil, nil) return means the state is not
	// discoverable yet (a predecessor has not been created). On success
	// the item's CurrentOf marker resource is refreshed.
	TryStateCurrentExec(ctx context.Context, px progress.Sender, specs paramspec.Specs, r *resource.Store[resource.SetUp]) (item.Displayable, error)

	// TryStateGoalExec mirrors TryStateCurrentExec for the goal state and
	// the GoalOf marker.
	TryStateGoalExec(ctx context.Context, px progress.Sender, specs paramspec.Specs, r *resource.Store[resource.SetUp]) (item.Displayable, error)

	// StateDiffExec resolves params and invokes StateDiff over two boxed
	// states previously produced by this same item. ok=false means the
	// diff is not meaningful.
	StateDiffExec(specs paramspec.Specs, r *resource.Store[resource.SetUp], a, b item.Displayable) (item.Displayable, bool, error)

	// StateEqErased applies the item-defined semantic equality to two
	// boxed states previously produced by this same item.
	StateEqErased(stored, discovered item.Displayable) (bool, error)

	// EnsurePrepare discovers current and goal states, computes the diff
	// and the apply check, and assembles the full per-item apply record.
	// The progress emitter is reset between the current and goal
	// discovery — each lifecycle call receives a fresh FnCtx.
	EnsurePrepare(ctx context.Context, px progress.Sender, specs paramspec.Specs, r *resource.Store[resource.SetUp]) (item.ApplyOutcome, *PrepareFailure)

	// CleanPrepare is EnsurePrepare with the target switched to
	// StateClean, and the current state taken from the pre-discovered
	// statesCurrent map (falling back to StateClean when the item has no
	// discovered state — e.g. its TryStateCurrent returned nil).
	CleanPrepare(ctx context.Context, statesCurrent item.States[item.Current], px progress.Sender, specs paramspec.Specs, r *resource.Store[resource.SetUp]) (item.ApplyOutcome, *PrepareFailure)

	// ApplyExec dispatches Item.Apply using a prepared record, then
	// refreshes the CurrentOf marker resource with the applied state.
	// Only call when prepared.ApplyCheck.ExecRequired is true.
	ApplyExec(ctx context.Context, px progress.Sender, specs paramspec.Specs, r *resource.Store[resource.SetUp], prepared item.ApplyOutcome) (item.Displayable, error)

	// ApplyExecDry dispatches Item.ApplyDry, refreshing the ApplyDryOf
	// marker instead of CurrentOf.
	ApplyExecDry(ctx context.Context, px progress.Sender, specs paramspec.Specs, r *resource.Store[resource.SetUp], prepared item.ApplyOutcome) (item.Displayable, error)

	// UnmarshalState parses a serialized state back into this item's
	// concrete state type — the downcast-by-registered-type hook the
	// storage layer's typed registry is built from.
	UnmarshalState(data []byte) (item.Displayable, error)

	// StateTypeName reports the concrete state type's name, for
	// diagnostics and the params-specs record.
	StateTypeName() string
}

// Wrapper adapts a typed Item[P, S, D] to the RT interface.
type Wrapper[P any, S item.Displayable, D item.Displayable] struct {
	inner item.Item[P, S, D]
}

// Wrap boxes a typed item behind RT.
func Wrap[P any, S item.Displayable, D item.Displayable](it item.Item[P, S, D]) RT {
	return &Wrapper[P, S, D]{inner: it}
}

func (w *Wrapper[P, S, D]) ID() itemid.ID { return w.inner.ID() }

func (w *Wrapper[P, S, D]) Setup(r *resource.Store[resource.Empty]) error {
	return w.inner.Setup(r)
}

// params resolves this item's P from the flow-wide specs map, in the given
// resolution mode.
func (w *Wrapper[P, S, D]) params(specs paramspec.Specs, mode paramspec.ResolutionMode, r resource.Reader) (P, error) {
	var zero P
	anySpec, ok := specs[w.inner.ID()]
	if !ok {
		return zero, fmt.Errorf("itemrt: no params spec registered for item %q", w.inner.ID())
	}
	spec, ok := paramspec.AssertSpec[P](anySpec)
	if !ok {
		return zero, fmt.Errorf("itemrt: params spec for item %q is not a %T spec", w.inner.ID(), zero)
	}
	return paramspec.Resolve(spec, mode, r)
}

func (w *Wrapper[P, S, D]) fnCtx(px progress.Sender) item.FnCtx {
	return item.FnCtx{ItemID: w.inner.ID(), Progress: px}
}

func (w *Wrapper[P, S, D]) StateCleanExec(specs paramspec.Specs, r *resource.Store[resource.SetUp]) (item.Displayable, error) {
	p, err := w.params(specs, paramspec.ModeClean, r)
	if err != nil {
		return nil, err
	}
	s, err := w.inner.StateClean(p, r)
	if err != nil {
		return nil, err
	}
	w.setMarker(r, item.CleanOf[S]{Value: s})
	return s, nil
}

func (w *Wrapper[P, S, D]) TryStateCurrentExec(ctx context.Context, px progress.Sender, specs paramspec.Specs, r *resource.Store[resource.SetUp]) (item.Displayable, error) {
	p, err := w.params(specs, paramspec.ModeCurrent, r)
	if err != nil {
		return nil, err
	}
	s, err := w.inner.TryStateCurrent(ctx, w.fnCtx(px), p, r)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, nil
	}
	w.setMarker(r, item.CurrentOf[S]{Value: *s})
	return *s, nil
}

func (w *Wrapper[P, S, D]) TryStateGoalExec(ctx context.Context, px progress.Sender, specs paramspec.Specs, r *resource.Store[resource.SetUp]) (item.Displayable, error) {
	p, err := w.params(specs, paramspec.ModeGoal, r)
	if err != nil {
		return nil, err
	}
	s, err := w.inner.TryStateGoal(ctx, w.fnCtx(px), p, r)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, nil
	}
	w.setMarker(r, item.GoalOf[S]{Value: *s})
	return *s, nil
}

func (w *Wrapper[P, S, D]) StateDiffExec(specs paramspec.Specs, r *resource.Store[resource.SetUp], a, b item.Displayable) (item.Displayable, bool, error) {
	p, err := w.params(specs, paramspec.ModeGoal, r)
	if err != nil {
		return nil, false, err
	}
	sa, err := w.downcast(a)
	if err != nil {
		return nil, false, err
	}
	sb, err := w.downcast(b)
	if err != nil {
		return nil, false, err
	}
	d, ok, err := w.inner.StateDiff(p, r, sa, sb)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return d, true, nil
}

func (w *Wrapper[P, S, D]) StateEqErased(stored, discovered item.Displayable) (bool, error) {
	ss, err := w.downcast(stored)
	if err != nil {
		return false, err
	}
	sd, err := w.downcast(discovered)
	if err != nil {
		return false, err
	}
	return w.inner.StateEq(ss, sd), nil
}

func (w *Wrapper[P, S, D]) EnsurePrepare(ctx context.Context, px progress.Sender, specs paramspec.Specs, r *resource.Store[resource.SetUp]) (item.ApplyOutcome, *PrepareFailure) {
	var partial item.ApplyPartial

	current, err := w.TryStateCurrentExec(ctx, px, specs, r)
	if err != nil {
		return item.ApplyOutcome{}, &PrepareFailure{Partial: partial, Err: err}
	}
	if current == nil {
		return item.ApplyOutcome{}, &PrepareFailure{Partial: partial, Err: ErrStateNotDiscoverable}
	}
	partial.StateCurrent = current

	goal, err := w.TryStateGoalExec(ctx, px, specs, r)
	if err != nil {
		return item.ApplyOutcome{}, &PrepareFailure{Partial: partial, Err: err}
	}
	if goal == nil {
		return item.ApplyOutcome{}, &PrepareFailure{Partial: partial, Err: ErrStateNotDiscoverable}
	}
	partial.StateTarget = goal

	return w.finishPrepare(specs, r, partial, current, goal)
}

func (w *Wrapper[P, S, D]) CleanPrepare(ctx context.Context, statesCurrent item.States[item.Current], px progress.Sender, specs paramspec.Specs, r *resource.Store[resource.SetUp]) (item.ApplyOutcome, *PrepareFailure) {
	var partial item.ApplyPartial

	clean, err := w.StateCleanExec(specs, r)
	if err != nil {
		return item.ApplyOutcome{}, &PrepareFailure{Partial: partial, Err: err}
	}

	current, ok := statesCurrent.Get(w.inner.ID())
	if !ok {
		// The item had no discoverable current state when states were
		// discovered (TryStateCurrent returned nil); treat it as already
		// clean so Clean is a no-op for it.
		current = clean
	}
	partial.StateCurrent = current
	partial.StateTarget = clean

	return w.finishPrepare(specs, r, partial, current, clean)
}

// finishPrepare is the shared tail of both prepare paths: diff the current
// and target states, run the apply check, and assemble the full record.
func (w *Wrapper[P, S, D]) finishPrepare(specs paramspec.Specs, r *resource.Store[resource.SetUp], partial item.ApplyPartial, current, target item.Displayable) (item.ApplyOutcome, *PrepareFailure) {
	diff, ok, err := w.StateDiffExec(specs, r, current, target)
	if err != nil {
		return item.ApplyOutcome{}, &PrepareFailure{Partial: partial, Err: err}
	}
	if !ok {
		return item.ApplyOutcome{}, &PrepareFailure{Partial: partial, Err: ErrDiffNotMeaningful}
	}
	partial.StateDiff = diff

	p, err := w.params(specs, paramspec.ModeGoal, r)
	if err != nil {
		return item.ApplyOutcome{}, &PrepareFailure{Partial: partial, Err: err}
	}
	sc, err := w.downcast(current)
	if err != nil {
		return item.ApplyOutcome{}, &PrepareFailure{Partial: partial, Err: err}
	}
	st, err := w.downcast(target)
	if err != nil {
		return item.ApplyOutcome{}, &PrepareFailure{Partial: partial, Err: err}
	}
	sd, ok := diff.(D)
	if !ok {
		return item.ApplyOutcome{}, &PrepareFailure{Partial: partial, Err: fmt.Errorf("itemrt: diff for item %q has unexpected concrete type %T", w.inner.ID(), diff)}
	}

	check, err := w.inner.ApplyCheck(p, r, sc, st, sd)
	if err != nil {
		return item.ApplyOutcome{}, &PrepareFailure{Partial: partial, Err: err}
	}
	partial.ApplyCheck = &check

	outcome := item.ApplyOutcome{
		StateCurrent: current,
		StateTarget:  target,
		StateDiff:    diff,
		ApplyCheck:   check,
	}
	if !check.ExecRequired {
		outcome.StateApplied = current
	}
	return outcome, nil
}

func (w *Wrapper[P, S, D]) ApplyExec(ctx context.Context, px progress.Sender, specs paramspec.Specs, r *resource.Store[resource.SetUp], prepared item.ApplyOutcome) (item.Displayable, error) {
	return w.applyExec(ctx, px, specs, r, prepared, false)
}

func (w *Wrapper[P, S, D]) ApplyExecDry(ctx context.Context, px progress.Sender, specs paramspec.Specs, r *resource.Store[resource.SetUp], prepared item.ApplyOutcome) (item.Displayable, error) {
	return w.applyExec(ctx, px, specs, r, prepared, true)
}

func (w *Wrapper[P, S, D]) applyExec(ctx context.Context, px progress.Sender, specs paramspec.Specs, r *resource.Store[resource.SetUp], prepared item.ApplyOutcome, dry bool) (item.Displayable, error) {
	mode := paramspec.ModeGoal
	if dry {
		mode = paramspec.ModeApplyDry
	}
	p, err := w.params(specs, mode, r)
	if err != nil {
		return nil, err
	}
	current, err := w.downcast(prepared.StateCurrent)
	if err != nil {
		return nil, err
	}
	target, err := w.downcast(prepared.StateTarget)
	if err != nil {
		return nil, err
	}
	diff, ok := prepared.StateDiff.(D)
	if !ok {
		return nil, fmt.Errorf("itemrt: diff for item %q has unexpected concrete type %T", w.inner.ID(), prepared.StateDiff)
	}

	var applied S
	if dry {
		applied, err = w.inner.ApplyDry(ctx, w.fnCtx(px), p, r, current, target, diff)
	} else {
		applied, err = w.inner.Apply(ctx, w.fnCtx(px), p, r, current, target, diff)
	}
	if err != nil {
		return nil, err
	}

	// Refresh the phase marker before returning, so any successor item
	// whose future is polled after ours completes observes the applied
	// state through its InMemory/MappingFn spec.
	if dry {
		w.setMarker(r, item.ApplyDryOf[S]{Value: applied})
	} else {
		w.setMarker(r, item.CurrentOf[S]{Value: applied})
	}
	return applied, nil
}

func (w *Wrapper[P, S, D]) UnmarshalState(data []byte) (item.Displayable, error) {
	var s S
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return s, nil
}

func (w *Wrapper[P, S, D]) StateTypeName() string {
	var zero S
	return reflect.TypeOf(&zero).Elem().String()
}

// setMarker writes a phase-marker wrapper into the store under this item's
// id-qualified slot.
func (w *Wrapper[P, S, D]) setMarker(r *resource.Store[resource.SetUp], marker any) {
	resource.InsertQualified(r, reflect.TypeOf(marker), w.inner.ID().String(), marker)
}

func (w *Wrapper[P, S, D]) downcast(v item.Displayable) (S, error) {
	s, ok := v.(S)
	if !ok {
		var zero S
		return zero, fmt.Errorf("itemrt: state for item %q has unexpected concrete type %T", w.inner.ID(), v)
	}
	return s, nil
}
