package item

import (
	"context"

	"github.com/hashmap-kz/itemflow/internal/itemid"
	"github.com/hashmap-kz/itemflow/internal/resource"
)

// Item is the contract an item author implements: a managed unit with a
// params type P, a state type S, a diff type D, discoverable current and
// goal states, a pure diff and apply-check, and an apply that converges
// current toward target.
//
// Contract rules (enforced by tests, not the type system — see package
// itemrt's test suite and §8 of the design notes):
//
//  1. Deterministic: re-running StateCurrent after Apply returns must
//     return the post-apply state.
//  2. Idempotent apply: running Apply twice without external change must be
//     a no-op — the second ApplyCheck must report ExecNotRequired.
//  3. Purity of StateClean, StateDiff, ApplyCheck: no I/O.
//  4. Apply is only called if ApplyCheck reported ExecRequired.
type Item[P any, S Displayable, D Displayable] interface {
	// ID returns this item's identifier within its flow.
	ID() itemid.ID

	// Setup registers any resources this item's params (or a dependent
	// item's params) will need to resolve, into the flow-wide Resource
	// store. Called once per process, before any command runs.
	Setup(r *resource.Store[resource.Empty]) error

	// StateClean returns the state representing "does not exist".
	StateClean(p P, r resource.Reader) (S, error)

	// TryStateCurrent discovers the current state, returning nil if a
	// predecessor this item depends on has not been created yet (so the
	// current state isn't meaningful to ask for).
	TryStateCurrent(ctx context.Context, fc FnCtx, p P, r resource.Reader) (*S, error)

	// StateCurrent discovers the current state, erroring if it cannot be
	// determined (as opposed to TryStateCurrent's "not applicable yet").
	StateCurrent(ctx context.Context, fc FnCtx, p P, r resource.Reader) (S, error)

	// TryStateGoal and StateGoal mirror TryStateCurrent/StateCurrent for
	// the desired end state.
	TryStateGoal(ctx context.Context, fc FnCtx, p P, r resource.Reader) (*S, error)
	StateGoal(ctx context.Context, fc FnCtx, p P, r resource.Reader) (S, error)

	// StateDiff computes the difference between two states of this item,
	// or returns ok=false when a diff isn't meaningful (e.g. a predecessor
	// is absent).
	StateDiff(p P, r resource.Reader, a, b S) (d D, ok bool, err error)

	// ApplyCheck decides whether Apply needs to run.
	ApplyCheck(p P, r resource.Reader, current, target S, diff D) (ApplyCheck, error)

	// Apply converges current toward target, returning the resulting
	// state. Only called when the preceding ApplyCheck reported
	// ExecRequired.
	Apply(ctx context.Context, fc FnCtx, p P, r resource.Reader, current, target S, diff D) (S, error)

	// ApplyDry simulates Apply without making any real change, returning
	// the state the real Apply would have produced.
	ApplyDry(ctx context.Context, fc FnCtx, p P, r resource.Reader, current, target S, diff D) (S, error)

	// StateEq is the item-defined semantic equality used by
	// ApplyStateSyncCheckCmdBlock to compare a stored state against a
	// freshly discovered one. The core does not enforce that this agrees
	// with what StateDiff would classify as ExecNotRequired — flows that
	// conflate the two have historically produced false out-of-sync
	// errors (see design notes).
	StateEq(stored, discovered S) bool
}
