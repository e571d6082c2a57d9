package cmds

import (
	"fmt"

	"github.com/hashmap-kz/itemflow/internal/item"
	"github.com/hashmap-kz/itemflow/internal/resource"
)

// retype narrows a CmdOutcome[any] to a concrete value type, preserving
// the outcome kind, per-item errors, and stream tag. A Complete outcome
// whose value is not a V is a wiring bug in the command that built the
// execution, surfaced as an ExecutionError rather than a panic.
func retype[V any](o item.CmdOutcome[any]) item.CmdOutcome[V] {
	out := item.CmdOutcome[V]{
		Kind:             o.Kind,
		StreamOutcomeTag: o.StreamOutcomeTag,
		Errors:           o.Errors,
		ExecutionError:   o.ExecutionError,
	}
	if o.Kind == item.OutcomeComplete && o.Value != nil {
		v, ok := o.Value.(V)
		if !ok {
			var zero V
			return item.ExecutionErrorOutcome[V](fmt.Errorf("cmds: execution outcome is %T, want %T", o.Value, zero))
		}
		out.Value = v
	}
	return out
}

// fetchFromStore extracts a T from the resource store for execution
// outcome closures.
func fetchFromStore[T any](r *resource.Store[resource.SetUp]) (T, error) {
	ref, err := resource.Borrow[T](r)
	if err != nil {
		var zero T
		return zero, err
	}
	defer ref.Release()
	return ref.Get(), nil
}
