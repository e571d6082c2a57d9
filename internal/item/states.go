package item

import (
	"fmt"

	"github.com/hashmap-kz/itemflow/internal/itemid"
)

// Displayable is the minimal capability a boxed state or diff value must
// have: items store arbitrary per-item types here, but the framework only
// ever needs to show them to a human or hand them back to the same item
// that produced them (type-asserted by the caller, who already knows the
// concrete type).
type Displayable interface {
	fmt.Stringer
}

// States is a map from ItemId to a boxed displayable state value,
// parameterized by a phase tag Ts. The tag has no runtime effect; it exists
// so that, for example, a block expecting States[Current] cannot be handed
// a States[Goal] without the compiler objecting.
type States[Ts any] struct {
	m map[itemid.ID]Displayable
}

// NewStates returns an empty States map.
func NewStates[Ts any]() States[Ts] {
	return States[Ts]{m: make(map[itemid.ID]Displayable)}
}

// Set stores the state for id, overwriting any previous value.
func (s States[Ts]) Set(id itemid.ID, v Displayable) {
	s.m[id] = v
}

// Get returns the boxed state for id, if present.
func (s States[Ts]) Get(id itemid.ID) (Displayable, bool) {
	v, ok := s.m[id]
	return v, ok
}

// Delete removes id from the map, if present.
func (s States[Ts]) Delete(id itemid.ID) {
	delete(s.m, id)
}

// Len returns the number of entries.
func (s States[Ts]) Len() int { return len(s.m) }

// IDs returns the set of item ids with an entry, in no particular order.
func (s States[Ts]) IDs() []itemid.ID {
	ids := make([]itemid.ID, 0, len(s.m))
	for id := range s.m {
		ids = append(ids, id)
	}
	return ids
}

// Range calls fn for every entry. Iteration order is unspecified.
func (s States[Ts]) Range(fn func(id itemid.ID, v Displayable)) {
	for id, v := range s.m {
		fn(id, v)
	}
}

// Clone returns a shallow copy: a new map with the same (id, value) pairs.
func (s States[Ts]) Clone() States[Ts] {
	out := NewStates[Ts]()
	for id, v := range s.m {
		out.m[id] = v
	}
	return out
}

// Retag copies the contents of s into a States map with a different phase
// tag. This is the Go stand-in for the source's habit of re-tagging a
// States collection as it crosses a phase boundary (e.g. a freshly
// discovered States[Current] becomes the States[Previous] seed for an
// apply block) — purely a type-level move, no transformation of values.
func Retag[From, To any](s States[From]) States[To] {
	out := NewStates[To]()
	for id, v := range s.m {
		out.m[id] = v
	}
	return out
}

// GetAs type-asserts the boxed state stored for id to S, for callers that
// know (because they own the item) what concrete type was stored.
func GetAs[S Displayable, Ts any](s States[Ts], id itemid.ID) (S, bool) {
	var zero S
	v, ok := s.Get(id)
	if !ok {
		return zero, false
	}
	sv, ok := v.(S)
	return sv, ok
}

// StateDiffs is a map from ItemId to a boxed diff value. Diffs are not
// phase-tagged: a diff is always "between two states", not itself a phase.
type StateDiffs struct {
	m map[itemid.ID]Displayable
}

// NewStateDiffs returns an empty StateDiffs map.
func NewStateDiffs() StateDiffs {
	return StateDiffs{m: make(map[itemid.ID]Displayable)}
}

func (d StateDiffs) Set(id itemid.ID, v Displayable) { d.m[id] = v }

func (d StateDiffs) Get(id itemid.ID) (Displayable, bool) {
	v, ok := d.m[id]
	return v, ok
}

func (d StateDiffs) Len() int { return len(d.m) }

func (d StateDiffs) Range(fn func(id itemid.ID, v Displayable)) {
	for id, v := range d.m {
		fn(id, v)
	}
}

// GetDiffAs type-asserts the boxed diff stored for id to D.
func GetDiffAs[D Displayable](d StateDiffs, id itemid.ID) (D, bool) {
	var zero D
	v, ok := d.Get(id)
	if !ok {
		return zero, false
	}
	dv, ok := v.(D)
	return dv, ok
}
