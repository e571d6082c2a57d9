package item

// CurrentOf, GoalOf, CleanOf, and ApplyDryOf are the resource-store marker
// wrappers mentioned in the design notes. Wrapping S in a per-phase marker
// generic gives each (phase, S) pair its own distinct Go type, so one
// item's current, goal, clean and apply-dry states do not overwrite one
// another. Two items that share a state type (e.g. two shell-command items
// both using shcmd.State) share these types too; they are kept apart by
// the item id the marker is stored under.
//
// Each slot holds exactly one item's state at a time, swapped out as
// ApplyExecCmdBlock updates it so a sibling's InMemory/MappingFn param spec
// resolved afterward observes the new value. itemrt writes the wrapper into
// the Resource store with resource.InsertQualified, qualified by the
// item's id; see Wrapper.setMarker.
type (
	CurrentOf[S any]  struct{ Value S }
	GoalOf[S any]     struct{ Value S }
	CleanOf[S any]    struct{ Value S }
	ApplyDryOf[S any] struct{ Value S }
)
