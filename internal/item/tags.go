// Package item defines the lifecycle contract an item author implements
// (discover current, discover goal, diff, check, apply), the type-state
// tags that keep differently-phased state collections from being confused
// at API boundaries, and the records the apply engine assembles while
// preparing and executing each item.
package item

// Phase tags. Each is an uninhabited marker type used only as a type
// parameter — it carries no fields and is never instantiated. Go generics
// give the same "distinguish Current from Goal at compile time without a
// runtime representation" guarantee the source gets from Rust phantom
// types; nothing here costs a byte at runtime.
type (
	// Current tags states freshly discovered from the managed system.
	Current struct{}
	// CurrentStored tags a current-state map read back from storage.
	CurrentStored struct{}
	// Goal tags states representing the desired end state.
	Goal struct{}
	// GoalStored tags a goal-state map read back from storage.
	GoalStored struct{}
	// Previous tags the states captured immediately before an apply ran,
	// seeded from the discovered Current states so a partially-applied run still has a
	// baseline to report against.
	Previous struct{}
	// Clean tags states representing "does not exist".
	Clean struct{}
	// Cleaned tags states resulting from a real CleanCmd execution.
	Cleaned struct{}
	// CleanedDry tags states resulting from a dry-run CleanCmd execution.
	CleanedDry struct{}
	// Ensured tags states resulting from a real EnsureCmd execution.
	Ensured struct{}
	// EnsuredDry tags states resulting from a dry-run EnsureCmd execution.
	EnsuredDry struct{}
)
