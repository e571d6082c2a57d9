package paramspec

import "github.com/hashmap-kz/itemflow/internal/itemid"

// AnySpec is a Spec[P] for some P the holder doesn't statically know;
// callers that do know P type-assert it back via AssertSpec.
type AnySpec any

// AssertSpec recovers a Spec[P] from an AnySpec, for the one caller (the
// item whose params type P this is) who knows what P to ask for.
func AssertSpec[P any](a AnySpec) (Spec[P], bool) {
	s, ok := a.(Spec[P])
	return s, ok
}

// Specs is the flow-wide map of each item's params spec, keyed by item id.
type Specs map[itemid.ID]AnySpec

// Mismatch categorizes the ways a flow's current Specs can disagree with
// the specs recorded on disk from a previous run, each addressing one
// failure mode for evolving flows across runs: an item added without a
// spec provided, an id renamed (present on disk but not in the current
// flow, or vice versa), a MappingFn param whose backing resource was
// removed, and so on.
type Mismatch struct {
	// ItemIDsWithNoParamsSpecs are ids present in the current flow that
	// have no entry in the provided Specs map at all.
	ItemIDsWithNoParamsSpecs []itemid.ID
	// ParamsSpecsProvidedMismatches are ids whose provided spec's
	// registered type name disagrees with the stored spec's (a renamed
	// or retyped params struct).
	ParamsSpecsProvidedMismatches []itemid.ID
	// ParamsSpecsStoredMismatches are ids present only in the stored map
	// (not in the current flow) — typically a renamed or removed item.
	ParamsSpecsStoredMismatches []itemid.ID
	// SpecNotProvidedForPreviouslyStoredMappingFn are ids whose stored
	// spec was a MappingFn but the current flow provides no spec for
	// them at all — a narrower, more actionable case of
	// ItemIDsWithNoParamsSpecs worth surfacing separately since MappingFn
	// specs can't be reconstructed from storage alone.
	SpecNotProvidedForPreviouslyStoredMappingFn []itemid.ID
}

// IsEmpty reports whether no mismatch categories were populated.
func (m Mismatch) IsEmpty() bool {
	return len(m.ItemIDsWithNoParamsSpecs) == 0 &&
		len(m.ParamsSpecsProvidedMismatches) == 0 &&
		len(m.ParamsSpecsStoredMismatches) == 0 &&
		len(m.SpecNotProvidedForPreviouslyStoredMappingFn) == 0
}

// TypeNamed is implemented by AnySpec values that can report their
// underlying params type name and whether they are a MappingFn, for
// mismatch detection without needing P at the comparison site.
type TypeNamed interface {
	SpecTypeName() string
	IsMappingFn() bool
}

// Compare detects mismatches between the current flow's item ids (and
// their provided specs, where TypeNamed) and a stored Specs map read back
// from a previous run. Plain map diffing is used rather than a
// reflection-heavy deep-equal, matching the teacher's discipline of
// keeping indirect, reflection-heavy dependencies (go-cmp, pulled in only
// transitively through client-go's test helpers) indirect.
func Compare(currentItemIDs []itemid.ID, provided, stored Specs) Mismatch {
	var m Mismatch
	currentSet := make(map[itemid.ID]bool, len(currentItemIDs))
	for _, id := range currentItemIDs {
		currentSet[id] = true
		if _, ok := provided[id]; !ok {
			m.ItemIDsWithNoParamsSpecs = append(m.ItemIDsWithNoParamsSpecs, id)
			if sn, ok := stored[id]; ok {
				if tn, ok := sn.(TypeNamed); ok && tn.IsMappingFn() {
					m.SpecNotProvidedForPreviouslyStoredMappingFn = append(m.SpecNotProvidedForPreviouslyStoredMappingFn, id)
				}
			}
			continue
		}
		providedTN, providedOK := provided[id].(TypeNamed)
		storedAny, wasStored := stored[id]
		if !wasStored || !providedOK {
			continue
		}
		storedTN, storedOK := storedAny.(TypeNamed)
		if storedOK && providedTN.SpecTypeName() != storedTN.SpecTypeName() {
			m.ParamsSpecsProvidedMismatches = append(m.ParamsSpecsProvidedMismatches, id)
		}
	}
	for id := range stored {
		if !currentSet[id] {
			m.ParamsSpecsStoredMismatches = append(m.ParamsSpecsStoredMismatches, id)
		}
	}
	return m
}
