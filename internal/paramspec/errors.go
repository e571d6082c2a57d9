package paramspec

import "fmt"

// ResolveError is returned by Resolve when a required value cannot be
// produced. TryResolve reports plain absence as ok=false with a nil error;
// it returns a ResolveError only for other failures, such as a borrow
// conflict.
type ResolveError struct {
	Ctx          Ctx
	FromTypeName string
	// BorrowConflict is set when the failure was an aliasing conflict
	// rather than plain absence.
	BorrowConflict bool
	// UsedStoredSentinel is set when a Stored spec was resolved at a time
	// no persisted spec was available for it.
	UsedStoredSentinel bool
}

func (e *ResolveError) Error() string {
	if e.UsedStoredSentinel {
		return fmt.Sprintf("paramspec: Stored spec used in resolve mode %s with no persisted spec available%s", e.Ctx.Mode, e.trail())
	}
	if e.BorrowConflict {
		return fmt.Sprintf("paramspec: borrow conflict resolving %s in mode %s%s", e.FromTypeName, e.Ctx.Mode, e.trail())
	}
	return fmt.Sprintf("paramspec: value of type %s not found in mode %s%s", e.FromTypeName, e.Ctx.Mode, e.trail())
}

func (e *ResolveError) trail() string {
	if len(e.Ctx.Breadcrumbs) == 0 {
		return ""
	}
	s := " (via"
	for _, b := range e.Ctx.Breadcrumbs {
		s += fmt.Sprintf(" %s:%s", b.FieldName, b.TypeName)
	}
	return s + ")"
}
