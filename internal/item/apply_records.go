package item

// ApplyPartial is the per-item record of an apply attempt while it is still
// in progress, or after it failed partway through. Any subset of the
// fields may be nil; see ApplyOutcome for the invariant that holds once an
// attempt has fully succeeded.
type ApplyPartial struct {
	StateCurrent Displayable
	StateTarget  Displayable // goal for Ensure, clean for Clean
	StateDiff    Displayable
	ApplyCheck   *ApplyCheck
	StateApplied Displayable // nil if ExecNotRequired, or not yet executed
}

// ApplyOutcome is a successfully-prepared-and-applied item: per the
// contract, all four of StateCurrent, StateTarget, StateDiff, and
// ApplyCheck are set; StateApplied is set once Apply has run (or
// immediately, if ApplyCheck said ExecNotRequired).
type ApplyOutcome struct {
	StateCurrent Displayable
	StateTarget  Displayable
	StateDiff    Displayable
	ApplyCheck   ApplyCheck
	StateApplied Displayable
}

// Partial downgrades a completed ApplyOutcome to an ApplyPartial, for
// collate code paths that want to merge a success record into the same
// partial-state bucket a failure would have used.
func (a ApplyOutcome) Partial() ApplyPartial {
	check := a.ApplyCheck
	return ApplyPartial{
		StateCurrent: a.StateCurrent,
		StateTarget:  a.StateTarget,
		StateDiff:    a.StateDiff,
		ApplyCheck:   &check,
		StateApplied: a.StateApplied,
	}
}
