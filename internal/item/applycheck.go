package item

import "github.com/hashmap-kz/itemflow/internal/progress"

// ApplyCheck is an item's verdict on whether Apply needs to run at all.
type ApplyCheck struct {
	// ExecRequired, when true, means Apply/ApplyDry must be invoked;
	// Limit is only meaningful in that case.
	ExecRequired bool
	Limit        progress.Limit
}

// ExecNotRequired is the verdict for "state_current already equals
// state_target" — the apply engine skips calling Apply and copies
// state_current forward as state_applied.
func ExecNotRequired() ApplyCheck {
	return ApplyCheck{ExecRequired: false}
}

// ExecRequiredWithLimit is the verdict for "Apply must run", carrying the
// progress limit the item can estimate (or progress.LimitNone /
// progress.LimitUnknown if it can't).
func ExecRequiredWithLimit(limit progress.Limit) ApplyCheck {
	return ApplyCheck{ExecRequired: true, Limit: limit}
}
