package item

import (
	"github.com/hashmap-kz/itemflow/internal/itemid"
	"github.com/hashmap-kz/itemflow/internal/progress"
)

// FnCtx is threaded through the lifecycle functions that may run long
// enough to want to report progress (StateCurrent, StateGoal, Apply,
// ApplyDry). It pairs the owning item's id with a progress.Sender so an
// item can report incremental progress without needing to know which
// CmdExecution, or whether a progress channel, is behind it.
//
// The progress emitter is reset between discovering current and goal
// within a single item's EnsurePrepare — each FnCtx instance is meant to
// be used for exactly one lifecycle call.
type FnCtx struct {
	ItemID   itemid.ID
	Progress progress.Sender
}
