package shcmd

import (
	"github.com/hashmap-kz/itemflow/internal/item"
	"github.com/hashmap-kz/itemflow/internal/itemid"
	"github.com/hashmap-kz/itemflow/internal/itemrt"
	"github.com/hashmap-kz/itemflow/internal/progress"
	"github.com/hashmap-kz/itemflow/internal/resource"
)

// SyncItem is Item without an apply-check command: apply is required
// exactly when the current and goal logical states differ, and the apply
// is treated as a single synchronous step — no progress window is ever
// announced. Useful for commands that are quick and whose "needs running"
// condition is plain state inequality.
type SyncItem struct {
	Item
}

// NewSync wraps a synchronous shell-command item for registration in a
// flow. Params.ApplyCheck is ignored.
func NewSync(id itemid.ID) itemrt.RT {
	return itemrt.Wrap[Params, State, StateDiff](&SyncItem{Item: Item{id: id}})
}

func (i *SyncItem) ApplyCheck(_ Params, _ resource.Reader, current, target State, _ StateDiff) (item.ApplyCheck, error) {
	if current.Stdout == target.Stdout {
		return item.ExecNotRequired(), nil
	}
	return item.ExecRequiredWithLimit(progress.Limit{Kind: progress.LimitNone}), nil
}
