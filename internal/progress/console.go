package progress

import (
	"fmt"
	"io"
	"sort"

	"github.com/aquasecurity/table"
)

// ConsoleWrite is a concrete presentation sink: it drains a progress
// channel, echoes per-item status transitions as they happen, and renders
// a summary table once the channel closes.
type ConsoleWrite struct {
	out io.Writer
}

// NewConsoleWrite returns a ConsoleWrite printing to out.
func NewConsoleWrite(out io.Writer) *ConsoleWrite {
	return &ConsoleWrite{out: out}
}

type itemRow struct {
	limit   string
	done    bool
	failed  bool
	message string
	deltas  uint64
}

// Drain consumes events until the channel closes. It satisfies
// cmdrt.ProgressDrain.
func (c *ConsoleWrite) Drain(ch <-chan Event) {
	rows := make(map[string]*itemRow)
	row := func(id string) *itemRow {
		r, ok := rows[id]
		if !ok {
			r = &itemRow{}
			rows[id] = r
		}
		return r
	}

	for ev := range ch {
		u := ev.Update
		r := row(u.ItemID)
		switch u.Kind {
		case UpdateLimit:
			r.limit = u.Limit.String()
		case UpdateDelta:
			r.deltas += u.Delta
			if u.Message != "" {
				fmt.Fprintf(c.out, "[watch] %s: %s\n", u.ItemID, u.Message)
			}
		case UpdateCompleteSuccess:
			r.done = true
			r.message = u.Message
		case UpdateCompleteFail:
			r.done = true
			r.failed = true
			r.message = u.Message
		}
	}

	if len(rows) == 0 {
		return
	}

	ids := make([]string, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	t := table.New(c.out)
	t.SetHeaders("ITEM", "RESULT", "DETAIL")
	for _, id := range ids {
		r := rows[id]
		result := "ok"
		switch {
		case r.failed:
			result = "failed"
		case !r.done:
			result = "pending"
		}
		t.AddRow(id, result, r.message)
	}
	t.Render()
}
