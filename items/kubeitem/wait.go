package kubeitem

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"sigs.k8s.io/cli-utils/pkg/kstatus/polling"
	"sigs.k8s.io/cli-utils/pkg/kstatus/polling/aggregator"
	"sigs.k8s.io/cli-utils/pkg/kstatus/polling/collector"
	pollEvent "sigs.k8s.io/cli-utils/pkg/kstatus/polling/event"
	kstatus "sigs.k8s.io/cli-utils/pkg/kstatus/status"
	"sigs.k8s.io/cli-utils/pkg/object"

	"github.com/hashmap-kz/itemflow/internal/item"
	"github.com/hashmap-kz/itemflow/internal/printer"
	"github.com/hashmap-kz/itemflow/internal/progress"
)

// waitStatus polls every plan entry until all reach Current status or ctx
// expires. Status transitions are reported through the item's progress
// sender rather than printed, so the presentation sink decides what the
// user sees.
func (i *Item) waitStatus(ctx context.Context, plan []planEntry, fc item.FnCtx) error {
	cancelCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	resources := make([]object.ObjMetadata, 0, len(plan))
	for _, entry := range plan {
		resources = append(resources, entry.id)
	}
	if len(resources) == 0 {
		return nil
	}

	widths := printer.CalcLen(resources)

	poller := polling.NewStatusPoller(i.clients.Reader, i.clients.Mapper, polling.Options{})
	eventCh := poller.Poll(cancelCtx, resources, polling.PollOptions{PollInterval: 2 * time.Second})

	statusCollector := collector.NewResourceStatusCollector(resources)
	done := statusCollector.ListenWithObserver(eventCh, i.statusObserver(cancel, widths, fc.Progress))
	<-done

	if statusCollector.Error != nil {
		return statusCollector.Error
	}

	// The poller was cancelled either by us (all Current) or by the outer
	// deadline; only the latter leaves stragglers to report.
	if ctx.Err() != nil {
		var errs []error
		for _, id := range resources {
			rs := statusCollector.ResourceStatuses[id]
			if rs != nil && rs.Status != kstatus.CurrentStatus {
				errs = append(errs, fmt.Errorf("resource not ready: %s (%s)", id.String(), rs.Status))
			}
		}
		errs = append(errs, ctx.Err())
		return errors.Join(errs...)
	}
	return nil
}

// statusObserver cancels the poller once the aggregate status is Current,
// and reports the first non-ready object on each event so the user can
// see what the wait is stuck on.
func (i *Item) statusObserver(cancel context.CancelFunc, widths *printer.Len, px progress.Sender) collector.ObserverFunc {
	return func(c *collector.ResourceStatusCollector, _ pollEvent.Event) {
		var rss []*pollEvent.ResourceStatus
		var nonReady []*pollEvent.ResourceStatus

		for _, rs := range c.ResourceStatuses {
			if rs == nil {
				continue
			}
			rss = append(rss, rs)
			if rs.Status != kstatus.CurrentStatus {
				nonReady = append(nonReady, rs)
			}
		}

		if aggregator.AggregateStatus(rss, kstatus.CurrentStatus) == kstatus.CurrentStatus {
			cancel()
			return
		}

		if len(nonReady) > 0 {
			sort.Slice(nonReady, func(i, j int) bool {
				return nonReady[i].Identifier.Name < nonReady[j].Identifier.Name
			})
			first := nonReady[0]
			px.Send(progress.Event{Update: progress.Update{
				ItemID:  i.id.String(),
				Kind:    progress.UpdateDelta,
				Message: widths.FormatRow(first.Identifier, first.Status.String()),
			}})
		}
	}
}
