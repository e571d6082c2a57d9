// Package progress defines the progress-reporting vocabulary items and
// CmdBlocks use to describe in-flight work, plus the channel plumbing that
// carries it out of a streaming block to an external collaborator.
//
// The core never renders progress itself — per the specification, the
// OutputWrite presentation sink is an external collaborator. This package
// only defines the wire shape of a progress event and a bounded, non-
// blocking send primitive, plus one concrete renderer, ConsoleWrite, in
// console.go of this package.
package progress

import "fmt"

// LimitKind discriminates the unit a ProgressLimit is expressed in.
type LimitKind int

const (
	// LimitNone means the item does not expect to report incremental
	// progress at all (its apply is effectively instantaneous).
	LimitNone LimitKind = iota
	// LimitUnknown means work is required but its extent can't be
	// estimated ahead of time.
	LimitUnknown
	// LimitSteps means progress is counted in discrete steps.
	LimitSteps
	// LimitBytes means progress is counted in bytes transferred.
	LimitBytes
)

// Limit is the progress_limit carried by ApplyCheck.ExecRequired.
type Limit struct {
	Kind LimitKind
	N    uint64
}

func (l Limit) String() string {
	switch l.Kind {
	case LimitSteps:
		return fmt.Sprintf("%d steps", l.N)
	case LimitBytes:
		return fmt.Sprintf("%d bytes", l.N)
	case LimitUnknown:
		return "unknown"
	default:
		return "none"
	}
}

// UpdateKind discriminates the shape of an Update.
type UpdateKind int

const (
	// UpdateLimit announces the ProgressLimit computed for an item, sent
	// once, immediately before ApplyExec begins.
	UpdateLimit UpdateKind = iota
	// UpdateDelta advances an item's progress by N units (steps or bytes,
	// matching whatever Limit.Kind the item announced).
	UpdateDelta
	// UpdateCompleteSuccess marks an item's apply as finished successfully.
	UpdateCompleteSuccess
	// UpdateCompleteFail marks an item's apply as finished with an error.
	UpdateCompleteFail
)

// Update is a single progress event for one item.
type Update struct {
	ItemID  string
	Kind    UpdateKind
	Limit   Limit
	Delta   uint64
	Message string
}

// Event pairs an Update with nothing else today, but is kept as a distinct
// type (rather than a bare Update) so a future field — a correlation id for
// the owning CmdExecution, say — has somewhere to go without changing every
// call site's type.
type Event struct {
	Update Update
}

// Sender delivers Events to whatever is draining the channel, dropping the
// event instead of blocking if the receiver is behind. This mirrors the
// specification's "sends are try_send; overflow drops the progress message
// rather than blocking" rule in §5.
type Sender struct {
	ch chan<- Event
}

// NewSender wraps a channel as a Sender. A nil channel is valid and turns
// every Send into a no-op, so items that don't care about progress
// reporting don't need to special-case a disabled channel.
func NewSender(ch chan<- Event) Sender {
	return Sender{ch: ch}
}

// Send attempts a non-blocking delivery of ev, dropping it silently if the
// channel is full or progress reporting is disabled.
func (s Sender) Send(ev Event) {
	if s.ch == nil {
		return
	}
	select {
	case s.ch <- ev:
	default:
	}
}

// ChannelCapacity is the buffer size used for the progress channel opened by
// a CmdExecution. It is generous rather than truly unbounded, since Go channels
// require a fixed capacity; overflow is handled by Sender.Send dropping
// events rather than blocking the item that produced them.
const ChannelCapacity = 4096
