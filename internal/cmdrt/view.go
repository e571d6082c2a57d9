// Package cmdrt is the command execution engine: the staged CmdBlock
// contract, the type-erased boxing that lets heterogeneous blocks be
// queued uniformly, and the CmdExecution pipeline that runs them in order
// with interruption and outcome extraction.
package cmdrt

import (
	"github.com/go-logr/logr"

	"github.com/hashmap-kz/itemflow/internal/flow"
	"github.com/hashmap-kz/itemflow/internal/paramspec"
	"github.com/hashmap-kz/itemflow/internal/resource"
)

// CmdView is the per-execution view every block receives: the flow being
// operated on (items, graph), the flow-wide params specs, the shared
// Resource store, the cooperative interruption signal, and the ambient
// logger. ExecutionID is assigned by CmdExecution.Exec and attached to the
// execution's log lines; progress events and returned errors do not carry
// it.
type CmdView struct {
	Flow        *flow.Flow
	ParamsSpecs paramspec.Specs
	Resources   *resource.Store[resource.SetUp]

	// Interrupt, when non-nil, cooperatively cancels the execution: it is
	// checked at block boundaries and between item futures within a
	// streaming block. A closed channel signals interrupt.
	Interrupt <-chan struct{}

	Logger      logr.Logger
	ExecutionID string
}

func (v *CmdView) logger() logr.Logger {
	if v.Logger.GetSink() == nil {
		return logr.Discard()
	}
	return v.Logger
}
