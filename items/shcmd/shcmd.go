// Package shcmd provides an Item whose entire lifecycle is delegated to
// user-supplied shell commands: one command per lifecycle function
// (state_clean, state_current, state_goal, state_diff, apply_check,
// apply_exec). Each command reports a logical state on stdout and a
// human-readable description on stderr; the framework never interprets
// the values beyond equality.
//
// The item is deliberately generic — anything a shell one-liner can
// discover and converge (a file's existence, a service's status, a
// package's installation) becomes manageable without writing Go.
package shcmd

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/hashmap-kz/itemflow/internal/item"
	"github.com/hashmap-kz/itemflow/internal/itemid"
	"github.com/hashmap-kz/itemflow/internal/itemrt"
	"github.com/hashmap-kz/itemflow/internal/progress"
	"github.com/hashmap-kz/itemflow/internal/resource"
)

// CmdSpec is one lifecycle command: a program and its fixed arguments.
// Lifecycle-dependent arguments (the states being diffed, say) are
// appended at invocation time.
type CmdSpec struct {
	Prog string   `json:"prog"`
	Args []string `json:"args"`
}

// Bash wraps a script as `bash -c <script>`. Positional arguments
// appended at invocation time land in $0, $1, … of the script, so diff
// scripts receive the current and goal state as $0 and $1.
func Bash(script string) CmdSpec {
	return CmdSpec{Prog: "bash", Args: []string{"-c", script}}
}

// Params supplies every lifecycle command plus the directory they run in.
type Params struct {
	StateClean   CmdSpec `json:"stateClean"`
	StateCurrent CmdSpec `json:"stateCurrent"`
	StateGoal    CmdSpec `json:"stateGoal"`
	// StateDiff receives the current and goal state stdout values as its
	// first two appended arguments.
	StateDiff CmdSpec `json:"stateDiff"`
	// ApplyCheck receives current, target, and diff stdout values; its
	// own stdout must end with "true" (apply must run) or "false".
	ApplyCheck CmdSpec `json:"applyCheck"`
	// ApplyExec receives current, target, and diff stdout values and
	// performs the convergence.
	ApplyExec CmdSpec `json:"applyExec"`

	WorkDir string `json:"workDir,omitempty"`
}

// State is a shell command's report: the logical state on stdout, the
// human-readable description on stderr.
type State struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

func (s State) String() string {
	if s.Stderr != "" {
		return s.Stderr
	}
	return s.Stdout
}

// StateDiff mirrors State for the diff command's report.
type StateDiff struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

func (d StateDiff) String() string {
	if d.Stderr != "" {
		return d.Stderr
	}
	return d.Stdout
}

// Item drives the lifecycle commands.
type Item struct {
	id itemid.ID
}

// New wraps a shell-command item for registration in a flow.
func New(id itemid.ID) itemrt.RT {
	return itemrt.Wrap[Params, State, StateDiff](&Item{id: id})
}

func (i *Item) ID() itemid.ID { return i.id }

func (i *Item) Setup(*resource.Store[resource.Empty]) error { return nil }

// run executes one lifecycle command, returning trimmed stdout/stderr as
// a State. A non-zero exit is an error carrying the command's stderr.
func (i *Item) run(ctx context.Context, p Params, spec CmdSpec, extraArgs ...string) (State, error) {
	if spec.Prog == "" {
		return State{}, fmt.Errorf("shcmd %s: lifecycle command not set", i.id)
	}
	cmd := exec.CommandContext(ctx, spec.Prog, append(append([]string{}, spec.Args...), extraArgs...)...)
	cmd.Dir = p.WorkDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return State{}, fmt.Errorf("shcmd %s: %s: %w (stderr: %s)", i.id, spec.Prog, err, strings.TrimSpace(stderr.String()))
	}
	return State{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}, nil
}

func (i *Item) StateClean(p Params, _ resource.Reader) (State, error) {
	return i.run(context.Background(), p, p.StateClean)
}

func (i *Item) TryStateCurrent(ctx context.Context, _ item.FnCtx, p Params, _ resource.Reader) (*State, error) {
	s, err := i.run(ctx, p, p.StateCurrent)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (i *Item) StateCurrent(ctx context.Context, fc item.FnCtx, p Params, r resource.Reader) (State, error) {
	s, err := i.TryStateCurrent(ctx, fc, p, r)
	if err != nil {
		return State{}, err
	}
	return *s, nil
}

func (i *Item) TryStateGoal(ctx context.Context, _ item.FnCtx, p Params, _ resource.Reader) (*State, error) {
	s, err := i.run(ctx, p, p.StateGoal)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (i *Item) StateGoal(ctx context.Context, fc item.FnCtx, p Params, r resource.Reader) (State, error) {
	s, err := i.TryStateGoal(ctx, fc, p, r)
	if err != nil {
		return State{}, err
	}
	return *s, nil
}

func (i *Item) StateDiff(p Params, _ resource.Reader, a, b State) (StateDiff, bool, error) {
	out, err := i.run(context.Background(), p, p.StateDiff, a.Stdout, b.Stdout)
	if err != nil {
		return StateDiff{}, false, err
	}
	return StateDiff(out), true, nil
}

func (i *Item) ApplyCheck(p Params, _ resource.Reader, current, target State, diff StateDiff) (item.ApplyCheck, error) {
	out, err := i.run(context.Background(), p, p.ApplyCheck, current.Stdout, target.Stdout, diff.Stdout)
	if err != nil {
		return item.ApplyCheck{}, err
	}
	switch verdict := lastLine(out.Stdout); verdict {
	case "true":
		return item.ExecRequiredWithLimit(progress.Limit{Kind: progress.LimitUnknown}), nil
	case "false":
		return item.ExecNotRequired(), nil
	default:
		return item.ApplyCheck{}, fmt.Errorf("shcmd %s: apply check printed %q, want true or false", i.id, verdict)
	}
}

func (i *Item) Apply(ctx context.Context, fc item.FnCtx, p Params, r resource.Reader, current, target State, diff StateDiff) (State, error) {
	if _, err := i.run(ctx, p, p.ApplyExec, current.Stdout, target.Stdout, diff.Stdout); err != nil {
		return State{}, err
	}
	// Re-discover rather than trusting the exec command's output: the
	// post-apply state is whatever state_current now reports, which is
	// also what keeps the determinism contract honest.
	return i.StateCurrent(ctx, fc, p, r)
}

func (i *Item) ApplyDry(_ context.Context, _ item.FnCtx, _ Params, _ resource.Reader, _, target State, _ StateDiff) (State, error) {
	return target, nil
}

func (i *Item) StateEq(stored, discovered State) bool {
	return stored.Stdout == discovered.Stdout
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
