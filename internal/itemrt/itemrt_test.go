package itemrt

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashmap-kz/itemflow/internal/item"
	"github.com/hashmap-kz/itemflow/internal/itemid"
	"github.com/hashmap-kz/itemflow/internal/paramspec"
	"github.com/hashmap-kz/itemflow/internal/progress"
	"github.com/hashmap-kz/itemflow/internal/resource"
)

// noteItem manages one entry of an in-memory "disk": content "" means the
// note does not exist.
type noteState struct {
	Content string `json:"content"`
}

func (s noteState) String() string { return s.Content }

type noteDiff struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (d noteDiff) String() string { return d.From + " -> " + d.To }

type noteParams struct {
	Goal string `json:"goal"`
}

type noteItem struct {
	id          itemid.ID
	disk        map[string]string
	failCurrent error
}

func (n *noteItem) ID() itemid.ID                               { return n.id }
func (n *noteItem) Setup(*resource.Store[resource.Empty]) error { return nil }

func (n *noteItem) StateClean(noteParams, resource.Reader) (noteState, error) {
	return noteState{}, nil
}

func (n *noteItem) TryStateCurrent(_ context.Context, _ item.FnCtx, _ noteParams, _ resource.Reader) (*noteState, error) {
	if n.failCurrent != nil {
		return nil, n.failCurrent
	}
	s := noteState{Content: n.disk["note"]}
	return &s, nil
}

func (n *noteItem) StateCurrent(ctx context.Context, fc item.FnCtx, p noteParams, r resource.Reader) (noteState, error) {
	s, err := n.TryStateCurrent(ctx, fc, p, r)
	if err != nil {
		return noteState{}, err
	}
	return *s, nil
}

func (n *noteItem) TryStateGoal(_ context.Context, _ item.FnCtx, p noteParams, _ resource.Reader) (*noteState, error) {
	s := noteState{Content: p.Goal}
	return &s, nil
}

func (n *noteItem) StateGoal(ctx context.Context, fc item.FnCtx, p noteParams, r resource.Reader) (noteState, error) {
	s, err := n.TryStateGoal(ctx, fc, p, r)
	if err != nil {
		return noteState{}, err
	}
	return *s, nil
}

func (n *noteItem) StateDiff(_ noteParams, _ resource.Reader, a, b noteState) (noteDiff, bool, error) {
	return noteDiff{From: a.Content, To: b.Content}, true, nil
}

func (n *noteItem) ApplyCheck(_ noteParams, _ resource.Reader, current, target noteState, _ noteDiff) (item.ApplyCheck, error) {
	if current == target {
		return item.ExecNotRequired(), nil
	}
	return item.ExecRequiredWithLimit(progress.Limit{Kind: progress.LimitSteps, N: 1}), nil
}

func (n *noteItem) Apply(_ context.Context, _ item.FnCtx, _ noteParams, _ resource.Reader, _, target noteState, _ noteDiff) (noteState, error) {
	n.disk["note"] = target.Content
	return target, nil
}

func (n *noteItem) ApplyDry(_ context.Context, _ item.FnCtx, _ noteParams, _ resource.Reader, _, target noteState, _ noteDiff) (noteState, error) {
	return target, nil
}

func (n *noteItem) StateEq(stored, discovered noteState) bool { return stored == discovered }

func noteFixture(goal string) (*noteItem, RT, paramspec.Specs, *resource.Store[resource.SetUp]) {
	id := itemid.MustNew("note")
	n := &noteItem{id: id, disk: make(map[string]string)}
	rt := Wrap[noteParams, noteState, noteDiff](n)
	specs := paramspec.Specs{id: paramspec.Value(noteParams{Goal: goal})}
	return n, rt, specs, resource.New[resource.SetUp]()
}

func TestEnsurePrepare_ExecRequired(t *testing.T) {
	_, rt, specs, r := noteFixture("hello")

	prepared, fail := rt.EnsurePrepare(context.Background(), progress.NewSender(nil), specs, r)
	require.Nil(t, fail)
	assert.True(t, prepared.ApplyCheck.ExecRequired)
	assert.Equal(t, noteState{Content: ""}, prepared.StateCurrent)
	assert.Equal(t, noteState{Content: "hello"}, prepared.StateTarget)
	assert.Nil(t, prepared.StateApplied)
}

func TestEnsurePrepare_ExecNotRequired_CopiesCurrent(t *testing.T) {
	n, rt, specs, r := noteFixture("hello")
	n.disk["note"] = "hello"

	prepared, fail := rt.EnsurePrepare(context.Background(), progress.NewSender(nil), specs, r)
	require.Nil(t, fail)
	assert.False(t, prepared.ApplyCheck.ExecRequired)
	assert.Equal(t, prepared.StateCurrent, prepared.StateApplied)
}

func TestEnsurePrepare_FailureCarriesPartial(t *testing.T) {
	n, rt, specs, r := noteFixture("hello")
	n.failCurrent = errors.New("disk offline")

	_, fail := rt.EnsurePrepare(context.Background(), progress.NewSender(nil), specs, r)
	require.NotNil(t, fail)
	assert.ErrorContains(t, fail, "disk offline")
	assert.Nil(t, fail.Partial.StateCurrent)
}

func TestApplyExec_UpdatesDiskAndMarker(t *testing.T) {
	n, rt, specs, r := noteFixture("hello")

	prepared, fail := rt.EnsurePrepare(context.Background(), progress.NewSender(nil), specs, r)
	require.Nil(t, fail)

	applied, err := rt.ApplyExec(context.Background(), progress.NewSender(nil), specs, r, prepared)
	require.NoError(t, err)
	assert.Equal(t, noteState{Content: "hello"}, applied)
	assert.Equal(t, "hello", n.disk["note"])

	// Successors resolving this item's current state through the marker
	// observe the applied value.
	ref, err := resource.BorrowQualified[item.CurrentOf[noteState]](r, "note")
	require.NoError(t, err)
	assert.Equal(t, "hello", ref.Get().Value.Content)
	ref.Release()

	// Determinism: re-discovery returns the post-apply state; a second
	// prepare reports nothing to do.
	again, fail := rt.EnsurePrepare(context.Background(), progress.NewSender(nil), specs, r)
	require.Nil(t, fail)
	assert.False(t, again.ApplyCheck.ExecRequired)
	assert.Equal(t, applied, again.StateApplied)
}

func TestApplyExecDry_LeavesDiskAlone(t *testing.T) {
	n, rt, specs, r := noteFixture("hello")

	prepared, fail := rt.EnsurePrepare(context.Background(), progress.NewSender(nil), specs, r)
	require.Nil(t, fail)

	applied, err := rt.ApplyExecDry(context.Background(), progress.NewSender(nil), specs, r, prepared)
	require.NoError(t, err)
	assert.Equal(t, noteState{Content: "hello"}, applied)
	assert.Empty(t, n.disk["note"])

	ref, err := resource.BorrowQualified[item.ApplyDryOf[noteState]](r, "note")
	require.NoError(t, err)
	assert.Equal(t, "hello", ref.Get().Value.Content)
	ref.Release()
}

func TestCleanPrepare_UsesDiscoveredCurrent(t *testing.T) {
	n, rt, specs, r := noteFixture("hello")
	n.disk["note"] = "hello"

	statesCurrent := item.NewStates[item.Current]()
	statesCurrent.Set(itemid.MustNew("note"), noteState{Content: "hello"})

	prepared, fail := rt.CleanPrepare(context.Background(), statesCurrent, progress.NewSender(nil), specs, r)
	require.Nil(t, fail)
	assert.True(t, prepared.ApplyCheck.ExecRequired)
	assert.Equal(t, noteState{Content: "hello"}, prepared.StateCurrent)
	assert.Equal(t, noteState{}, prepared.StateTarget)
}

func TestCleanPrepare_FallsBackToClean(t *testing.T) {
	_, rt, specs, r := noteFixture("hello")

	// No discovered state for the item: clean treats it as already clean.
	prepared, fail := rt.CleanPrepare(context.Background(), item.NewStates[item.Current](), progress.NewSender(nil), specs, r)
	require.Nil(t, fail)
	assert.False(t, prepared.ApplyCheck.ExecRequired)
	assert.Equal(t, noteState{}, prepared.StateCurrent)
}

func TestUnmarshalState_RoundTrip(t *testing.T) {
	_, rt, _, _ := noteFixture("hello")
	s, err := rt.UnmarshalState([]byte(`{"content":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, noteState{Content: "hi"}, s)
}
