package cmds

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashmap-kz/itemflow/internal/cmdblocks"
	"github.com/hashmap-kz/itemflow/internal/flow"
	"github.com/hashmap-kz/itemflow/internal/item"
	"github.com/hashmap-kz/itemflow/internal/itemid"
	"github.com/hashmap-kz/itemflow/internal/itemrt"
	"github.com/hashmap-kz/itemflow/internal/paramspec"
	"github.com/hashmap-kz/itemflow/internal/progress"
	"github.com/hashmap-kz/itemflow/internal/resource"
	"github.com/hashmap-kz/itemflow/internal/storage"
)

// fileItem manages one key of a shared in-memory "disk"; content ""
// means absent. It counts apply invocations so tests can assert
// idempotence without peeking into engine internals.
type fileContent struct {
	Content string `json:"content"`
}

func (s fileContent) String() string { return s.Content }

type fileDiff struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (d fileDiff) String() string { return d.From + " -> " + d.To }

type fileParams struct {
	Goal string `json:"goal"`
}

type fileItem struct {
	id         itemid.ID
	disk       map[string]string
	applyCount int
	failApply  error
}

func (f *fileItem) ID() itemid.ID                               { return f.id }
func (f *fileItem) Setup(*resource.Store[resource.Empty]) error { return nil }

func (f *fileItem) StateClean(fileParams, resource.Reader) (fileContent, error) {
	return fileContent{}, nil
}

func (f *fileItem) TryStateCurrent(_ context.Context, _ item.FnCtx, _ fileParams, _ resource.Reader) (*fileContent, error) {
	s := fileContent{Content: f.disk[f.id.String()]}
	return &s, nil
}

func (f *fileItem) StateCurrent(ctx context.Context, fc item.FnCtx, p fileParams, r resource.Reader) (fileContent, error) {
	s, err := f.TryStateCurrent(ctx, fc, p, r)
	if err != nil {
		return fileContent{}, err
	}
	return *s, nil
}

func (f *fileItem) TryStateGoal(_ context.Context, _ item.FnCtx, p fileParams, _ resource.Reader) (*fileContent, error) {
	s := fileContent{Content: p.Goal}
	return &s, nil
}

func (f *fileItem) StateGoal(ctx context.Context, fc item.FnCtx, p fileParams, r resource.Reader) (fileContent, error) {
	s, err := f.TryStateGoal(ctx, fc, p, r)
	if err != nil {
		return fileContent{}, err
	}
	return *s, nil
}

func (f *fileItem) StateDiff(_ fileParams, _ resource.Reader, a, b fileContent) (fileDiff, bool, error) {
	return fileDiff{From: a.Content, To: b.Content}, true, nil
}

func (f *fileItem) ApplyCheck(_ fileParams, _ resource.Reader, current, target fileContent, _ fileDiff) (item.ApplyCheck, error) {
	if current == target {
		return item.ExecNotRequired(), nil
	}
	return item.ExecRequiredWithLimit(progress.Limit{Kind: progress.LimitSteps, N: 1}), nil
}

func (f *fileItem) Apply(_ context.Context, _ item.FnCtx, _ fileParams, _ resource.Reader, _, target fileContent, _ fileDiff) (fileContent, error) {
	f.applyCount++
	if f.failApply != nil {
		return fileContent{}, f.failApply
	}
	if target.Content == "" {
		delete(f.disk, f.id.String())
	} else {
		f.disk[f.id.String()] = target.Content
	}
	return target, nil
}

func (f *fileItem) ApplyDry(_ context.Context, _ item.FnCtx, _ fileParams, _ resource.Reader, _, target fileContent, _ fileDiff) (fileContent, error) {
	return target, nil
}

func (f *fileItem) StateEq(stored, discovered fileContent) bool { return stored == discovered }

type harness struct {
	item  *fileItem
	ctx   *CmdCtx
	store *storage.Mem
}

func newHarness(t *testing.T, goal string) *harness {
	t.Helper()
	store := storage.NewMem()
	h, err := tryHarness(store, "file_a", goal)
	require.NoError(t, err)
	h.store = store
	return h
}

func tryHarness(store *storage.Mem, idStr, goal string) (*harness, error) {
	id := itemid.MustNew(idStr)
	fi := &fileItem{id: id, disk: make(map[string]string)}

	fb := flow.NewBuilder("test_flow")
	if err := fb.AddItem(itemrt.Wrap[fileParams, fileContent, fileDiff](fi)); err != nil {
		return nil, err
	}
	fl, err := fb.Build()
	if err != nil {
		return nil, err
	}

	c, err := NewCmdCtx(context.Background(), CmdCtxOpts{
		Flow:        fl,
		Profile:     "test_profile",
		ParamsSpecs: paramspec.Specs{id: paramspec.Value(fileParams{Goal: goal})},
		Storage:     store,
	})
	if err != nil {
		return nil, err
	}
	return &harness{item: fi, ctx: c, store: store}, nil
}

func TestEnsure_CreatesThenNoop(t *testing.T) {
	h := newHarness(t, "hello")

	outcome := Ensure(context.Background(), h.ctx, EnsureOpts{})
	require.Equal(t, item.OutcomeComplete, outcome.Kind)
	assert.Equal(t, "hello", h.item.disk["file_a"])
	assert.Equal(t, 1, h.item.applyCount)

	applied, ok := outcome.Value.Ensured.Get(itemid.MustNew("file_a"))
	require.True(t, ok)
	assert.Equal(t, fileContent{Content: "hello"}, applied)

	// Second run: apply check reports nothing to do, Apply never runs.
	outcome = Ensure(context.Background(), h.ctx, EnsureOpts{})
	require.Equal(t, item.OutcomeComplete, outcome.Kind)
	assert.Equal(t, 1, h.item.applyCount)
}

func TestEnsure_PersistsStates(t *testing.T) {
	h := newHarness(t, "hello")

	outcome := Ensure(context.Background(), h.ctx, EnsureOpts{})
	require.Equal(t, item.OutcomeComplete, outcome.Kind)

	_, found, err := h.store.GetItem(context.Background(), h.ctx.Paths.StatesCurrent())
	require.NoError(t, err)
	assert.True(t, found)
	_, found, err = h.store.GetItem(context.Background(), h.ctx.Paths.StatesGoal())
	require.NoError(t, err)
	assert.True(t, found)
}

func TestEnsureDry_DoesNotTouchDiskOrStorage(t *testing.T) {
	h := newHarness(t, "hello")

	outcome := EnsureDry(context.Background(), h.ctx, EnsureOpts{})
	require.Equal(t, item.OutcomeComplete, outcome.Kind)
	assert.Empty(t, h.item.disk)
	assert.Equal(t, 0, h.item.applyCount)

	dry, ok := outcome.Value.Ensured.Get(itemid.MustNew("file_a"))
	require.True(t, ok)
	assert.Equal(t, fileContent{Content: "hello"}, dry)

	_, found, err := h.store.GetItem(context.Background(), h.ctx.Paths.StatesCurrent())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClean_RemovesThenNoop(t *testing.T) {
	h := newHarness(t, "hello")
	require.Equal(t, item.OutcomeComplete, Ensure(context.Background(), h.ctx, EnsureOpts{}).Kind)
	require.Equal(t, "hello", h.item.disk["file_a"])

	outcome := Clean(context.Background(), h.ctx, CleanOpts{})
	require.Equal(t, item.OutcomeComplete, outcome.Kind)
	assert.Empty(t, h.item.disk)
	assert.Equal(t, 2, h.item.applyCount)

	cleaned, ok := outcome.Value.Cleaned.Get(itemid.MustNew("file_a"))
	require.True(t, ok)
	assert.Equal(t, fileContent{}, cleaned)

	// Second clean: already clean, nothing runs.
	outcome = Clean(context.Background(), h.ctx, CleanOpts{})
	require.Equal(t, item.OutcomeComplete, outcome.Kind)
	assert.Equal(t, 2, h.item.applyCount)
}

func TestEnsure_ItemErrorStillWritesCurrentStates(t *testing.T) {
	h := newHarness(t, "hello")
	h.item.failApply = errors.New("permission denied")

	outcome := Ensure(context.Background(), h.ctx, EnsureOpts{})
	require.Equal(t, item.OutcomeItemError, outcome.Kind)
	assert.Contains(t, outcome.Errors, itemid.MustNew("file_a"))

	// Partial progress stays durable: the post-apply current states are
	// written even though the pipeline stopped before its serialize step.
	_, found, err := h.store.GetItem(context.Background(), h.ctx.Paths.StatesCurrent())
	require.NoError(t, err)
	assert.True(t, found)
}

func TestEnsure_StoredStateSyncCheck(t *testing.T) {
	h := newHarness(t, "hello")

	// Record the current states, then change the world behind the
	// framework's back.
	discover := StatesDiscoverCurrentAndGoal(context.Background(), h.ctx)
	require.Equal(t, item.OutcomeComplete, discover.Kind)
	h.item.disk["file_a"] = "tampered"

	outcome := Ensure(context.Background(), h.ctx, EnsureOpts{Sync: SyncCurrent})
	require.Equal(t, item.OutcomeExecutionError, outcome.Kind)
	var ace *cmdblocks.ApplyCmdError
	require.ErrorAs(t, outcome.ExecutionError, &ace)
	assert.Equal(t, cmdblocks.StatesCurrentOutOfSync, ace.Kind)
	assert.Contains(t, ace.OutOfSync, itemid.MustNew("file_a"))

	// The drift check fired before any apply ran.
	assert.Equal(t, 0, h.item.applyCount)
}

func TestParamsSpecsMismatch_OnRename(t *testing.T) {
	store := storage.NewMem()

	// First run records specs for original_id.
	_, err := tryHarness(store, "original_id", "hello")
	require.NoError(t, err)

	// The item is renamed; the stored record still names original_id, and
	// nothing provides a spec for it anymore.
	id := itemid.MustNew("new_id")
	fi := &fileItem{id: id, disk: make(map[string]string)}
	fb := flow.NewBuilder("test_flow")
	require.NoError(t, fb.AddItem(itemrt.Wrap[fileParams, fileContent, fileDiff](fi)))
	fl, err := fb.Build()
	require.NoError(t, err)

	_, err = NewCmdCtx(context.Background(), CmdCtxOpts{
		Flow:        fl,
		Profile:     "test_profile",
		ParamsSpecs: paramspec.Specs{},
		Storage:     store,
	})
	var mismatch *MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Contains(t, mismatch.Mismatch.ItemIDsWithNoParamsSpecs, id)
	assert.Contains(t, mismatch.Mismatch.ParamsSpecsStoredMismatches, itemid.MustNew("original_id"))
}

func TestStatesDiscover_EmptyGraph(t *testing.T) {
	fb := flow.NewBuilder("empty_flow")
	fl, err := fb.Build()
	require.NoError(t, err)

	c, err := NewCmdCtx(context.Background(), CmdCtxOpts{
		Flow:        fl,
		Profile:     "test_profile",
		ParamsSpecs: paramspec.Specs{},
		Storage:     storage.NewMem(),
	})
	require.NoError(t, err)

	outcome := StatesDiscoverCurrent(context.Background(), c)
	require.Equal(t, item.OutcomeComplete, outcome.Kind)
	assert.Equal(t, 0, outcome.Value.Len())

	ensured := Ensure(context.Background(), c, EnsureOpts{})
	require.Equal(t, item.OutcomeComplete, ensured.Kind)
	assert.Equal(t, 0, ensured.Value.Ensured.Len())
}

func TestStatesCurrentRead_RequiresDiscover(t *testing.T) {
	h := newHarness(t, "hello")

	outcome := StatesCurrentRead(context.Background(), h.ctx)
	require.Equal(t, item.OutcomeExecutionError, outcome.Kind)
	assert.ErrorIs(t, outcome.ExecutionError, storage.ErrStatesCurrentDiscoverRequired)

	require.Equal(t, item.OutcomeComplete, StatesDiscoverCurrent(context.Background(), h.ctx).Kind)
	outcome = StatesCurrentRead(context.Background(), h.ctx)
	require.Equal(t, item.OutcomeComplete, outcome.Kind)
	assert.Equal(t, 1, outcome.Value.Len())
}

func TestDiff_ReportsPendingChange(t *testing.T) {
	h := newHarness(t, "hello")

	outcome := DiffCurrentAndGoal(context.Background(), h.ctx)
	require.Equal(t, item.OutcomeComplete, outcome.Kind)
	d, ok := item.GetDiffAs[fileDiff](outcome.Value, itemid.MustNew("file_a"))
	require.True(t, ok)
	assert.Equal(t, fileDiff{From: "", To: "hello"}, d)
}

func TestDiffProfilesCurrent(t *testing.T) {
	h := newHarness(t, "hello")
	require.Equal(t, item.OutcomeComplete, StatesDiscoverCurrent(context.Background(), h.ctx).Kind)

	// A second profile with a different recorded current state.
	other := storage.Paths{Profile: "other_profile", Flow: h.ctx.Flow.ID}
	states := item.NewStates[item.Current]()
	states.Set(itemid.MustNew("file_a"), fileContent{Content: "drifted"})
	require.NoError(t, storage.SaveStates(context.Background(), h.store, other.StatesCurrent(), states, nil))

	outcome := DiffProfilesCurrent(context.Background(), h.ctx, "test_profile", "other_profile")
	require.Equal(t, item.OutcomeComplete, outcome.Kind)
	d, ok := item.GetDiffAs[fileDiff](outcome.Value, itemid.MustNew("file_a"))
	require.True(t, ok)
	assert.Equal(t, fileDiff{From: "", To: "drifted"}, d)

	// A profile that was never discovered is an error, not an empty diff.
	missing := DiffProfilesCurrent(context.Background(), h.ctx, "test_profile", "no_such_profile")
	require.Equal(t, item.OutcomeExecutionError, missing.Kind)
	assert.ErrorIs(t, missing.ExecutionError, storage.ErrStatesCurrentDiscoverRequired)
}

func TestEnsure_InterruptBeforeFirstBlock(t *testing.T) {
	h := newHarness(t, "hello")
	interrupt := make(chan struct{})
	close(interrupt)
	h.ctx.Interrupt = interrupt

	outcome := Ensure(context.Background(), h.ctx, EnsureOpts{})
	require.Equal(t, item.OutcomeBlockInterrupted, outcome.Kind)
	assert.Equal(t, 0, h.item.applyCount)
}
