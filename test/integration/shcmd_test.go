package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashmap-kz/itemflow/internal/cmds"
	"github.com/hashmap-kz/itemflow/internal/item"
	"github.com/hashmap-kz/itemflow/items/shcmd"
)

func getState[Ts any](t *testing.T, states item.States[Ts]) shcmd.State {
	t.Helper()
	s, ok := item.GetAs[shcmd.State](states, testFileCreationID)
	require.True(t, ok, "expected a state for %s", testFileCreationID)
	return s
}

func TestStatesDiscoverCurrent_FileAbsent(t *testing.T) {
	c, workDir := newTestFileCtx(t)
	require.NoFileExists(t, filepath.Join(workDir, "test_file"))

	outcome := cmds.StatesDiscoverCurrent(context.Background(), c)
	require.Equal(t, item.OutcomeComplete, outcome.Kind)

	state := getState(t, outcome.Value)
	assert.Equal(t, "not_exists", state.Stdout)
	assert.Equal(t, "`test_file` does not exist", state.Stderr)
}

func TestStatesDiscoverGoal(t *testing.T) {
	c, _ := newTestFileCtx(t)

	outcome := cmds.StatesDiscoverGoal(context.Background(), c)
	require.Equal(t, item.OutcomeComplete, outcome.Kind)

	state := getState(t, outcome.Value)
	assert.Equal(t, "exists", state.Stdout)
	assert.Equal(t, "`test_file` exists", state.Stderr)
}

func TestDiff_CreationRequired(t *testing.T) {
	c, _ := newTestFileCtx(t)

	outcome := cmds.DiffCurrentAndGoal(context.Background(), c)
	require.Equal(t, item.OutcomeComplete, outcome.Kind)

	diff, ok := item.GetDiffAs[shcmd.StateDiff](outcome.Value, testFileCreationID)
	require.True(t, ok)
	assert.Equal(t, "creation_required", diff.Stdout)
	assert.Equal(t, "`test_file` will be created", diff.Stderr)
}

func TestEnsure_CreatesFile_ReEnsureIsNoop(t *testing.T) {
	c, workDir := newTestFileCtx(t)

	outcome := cmds.Ensure(context.Background(), c, cmds.EnsureOpts{})
	require.Equal(t, item.OutcomeComplete, outcome.Kind)
	assert.FileExists(t, filepath.Join(workDir, "test_file"))

	state := getState(t, outcome.Value.Ensured)
	assert.Equal(t, "exists", state.Stdout)
	assert.Equal(t, "`test_file` exists", state.Stderr)

	// Second ensure: nothing to do, file untouched.
	before, err := os.Stat(filepath.Join(workDir, "test_file"))
	require.NoError(t, err)

	outcome = cmds.Ensure(context.Background(), c, cmds.EnsureOpts{})
	require.Equal(t, item.OutcomeComplete, outcome.Kind)
	state = getState(t, outcome.Value.Ensured)
	assert.Equal(t, "exists", state.Stdout)

	after, err := os.Stat(filepath.Join(workDir, "test_file"))
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}

func TestClean_RemovesFile_ReCleanIsNoop(t *testing.T) {
	c, workDir := newTestFileCtx(t)

	require.Equal(t, item.OutcomeComplete, cmds.Ensure(context.Background(), c, cmds.EnsureOpts{}).Kind)
	require.FileExists(t, filepath.Join(workDir, "test_file"))

	outcome := cmds.Clean(context.Background(), c, cmds.CleanOpts{})
	require.Equal(t, item.OutcomeComplete, outcome.Kind)
	assert.NoFileExists(t, filepath.Join(workDir, "test_file"))

	state := getState(t, outcome.Value.Cleaned)
	assert.Equal(t, "not_exists", state.Stdout)
	assert.Equal(t, "`test_file` does not exist", state.Stderr)

	// Second clean: already clean.
	outcome = cmds.Clean(context.Background(), c, cmds.CleanOpts{})
	require.Equal(t, item.OutcomeComplete, outcome.Kind)
	state = getState(t, outcome.Value.Cleaned)
	assert.Equal(t, "not_exists", state.Stdout)
}

func TestEnsureDry_DoesNotCreateFile(t *testing.T) {
	c, workDir := newTestFileCtx(t)

	outcome := cmds.EnsureDry(context.Background(), c, cmds.EnsureOpts{})
	require.Equal(t, item.OutcomeComplete, outcome.Kind)
	assert.NoFileExists(t, filepath.Join(workDir, "test_file"))

	state := getState(t, outcome.Value.Ensured)
	assert.Equal(t, "exists", state.Stdout)
}

func TestEnsure_StoredStatesSurviveRestart(t *testing.T) {
	c, workDir := newTestFileCtx(t)
	require.Equal(t, item.OutcomeComplete, cmds.Ensure(context.Background(), c, cmds.EnsureOpts{}).Kind)

	// A fresh read (as a new process would do) sees the ensured state.
	outcome := cmds.StatesCurrentRead(context.Background(), c)
	require.Equal(t, item.OutcomeComplete, outcome.Kind)
	state := getState(t, outcome.Value)
	assert.Equal(t, "exists", state.Stdout)
	assert.FileExists(t, filepath.Join(workDir, "test_file"))
}

func TestDiff_AfterEnsure_InSync(t *testing.T) {
	c, _ := newTestFileCtx(t)
	require.Equal(t, item.OutcomeComplete, cmds.Ensure(context.Background(), c, cmds.EnsureOpts{}).Kind)

	outcome := cmds.DiffCurrentAndGoal(context.Background(), c)
	require.Equal(t, item.OutcomeComplete, outcome.Kind)
	diff, ok := item.GetDiffAs[shcmd.StateDiff](outcome.Value, testFileCreationID)
	require.True(t, ok)
	assert.Equal(t, "exists_sync", diff.Stdout)
	assert.Equal(t, "nothing to do", diff.Stderr)
}
