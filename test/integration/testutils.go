package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hashmap-kz/itemflow/internal/cmds"
	"github.com/hashmap-kz/itemflow/internal/flow"
	"github.com/hashmap-kz/itemflow/internal/itemid"
	"github.com/hashmap-kz/itemflow/internal/paramspec"
	"github.com/hashmap-kz/itemflow/internal/storage"
	"github.com/hashmap-kz/itemflow/items/shcmd"
)

var testFileCreationID = itemid.MustNew("test_file_creation")

// testFileCreationParams drives one shell-command item that manages the
// existence of `test_file` inside workDir — the canonical end-to-end
// exercise of the discover/diff/ensure/clean lifecycle.
func testFileCreationParams(workDir string) shcmd.Params {
	return shcmd.Params{
		StateClean: shcmd.Bash(
			`printf 'not_exists'; printf '%s' '` + "`test_file`" + ` does not exist' >&2`),
		StateCurrent: shcmd.Bash(`
if [ -f test_file ]; then
  printf 'exists'
  printf '%s' '` + "`test_file`" + ` exists' >&2
else
  printf 'not_exists'
  printf '%s' '` + "`test_file`" + ` does not exist' >&2
fi`),
		StateGoal: shcmd.Bash(
			`printf 'exists'; printf '%s' '` + "`test_file`" + ` exists' >&2`),
		// $0 = current stdout, $1 = goal stdout
		StateDiff: shcmd.Bash(`
if [ "$0" = "$1" ]; then
  printf 'exists_sync'
  printf 'nothing to do' >&2
elif [ "$1" = "exists" ]; then
  printf 'creation_required'
  printf '%s' '` + "`test_file`" + ` will be created' >&2
else
  printf 'deletion_required'
  printf '%s' '` + "`test_file`" + ` will be deleted' >&2
fi`),
		// $0 = current, $1 = target, $2 = diff
		ApplyCheck: shcmd.Bash(`
if [ "$0" = "$1" ]; then printf 'false'; else printf 'true'; fi`),
		ApplyExec: shcmd.Bash(`
if [ "$1" = "exists" ]; then touch test_file; else rm -f test_file; fi`),
		WorkDir: workDir,
	}
}

// newTestFileCtx builds a one-item flow around test_file_creation with
// filesystem-backed state storage, both rooted in temp directories.
func newTestFileCtx(t *testing.T) (*cmds.CmdCtx, string) {
	t.Helper()
	workDir := t.TempDir()

	fb := flow.NewBuilder("test_file_flow")
	require.NoError(t, fb.AddItem(shcmd.New(testFileCreationID)))
	fl, err := fb.Build()
	require.NoError(t, err)

	c, err := cmds.NewCmdCtx(context.Background(), cmds.CmdCtxOpts{
		Flow:    fl,
		Profile: "test_profile",
		ParamsSpecs: paramspec.Specs{
			testFileCreationID: paramspec.Value(testFileCreationParams(workDir)),
		},
		Storage: storage.NewFS(t.TempDir()),
	})
	require.NoError(t, err)
	return c, workDir
}
