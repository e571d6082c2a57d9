package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashmap-kz/itemflow/internal/cmds"
	"github.com/hashmap-kz/itemflow/internal/flow"
	"github.com/hashmap-kz/itemflow/internal/item"
	"github.com/hashmap-kz/itemflow/internal/itemid"
	"github.com/hashmap-kz/itemflow/internal/paramspec"
	"github.com/hashmap-kz/itemflow/internal/storage"
	"github.com/hashmap-kz/itemflow/items/shcmd"
)

// appendLineParams manages a marker file and appends its name to a shared
// log on apply, so tests can observe execution order across items.
func appendLineParams(workDir, name string) shcmd.Params {
	marker := name + ".marker"
	return shcmd.Params{
		StateClean:   shcmd.Bash(`printf 'not_exists'`),
		StateCurrent: shcmd.Bash(`if [ -f ` + marker + ` ]; then printf 'exists'; else printf 'not_exists'; fi`),
		StateGoal:    shcmd.Bash(`printf 'exists'`),
		StateDiff:    shcmd.Bash(`if [ "$0" = "$1" ]; then printf 'in_sync'; else printf 'out_of_sync'; fi`),
		ApplyCheck:   shcmd.Bash(`if [ "$0" = "$1" ]; then printf 'false'; else printf 'true'; fi`),
		ApplyExec: shcmd.Bash(`
if [ "$1" = "exists" ]; then touch ` + marker + `; else rm -f ` + marker + `; fi
echo ` + name + ` >> order.log`),
		WorkDir: workDir,
	}
}

func newChainCtx(t *testing.T) (*cmds.CmdCtx, string) {
	t.Helper()
	workDir := t.TempDir()

	first := itemid.MustNew("first")
	second := itemid.MustNew("second")

	fb := flow.NewBuilder("chain_flow")
	require.NoError(t, fb.AddItem(shcmd.New(first)))
	require.NoError(t, fb.AddItem(shcmd.New(second)))
	require.NoError(t, fb.AddEdge(first, second))
	fl, err := fb.Build()
	require.NoError(t, err)

	c, err := cmds.NewCmdCtx(context.Background(), cmds.CmdCtxOpts{
		Flow:    fl,
		Profile: "test_profile",
		ParamsSpecs: paramspec.Specs{
			first:  paramspec.Value(appendLineParams(workDir, "first")),
			second: paramspec.Value(appendLineParams(workDir, "second")),
		},
		Storage: storage.NewFS(t.TempDir()),
	})
	require.NoError(t, err)
	return c, workDir
}

func readOrder(t *testing.T, workDir string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(workDir, "order.log"))
	require.NoError(t, err)
	return string(data)
}

func TestEnsure_RunsInDependencyOrder(t *testing.T) {
	c, workDir := newChainCtx(t)

	outcome := cmds.Ensure(context.Background(), c, cmds.EnsureOpts{})
	require.Equal(t, item.OutcomeComplete, outcome.Kind)
	assert.Equal(t, "first\nsecond\n", readOrder(t, workDir))
}

func TestClean_RunsInReverseOrder(t *testing.T) {
	c, workDir := newChainCtx(t)
	require.Equal(t, item.OutcomeComplete, cmds.Ensure(context.Background(), c, cmds.EnsureOpts{}).Kind)
	require.NoError(t, os.Remove(filepath.Join(workDir, "order.log")))

	outcome := cmds.Clean(context.Background(), c, cmds.CleanOpts{})
	require.Equal(t, item.OutcomeComplete, outcome.Kind)
	assert.Equal(t, "second\nfirst\n", readOrder(t, workDir))
	assert.NoFileExists(t, filepath.Join(workDir, "first.marker"))
	assert.NoFileExists(t, filepath.Join(workDir, "second.marker"))
}
