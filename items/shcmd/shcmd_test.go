package shcmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashmap-kz/itemflow/internal/item"
	"github.com/hashmap-kz/itemflow/internal/itemid"
	"github.com/hashmap-kz/itemflow/internal/resource"
)

func testItem() *Item {
	return &Item{id: itemid.MustNew("sh")}
}

func TestRun_CapturesStdoutAndStderr(t *testing.T) {
	i := testItem()
	p := Params{StateCurrent: Bash(`printf 'out'; printf 'err' >&2`)}
	s, err := i.StateCurrent(context.Background(), item.FnCtx{}, p, resource.New[resource.SetUp]())
	require.NoError(t, err)
	assert.Equal(t, State{Stdout: "out", Stderr: "err"}, s)
}

func TestRun_NonZeroExitIsError(t *testing.T) {
	i := testItem()
	p := Params{StateCurrent: Bash(`printf 'broken' >&2; exit 3`)}
	_, err := i.StateCurrent(context.Background(), item.FnCtx{}, p, resource.New[resource.SetUp]())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestRun_MissingCommandIsError(t *testing.T) {
	i := testItem()
	_, err := i.StateCurrent(context.Background(), item.FnCtx{}, Params{}, resource.New[resource.SetUp]())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lifecycle command not set")
}

func TestStateDiff_PassesStatesAsArgs(t *testing.T) {
	i := testItem()
	p := Params{StateDiff: Bash(`printf '%s|%s' "$0" "$1"`)}
	d, ok, err := i.StateDiff(p, resource.New[resource.SetUp](), State{Stdout: "a"}, State{Stdout: "b"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a|b", d.Stdout)
}

func TestApplyCheck_Verdicts(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		wantErr bool
		exec    bool
	}{
		{name: "true means exec required", script: `printf 'true'`, exec: true},
		{name: "false means nothing to do", script: `printf 'false'`},
		{name: "last line wins", script: `echo 'checking...'; echo 'true'`, exec: true},
		{name: "garbage is an error", script: `printf 'dunno'`, wantErr: true},
	}

	i := testItem()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Params{ApplyCheck: Bash(tt.script)}
			check, err := i.ApplyCheck(p, resource.New[resource.SetUp](), State{Stdout: "a"}, State{Stdout: "b"}, StateDiff{})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.exec, check.ExecRequired)
		})
	}
}

func TestSyncItem_ApplyCheckFromStateInequality(t *testing.T) {
	i := &SyncItem{Item: Item{id: itemid.MustNew("sync")}}

	check, err := i.ApplyCheck(Params{}, resource.New[resource.SetUp](), State{Stdout: "a"}, State{Stdout: "a"}, StateDiff{})
	require.NoError(t, err)
	assert.False(t, check.ExecRequired)

	check, err = i.ApplyCheck(Params{}, resource.New[resource.SetUp](), State{Stdout: "a"}, State{Stdout: "b"}, StateDiff{})
	require.NoError(t, err)
	assert.True(t, check.ExecRequired)
}

func TestApplyDry_ReturnsTarget(t *testing.T) {
	i := testItem()
	got, err := i.ApplyDry(context.Background(), item.FnCtx{}, Params{}, resource.New[resource.SetUp](), State{Stdout: "a"}, State{Stdout: "b"}, StateDiff{})
	require.NoError(t, err)
	assert.Equal(t, State{Stdout: "b"}, got)
}

func TestStateEq_ComparesLogicalStateOnly(t *testing.T) {
	i := testItem()
	assert.True(t, i.StateEq(State{Stdout: "x", Stderr: "then"}, State{Stdout: "x", Stderr: "now"}))
	assert.False(t, i.StateEq(State{Stdout: "x"}, State{Stdout: "y"}))
}
