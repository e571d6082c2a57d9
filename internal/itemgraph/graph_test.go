package itemgraph

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashmap-kz/itemflow/internal/itemid"
)

func buildChain(t *testing.T, ids ...string) *Graph {
	t.Helper()
	b := NewBuilder()
	for _, s := range ids {
		require.NoError(t, b.AddItem(itemid.MustNew(s)))
	}
	for i := 0; i+1 < len(ids); i++ {
		require.NoError(t, b.AddEdge(itemid.MustNew(ids[i]), itemid.MustNew(ids[i+1])))
	}
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func TestBuilder_DetectsCycle(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddItem(itemid.MustNew("a")))
	require.NoError(t, b.AddItem(itemid.MustNew("b")))
	require.NoError(t, b.AddEdge(itemid.MustNew("a"), itemid.MustNew("b")))
	require.NoError(t, b.AddEdge(itemid.MustNew("b"), itemid.MustNew("a")))
	_, err := b.Build()
	assert.Error(t, err)
}

func TestBuilder_DuplicateItem(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddItem(itemid.MustNew("a")))
	assert.Error(t, b.AddItem(itemid.MustNew("a")))
}

func TestTryForEachConcurrent_RespectsOrder(t *testing.T) {
	g := buildChain(t, "a", "b", "c")

	var mu sync.Mutex
	var order []string
	outcome, err := g.TryForEachConcurrent(context.Background(), StreamOpts{}, func(_ context.Context, id itemid.ID) error {
		mu.Lock()
		order = append(order, id.String())
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, Finished, outcome.State)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestTryForEachConcurrentRev_ReversesOrder(t *testing.T) {
	g := buildChain(t, "a", "b", "c")

	var mu sync.Mutex
	var order []string
	outcome, err := g.TryForEachConcurrentRev(context.Background(), StreamOpts{}, func(_ context.Context, id itemid.ID) error {
		mu.Lock()
		order = append(order, id.String())
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, Finished, outcome.State)
	assert.Equal(t, []string{"c", "b", "a"}, order)
}

func TestTryForEachConcurrent_EmptyGraph(t *testing.T) {
	b := NewBuilder()
	g, err := b.Build()
	require.NoError(t, err)

	outcome, err := g.TryForEachConcurrent(context.Background(), StreamOpts{}, func(_ context.Context, _ itemid.ID) error {
		t.Fatal("should not be called")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, Finished, outcome.State)
}

func TestTryForEachConcurrent_Interrupted(t *testing.T) {
	g := buildChain(t, "a", "b", "c")

	interrupt := make(chan struct{})
	close(interrupt) // interrupted before the first item is launched

	var ran []string
	var mu sync.Mutex
	outcome, err := g.TryForEachConcurrent(context.Background(), StreamOpts{Interrupt: interrupt}, func(_ context.Context, id itemid.ID) error {
		mu.Lock()
		ran = append(ran, id.String())
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, Interrupted, outcome.State)
	assert.Empty(t, ran)
}

func TestTryForEachConcurrent_SiblingsNoOrderGuarantee(t *testing.T) {
	// a -> b, a -> c (b and c are siblings, no edge between them)
	b := NewBuilder()
	require.NoError(t, b.AddItem(itemid.MustNew("a")))
	require.NoError(t, b.AddItem(itemid.MustNew("b")))
	require.NoError(t, b.AddItem(itemid.MustNew("c")))
	require.NoError(t, b.AddEdge(itemid.MustNew("a"), itemid.MustNew("b")))
	require.NoError(t, b.AddEdge(itemid.MustNew("a"), itemid.MustNew("c")))
	g, err := b.Build()
	require.NoError(t, err)

	var mu sync.Mutex
	seen := map[string]bool{}
	outcome, err := g.TryForEachConcurrent(context.Background(), StreamOpts{}, func(_ context.Context, id itemid.ID) error {
		mu.Lock()
		seen[id.String()] = true
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, Finished, outcome.State)
	assert.Len(t, seen, 3)
}
