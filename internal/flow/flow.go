// Package flow bundles a built item graph with an identity, the unit a
// CmdExecution is run against.
package flow

import (
	"github.com/hashmap-kz/itemflow/internal/itemgraph"
	"github.com/hashmap-kz/itemflow/internal/itemid"
	"github.com/hashmap-kz/itemflow/internal/itemrt"
)

// Flow is a named graph of items: an ordered set of itemrt.RT runtime
// wrappers plus the itemgraph.Graph describing how they depend on each
// other.
type Flow struct {
	ID    itemid.FlowID
	Items map[itemid.ID]itemrt.RT
	Graph *itemgraph.Graph
}

// Builder assembles a Flow: add each item's runtime wrapper, declare edges
// between them, then Build to validate and freeze the underlying graph —
// matching the "freeze a registry at flow-build time" design note, since
// new item types may be registered by downstream code right up until this
// call.
type Builder struct {
	id    itemid.FlowID
	items map[itemid.ID]itemrt.RT
	order []itemid.ID
	graph *itemgraph.Builder
}

// NewBuilder starts a Flow under the given id.
func NewBuilder(id itemid.FlowID) *Builder {
	return &Builder{
		id:    id,
		items: make(map[itemid.ID]itemrt.RT),
		graph: itemgraph.NewBuilder(),
	}
}

// AddItem registers rt as a node in the flow's graph.
func (b *Builder) AddItem(rt itemrt.RT) error {
	id := rt.ID()
	if err := b.graph.AddItem(id); err != nil {
		return err
	}
	b.items[id] = rt
	b.order = append(b.order, id)
	return nil
}

// AddEdge declares that `before` must run before `after` in the forward
// (Ensure) direction. Both ids must already have been added via AddItem.
func (b *Builder) AddEdge(before, after itemid.ID) error {
	return b.graph.AddEdge(before, after)
}

// Build validates the edge set is acyclic and returns the frozen Flow.
func (b *Builder) Build() (*Flow, error) {
	g, err := b.graph.Build()
	if err != nil {
		return nil, err
	}
	return &Flow{ID: b.id, Items: b.items, Graph: g}, nil
}
