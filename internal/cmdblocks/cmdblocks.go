// Package cmdblocks provides the concrete CmdBlocks the user-facing
// commands are composed from: reading stored states, discovering live
// ones, inserting clean states, checking stored-vs-discovered sync,
// diffing, applying, and serializing the results back to storage.
package cmdblocks

import (
	"encoding/json"
	"reflect"

	"github.com/hashmap-kz/itemflow/internal/cmdrt"
	"github.com/hashmap-kz/itemflow/internal/item"
	"github.com/hashmap-kz/itemflow/internal/resource"
)

// UnknownEntries carries the raw serialized entries of a loaded states
// file whose item ids had no registration in the current flow, tagged by
// the same phase as the states they were loaded alongside, so a later
// serialize block can write them back out unchanged.
type UnknownEntries[Ts any] map[string]json.RawMessage

func typeNameOf[T any]() string {
	var zero T
	return reflect.TypeOf(&zero).Elem().String()
}

// fetchStates borrows a States[Ts] from the Resource store and returns a
// clone, so the block can accumulate against it without holding the
// borrow open across item futures.
func fetchStates[Ts any](view *cmdrt.CmdView) (item.States[Ts], error) {
	ref, err := resource.Borrow[item.States[Ts]](view.Resources)
	if err != nil {
		return item.States[Ts]{}, err
	}
	defer ref.Release()
	return ref.Get().Clone(), nil
}
