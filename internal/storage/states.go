package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"sigs.k8s.io/yaml"

	"github.com/hashmap-kz/itemflow/internal/item"
	"github.com/hashmap-kz/itemflow/internal/itemid"
)

// ErrStatesCurrentDiscoverRequired is returned by a read command that
// found no stored current states — the user must run a discover first.
var ErrStatesCurrentDiscoverRequired = errors.New("storage: no stored current states; run states discover first")

// ErrStatesGoalDiscoverRequired is ErrStatesCurrentDiscoverRequired for
// goal states.
var ErrStatesGoalDiscoverRequired = errors.New("storage: no stored goal states; run states discover first")

// StatesDeserializeError is a format error hit while parsing a persisted
// states file, carrying enough positional context for a diagnostic viewer.
type StatesDeserializeError struct {
	Path    string
	Message string
	// Context is the raw serialized fragment that failed to parse, when
	// it can be narrowed to a single item's entry ("" otherwise).
	Context string
	Err     error
}

func (e *StatesDeserializeError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("storage: deserializing %s: %s (near %q): %v", e.Path, e.Message, e.Context, e.Err)
	}
	return fmt.Sprintf("storage: deserializing %s: %s: %v", e.Path, e.Message, e.Err)
}

func (e *StatesDeserializeError) Unwrap() error { return e.Err }

// StateUnmarshalFunc parses one item's serialized state back into its
// concrete type.
type StateUnmarshalFunc func(data []byte) (item.Displayable, error)

// TypedRegistry records, per item id, how to reconstruct that item's state
// from its serialized form — the downcast-by-registered-type mechanism a
// format-agnostic states file needs on read. Registration happens at
// flow-build time and the registry is effectively frozen afterward.
type TypedRegistry struct {
	unmarshal map[itemid.ID]StateUnmarshalFunc
}

// NewTypedRegistry returns an empty registry.
func NewTypedRegistry() *TypedRegistry {
	return &TypedRegistry{unmarshal: make(map[itemid.ID]StateUnmarshalFunc)}
}

// Register records the unmarshal function for id, replacing any previous
// registration.
func (reg *TypedRegistry) Register(id itemid.ID, fn StateUnmarshalFunc) {
	reg.unmarshal[id] = fn
}

// UnmarshalFor returns the registered unmarshal function for id.
func (reg *TypedRegistry) UnmarshalFor(id itemid.ID) (StateUnmarshalFunc, bool) {
	fn, ok := reg.unmarshal[id]
	return fn, ok
}

// StatesFile is a loaded states map plus the entries whose item ids had no
// registration — preserved verbatim so that load-then-save round-trips do
// not drop states recorded by a flow revision that knew more items than
// this one.
type StatesFile[Ts any] struct {
	States  item.States[Ts]
	Unknown map[string]json.RawMessage
}

// SaveStates serializes states (plus any unknown entries carried over from
// a previous load) as a single YAML map keyed by item id, and writes it at
// path.
func SaveStates[Ts any](ctx context.Context, st Store, path string, states item.States[Ts], unknown map[string]json.RawMessage) error {
	entries := make(map[string]json.RawMessage, states.Len()+len(unknown))
	var rangeErr error
	states.Range(func(id itemid.ID, v item.Displayable) {
		if rangeErr != nil {
			return
		}
		data, err := json.Marshal(v)
		if err != nil {
			rangeErr = fmt.Errorf("storage: serializing state for item %q: %w", id, err)
			return
		}
		entries[id.String()] = data
	})
	if rangeErr != nil {
		return rangeErr
	}
	for id, raw := range unknown {
		if _, ok := entries[id]; !ok {
			entries[id] = raw
		}
	}

	data, err := yaml.Marshal(entries)
	if err != nil {
		return err
	}
	return st.SetItem(ctx, path, data)
}

// LoadStates reads the states file at path and reconstructs each entry's
// concrete state type through the registry. Entries with no registration
// are preserved raw in the returned StatesFile.Unknown. found=false (with
// no error) means no file exists at path.
func LoadStates[Ts any](ctx context.Context, st Store, path string, reg *TypedRegistry) (StatesFile[Ts], bool, error) {
	out := StatesFile[Ts]{States: item.NewStates[Ts](), Unknown: make(map[string]json.RawMessage)}

	data, found, err := st.GetItem(ctx, path)
	if err != nil {
		return out, false, err
	}
	if !found {
		return out, false, nil
	}

	var entries map[string]json.RawMessage
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return out, true, &StatesDeserializeError{Path: path, Message: "not a map of item id to state", Err: err}
	}

	// Deterministic order so the first error reported is stable.
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, idStr := range ids {
		raw := entries[idStr]
		id, err := itemid.New(idStr)
		if err != nil {
			return out, true, &StatesDeserializeError{Path: path, Message: "invalid item id key", Context: idStr, Err: err}
		}
		fn, ok := reg.UnmarshalFor(id)
		if !ok {
			out.Unknown[idStr] = raw
			continue
		}
		s, err := fn(raw)
		if err != nil {
			return out, true, &StatesDeserializeError{Path: path, Message: "state does not match registered type", Context: idStr, Err: err}
		}
		out.States.Set(id, s)
	}
	return out, true, nil
}
