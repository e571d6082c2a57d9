package storage

import (
	"context"

	"sigs.k8s.io/yaml"
)

// SaveParams persists a workspace-, profile-, or flow-scoped params value
// at path (one of Paths.WorkspaceParams / ProfileParams / FlowParams).
func SaveParams[P any](ctx context.Context, st Store, path string, params P) error {
	data, err := yaml.Marshal(params)
	if err != nil {
		return err
	}
	return st.SetItem(ctx, path, data)
}

// LoadParams reads a scoped params value from path. found=false (with no
// error) means none has been persisted.
func LoadParams[P any](ctx context.Context, st Store, path string) (P, bool, error) {
	var params P
	data, found, err := st.GetItem(ctx, path)
	if err != nil || !found {
		return params, false, err
	}
	if err := yaml.Unmarshal(data, &params); err != nil {
		return params, true, &StatesDeserializeError{Path: path, Message: "params do not match expected shape", Err: err}
	}
	return params, true, nil
}
