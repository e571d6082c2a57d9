package storage

import (
	"context"

	"sigs.k8s.io/yaml"

	"github.com/hashmap-kz/itemflow/internal/itemid"
	"github.com/hashmap-kz/itemflow/internal/paramspec"
)

// storedSpecRecord is the persisted shape of one item's params spec: the
// params type name plus whether the spec was a mapping function. Mapping
// functions themselves cannot be persisted (they are code), which is
// exactly why the mismatch check singles out "stored says MappingFn, flow
// provides nothing" as its own category.
type storedSpecRecord struct {
	TypeName  string `json:"typeName"`
	MappingFn bool   `json:"mappingFn"`
}

// StoredSpec is a loaded storedSpecRecord, satisfying paramspec.TypeNamed
// so it can participate in mismatch detection against provided specs.
type StoredSpec struct {
	rec storedSpecRecord
}

func (s StoredSpec) SpecTypeName() string { return s.rec.TypeName }
func (s StoredSpec) IsMappingFn() bool    { return s.rec.MappingFn }

// SaveParamsSpecs records each provided spec's type name and kind at path.
// Specs that do not implement paramspec.TypeNamed are skipped — they
// cannot participate in cross-run comparison.
func SaveParamsSpecs(ctx context.Context, st Store, path string, specs paramspec.Specs) error {
	records := make(map[string]storedSpecRecord, len(specs))
	for id, anySpec := range specs {
		tn, ok := anySpec.(paramspec.TypeNamed)
		if !ok {
			continue
		}
		records[id.String()] = storedSpecRecord{
			TypeName:  tn.SpecTypeName(),
			MappingFn: tn.IsMappingFn(),
		}
	}
	data, err := yaml.Marshal(records)
	if err != nil {
		return err
	}
	return st.SetItem(ctx, path, data)
}

// LoadParamsSpecs reads the params specs recorded at path. found=false
// (with no error) means the flow has never persisted specs — the first
// run.
func LoadParamsSpecs(ctx context.Context, st Store, path string) (paramspec.Specs, bool, error) {
	data, found, err := st.GetItem(ctx, path)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	var records map[string]storedSpecRecord
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, true, &StatesDeserializeError{Path: path, Message: "not a map of item id to params spec record", Err: err}
	}
	specs := make(paramspec.Specs, len(records))
	for idStr, rec := range records {
		id, err := itemid.New(idStr)
		if err != nil {
			return nil, true, &StatesDeserializeError{Path: path, Message: "invalid item id key", Context: idStr, Err: err}
		}
		specs[id] = StoredSpec{rec: rec}
	}
	return specs, true, nil
}
