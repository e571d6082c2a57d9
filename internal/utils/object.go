// Package utils holds manifest parsing helpers shared by the Kubernetes
// item and its tests.
package utils

import (
	"bytes"
	"errors"
	"io"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
)

// ReadObjects splits a stream that may contain one or many YAML/JSON
// documents into a slice of *unstructured.Unstructured. Empty documents
// and documents that are not valid Kubernetes objects (missing apiVersion
// or kind) are dropped rather than failing the whole read, matching
// kubectl apply behaviour for mixed streams.
func ReadObjects(r io.Reader) ([]*unstructured.Unstructured, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var docs []*unstructured.Unstructured
	stream := utilyaml.NewYAMLOrJSONDecoder(bytes.NewReader(data), 4096)
	for {
		obj := &unstructured.Unstructured{}
		if err := stream.Decode(&obj.Object); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if len(obj.Object) == 0 {
			continue
		}
		if obj.GetAPIVersion() == "" || obj.GetKind() == "" {
			continue
		}
		docs = append(docs, obj)
	}
	return docs, nil
}
