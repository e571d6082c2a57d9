package utils

import (
	"strings"
	"testing"
)

func TestReadObjects(t *testing.T) {
	testCases := []struct {
		name      string
		resources string
		expected  int
	}{
		{
			name: "multi-document manifest set",
			resources: `
---
apiVersion: v1
kind: ConfigMap
metadata:
  name: itemflow-demo
  namespace: default
data:
  greeting: "hello"
---
apiVersion: apps/v1
kind: Deployment
metadata:
  name: itemflow-demo
  namespace: default
spec:
  replicas: 1
  selector:
    matchLabels:
      app: itemflow-demo
  template:
    metadata:
      labels:
        app: itemflow-demo
    spec:
      containers:
        - name: web
          image: nginx:1.27
`,
			expected: 2,
		},
		{
			name: "documents missing apiVersion are dropped",
			resources: `
---
piVersion: apps/v1
kind: Deployment
metadata:
  name: broken-deploy
spec:
  replicas: 1
---
apiVersion: v1
kind: Service
metadata:
  name: itemflow-demo
  namespace: default
spec:
  ports:
    - port: 80
`,
			expected: 1,
		},
		{
			name: "documents missing kind are dropped",
			resources: `
apiVersion: v1
metadata:
  name: kindless
`,
			expected: 0,
		},
		{
			name: "empty documents are ignored",
			resources: `
---
---
apiVersion: v1
kind: Namespace
metadata:
  name: itemflow
---
`,
			expected: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			objects, err := ReadObjects(strings.NewReader(tc.resources))
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if len(objects) != tc.expected {
				t.Errorf("unexpected number of objects in %v", objects)
			}
			for _, obj := range objects {
				if obj.GetAPIVersion() == "" || obj.GetKind() == "" {
					t.Errorf("kept an object without apiVersion/kind: %v", obj)
				}
			}
		})
	}
}
