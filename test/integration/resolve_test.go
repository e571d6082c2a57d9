package integration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashmap-kz/itemflow/internal/resolve"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("apiVersion: v1\nkind: ConfigMap\n"), 0o644))
}

func TestResolveAllFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yaml"))
	writeFile(t, filepath.Join(dir, "b.yml"))
	writeFile(t, filepath.Join(dir, "notes.txt"))
	writeFile(t, filepath.Join(dir, "nested", "c.yaml"))

	tests := []struct {
		name      string
		inputs    []string
		recursive bool
		expected  int
	}{
		{
			name:     "single file",
			inputs:   []string{filepath.Join(dir, "a.yaml")},
			expected: 1,
		},
		{
			name:     "directory is not recursive by default",
			inputs:   []string{dir},
			expected: 2,
		},
		{
			name:      "directory recursive",
			inputs:    []string{dir},
			recursive: true,
			expected:  3,
		},
		{
			name:     "glob pattern",
			inputs:   []string{filepath.Join(dir, "*.yaml")},
			expected: 1,
		},
		{
			name:     "duplicates are collapsed",
			inputs:   []string{filepath.Join(dir, "a.yaml"), filepath.Join(dir, "a.yaml")},
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := resolve.ResolveAllFiles(tt.inputs, tt.recursive)
			require.NoError(t, err)
			assert.Len(t, files, tt.expected)
		})
	}
}

func TestResolveAllFiles_MissingPath(t *testing.T) {
	_, err := resolve.ResolveAllFiles([]string{filepath.Join(t.TempDir(), "absent.yaml")}, false)
	assert.Error(t, err)
}

func TestIsURL(t *testing.T) {
	assert.True(t, resolve.IsURL("https://example.com/m.yaml"))
	assert.True(t, resolve.IsURL("http://example.com/m.yaml"))
	assert.False(t, resolve.IsURL("./m.yaml"))
}
