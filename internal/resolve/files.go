package resolve

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var manifestExts = map[string]bool{
	".yaml": true,
	".yml":  true,
	".json": true,
}

func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func ReadRemoteFileContent(url string) ([]byte, error) {
	resp, err := http.Get(url) //nolint:gosec // URL is user-supplied by design
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: %s", url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// ResolveAllFiles expands a mixed list of files, directories, glob
// patterns, and URLs into a sorted, de-duplicated list of manifest
// sources. Directories contribute their *.yaml/*.yml/*.json entries,
// descending into subdirectories only when recursive is set.
func ResolveAllFiles(inputs []string, recursive bool) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(f string) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}

	for _, in := range inputs {
		if IsURL(in) {
			add(in)
			continue
		}

		info, err := os.Stat(in)
		switch {
		case err == nil && info.IsDir():
			files, err := listDir(in, recursive)
			if err != nil {
				return nil, err
			}
			for _, f := range files {
				add(f)
			}
		case err == nil:
			add(in)
		default:
			// Not a plain path; try it as a glob pattern.
			matches, globErr := filepath.Glob(in)
			if globErr != nil || len(matches) == 0 {
				return nil, fmt.Errorf("resolving %q: %w", in, err)
			}
			for _, m := range matches {
				add(m)
			}
		}
	}

	sort.Strings(out)
	return out, nil
}

func listDir(dir string, recursive bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if manifestExts[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
