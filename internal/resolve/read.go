// Package resolve turns user-supplied manifest references (files,
// directories, glob patterns, URLs) into readable content.
package resolve

import (
	"fmt"
	"os"
)

// ReadFileContent reads one resolved manifest source, dispatching URLs to
// the remote reader.
func ReadFileContent(filename string) ([]byte, error) {
	if IsURL(filename) {
		return ReadRemoteFileContent(filename)
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}
	return data, nil
}
