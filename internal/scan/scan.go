// Package scan discovers the audio files a run will process.
package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/llehouerou/mbrate/internal/tags"
)

// File is one discovered audio file: its absolute path and its label
// relative to the scan root.
type File struct {
	Path string
	Rel  string
}

// Files walks root and returns every supported audio file in deterministic
// order. Root may also name a single audio file directly. Unreadable
// entries are skipped rather than failing the scan.
func Files(root string) ([]File, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		if !tags.IsAudioFile(root) {
			return nil, fmt.Errorf("unsupported audio file: %s", root)
		}
		return []File{{Path: root, Rel: filepath.Base(root)}}, nil
	}

	var files []File
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		// Skip any walk errors - intentionally continuing to scan other paths
		if walkErr != nil {
			return nil //nolint:nilerr // intentionally skipping errors
		}
		if d.IsDir() {
			return nil
		}
		if !tags.IsAudioFile(path) {
			return nil
		}

		files = append(files, File{Path: path, Rel: relativePath(root, path)})
		return nil
	})

	sort.Slice(files, func(i, j int) bool { return files[i].Rel < files[j].Rel })
	return files, nil
}

// relativePath returns the path relative to root, or the full path if not under root.
func relativePath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}
