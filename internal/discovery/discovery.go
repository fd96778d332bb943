// Package discovery walks an input path recursively to find heap dumps for
// the chunk runner, pairing each with its sidecar by stem substitution.
package discovery

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/scigolib/heapkey/internal/reader"
)

// Find returns every "*-heap.raw" path under root, in lexical order. root
// may itself be a single dump file, in which case Find returns it alone if
// it matches the suffix.
func Find(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		if strings.HasSuffix(root, reader.HeapSuffix) {
			return []string{root}, nil
		}
		return nil, nil
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, reader.HeapSuffix) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)
	return paths, nil
}
