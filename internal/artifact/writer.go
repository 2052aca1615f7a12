// Package artifact persists generated files under an output root. Failures
// are reported per path so one unwritable file never discards the rest of a
// generation run.
package artifact

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/deploymenttheory/go-cicd-forge/internal/common/compressionutil"
	"github.com/deploymenttheory/go-cicd-forge/internal/common/fsutil"
)

// WriteError ties a filesystem failure to the artifact path that caused
// it.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Writer writes artifacts relative to Root, creating intermediate
// directories on demand. Writes are idempotent: re-running over an existing
// tree replaces file contents in place.
type Writer struct {
	Root string
}

func NewWriter(root string) *Writer {
	return &Writer{Root: root}
}

// Write persists one artifact and returns its absolute path.
func (w *Writer) Write(relPath string, data []byte) (string, error) {
	full := filepath.Join(w.Root, filepath.FromSlash(relPath))

	if err := fsutil.CreateDirIfNotExists(filepath.Dir(full)); err != nil {
		return "", &WriteError{Path: relPath, Err: err}
	}
	if err := fsutil.WriteFile(full, data, 0644); err != nil {
		return "", &WriteError{Path: relPath, Err: err}
	}
	return full, nil
}

// Bundle packs the given artifacts, addressed relative to Root, into a
// tar.xz archive at dst. Entries are archived in sorted order so the bundle
// bytes are reproducible.
func (w *Writer) Bundle(relPaths []string, dst string) error {
	sorted := append([]string{}, relPaths...)
	sort.Strings(sorted)

	if err := compressionutil.CreateTarXZ(w.Root, sorted, dst); err != nil {
		return &WriteError{Path: dst, Err: err}
	}
	return nil
}
