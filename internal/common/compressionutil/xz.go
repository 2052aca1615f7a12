package compressionutil

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/ulikunitz/xz"
)

// CompressXZ compresses a file using XZ format
func CompressXZ(src, dst string) error {
	inputFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer inputFile.Close()

	outputFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer outputFile.Close()

	xzWriter, err := xz.NewWriter(outputFile)
	if err != nil {
		return err
	}
	defer xzWriter.Close()

	_, err = io.Copy(xzWriter, inputFile)
	if err != nil {
		return fmt.Errorf("failed to compress file: %w", err)
	}

	return nil
}

// CreateTarXZ writes the named files into a tar.xz archive at dst. Archive
// entry names are the paths relative to root. Entries are written in sorted
// order so the archive bytes are reproducible; modification times are not
// recorded.
func CreateTarXZ(root string, paths []string, dst string) error {
	sorted := append([]string{}, paths...)
	sort.Strings(sorted)

	outputFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer outputFile.Close()

	xzWriter, err := xz.NewWriter(outputFile)
	if err != nil {
		return err
	}

	tarWriter := tar.NewWriter(xzWriter)

	for _, path := range sorted {
		if err := addTarEntry(tarWriter, root, path); err != nil {
			tarWriter.Close()
			xzWriter.Close()
			return fmt.Errorf("failed to archive %s: %w", path, err)
		}
	}

	if err := tarWriter.Close(); err != nil {
		xzWriter.Close()
		return err
	}
	return xzWriter.Close()
}

func addTarEntry(tw *tar.Writer, root, path string) error {
	full := filepath.Join(root, path)
	info, err := os.Stat(full)
	if err != nil {
		return err
	}

	header := &tar.Header{
		Name: filepath.ToSlash(path),
		Mode: 0644,
		Size: info.Size(),
	}
	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	f, err := os.Open(full)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(tw, f)
	return err
}
