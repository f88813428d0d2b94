package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DiskExporter writes manifests below a local directory.
type DiskExporter struct {
	dir string
}

// NewDiskExporter creates an exporter rooted at dir. The directory is created
// on first export.
func NewDiskExporter(dir string) *DiskExporter {
	return &DiskExporter{dir: dir}
}

// ExportManifest implements Exporter. The file is written to a temporary
// name and renamed so readers never see a partial manifest.
func (e *DiskExporter) ExportManifest(ctx context.Context, m Manifest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := m.Encode()
	if err != nil {
		return "", err
	}

	target := filepath.Join(e.dir, filepath.FromSlash(m.ObjectKey()))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("creating manifest directory: %w", err)
	}

	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("writing manifest: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("renaming manifest: %w", err)
	}

	abs, err := filepath.Abs(target)
	if err != nil {
		abs = target
	}
	return "file://" + filepath.ToSlash(abs), nil
}
