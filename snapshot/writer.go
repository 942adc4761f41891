package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/skuportal/inventory/models"
)

// RowSource loads every variant joined with its product.
type RowSource interface {
	VariantRows(ctx context.Context) ([]models.VariantRow, error)
}

// Writer renders the full inventory into a CSV file.
type Writer struct {
	path   string
	source RowSource
}

func NewWriter(path string, source RowSource) *Writer {
	return &Writer{path: path, source: source}
}

// Path is the destination file.
func (w *Writer) Path() string {
	return w.path
}

// Write replaces the snapshot file. The rows go to a temp file in the same
// directory which is synced and renamed over the destination, so readers see
// either the previous or the new content.
func (w *Writer) Write(ctx context.Context) error {
	rows, err := w.source.VariantRows(ctx)
	if err != nil {
		return fmt.Errorf("failed to load variant rows: %w", err)
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(w.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if err := Encode(tmp, rows); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("failed to chmod snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		os.Remove(tmpName)
		committed = true
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	committed = true
	return nil
}
