// Package media stores uploaded variant images under the media root.
package media

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidPath is returned for paths that escape the media root.
var ErrInvalidPath = errors.New("invalid media path")

const (
	// ProductsDir holds variant images, one folder per main SKU and variant.
	ProductsDir = "products"
	// SnapshotFile is the snapshot location relative to the media root.
	SnapshotFile = "private/inventory.csv"
)

var allowedExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// Store keeps files below root. Paths handed out and accepted are relative to
// root and use forward slashes.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

func (s *Store) Root() string {
	return s.root
}

// FS exposes the media root read-only.
func (s *Store) FS() fs.FS {
	return os.DirFS(s.root)
}

// SnapshotPath is the absolute path of the CSV snapshot.
func (s *Store) SnapshotPath() string {
	return filepath.Join(s.root, filepath.FromSlash(SnapshotFile))
}

// Save writes an uploaded image to products/{mainSKU}/{variantID}/{uuid}{ext}
// and returns that relative path.
func (s *Store) Save(mainSKU string, variantID uint, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	if !allowedExt[ext] {
		return "", fmt.Errorf("unsupported image type %q", ext)
	}

	rel := path.Join(ProductsDir, safeSegment(mainSKU), strconv.FormatUint(uint64(variantID), 10), uuid.NewString()+ext)
	abs, err := s.Abs(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("failed to create image dir: %w", err)
	}

	f, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create image: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(abs)
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(abs)
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return rel, nil
}

// Abs resolves a relative media path, refusing anything outside the root.
func (s *Store) Abs(rel string) (string, error) {
	if rel == "" || !fs.ValidPath(rel) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}
	return filepath.Join(s.root, filepath.FromSlash(rel)), nil
}

// Remove deletes a stored file. Files that are already gone are not an error.
func (s *Store) Remove(rel string) error {
	abs, err := s.Abs(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func safeSegment(s string) string {
	s = strings.NewReplacer("/", "-", "\\", "-", "..", "-").Replace(strings.TrimSpace(s))
	if s == "" {
		return "unassigned"
	}
	return s
}
