// Package listing bundles variants that are ready to be listed into a ZIP
// archive for bulk upload to marketplace tools.
package listing

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/skuportal/inventory/models"
)

// ErrNothingToExport is returned when no variant has the requested status.
var ErrNothingToExport = errors.New("nothing to export")

// DefaultStatus is the status exported when the caller does not pick one.
const DefaultStatus = models.StatusToList

var manifestHeader = []string{
	"Folder", "Main SKU", "Variant SKU", "Title", "Brand", "Category", "Size", "Condition", "Colour",
	"Price", "Cost", "Qty", "Location", "Status", "Images", "Description",
}

// Source loads exportable variants with their product and images.
type Source interface {
	VariantsByStatus(ctx context.Context, status string) ([]models.Variant, error)
}

type Packager struct {
	source Source
	files  fs.FS
	logger *zap.Logger
}

// NewPackager reads image files from files, which is rooted at the media root.
func NewPackager(source Source, files fs.FS, logger *zap.Logger) *Packager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Packager{source: source, files: files, logger: logger}
}

// Prepare selects the variants of non-archived products that are in status.
func (p *Packager) Prepare(ctx context.Context, status string) (*Bundle, error) {
	if status == "" {
		status = DefaultStatus
	}
	variants, err := p.source.VariantsByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to load variants: %w", err)
	}
	if len(variants) == 0 {
		return nil, ErrNothingToExport
	}
	return &Bundle{Status: status, Variants: variants, files: p.files, logger: p.logger}, nil
}

// Bundle is a prepared export.
type Bundle struct {
	Status   string
	Variants []models.Variant

	// MissingImages counts image records skipped by the last WriteTo.
	MissingImages int

	files  fs.FS
	logger *zap.Logger
}

// Metadata is the product.json record of one variant.
type Metadata struct {
	MainSKU     string   `json:"main_sku"`
	VariantSKU  string   `json:"variant_sku"`
	Title       string   `json:"title"`
	Brand       string   `json:"brand"`
	Category    string   `json:"category"`
	Size        string   `json:"size"`
	Condition   string   `json:"condition"`
	Colour      string   `json:"colour"`
	Date        string   `json:"date"`
	Cost        string   `json:"cost"`
	Price       string   `json:"price"`
	Fees        string   `json:"fees"`
	Net         string   `json:"net"`
	Profit      string   `json:"profit"`
	Margin      string   `json:"margin"`
	Qty         int      `json:"qty"`
	Location    string   `json:"location"`
	Status      string   `json:"status"`
	Images      []string `json:"images"`
	Description string   `json:"description"`
}

// Description joins the non-empty descriptive fields of v, one per line.
func Description(v models.Variant) string {
	var lines []string
	if title := strings.TrimSpace(v.Product.Name); title != "" {
		lines = append(lines, title)
	}
	for _, f := range []struct{ label, value string }{
		{"Brand", v.Product.Brand},
		{"Category", v.Product.Category},
		{"Size", v.Size},
		{"Condition", v.Condition},
		{"Colour", v.Colour},
	} {
		if value := strings.TrimSpace(f.value); value != "" {
			lines = append(lines, f.label+": "+value)
		}
	}
	return strings.Join(lines, "\n")
}

// FolderName is {variant_sku|main_sku}-{slug of the product name}.
func FolderName(v models.Variant) string {
	prefix := v.VariantSKU
	if prefix == "" {
		prefix = v.Product.MainSKU
	}
	prefix = strings.NewReplacer("/", "-", "\\", "-").Replace(prefix)
	return prefix + "-" + Slugify(v.Product.Name)
}

// WriteTo writes the bundle as a ZIP archive.
func (b *Bundle) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)
	b.MissingImages = 0

	var manifest strings.Builder
	mw := csv.NewWriter(&manifest)
	if err := mw.Write(manifestHeader); err != nil {
		return cw.n, err
	}

	used := make(map[string]bool, len(b.Variants))
	for _, v := range b.Variants {
		folder := uniqueFolder(used, FolderName(v))

		images, err := b.writeImages(zw, folder, v)
		if err != nil {
			return cw.n, err
		}

		meta := metadataFor(v, images)
		data, err := json.MarshalIndent(meta, "", "  ")
		if err != nil {
			return cw.n, fmt.Errorf("failed to encode %s: %w", folder, err)
		}
		if err := writeEntry(zw, folder+"/product.json", data); err != nil {
			return cw.n, err
		}
		if err := writeEntry(zw, folder+"/description.txt", []byte(meta.Description+"\n")); err != nil {
			return cw.n, err
		}

		if err := mw.Write([]string{
			folder, meta.MainSKU, meta.VariantSKU, meta.Title, meta.Brand, meta.Category, meta.Size,
			meta.Condition, meta.Colour, meta.Price, meta.Cost, strconv.Itoa(meta.Qty), meta.Location,
			meta.Status, strings.Join(images, ";"), strings.ReplaceAll(meta.Description, "\n", " | "),
		}); err != nil {
			return cw.n, err
		}
	}

	mw.Flush()
	if err := mw.Error(); err != nil {
		return cw.n, err
	}
	if err := writeEntry(zw, "manifest.csv", []byte(manifest.String())); err != nil {
		return cw.n, err
	}
	if err := zw.Close(); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

// uniqueFolder returns base, or base-N with the smallest N >= 2 not yet used,
// and marks the result used.
func uniqueFolder(used map[string]bool, base string) string {
	name := base
	for n := 2; used[name]; n++ {
		name = base + "-" + strconv.Itoa(n)
	}
	used[name] = true
	return name
}

// writeImages copies the variant's image files that still exist and returns
// their names relative to the folder.
func (b *Bundle) writeImages(zw *zip.Writer, folder string, v models.Variant) ([]string, error) {
	var names []string
	for _, img := range v.Images {
		src, err := b.files.Open(img.Path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
				b.MissingImages++
				b.logger.Warn("image file missing, skipped",
					zap.String("variant_sku", v.VariantSKU),
					zap.String("path", img.Path),
				)
				continue
			}
			return nil, fmt.Errorf("failed to open image %s: %w", img.Path, err)
		}

		ext := strings.ToLower(path.Ext(img.Path))
		if ext == "" {
			ext = ".jpg"
		}
		name := fmt.Sprintf("images/%02d%s", len(names)+1, ext)

		dst, err := zw.Create(folder + "/" + name)
		if err == nil {
			_, err = io.Copy(dst, src)
		}
		src.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to add image %s: %w", img.Path, err)
		}
		names = append(names, name)
	}
	return names, nil
}

func metadataFor(v models.Variant, images []string) Metadata {
	date := ""
	if !v.Date.IsZero() {
		date = v.Date.Format("2006-01-02")
	}
	if images == nil {
		images = []string{}
	}
	return Metadata{
		MainSKU:     v.Product.MainSKU,
		VariantSKU:  v.VariantSKU,
		Title:       v.Product.Name,
		Brand:       v.Product.Brand,
		Category:    v.Product.Category,
		Size:        v.Size,
		Condition:   v.Condition,
		Colour:      v.Colour,
		Date:        date,
		Cost:        v.Cost.StringFixed(2),
		Price:       v.Price.StringFixed(2),
		Fees:        v.Fees.StringFixed(2),
		Net:         v.Net.StringFixed(2),
		Profit:      v.Profit.StringFixed(2),
		Margin:      v.Margin.StringFixed(2),
		Qty:         v.Qty,
		Location:    v.Location,
		Status:      v.Status,
		Images:      images,
		Description: Description(v),
	}
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	f, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	return err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
