package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/skuportal/inventory/models"
	"github.com/skuportal/inventory/pricing"
	"github.com/skuportal/inventory/sku"
)

// Store is the persistence surface used for one row.
type Store interface {
	ProductByMainSKU(ctx context.Context, sku string) (*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	VariantBySKU(ctx context.Context, sku string) (*models.Variant, error)
	SaveVariant(ctx context.Context, v *models.Variant) error
}

// SKUAssigner hands out SKUs for new products and variants.
type SKUAssigner interface {
	MainSKU(ctx context.Context, requested string, excludeID uint) (string, error)
	VariantSKU(ctx context.Context, requested string, product *models.Product, size string, excludeID uint) (string, error)
}

// Runner runs fn for a single row, usually inside a database transaction, so
// a failing row leaves nothing behind.
type Runner func(ctx context.Context, fn func(store Store, skus SKUAssigner) error) error

// RowError describes a row that could not be saved.
type RowError struct {
	Row int // 1-based data row, header excluded
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

// Result summarises an import.
type Result struct {
	Imported int
	Skipped  int
	Failed   []RowError
}

type Ingestor struct {
	run    Runner
	calc   pricing.Calculator
	logger *zap.Logger
	now    func() time.Time
}

func New(run Runner, calc pricing.Calculator, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{run: run, calc: calc, logger: logger, now: time.Now}
}

// Ingest upserts every row of table. Rows without a name are skipped; rows
// that fail to save are reported in Result.Failed and the batch carries on.
// A cancelled ctx stops the import and returns the partial result.
func (ig *Ingestor) Ingest(ctx context.Context, table *Table) (Result, error) {
	var res Result
	if table == nil || table.Header == nil {
		return res, nil
	}

	cols := Resolve(table.Header)
	today := ig.now()
	excelDates := table.Format == FormatXLSX

	for i, row := range table.Rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		rec := cols.Record(row, today, excelDates)
		if rec.Name == "" {
			res.Skipped++
			continue
		}

		err := ig.run(ctx, func(store Store, skus SKUAssigner) error {
			return ig.ingestRecord(ctx, store, skus, rec)
		})
		if err != nil {
			ig.logger.Warn("import row failed",
				zap.Int("row", i+1),
				zap.String("name", rec.Name),
				zap.Error(err),
			)
			res.Failed = append(res.Failed, RowError{Row: i + 1, Err: err})
			continue
		}
		res.Imported++
	}

	ig.logger.Info("import finished",
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", len(res.Failed)),
	)
	return res, nil
}

func (ig *Ingestor) ingestRecord(ctx context.Context, store Store, skus SKUAssigner, rec Record) error {
	variant, err := findVariant(ctx, store, rec.VariantSKU)
	if err != nil {
		return err
	}

	// A matched variant stays on its own product.
	if variant == nil {
		product, err := ig.resolveProduct(ctx, store, skus, rec)
		if err != nil {
			return err
		}
		variantSKU, err := skus.VariantSKU(ctx, rec.VariantSKU, product, rec.Size, 0)
		if err != nil {
			return err
		}
		variant = &models.Variant{ProductID: product.ID, VariantSKU: variantSKU}
	}

	variant.Size = rec.Size
	variant.Condition = rec.Condition
	variant.Colour = rec.Colour
	variant.Qty = rec.Qty
	variant.Location = rec.Location
	variant.Status = rec.Status
	variant.Date = rec.Date
	variant.Cost = rec.Cost
	variant.Price = rec.Price
	variant.Fees = rec.Fees
	ig.calc.Apply(variant)

	return store.SaveVariant(ctx, variant)
}

// resolveProduct finds the row's product by main SKU, or creates one.
func (ig *Ingestor) resolveProduct(ctx context.Context, store Store, skus SKUAssigner, rec Record) (*models.Product, error) {
	mainSKU := sku.NormalizeMain(rec.MainSKU)
	if mainSKU != "" {
		product, err := store.ProductByMainSKU(ctx, mainSKU)
		if err == nil {
			return product, nil
		}
		if !errors.Is(err, models.ErrProductNotFound) {
			return nil, err
		}
	}

	assigned, err := skus.MainSKU(ctx, mainSKU, 0)
	if err != nil {
		return nil, err
	}
	product := &models.Product{
		MainSKU:  assigned,
		Name:     rec.Name,
		Brand:    rec.Brand,
		Category: rec.Category,
	}
	if err := store.CreateProduct(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// findVariant looks a variant up by the SKU as written, then normalised.
func findVariant(ctx context.Context, store Store, requested string) (*models.Variant, error) {
	if requested == "" {
		return nil, nil
	}
	candidates := []string{requested}
	if normalized := sku.NormalizeVariant(requested); normalized != requested {
		candidates = append(candidates, normalized)
	}
	for _, c := range candidates {
		v, err := store.VariantBySKU(ctx, c)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, models.ErrVariantNotFound) {
			return nil, err
		}
	}
	return nil, nil
}
