// Package inventory implements the product and variant mutations. Every
// successful mutation schedules a snapshot rewrite.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/skuportal/inventory/ingest"
	"github.com/skuportal/inventory/media"
	"github.com/skuportal/inventory/models"
	"github.com/skuportal/inventory/pricing"
	"github.com/skuportal/inventory/sku"
)

const maxSizeLen = 40

// ValidationError carries field-level messages for rejected input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// Trigger is notified after data changes.
type Trigger interface {
	Trigger()
}

// ProductInput holds the editable product fields.
type ProductInput struct {
	MainSKU  string
	Name     string
	Brand    string
	Category string
}

// VariantInput holds the editable variant fields. On create a nil Date means
// today and a nil Qty means 1; on update nil keeps the stored value.
type VariantInput struct {
	VariantSKU string
	Size       string
	Condition  string
	Colour     string
	Date       *time.Time
	Cost       decimal.Decimal
	Price      decimal.Decimal
	Fees       decimal.Decimal
	Qty        *int
	Location   string
	Status     string
}

// Upload is one image file from a request.
type Upload struct {
	Filename string
	Body     io.Reader
}

// BulkUpdate lists the changes applied to every selected product. Empty
// fields are left alone.
type BulkUpdate struct {
	ProductIDs []uint
	Status     string
	Location   string
	Category   string
}

type Service struct {
	store    *models.Store
	calc     pricing.Calculator
	files    *media.Store
	snapshot Trigger
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(store *models.Store, calc pricing.Calculator, files *media.Store, snapshot Trigger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		calc:     calc,
		files:    files,
		snapshot: snapshot,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateProduct stores a product with its first variant and images.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput, vin VariantInput, images []Upload) (*models.Product, error) {
	if err := validateProduct(in); err != nil {
		return nil, err
	}
	if err := validateVariant(vin); err != nil {
		return nil, err
	}

	var product *models.Product
	var saved []string
	err := s.store.Transaction(ctx, func(tx *models.Store) error {
		skus := sku.NewAssigner(tx)
		mainSKU, err := skus.MainSKU(ctx, in.MainSKU, 0)
		if err != nil {
			return fieldError("main_sku", err)
		}
		product = &models.Product{
			MainSKU:  mainSKU,
			Name:     strings.TrimSpace(in.Name),
			Brand:    strings.TrimSpace(in.Brand),
			Category: orDefault(in.Category, models.DefaultCategory),
		}
		if err := tx.Products.Create(ctx, product); err != nil {
			return fieldError("main_sku", err)
		}

		variant := &models.Variant{ProductID: product.ID}
		if err := s.fillVariant(ctx, skus, product, variant, vin); err != nil {
			return err
		}
		if err := tx.Variants.Create(ctx, variant); err != nil {
			return fieldError("variant_sku", err)
		}

		imgs, paths, err := s.saveImages(ctx, tx, product.MainSKU, variant.ID, images)
		saved = append(saved, paths...)
		if err != nil {
			return err
		}
		variant.Images = imgs
		product.Variants = []models.Variant{*variant}
		return nil
	})
	if err != nil {
		s.discard(saved)
		return nil, err
	}

	s.logger.Info("product created", zap.Uint("product_id", product.ID), zap.String("main_sku", product.MainSKU))
	s.changed()
	return product, nil
}

// UpdateProduct edits a product. A blank main SKU is regenerated.
func (s *Service) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	if err := validateProduct(in); err != nil {
		return nil, err
	}

	var product *models.Product
	err := s.store.Transaction(ctx, func(tx *models.Store) error {
		var err error
		product, err = tx.Products.GetByID(ctx, id)
		if err != nil {
			return err
		}
		mainSKU, err := sku.NewAssigner(tx).MainSKU(ctx, in.MainSKU, id)
		if err != nil {
			return fieldError("main_sku", err)
		}
		product.MainSKU = mainSKU
		product.Name = strings.TrimSpace(in.Name)
		product.Brand = strings.TrimSpace(in.Brand)
		product.Category = orDefault(in.Category, models.DefaultCategory)
		return fieldError("main_sku", tx.Products.Update(ctx, product))
	})
	if err != nil {
		return nil, err
	}

	s.changed()
	return product, nil
}

// DeleteProduct removes a product, its variants and their image files.
func (s *Service) DeleteProduct(ctx context.Context, id uint) error {
	product, err := s.store.Products.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Products.Delete(ctx, id); err != nil {
		return err
	}

	var paths []string
	for _, v := range product.Variants {
		for _, img := range v.Images {
			paths = append(paths, img.Path)
		}
	}
	s.discard(paths)

	s.logger.Info("product deleted", zap.Uint("product_id", id), zap.String("main_sku", product.MainSKU))
	s.changed()
	return nil
}

func (s *Service) ArchiveProduct(ctx context.Context, id uint) error {
	return s.setArchived(ctx, id, true)
}

func (s *Service) UnarchiveProduct(ctx context.Context, id uint) error {
	return s.setArchived(ctx, id, false)
}

func (s *Service) setArchived(ctx context.Context, id uint, archived bool) error {
	if err := s.store.Products.SetArchived(ctx, id, archived); err != nil {
		return err
	}
	s.changed()
	return nil
}

// CreateVariant adds a variant and its images to an existing product.
func (s *Service) CreateVariant(ctx context.Context, productID uint, vin VariantInput, images []Upload) (*models.Variant, error) {
	if err := validateVariant(vin); err != nil {
		return nil, err
	}

	var variant *models.Variant
	var saved []string
	err := s.store.Transaction(ctx, func(tx *models.Store) error {
		product, err := tx.Products.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		variant = &models.Variant{ProductID: product.ID}
		if err := s.fillVariant(ctx, sku.NewAssigner(tx), product, variant, vin); err != nil {
			return err
		}
		if err := tx.Variants.Create(ctx, variant); err != nil {
			return fieldError("variant_sku", err)
		}

		imgs, paths, err := s.saveImages(ctx, tx, product.MainSKU, variant.ID, images)
		saved = append(saved, paths...)
		if err != nil {
			return err
		}
		variant.Images = imgs
		variant.Product = *product
		variant.Product.Variants = nil
		return nil
	})
	if err != nil {
		s.discard(saved)
		return nil, err
	}

	s.changed()
	return variant, nil
}

// UpdateVariant edits a variant. A blank variant SKU is derived again from
// the product and size.
func (s *Service) UpdateVariant(ctx context.Context, id uint, vin VariantInput) (*models.Variant, error) {
	if err := validateVariant(vin); err != nil {
		return nil, err
	}

	var variant *models.Variant
	err := s.store.Transaction(ctx, func(tx *models.Store) error {
		var err error
		variant, err = tx.Variants.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.fillVariant(ctx, sku.NewAssigner(tx), &variant.Product, variant, vin); err != nil {
			return err
		}
		return fieldError("variant_sku", tx.Variants.Update(ctx, variant))
	})
	if err != nil {
		return nil, err
	}

	s.changed()
	return variant, nil
}

// DeleteVariant removes a variant and its image files.
func (s *Service) DeleteVariant(ctx context.Context, id uint) error {
	variant, err := s.store.Variants.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Variants.Delete(ctx, id); err != nil {
		return err
	}

	paths := make([]string, len(variant.Images))
	for i, img := range variant.Images {
		paths[i] = img.Path
	}
	s.discard(paths)

	s.changed()
	return nil
}

// AttachImages stores more images for an existing variant.
func (s *Service) AttachImages(ctx context.Context, variantID uint, images []Upload) ([]models.ProductImage, error) {
	var imgs []models.ProductImage
	var saved []string
	err := s.store.Transaction(ctx, func(tx *models.Store) error {
		variant, err := tx.Variants.GetByID(ctx, variantID)
		if err != nil {
			return err
		}
		imgs, saved, err = s.saveImages(ctx, tx, variant.Product.MainSKU, variant.ID, images)
		return err
	})
	if err != nil {
		s.discard(saved)
		return nil, err
	}

	s.changed()
	return imgs, nil
}

// BulkUpdate applies the same status, location or category to many products.
// Unknown statuses are ignored. It returns the number of rows changed.
func (s *Service) BulkUpdate(ctx context.Context, u BulkUpdate) (int64, error) {
	if len(u.ProductIDs) == 0 {
		return 0, invalid("ids", "no items selected")
	}

	var updated int64
	err := s.store.Transaction(ctx, func(tx *models.Store) error {
		if category := strings.TrimSpace(u.Category); category != "" {
			n, err := tx.Products.SetCategory(ctx, u.ProductIDs, category)
			if err != nil {
				return err
			}
			updated += n
		}

		fields := map[string]any{}
		if status := strings.TrimSpace(u.Status); status != "" && models.IsKnownStatus(status) {
			fields["status"] = status
		}
		if location := strings.TrimSpace(u.Location); location != "" {
			fields["location"] = location
		}
		n, err := tx.Variants.BulkUpdate(ctx, u.ProductIDs, fields)
		if err != nil {
			return err
		}
		updated += n
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.changed()
	return updated, nil
}

// Import ingests a CSV or XLSX upload. Each row commits on its own.
func (s *Service) Import(ctx context.Context, filename string, r io.Reader) (ingest.Result, error) {
	table, err := ingest.Decode(filename, r)
	if err != nil {
		return ingest.Result{}, err
	}

	s.logger.Info("import decoded",
		zap.String("file", filename),
		zap.Int("rows", len(table.Rows)),
		zap.Int("malformed", table.Malformed),
	)

	res, err := ingest.New(s.runRow, s.calc, s.logger).Ingest(ctx, table)
	if res.Imported > 0 {
		s.changed()
	}
	return res, err
}

func (s *Service) runRow(ctx context.Context, fn func(ingest.Store, ingest.SKUAssigner) error) error {
	return s.store.Transaction(ctx, func(tx *models.Store) error {
		return fn(tx, sku.NewAssigner(tx))
	})
}

func (s *Service) fillVariant(ctx context.Context, skus *sku.Assigner, product *models.Product, v *models.Variant, in VariantInput) error {
	v.Size = strings.TrimSpace(in.Size)
	v.Condition = orDefault(in.Condition, models.DefaultCondition)
	v.Colour = strings.TrimSpace(in.Colour)
	v.Location = orDefault(in.Location, models.DefaultLocation)
	v.Status = orDefault(in.Status, models.DefaultStatus)
	v.Cost = in.Cost
	v.Price = in.Price
	v.Fees = in.Fees
	if in.Qty != nil {
		v.Qty = *in.Qty
	} else if v.ID == 0 {
		v.Qty = 1
	}
	if in.Date != nil {
		v.Date = dateOnly(*in.Date)
	} else if v.ID == 0 || v.Date.IsZero() {
		v.Date = dateOnly(s.now())
	}

	variantSKU, err := skus.VariantSKU(ctx, in.VariantSKU, product, v.Size, v.ID)
	if err != nil {
		return fieldError("variant_sku", err)
	}
	v.VariantSKU = variantSKU
	s.calc.Apply(v)
	return nil
}

func (s *Service) saveImages(ctx context.Context, tx *models.Store, mainSKU string, variantID uint, uploads []Upload) ([]models.ProductImage, []string, error) {
	var imgs []models.ProductImage
	var paths []string
	for _, u := range uploads {
		rel, err := s.files.Save(mainSKU, variantID, u.Filename, u.Body)
		if err != nil {
			return nil, paths, invalid("images", err.Error())
		}
		paths = append(paths, rel)
		img := models.ProductImage{VariantID: variantID, Path: rel}
		if err := tx.Images.Create(ctx, &img); err != nil {
			return nil, paths, fmt.Errorf("failed to store image: %w", err)
		}
		imgs = append(imgs, img)
	}
	return imgs, paths, nil
}

// discard removes image files whose rows are gone or were never committed.
func (s *Service) discard(paths []string) {
	for _, p := range paths {
		if err := s.files.Remove(p); err != nil {
			s.logger.Warn("failed to remove image", zap.String("path", p), zap.Error(err))
		}
	}
}

func (s *Service) changed() {
	if s.snapshot != nil {
		s.snapshot.Trigger()
	}
}

func validateProduct(in ProductInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return invalid("name", "name is required")
	}
	return nil
}

func validateVariant(in VariantInput) error {
	fields := map[string]string{}
	for name, d := range map[string]decimal.Decimal{"cost": in.Cost, "price": in.Price, "fees": in.Fees} {
		if d.IsNegative() {
			fields[name] = name + " must not be negative"
		}
	}
	if in.Qty != nil && *in.Qty < 0 {
		fields["qty"] = "qty must not be negative"
	}
	if utf8.RuneCountInString(strings.TrimSpace(in.Size)) > maxSizeLen {
		fields["size"] = fmt.Sprintf("size must be at most %d characters", maxSizeLen)
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// fieldError turns SKU collisions into a ValidationError on field.
func fieldError(field string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sku.ErrDuplicate) || errors.Is(err, models.ErrDuplicateKey) {
		msg := err.Error()
		if errors.Is(err, models.ErrDuplicateKey) {
			msg = "sku already in use"
		}
		return invalid(field, msg)
	}
	return err
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}
