package models

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrDuplicateKey is returned when a write violates a unique constraint,
// i.e. a main or variant SKU that is already in use.
var ErrDuplicateKey = errors.New("duplicate key")

// Store groups the repositories that share one database handle, so that a
// transaction can hand the same set of repositories to its callback.
type Store struct {
	db       *gorm.DB
	Products *ProductsRepository
	Variants *VariantsRepository
	Images   *ImagesRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:       db,
		Products: NewProductsRepository(db),
		Variants: NewVariantsRepository(db),
		Images:   NewImagesRepository(db),
	}
}

// Transaction runs fn against a Store bound to a single database transaction.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// AutoMigrate creates or updates the inventory tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Product{}, &Variant{}, &ProductImage{})
}

func (s *Store) MainSKUs(ctx context.Context) ([]string, error) {
	return s.Products.MainSKUs(ctx)
}

func (s *Store) LastProductID(ctx context.Context) (uint, error) {
	return s.Products.LastID(ctx)
}

func (s *Store) MainSKUTaken(ctx context.Context, sku string, excludeID uint) (bool, error) {
	return s.Products.MainSKUTaken(ctx, sku, excludeID)
}

func (s *Store) VariantSKUTaken(ctx context.Context, sku string, excludeID uint) (bool, error) {
	return s.Variants.VariantSKUTaken(ctx, sku, excludeID)
}

func (s *Store) ProductByMainSKU(ctx context.Context, sku string) (*Product, error) {
	return s.Products.GetByMainSKU(ctx, sku)
}

func (s *Store) CreateProduct(ctx context.Context, p *Product) error {
	return s.Products.Create(ctx, p)
}

func (s *Store) VariantBySKU(ctx context.Context, sku string) (*Variant, error) {
	return s.Variants.GetBySKU(ctx, sku)
}

func (s *Store) SaveVariant(ctx context.Context, v *Variant) error {
	return s.Variants.Save(ctx, v)
}

func (s *Store) VariantsByStatus(ctx context.Context, status string) ([]Variant, error) {
	return s.Variants.ListByStatus(ctx, status)
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	return err
}
