package models

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrVariantNotFound is returned when a variant is not found.
var ErrVariantNotFound = errors.New("variant not found")

type VariantsRepository struct {
	db *gorm.DB
}

func NewVariantsRepository(db *gorm.DB) *VariantsRepository {
	return &VariantsRepository{db: db}
}

func (r *VariantsRepository) Create(ctx context.Context, v *Variant) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(v).Error)
}

func (r *VariantsRepository) Update(ctx context.Context, v *Variant) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Save(v).Error)
}

// Save creates v when it has no ID yet and updates it otherwise.
func (r *VariantsRepository) Save(ctx context.Context, v *Variant) error {
	if v.ID == 0 {
		return r.Create(ctx, v)
	}
	return r.Update(ctx, v)
}

func (r *VariantsRepository) GetByID(ctx context.Context, id uint) (*Variant, error) {
	var variant Variant
	if err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Images").
		First(&variant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVariantNotFound
		}
		return nil, err
	}
	return &variant, nil
}

func (r *VariantsRepository) GetBySKU(ctx context.Context, sku string) (*Variant, error) {
	var variant Variant
	if err := r.db.WithContext(ctx).
		Preload("Product").
		Where("variant_sku = ?", sku).
		First(&variant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVariantNotFound
		}
		return nil, err
	}
	return &variant, nil
}

// ListByStatus returns the variants in status that belong to non-archived
// products, with product and images loaded.
func (r *VariantsRepository) ListByStatus(ctx context.Context, status string) ([]Variant, error) {
	var variants []Variant
	err := r.db.WithContext(ctx).
		Joins("JOIN products ON products.id = variants.product_id").
		Where("variants.status = ? AND products.archived = ?", status, false).
		Preload("Product").
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("product_images.id") }).
		Order("variants.id").
		Find(&variants).Error
	return variants, err
}

// Delete removes a variant together with its image rows.
func (r *VariantsRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("variant_id = ?", id).Delete(&ProductImage{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&Variant{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVariantNotFound
		}
		return nil
	})
}

// VariantSKUTaken reports whether a variant other than excludeID already uses sku.
func (r *VariantsRepository) VariantSKUTaken(ctx context.Context, sku string, excludeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Variant{}).
		Where("variant_sku = ? AND id <> ?", sku, excludeID).
		Count(&count).Error
	return count > 0, err
}

// BulkUpdate applies fields to every variant of the given products and returns
// the number of rows changed.
func (r *VariantsRepository) BulkUpdate(ctx context.Context, productIDs []uint, fields map[string]any) (int64, error) {
	if len(productIDs) == 0 || len(fields) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&Variant{}).Where("product_id IN ?", productIDs).Updates(fields)
	return res.RowsAffected, res.Error
}

type ImagesRepository struct {
	db *gorm.DB
}

func NewImagesRepository(db *gorm.DB) *ImagesRepository {
	return &ImagesRepository{db: db}
}

func (r *ImagesRepository) Create(ctx context.Context, img *ProductImage) error {
	return r.db.WithContext(ctx).Create(img).Error
}
