package models

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductsRepository struct {
	db *gorm.DB
}

// ErrProductNotFound is returned when a product is not found.
var ErrProductNotFound = errors.New("product not found")

// ProductFilters narrows a dashboard search.
// Archived selects archived products only; the default lists active ones.
type ProductFilters struct {
	Query    string
	Status   string
	Archived bool
}

func NewProductsRepository(db *gorm.DB) *ProductsRepository {
	return &ProductsRepository{
		db: db,
	}
}

func (r *ProductsRepository) Create(ctx context.Context, p *Product) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error)
}

func (r *ProductsRepository) Update(ctx context.Context, p *Product) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Save(p).Error)
}

func (r *ProductsRepository) GetByID(ctx context.Context, id uint) (*Product, error) {
	var product Product
	if err := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("variants.id") }).
		Preload("Variants.Images").
		First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (r *ProductsRepository) GetByMainSKU(ctx context.Context, mainSKU string) (*Product, error) {
	var product Product
	if err := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("variants.id") }).
		Preload("Variants.Images").
		Where("main_sku = ?", mainSKU).
		First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err // Other DB error
	}
	return &product, nil
}

// Search returns one page of products matching filters, newest first, together
// with the total number of matches.
func (r *ProductsRepository) Search(ctx context.Context, offset, limit int, filters ProductFilters) ([]Product, int64, error) {
	var products []Product
	var total int64

	query := r.db.WithContext(ctx).Model(&Product{})

	// Filter
	if q := strings.ToLower(strings.TrimSpace(filters.Query)); q != "" {
		like := "%" + q + "%"
		query = query.Where(`(LOWER(products.name) LIKE ? OR LOWER(products.brand) LIKE ? OR LOWER(products.category) LIKE ?
			OR LOWER(products.main_sku) LIKE ?
			OR EXISTS (SELECT 1 FROM variants v WHERE v.product_id = products.id AND LOWER(v.variant_sku) LIKE ?))`,
			like, like, like, like, like)
	}
	if filters.Status != "" {
		query = query.Where("EXISTS (SELECT 1 FROM variants v WHERE v.product_id = products.id AND v.status = ?)", filters.Status)
	}
	query = query.Where("products.archived = ?", filters.Archived)

	// Count total after filtering
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Apply pagination
	if err := query.
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("variants.id") }).
		Order("products.id DESC").
		Offset(offset).Limit(limit).
		Find(&products).Error; err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// Delete removes a product, its variants and their image rows in one transaction.
// Image files on disk are the caller's concern.
func (r *ProductsRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		variantIDs := tx.Model(&Variant{}).Select("id").Where("product_id = ?", id)
		if err := tx.Where("variant_id IN (?)", variantIDs).Delete(&ProductImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&Variant{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&Product{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrProductNotFound
		}
		return nil
	})
}

func (r *ProductsRepository) SetArchived(ctx context.Context, id uint, archived bool) error {
	res := r.db.WithContext(ctx).Model(&Product{}).Where("id = ?", id).Update("archived", archived)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// SetCategory updates the category of every listed product and returns the number of rows changed.
func (r *ProductsRepository) SetCategory(ctx context.Context, ids []uint, category string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&Product{}).Where("id IN ?", ids).Update("category", category)
	return res.RowsAffected, res.Error
}

func (r *ProductsRepository) MainSKUs(ctx context.Context) ([]string, error) {
	var skus []string
	if err := r.db.WithContext(ctx).Model(&Product{}).Pluck("main_sku", &skus).Error; err != nil {
		return nil, err
	}
	return skus, nil
}

// LastID returns the highest product ID, or 0 when the table is empty.
func (r *ProductsRepository) LastID(ctx context.Context) (uint, error) {
	var id uint
	err := r.db.WithContext(ctx).Model(&Product{}).Select("COALESCE(MAX(id), 0)").Scan(&id).Error
	return id, err
}

// MainSKUTaken reports whether a product other than excludeID already uses mainSKU.
func (r *ProductsRepository) MainSKUTaken(ctx context.Context, mainSKU string, excludeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Product{}).
		Where("main_sku = ? AND id <> ?", mainSKU, excludeID).
		Count(&count).Error
	return count > 0, err
}
