package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Variant is a specific sellable unit of a Product with its own pricing and status.
// Fees, Net, Profit and Margin are derived from Price, Cost and Fees before every
// save; they are a cache of that computation, never an independent source.
type Variant struct {
	ID         uint            `gorm:"primaryKey"`
	ProductID  uint            `gorm:"not null;index"`
	Product    Product         `gorm:"foreignKey:ProductID"`
	VariantSKU string          `gorm:"column:variant_sku;size:40;uniqueIndex;not null"`
	Size       string          `gorm:"size:40;not null"`
	Condition  string          `gorm:"size:40;not null"`
	Colour     string          `gorm:"size:120;not null"`
	Date       time.Time       `gorm:"type:date;not null"`
	Cost       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Price      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Fees       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Net        decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Profit     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Margin     decimal.Decimal `gorm:"type:decimal(8,2);not null"`
	Qty        int             `gorm:"not null"`
	Location   string          `gorm:"size:120;not null"`
	Status     string          `gorm:"size:20;not null;index"`
	Images     []ProductImage  `gorm:"foreignKey:VariantID;constraint:OnDelete:CASCADE"`
}

func (v *Variant) TableName() string {
	return "variants"
}

// ProductImage stores a reference to an uploaded image file, relative to the media root.
type ProductImage struct {
	ID         uint      `gorm:"primaryKey"`
	VariantID  uint      `gorm:"not null;index"`
	Path       string    `gorm:"size:255;not null"`
	UploadedAt time.Time `gorm:"autoCreateTime;not null"`
}

func (i *ProductImage) TableName() string {
	return "product_images"
}

// VariantRow is a variant flattened together with its parent product fields.
// It is the row shape of the CSV snapshot and of the reporting queries.
type VariantRow struct {
	VariantID   uint            `json:"variant_id" db:"variant_id"`
	ProductID   uint            `json:"product_id" db:"product_id"`
	MainSKU     string          `json:"main_sku" db:"main_sku"`
	VariantSKU  string          `json:"variant_sku" db:"variant_sku"`
	ProductName string          `json:"product_name" db:"product_name"`
	Brand       string          `json:"brand" db:"brand"`
	Category    string          `json:"category" db:"category"`
	Size        string          `json:"size" db:"size"`
	Condition   string          `json:"condition" db:"condition"`
	Colour      string          `json:"colour" db:"colour"`
	Date        time.Time       `json:"date" db:"date"`
	Cost        decimal.Decimal `json:"cost" db:"cost"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Fees        decimal.Decimal `json:"fees" db:"fees"`
	Net         decimal.Decimal `json:"net" db:"net"`
	Profit      decimal.Decimal `json:"profit" db:"profit"`
	Margin      decimal.Decimal `json:"margin" db:"margin"`
	Qty         int             `json:"qty" db:"qty"`
	Location    string          `json:"location" db:"location"`
	Status      string          `json:"status" db:"status"`
}
