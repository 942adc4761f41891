package models

import (
	"time"
)

// Product represents a catalog entry grouping one or more sellable variants.
// MainSKU is unique and assigned automatically when left blank.
type Product struct {
	ID        uint      `gorm:"primaryKey"`
	MainSKU   string    `gorm:"column:main_sku;size:10;uniqueIndex;not null"`
	Name      string    `gorm:"size:255;not null"`
	Brand     string    `gorm:"size:120;not null"`
	Category  string    `gorm:"size:120;not null"`
	Archived  bool      `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null"`
	Variants  []Variant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

func (p *Product) TableName() string {
	return "products"
}
