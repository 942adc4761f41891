package products

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/skuportal/inventory/ingest"
	"github.com/skuportal/inventory/inventory"
)

type ProductRequest struct {
	MainSKU  string `json:"main_sku" validate:"max=10"`
	Name     string `json:"name" validate:"required,max=255"`
	Brand    string `json:"brand" validate:"max=120"`
	Category string `json:"category" validate:"max=120"`
}

func (p ProductRequest) input() inventory.ProductInput {
	return inventory.ProductInput{
		MainSKU:  p.MainSKU,
		Name:     p.Name,
		Brand:    p.Brand,
		Category: p.Category,
	}
}

// VariantRequest is a variant body. Date accepts YYYY-MM-DD, DD/MM/YYYY or
// DD-MM-YYYY, with or without leading zeros.
type VariantRequest struct {
	VariantSKU string          `json:"variant_sku" validate:"max=40"`
	Size       string          `json:"size" validate:"max=40"`
	Condition  string          `json:"condition" validate:"max=40"`
	Colour     string          `json:"colour" validate:"max=120"`
	Date       string          `json:"date"`
	Cost       decimal.Decimal `json:"cost" validate:"min=0"`
	Price      decimal.Decimal `json:"price" validate:"min=0"`
	Fees       decimal.Decimal `json:"fees" validate:"min=0"`
	Qty        *int            `json:"qty" validate:"omitempty,min=0"`
	Location   string          `json:"location" validate:"max=120"`
	Status     string          `json:"status" validate:"max=20"`
}

func (v VariantRequest) input() (inventory.VariantInput, error) {
	in := inventory.VariantInput{
		VariantSKU: v.VariantSKU,
		Size:       v.Size,
		Condition:  v.Condition,
		Colour:     v.Colour,
		Cost:       v.Cost,
		Price:      v.Price,
		Fees:       v.Fees,
		Qty:        v.Qty,
		Location:   v.Location,
		Status:     v.Status,
	}
	if s := strings.TrimSpace(v.Date); s != "" {
		d, err := parseDate(s)
		if err != nil {
			return in, &inventory.ValidationError{Fields: map[string]string{"date": err.Error()}}
		}
		in.Date = &d
	}
	return in, nil
}

// CreateProductRequest creates a product together with its first variant.
type CreateProductRequest struct {
	ProductRequest
	Variant VariantRequest `json:"variant"`
}

type BulkUpdateRequest struct {
	IDs      []uint `json:"ids" validate:"required,min=1"`
	Status   string `json:"status"`
	Location string `json:"location"`
	Category string `json:"category"`
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range ingest.DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
