// Package ingest reads loosely structured spreadsheet rows and upserts them as
// products and variants.
package ingest

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/skuportal/inventory/models"
)

// Field is a recognised import column.
type Field int

const (
	FieldName Field = iota
	FieldBrand
	FieldCategory
	FieldMainSKU
	FieldVariantSKU
	FieldSize
	FieldCondition
	FieldColour
	FieldQty
	FieldLocation
	FieldStatus
	FieldDate
	FieldCost
	FieldPrice
	FieldFees

	fieldCount
)

// maxSizeLen matches the width of the variants.size column.
const maxSizeLen = 40

// synonyms lists the accepted header names of each field in precedence order.
var synonyms = [fieldCount][]string{
	FieldName:       {"Product Name", "Title", "Name"},
	FieldBrand:      {"Brand"},
	FieldCategory:   {"Category"},
	FieldMainSKU:    {"Main SKU", "Master SKU"},
	FieldVariantSKU: {"Variant SKU", "SKU Variant"},
	FieldSize:       {"Size"},
	FieldCondition:  {"Condition"},
	FieldColour:     {"Colour", "Color"},
	FieldQty:        {"Qty", "Quantity"},
	FieldLocation:   {"Location", "Location/Bin", "Bin", "Shelf"},
	FieldStatus:     {"Status"},
	FieldDate:       {"Date", "Purchase Date"},
	FieldCost:       {"Cost", "Purchase Price", "Buy Price"},
	FieldPrice:      {"Price", "Listed Price", "Sale Price"},
	FieldFees:       {"Fees", "Estimated Fees", "Platform Fees"},
}

// String returns the canonical header name of f.
func (f Field) String() string {
	if f < 0 || f >= fieldCount {
		return "Unknown"
	}
	return synonyms[f][0]
}

// Columns maps every Field to the header positions that can supply it, in
// synonym precedence order.
type Columns [fieldCount][]int

// Resolve matches a header row against the synonym table. Header names are
// trimmed and compared case-insensitively.
func Resolve(header []string) Columns {
	var cols Columns
	for f := Field(0); f < fieldCount; f++ {
		for _, name := range synonyms[f] {
			for i, h := range header {
				if strings.EqualFold(strings.TrimSpace(h), name) {
					cols[f] = append(cols[f], i)
				}
			}
		}
	}
	return cols
}

// Has reports whether the header carries any column for f.
func (c Columns) Has(f Field) bool {
	return len(c[f]) > 0
}

// Value returns the first non-blank value a row holds for f, trimmed.
func (c Columns) Value(row []string, f Field) string {
	for _, i := range c[f] {
		if i >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[i]); v != "" {
			return v
		}
	}
	return ""
}

// Record is one import row after coercion and defaults.
type Record struct {
	Name       string
	Brand      string
	Category   string
	MainSKU    string
	VariantSKU string
	Size       string
	Condition  string
	Colour     string
	Qty        int
	Location   string
	Status     string
	Date       time.Time
	Cost       decimal.Decimal
	Price      decimal.Decimal
	Fees       decimal.Decimal
}

// Record coerces a row into typed values. today is used for missing or
// unreadable dates; excelDates enables spreadsheet serial date numbers.
func (c Columns) Record(row []string, today time.Time, excelDates bool) Record {
	return Record{
		Name:       c.Value(row, FieldName),
		Brand:      c.Value(row, FieldBrand),
		Category:   orDefault(c.Value(row, FieldCategory), models.DefaultCategory),
		MainSKU:    c.Value(row, FieldMainSKU),
		VariantSKU: c.Value(row, FieldVariantSKU),
		Size:       truncate(c.Value(row, FieldSize), maxSizeLen),
		Condition:  orDefault(c.Value(row, FieldCondition), models.DefaultCondition),
		Colour:     c.Value(row, FieldColour),
		Qty:        ParseQty(c.Value(row, FieldQty)),
		Location:   orDefault(c.Value(row, FieldLocation), models.DefaultLocation),
		Status:     orDefault(c.Value(row, FieldStatus), models.DefaultStatus),
		Date:       ParseDate(c.Value(row, FieldDate), today, excelDates),
		Cost:       ParseMoney(c.Value(row, FieldCost)),
		Price:      ParseMoney(c.Value(row, FieldPrice)),
		Fees:       ParseMoney(c.Value(row, FieldFees)),
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
