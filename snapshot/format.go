// Package snapshot keeps a CSV copy of the whole inventory on disk.
//
// A Writer renders every variant row into the file atomically. A Scheduler
// debounces bursts of mutations into a single Writer run.
package snapshot

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/skuportal/inventory/models"
)

// DateLayout is the DD/MM/YYYY layout used for the Date column.
const DateLayout = "02/01/2006"

// Header is the column order of the snapshot and of the CSV/XLSX downloads.
var Header = []string{
	"Main SKU", "Variant SKU", "Product Name", "Brand", "Category", "Size", "Condition", "Colour",
	"Date", "Cost", "Price", "Fees", "Net", "Profit", "Margin", "Qty", "Location", "Status",
}

// Record renders row in Header order.
func Record(row models.VariantRow) []string {
	date := ""
	if !row.Date.IsZero() {
		date = row.Date.Format(DateLayout)
	}
	return []string{
		row.MainSKU,
		row.VariantSKU,
		row.ProductName,
		row.Brand,
		row.Category,
		row.Size,
		row.Condition,
		row.Colour,
		date,
		row.Cost.StringFixed(2),
		row.Price.StringFixed(2),
		row.Fees.StringFixed(2),
		row.Net.StringFixed(2),
		row.Profit.StringFixed(2),
		row.Margin.StringFixed(2) + "%",
		strconv.Itoa(row.Qty),
		row.Location,
		row.Status,
	}
}

// Encode writes the header and one record per row as CSV.
func Encode(w io.Writer, rows []models.VariantRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(Record(row)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
