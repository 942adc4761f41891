package exports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/skuportal/inventory/app/api"
	"github.com/skuportal/inventory/listing"
	"github.com/skuportal/inventory/models"
	"github.com/skuportal/inventory/snapshot"
)

const (
	xlsxSheet       = "Products"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type RowSource interface {
	VariantRows(ctx context.Context) ([]models.VariantRow, error)
}

type Packager interface {
	Prepare(ctx context.Context, status string) (*listing.Bundle, error)
}

type ExportHandler struct {
	rows         RowSource
	packager     Packager
	exportStatus string
	logger       *zap.Logger
}

// NewExportHandler serves downloads. exportStatus is the status bundled by
// the to-list export when the request does not name one.
func NewExportHandler(rows RowSource, packager Packager, exportStatus string, logger *zap.Logger) *ExportHandler {
	if exportStatus == "" {
		exportStatus = listing.DefaultStatus
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportHandler{rows: rows, packager: packager, exportStatus: exportStatus, logger: logger}
}

func (h *ExportHandler) HandleCSV(w http.ResponseWriter, r *http.Request) {
	rows, err := h.rows.VariantRows(r.Context())
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}

	var buf bytes.Buffer
	if err := snapshot.Encode(&buf, rows); err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	writeAttachment(w, "text/csv; charset=utf-8", "products.csv", buf.Bytes())
}

func (h *ExportHandler) HandleXLSX(w http.ResponseWriter, r *http.Request) {
	rows, err := h.rows.VariantRows(r.Context())
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}

	buf, err := workbook(rows)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	writeAttachment(w, xlsxContentType, "products.xlsx", buf.Bytes())
}

// HandleToList bundles the variants in ?status= (or the configured export
// status) into a ZIP. It answers 204 when there is nothing to bundle.
func (h *ExportHandler) HandleToList(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = h.exportStatus
	}

	bundle, err := h.packager.Prepare(r.Context(), status)
	if errors.Is(err, listing.ErrNothingToExport) {
		w.Header().Set("X-Export-Message", fmt.Sprintf("No variants with status %q", status))
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}

	var buf bytes.Buffer
	if _, err := bundle.WriteTo(&buf); err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	if bundle.MissingImages > 0 {
		h.logger.Warn("export skipped missing images",
			zap.String("status", bundle.Status),
			zap.Int("missing", bundle.MissingImages),
		)
	}
	writeAttachment(w, "application/zip", listing.Slugify(bundle.Status)+"-export.zip", buf.Bytes())
}

// workbook renders rows on a "Products" sheet with numeric money and qty cells.
func workbook(rows []models.VariantRow) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return nil, err
	}

	header := make([]any, len(snapshot.Header))
	for i, col := range snapshot.Header {
		header[i] = col
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return nil, err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := xlsxRow(row)
		if err := f.SetSheetRow(xlsxSheet, cell, &values); err != nil {
			return nil, err
		}
	}

	return f.WriteToBuffer()
}

func xlsxRow(row models.VariantRow) []any {
	date := ""
	if !row.Date.IsZero() {
		date = row.Date.Format(snapshot.DateLayout)
	}
	return []any{
		row.MainSKU,
		row.VariantSKU,
		row.ProductName,
		row.Brand,
		row.Category,
		row.Size,
		row.Condition,
		row.Colour,
		date,
		row.Cost.InexactFloat64(),
		row.Price.InexactFloat64(),
		row.Fees.InexactFloat64(),
		row.Net.InexactFloat64(),
		row.Profit.InexactFloat64(),
		row.Margin.StringFixed(2) + "%",
		row.Qty,
		row.Location,
		row.Status,
	}
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
