package imports

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/skuportal/inventory/app/api"
	"github.com/skuportal/inventory/ingest"
)

const defaultMaxUpload = 32 << 20

type Response struct {
	Imported int        `json:"imported"`
	Skipped  int        `json:"skipped"`
	Failed   []RowError `json:"failed"`
}

type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type Importer interface {
	Import(ctx context.Context, filename string, r io.Reader) (ingest.Result, error)
}

type ImportHandler struct {
	importer  Importer
	maxUpload int64
	logger    *zap.Logger
}

func NewImportHandler(i Importer, maxUpload int64, logger *zap.Logger) *ImportHandler {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	return &ImportHandler{importer: i, maxUpload: maxUpload, logger: logger}
}

// HandleImport ingests the CSV or XLSX sent as the multipart "file" field.
func (h *ImportHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		api.WriteError(w, h.logger, fmt.Errorf("%w: %v", api.ErrBadRequest, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		api.WriteError(w, h.logger, fmt.Errorf("%w: missing file: %v", api.ErrBadRequest, err))
		return
	}
	defer file.Close()

	res, err := h.importer.Import(r.Context(), header.Filename, file)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}

	failed := make([]RowError, len(res.Failed))
	for i, f := range res.Failed {
		failed[i] = RowError{Row: f.Row, Error: f.Err.Error()}
	}
	api.WriteJSON(w, http.StatusOK, Response{
		Imported: res.Imported,
		Skipped:  res.Skipped,
		Failed:   failed,
	})
}
