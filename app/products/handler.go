package products

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"

	"go.uber.org/zap"

	"github.com/skuportal/inventory/app/api"
	"github.com/skuportal/inventory/app/catalog"
	"github.com/skuportal/inventory/inventory"
	"github.com/skuportal/inventory/models"
)

// DefaultMaxUpload bounds multipart bodies when no limit is configured.
const DefaultMaxUpload = 32 << 20

type ProductService interface {
	CreateProduct(ctx context.Context, in inventory.ProductInput, vin inventory.VariantInput, images []inventory.Upload) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uint, in inventory.ProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uint) error
	ArchiveProduct(ctx context.Context, id uint) error
	UnarchiveProduct(ctx context.Context, id uint) error
	CreateVariant(ctx context.Context, productID uint, vin inventory.VariantInput, images []inventory.Upload) (*models.Variant, error)
	UpdateVariant(ctx context.Context, id uint, vin inventory.VariantInput) (*models.Variant, error)
	DeleteVariant(ctx context.Context, id uint) error
	AttachImages(ctx context.Context, variantID uint, images []inventory.Upload) ([]models.ProductImage, error)
	BulkUpdate(ctx context.Context, u inventory.BulkUpdate) (int64, error)
}

type ProductHandler struct {
	service   ProductService
	maxUpload int64
	logger    *zap.Logger
}

func NewProductHandler(s ProductService, maxUpload int64, logger *zap.Logger) *ProductHandler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &ProductHandler{service: s, maxUpload: maxUpload, logger: logger}
}

// HandleCreate accepts a JSON body, or a multipart form carrying the JSON in
// "data" and image files in "images".
func (h *ProductHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	images, cleanup, err := h.readBody(w, r, &req)
	defer cleanup()
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	vin, err := req.Variant.input()
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}

	product, err := h.service.CreateProduct(r.Context(), req.input(), vin, images)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, catalog.NewProduct(*product))
}

func (h *ProductHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	var req ProductRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteError(w, h.logger, err)
		return
	}

	product, err := h.service.UpdateProduct(r.Context(), id, req.input())
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, catalog.NewProduct(*product))
}

func (h *ProductHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, h.service.DeleteProduct)
}

func (h *ProductHandler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, h.service.ArchiveProduct)
}

func (h *ProductHandler) HandleUnarchive(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, h.service.UnarchiveProduct)
}

func (h *ProductHandler) HandleCreateVariant(w http.ResponseWriter, r *http.Request) {
	productID, err := api.PathID(r)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	var req VariantRequest
	images, cleanup, err := h.readBody(w, r, &req)
	defer cleanup()
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	vin, err := req.input()
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}

	variant, err := h.service.CreateVariant(r.Context(), productID, vin, images)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, catalog.NewVariant(*variant))
}

func (h *ProductHandler) HandleUpdateVariant(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	var req VariantRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	vin, err := req.input()
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}

	variant, err := h.service.UpdateVariant(r.Context(), id, vin)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, catalog.NewVariant(*variant))
}

func (h *ProductHandler) HandleDeleteVariant(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, h.service.DeleteVariant)
}

// HandleAttachImages stores the multipart "images" files on a variant.
func (h *ProductHandler) HandleAttachImages(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	if !isMultipart(r) {
		api.WriteError(w, h.logger, fmt.Errorf("%w: expected multipart/form-data", api.ErrBadRequest))
		return
	}
	images, cleanup, err := h.parseMultipart(w, r)
	defer cleanup()
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	if len(images) == 0 {
		api.WriteError(w, h.logger, &inventory.ValidationError{Fields: map[string]string{"images": "is required"}})
		return
	}

	stored, err := h.service.AttachImages(r.Context(), id, images)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	urls := make([]string, len(stored))
	for i, img := range stored {
		urls[i] = catalog.MediaPrefix + img.Path
	}
	api.WriteJSON(w, http.StatusCreated, map[string][]string{"images": urls})
}

func (h *ProductHandler) HandleBulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req BulkUpdateRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteError(w, h.logger, err)
		return
	}

	updated, err := h.service.BulkUpdate(r.Context(), inventory.BulkUpdate{
		ProductIDs: req.IDs,
		Status:     req.Status,
		Location:   req.Location,
		Category:   req.Category,
	})
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

func (h *ProductHandler) withID(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id uint) error) {
	id, err := api.PathID(r)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	if err := fn(r.Context(), id); err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductHandler) readBody(w http.ResponseWriter, r *http.Request, dst any) ([]inventory.Upload, func(), error) {
	if !isMultipart(r) {
		return nil, func() {}, api.Decode(r, dst)
	}

	images, cleanup, err := h.parseMultipart(w, r)
	if err != nil {
		return nil, cleanup, err
	}
	if err := json.Unmarshal([]byte(r.FormValue("data")), dst); err != nil {
		return nil, cleanup, fmt.Errorf("%w: invalid data field: %v", api.ErrBadRequest, err)
	}
	if err := api.Validate(dst); err != nil {
		return nil, cleanup, err
	}
	return images, cleanup, nil
}

// parseMultipart opens every "images" part. cleanup closes them and removes
// any temporary files the form spilled to disk.
func (h *ProductHandler) parseMultipart(w http.ResponseWriter, r *http.Request) ([]inventory.Upload, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		return nil, func() {}, fmt.Errorf("%w: %v", api.ErrBadRequest, err)
	}

	var files []multipart.File
	cleanup := func() {
		for _, f := range files {
			f.Close()
		}
		r.MultipartForm.RemoveAll()
	}

	var uploads []inventory.Upload
	for _, fh := range r.MultipartForm.File["images"] {
		f, err := fh.Open()
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to open upload %q: %w", fh.Filename, err)
		}
		files = append(files, f)
		uploads = append(uploads, inventory.Upload{Filename: fh.Filename, Body: f})
	}
	return uploads, cleanup, nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}
