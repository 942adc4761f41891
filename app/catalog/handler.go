package catalog

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/skuportal/inventory/app/api"
	"github.com/skuportal/inventory/models"
)

const (
	defaultLimit = 100
	maxLimit     = 100
)

// MediaPrefix is the URL prefix image paths are served under.
const MediaPrefix = "/media/"

type Response struct {
	Total    int       `json:"total"`
	Products []Product `json:"products"`
}

type Product struct {
	ID        uint      `json:"id"`
	MainSKU   string    `json:"main_sku"`
	Name      string    `json:"name"`
	Brand     string    `json:"brand"`
	Category  string    `json:"category"`
	Archived  bool      `json:"archived"`
	CreatedAt time.Time `json:"created_at"`
	Variants  []Variant `json:"variants"`
}

type Variant struct {
	ID         uint     `json:"id"`
	VariantSKU string   `json:"variant_sku"`
	Size       string   `json:"size"`
	Condition  string   `json:"condition"`
	Colour     string   `json:"colour"`
	Date       string   `json:"date"`
	Cost       float64  `json:"cost"`
	Price      float64  `json:"price"`
	Fees       float64  `json:"fees"`
	Net        float64  `json:"net"`
	Profit     float64  `json:"profit"`
	Margin     float64  `json:"margin"`
	Qty        int      `json:"qty"`
	Location   string   `json:"location"`
	Status     string   `json:"status"`
	Images     []string `json:"images"`
}

// NewProduct maps a stored product and its loaded variants to the response shape.
func NewProduct(p models.Product) Product {
	variants := make([]Variant, len(p.Variants))
	for i, v := range p.Variants {
		variants[i] = NewVariant(v)
	}
	return Product{
		ID:        p.ID,
		MainSKU:   p.MainSKU,
		Name:      p.Name,
		Brand:     p.Brand,
		Category:  p.Category,
		Archived:  p.Archived,
		CreatedAt: p.CreatedAt,
		Variants:  variants,
	}
}

func NewVariant(v models.Variant) Variant {
	images := make([]string, len(v.Images))
	for i, img := range v.Images {
		images[i] = MediaPrefix + img.Path
	}
	return Variant{
		ID:         v.ID,
		VariantSKU: v.VariantSKU,
		Size:       v.Size,
		Condition:  v.Condition,
		Colour:     v.Colour,
		Date:       v.Date.Format(time.DateOnly),
		Cost:       v.Cost.InexactFloat64(),
		Price:      v.Price.InexactFloat64(),
		Fees:       v.Fees.InexactFloat64(),
		Net:        v.Net.InexactFloat64(),
		Profit:     v.Profit.InexactFloat64(),
		Margin:     v.Margin.InexactFloat64(),
		Qty:        v.Qty,
		Location:   v.Location,
		Status:     v.Status,
		Images:     images,
	}
}

type ProductProvider interface {
	Search(ctx context.Context, offset, limit int, filters models.ProductFilters) ([]models.Product, int64, error)
	GetByMainSKU(ctx context.Context, mainSKU string) (*models.Product, error)
}

type CatalogHandler struct {
	repo   ProductProvider
	logger *zap.Logger
}

func NewCatalogHandler(r ProductProvider, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		repo:   r,
		logger: logger,
	}
}

// HandleGet lists products matching q, status and archived, newest first.
func (h *CatalogHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// Parse pagination query params
	offset := 0
	limit := defaultLimit

	if oStr := query.Get("offset"); oStr != "" {
		if o, err := strconv.Atoi(oStr); err == nil && o >= 0 {
			offset = o
		}
	}

	if lStr := query.Get("limit"); lStr != "" {
		if l, err := strconv.Atoi(lStr); err == nil {
			limit = min(max(l, 1), maxLimit)
		}
	}

	// Parse filters
	filters := models.ProductFilters{
		Query:    query.Get("q"),
		Archived: query.Get("archived") == "1" || query.Get("archived") == "true",
	}
	if status := query.Get("status"); models.IsKnownStatus(status) {
		filters.Status = status
	}

	res, total, err := h.repo.Search(r.Context(), offset, limit, filters)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}

	products := make([]Product, len(res))
	for i, p := range res {
		products[i] = NewProduct(p)
	}

	api.WriteJSON(w, http.StatusOK, Response{
		Total:    int(total),
		Products: products,
	})
}

// HandleGetProduct returns one product by main SKU.
func (h *CatalogHandler) HandleGetProduct(w http.ResponseWriter, r *http.Request) {
	sku := r.PathValue("sku")

	product, err := h.repo.GetByMainSKU(r.Context(), sku)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, NewProduct(*product))
}
