package categories

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/skuportal/inventory/app/api"
	"github.com/skuportal/inventory/models"
)

// ChoicesResponse lists the suggested values for the free-text variant fields.
type ChoicesResponse struct {
	Categories []string `json:"categories"`
	Conditions []string `json:"conditions"`
	Statuses   []string `json:"statuses"`
}

// CategoryProvider returns the built-in categories merged with the stored ones.
type CategoryProvider interface {
	Categories(ctx context.Context) ([]string, error)
}

type CategoryHandler struct {
	repo   CategoryProvider
	logger *zap.Logger
}

func NewCategoryHandler(r CategoryProvider, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{repo: r, logger: logger}
}

func (h *CategoryHandler) HandleGetAll(w http.ResponseWriter, r *http.Request) {
	categories, err := h.repo.Categories(r.Context())
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	if categories == nil {
		categories = []string{}
	}

	api.WriteJSON(w, http.StatusOK, categories)
}

func (h *CategoryHandler) HandleGetChoices(w http.ResponseWriter, r *http.Request) {
	categories, err := h.repo.Categories(r.Context())
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	if categories == nil {
		categories = models.Categories
	}

	api.WriteJSON(w, http.StatusOK, ChoicesResponse{
		Categories: categories,
		Conditions: models.Conditions,
		Statuses:   models.Statuses,
	})
}
