package api

import (
	"net/http"

	"github.com/goibibo/mem0/internal/api/respond"
	"github.com/goibibo/mem0/internal/model"
	"github.com/goibibo/mem0/internal/services"
)

type CategoryHandler struct {
	cats *services.CategoryService
}

func NewCategoryHandler(cats *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{cats: cats}
}

type categoriesResponse struct {
	Categories []*model.CategoryCount `json:"categories"`
	Total      int                    `json:"total"`
}

// ListCategories GET /api/v1/categories and GET /api/v1/memories/categories
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.cats.InUse(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, categoriesResponse{Categories: cats, Total: len(cats)})
}
