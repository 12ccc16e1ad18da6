package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/goibibo/mem0/internal/api/respond"
	"github.com/goibibo/mem0/internal/api/validate"
	"github.com/goibibo/mem0/internal/model"
	"github.com/goibibo/mem0/internal/services"
)

type AppHandler struct {
	apps *services.AppService
}

func NewAppHandler(apps *services.AppService) *AppHandler {
	return &AppHandler{apps: apps}
}

// ListApps GET /api/v1/apps/
func (h *AppHandler) ListApps(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, size, err := pageParams(r, "page_size")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	active, err := validate.Bool("is_active", q.Get("is_active"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out, err := h.apps.ListApps(r.Context(), services.AppListInput{
		UserID:        q.Get("user_id"),
		Name:          q.Get("name"),
		IsActive:      active,
		SortColumn:    q.Get("sort_column"),
		SortDirection: q.Get("sort_direction"),
		Page:          page,
		PageSize:      size,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.WritePage(w, out, true)
}

// GetApp GET /api/v1/apps/{appId}
func (h *AppHandler) GetApp(w http.ResponseWriter, r *http.Request) {
	out, err := h.apps.GetApp(r.Context(), mux.Vars(r)["appId"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// UpdateApp PUT /api/v1/apps/{appId}?is_active=bool
func (h *AppHandler) UpdateApp(w http.ResponseWriter, r *http.Request) {
	active, err := validate.Bool("is_active", r.URL.Query().Get("is_active"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if active == nil {
		writeServiceError(w, r, model.NewValidationError("is_active", "is required"))
		return
	}
	out, err := h.apps.SetActive(r.Context(), mux.Vars(r)["appId"], *active)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// CreatedMemories GET /api/v1/apps/{appId}/memories
func (h *AppHandler) CreatedMemories(w http.ResponseWriter, r *http.Request) {
	page, size, err := pageParams(r, "page_size")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out, err := h.apps.CreatedMemories(r.Context(), mux.Vars(r)["appId"], page, size)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.WritePage(w, out, true)
}

// AccessedMemories GET /api/v1/apps/{appId}/accessed
func (h *AppHandler) AccessedMemories(w http.ResponseWriter, r *http.Request) {
	page, size, err := pageParams(r, "page_size")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out, err := h.apps.AccessedMemories(r.Context(), mux.Vars(r)["appId"], page, size)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.WritePage(w, out, true)
}
