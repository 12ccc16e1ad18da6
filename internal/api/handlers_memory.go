package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/goibibo/mem0/internal/api/respond"
	"github.com/goibibo/mem0/internal/api/validate"
	"github.com/goibibo/mem0/internal/filter"
	"github.com/goibibo/mem0/internal/services"
)

// ClientAppHeader names the app reading a memory when no app_id query parameter is given.
const ClientAppHeader = "X-Client-App"

type MemoryHandler struct {
	mems        *services.MemoryService
	users       *services.UserService
	cats        *services.CategoryService
	maxPageSize int
	threshold   float64
}

func NewMemoryHandler(mems *services.MemoryService, users *services.UserService, cats *services.CategoryService, maxPageSize int, threshold float64) *MemoryHandler {
	return &MemoryHandler{mems: mems, users: users, cats: cats, maxPageSize: maxPageSize, threshold: threshold}
}

// FilterMemories POST /api/v1/memories/filter
func (h *MemoryHandler) FilterMemories(w http.ResponseWriter, r *http.Request) {
	var req filter.Request
	if err := validate.DecodeJSON(r.Body, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.query(w, r, req, nil)
}

// ListMemories GET /api/v1/memories/
func (h *MemoryHandler) ListMemories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := filter.Request{
		UserID:        q.Get("user_id"),
		SearchQuery:   q.Get("search_query"),
		SortColumn:    q.Get("sort_column"),
		SortDirection: q.Get("sort_direction"),
		CategoryIDs:   validate.CSV(q.Get("category_ids")),
	}
	if appID := strings.TrimSpace(q.Get("app_id")); appID != "" {
		req.AppIDs = []string{appID}
	}
	var err error
	if req.Page, err = validate.IntPtr("page", q.Get("page")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if req.Size, err = validate.IntPtr("size", q.Get("size")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if req.FromDate, err = validate.Int64Ptr("from_date", q.Get("from_date")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if req.ToDate, err = validate.Int64Ptr("to_date", q.Get("to_date")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if archived, err := validate.Bool("show_archived", q.Get("show_archived")); err != nil {
		writeServiceError(w, r, err)
		return
	} else if archived != nil {
		req.ShowArchived = *archived
	}
	h.query(w, r, req, validate.CSV(q.Get("categories")))
}

// query resolves a filter request and writes the resulting page. categoryNames,
// when present, are translated to ids; names that match nothing yield an empty page.
func (h *MemoryHandler) query(w http.ResponseWriter, r *http.Request, req filter.Request, categoryNames []string) {
	if req.UserID != "" {
		if _, err := h.users.GetUser(r.Context(), req.UserID); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}
	if req.Threshold == nil {
		req.Threshold = &h.threshold
	}
	q, err := filter.Resolve(req, h.maxPageSize)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if len(categoryNames) > 0 {
		ids, err := h.cats.IDsByName(r.Context(), categoryNames)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if len(ids) == 0 {
			c := q.Filter()
			respond.WritePage(w, filter.NewPage[any](nil, 0, c.Page, c.Size), true)
			return
		}
		q.Filter().CategoryIDs = append(q.Filter().CategoryIDs, ids...)
	}

	page, err := h.mems.Query(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_, structured := q.(*filter.StructuredQuery)
	respond.WritePage(w, page, structured)
}

// SearchMemories POST /api/v1/memories/search
func (h *MemoryHandler) SearchMemories(w http.ResponseWriter, r *http.Request) {
	var req filter.SearchRequest
	if err := validate.DecodeJSON(r.Body, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if req.UserID != "" {
		if _, err := h.users.GetUser(r.Context(), req.UserID); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}
	if req.Threshold == nil {
		req.Threshold = &h.threshold
	}
	q, err := filter.ResolveSearch(req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out, err := h.mems.Search(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// CreateMemory POST /api/v1/memories/
func (h *MemoryHandler) CreateMemory(w http.ResponseWriter, r *http.Request) {
	var in services.CreateMemoryInput
	if err := validate.DecodeJSON(r.Body, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := validate.NonEmpty("user_id", in.UserID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := validate.NonEmpty("text", in.Text); err != nil {
		writeServiceError(w, r, err)
		return
	}
	out, err := h.mems.CreateMemory(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

// GetMemory GET /api/v1/memories/{memoryId}
func (h *MemoryHandler) GetMemory(w http.ResponseWriter, r *http.Request) {
	appID := r.URL.Query().Get("app_id")
	if appID == "" {
		appID = r.Header.Get(ClientAppHeader)
	}
	if appID != "" {
		if err := validate.UUID("app_id", appID); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}
	out, err := h.mems.GetMemory(r.Context(), mux.Vars(r)["memoryId"], appID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// UpdateMemory PUT /api/v1/memories/{memoryId}
func (h *MemoryHandler) UpdateMemory(w http.ResponseWriter, r *http.Request) {
	var in struct {
		MemoryContent string `json:"memory_content"`
		UserID        string `json:"user_id"`
	}
	if err := validate.DecodeJSON(r.Body, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	out, err := h.mems.UpdateMemory(r.Context(), mux.Vars(r)["memoryId"], in.UserID, in.MemoryContent)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

type bulkRequest struct {
	MemoryIDs []string `json:"memory_ids"`
	UserID    string   `json:"user_id"`
}

func decodeBulk(r *http.Request) (bulkRequest, error) {
	var in bulkRequest
	if err := validate.DecodeJSON(r.Body, &in); err != nil {
		return in, err
	}
	if err := validate.NonEmpty("user_id", in.UserID); err != nil {
		return in, err
	}
	return in, validate.UUIDs("memory_ids", in.MemoryIDs)
}

// PauseMemories POST /api/v1/memories/actions/pause
func (h *MemoryHandler) PauseMemories(w http.ResponseWriter, r *http.Request) {
	var in services.PauseRequest
	if err := validate.DecodeJSON(r.Body, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if in.AppID != "" {
		if err := validate.UUID("app_id", in.AppID); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}
	out, err := h.mems.PauseMemories(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// ArchiveMemories POST /api/v1/memories/actions/archive
func (h *MemoryHandler) ArchiveMemories(w http.ResponseWriter, r *http.Request) {
	in, err := decodeBulk(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out, err := h.mems.ArchiveMemories(r.Context(), in.UserID, in.MemoryIDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// DeleteMemories DELETE /api/v1/memories/
func (h *MemoryHandler) DeleteMemories(w http.ResponseWriter, r *http.Request) {
	in, err := decodeBulk(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out, err := h.mems.DeleteMemories(r.Context(), in.UserID, in.MemoryIDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// AccessLog GET /api/v1/memories/{memoryId}/access-log
func (h *MemoryHandler) AccessLog(w http.ResponseWriter, r *http.Request) {
	page, size, err := pageParams(r, "page_size")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out, err := h.mems.AccessLog(r.Context(), mux.Vars(r)["memoryId"], page, size)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.WritePage(w, out, true)
}

// Related GET /api/v1/memories/{memoryId}/related
func (h *MemoryHandler) Related(w http.ResponseWriter, r *http.Request) {
	page, err := validate.Int("page", r.URL.Query().Get("page"), 1)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out, err := h.mems.Related(r.Context(), mux.Vars(r)["memoryId"], r.URL.Query().Get("user_id"), page)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.WritePage(w, out, true)
}

// History GET /api/v1/memories/{memoryId}/history
func (h *MemoryHandler) History(w http.ResponseWriter, r *http.Request) {
	out, err := h.mems.History(r.Context(), mux.Vars(r)["memoryId"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// AssignCategories POST /api/v1/memories/{memoryId}/categories
func (h *MemoryHandler) AssignCategories(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Categories []string `json:"categories"`
	}
	if err := validate.DecodeJSON(r.Body, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	out, err := h.mems.AssignCategories(r.Context(), mux.Vars(r)["memoryId"], in.Categories)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// pageParams reads page (default 1) and the named page size parameter (default 10).
func pageParams(r *http.Request, sizeParam string) (int, int, error) {
	q := r.URL.Query()
	page, err := validate.Int("page", q.Get("page"), 1)
	if err != nil {
		return 0, 0, err
	}
	size, err := validate.Int(sizeParam, q.Get(sizeParam), filter.DefaultSize)
	if err != nil {
		return 0, 0, err
	}
	return page, size, nil
}
