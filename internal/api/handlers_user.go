package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/goibibo/mem0/internal/api/respond"
	"github.com/goibibo/mem0/internal/api/validate"
	"github.com/goibibo/mem0/internal/model"
	"github.com/goibibo/mem0/internal/services"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// CreateUser POST /api/v1/users/
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in struct {
		UserID   string                 `json:"user_id"`
		Name     *string                `json:"name,omitempty"`
		Email    *string                `json:"email,omitempty"`
		Metadata map[string]interface{} `json:"metadata,omitempty"`
	}
	if err := validate.DecodeJSON(r.Body, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	out, err := h.users.CreateUser(r.Context(), &model.User{
		UserID: in.UserID, Name: in.Name, Email: in.Email, Metadata: in.Metadata,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

// GetUser GET /api/v1/users/{userId}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	out, err := h.users.GetUser(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// ListUsers GET /api/v1/users/
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, size, err := pageParams(r, "page_size")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out, err := h.users.ListUsers(r.Context(), page, size)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.WritePage(w, out, true)
}
