// Package respond writes JSON responses and error bodies for the HTTP API.
package respond

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/goibibo/mem0/internal/filter"
)

// PaginationStableHeader is false on semantic listings, whose pages cannot be
// walked reliably.
const PaginationStableHeader = "X-Pagination-Stable"

// ErrorResponse is the body of every non-2xx response. Detail carries the
// human readable reason, as existing dashboard clients expect.
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   int    `json:"code"`
	Detail string `json:"detail,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// status already sent
		log.Error().Stack().Err(err).Msg("failed to encode JSON response")
	}
}

// WritePage writes a listing page. stable=false marks a semantic result set.
func WritePage[T any](w http.ResponseWriter, p filter.Page[T], stable bool) {
	w.Header().Set(PaginationStableHeader, strconv.FormatBool(stable))
	WriteJSON(w, http.StatusOK, p)
}

// WriteError writes a standardized error response.
func WriteError(w http.ResponseWriter, statusCode int, detail string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error:  http.StatusText(statusCode),
		Code:   statusCode,
		Detail: detail,
	})
}

func WriteBadRequest(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusBadRequest, detail)
}

func WriteNotFound(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusNotFound, detail)
}

func WriteForbidden(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusForbidden, detail)
}

func WriteConflict(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusConflict, detail)
}

func WriteInternalError(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusInternalServerError, detail)
}

// WriteFailure logs err with its stack on the request logger and answers 500
// without exposing the cause.
func WriteFailure(w http.ResponseWriter, r *http.Request, err error, msg string) {
	hlog.FromRequest(r).Error().Stack().Err(err).
		Str("method", r.Method).
		Str("url", r.URL.String()).
		Msg(msg)
	WriteInternalError(w, "internal server error")
}
