package api

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/goibibo/mem0/internal/api/respond"
	"github.com/goibibo/mem0/internal/model"
)

// writeServiceError maps domain errors onto HTTP statuses. Details of upstream and
// unexpected failures are logged, never returned.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		respond.WriteBadRequest(w, err.Error())
	case errors.Is(err, model.ErrNotFound):
		respond.WriteNotFound(w, err.Error())
	case errors.Is(err, model.ErrForbidden):
		respond.WriteForbidden(w, err.Error())
	case errors.Is(err, model.ErrConflict):
		respond.WriteConflict(w, err.Error())
	case errors.Is(err, model.ErrUnavailable):
		hlog.FromRequest(r).Warn().Err(err).Msg("dependency not configured")
		respond.WriteError(w, http.StatusServiceUnavailable, "semantic search is not available")
	case errors.Is(err, model.ErrUpstream):
		hlog.FromRequest(r).Error().Stack().Err(err).Msg("upstream dependency failed")
		respond.WriteError(w, http.StatusBadGateway, "upstream dependency failed")
	default:
		respond.WriteFailure(w, r, err, "request failed")
	}
}
