package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/warp/hr-engine/generic"
	"go.uber.org/zap"
)

// fail writes the reply for an error returned by the domain.
//
//	ValidationError           400 {error, details: {field: problem}}
//	InsufficientBalanceError  400 {error, details, available, requested}
//	ConflictError             400 {error, details: [dates]}
//	StateError                400 {error, details: {current_status}}
//	other client errors       400
//	AuthorizationError        403
//	NotFoundError             404
//	anything else             500, cause logged only
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *generic.ValidationError
		balance    *generic.InsufficientBalanceError
		conflict   *generic.ConflictError
		state      *generic.StateError
		authz      *generic.AuthorizationError
		notFound   *generic.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		resp := ErrorResponse{Error: validation.Message}
		if len(validation.Fields) > 0 {
			resp.Details = validation.Fields
		}
		writeJSON(w, http.StatusBadRequest, resp)

	case errors.As(err, &balance):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:     "Insufficient leave balance",
			Details:   balance.Error(),
			Available: &balance.Available,
			Requested: &balance.Requested,
		})

	case errors.As(err, &conflict):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Leave overlaps an existing request",
			Details: conflict.DateStrings(),
		})

	case errors.As(err, &state):
		resp := ErrorResponse{Error: state.Message}
		if state.Current != "" {
			resp.Details = map[string]string{"current_status": state.Current}
		}
		writeJSON(w, http.StatusBadRequest, resp)

	case errors.As(err, &authz):
		writeError(w, http.StatusForbidden, "Forbidden", authz)

	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, "Not found", notFound)

	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)

	default:
		h.Logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "Internal server error", nil)
	}
}
