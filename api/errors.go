package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/warp/vacation-ledger/generic"
	"github.com/warp/vacation-ledger/i18n"
)

// writeError maps a ledger error to its HTTP status and a localized body.
//
//	ValidationError          400 validation
//	(missing/invalid token)  401 unauthorized
//	ForbiddenError           403 forbidden
//	NotFoundError            404 not_found
//	ConflictError            409 conflict
//	InsufficientBalanceError 422 insufficient_balance
//	UpstreamError            502 upstream
//	ErrConcurrentModification 503 concurrent_modification (retry)
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorResponse(r.Context(), err)
	if status >= 500 {
		slog.ErrorContext(r.Context(), "request failed", "code", body.Code, "error", err)
	}
	writeJSON(w, status, body)
}

func errorResponse(ctx context.Context, err error) (int, ErrorResponse) {
	var (
		validation   *generic.ValidationError
		forbidden    *generic.ForbiddenError
		notFound     *generic.NotFoundError
		conflict     *generic.ConflictError
		insufficient *generic.InsufficientBalanceError
	)

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, ErrorResponse{
			Error:   i18n.T(ctx, "error.validation", map[string]any{"Field": validation.Field, "Reason": validation.Reason}),
			Code:    "validation",
			Details: map[string]any{"field": validation.Field, "reason": validation.Reason},
		}
	case errors.Is(err, generic.ErrInvalidPeriod):
		return http.StatusBadRequest, ErrorResponse{
			Error: i18n.T(ctx, "error.validation", map[string]any{"Field": "date_to", "Reason": err.Error()}),
			Code:  "validation",
		}
	case errors.As(err, &forbidden):
		return http.StatusForbidden, ErrorResponse{
			Error:   i18n.T(ctx, "error.forbidden"),
			Code:    "forbidden",
			Details: map[string]any{"user_id": forbidden.UserID, "role": forbidden.Role},
		}
	case errors.As(err, &notFound):
		return http.StatusNotFound, ErrorResponse{
			Error:   i18n.T(ctx, "error.not_found", map[string]any{"Resource": notFound.Resource}),
			Code:    "not_found",
			Details: map[string]any{"resource": notFound.Resource, "id": notFound.ID, "reason": notFound.Reason},
		}
	case errors.As(err, &conflict):
		return http.StatusConflict, ErrorResponse{
			Error: i18n.T(ctx, "error.conflict", map[string]any{
				"From": conflict.Existing.Start.String(),
				"To":   conflict.Existing.End.String(),
			}),
			Code: "conflict",
			Details: map[string]any{
				"existing_id": conflict.ExistingID,
				"date_from":   conflict.Existing.Start.String(),
				"date_to":     conflict.Existing.End.String(),
			},
		}
	case errors.As(err, &insufficient):
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error: i18n.T(ctx, "error.insufficient_balance", map[string]any{
				"Remaining": insufficient.Remaining.String(),
				"Category":  i18n.T(ctx, "category."+insufficient.Category),
				"Requested": insufficient.Requested.String(),
			}),
			Code: "insufficient_balance",
			Details: map[string]any{
				"type":      insufficient.Category,
				"available": insufficient.Available,
				"reserved":  insufficient.Reserved,
				"remaining": insufficient.Remaining,
				"requested": insufficient.Requested,
			},
		}
	case errors.Is(err, generic.ErrConcurrentModification):
		return http.StatusServiceUnavailable, ErrorResponse{
			Error: i18n.T(ctx, "error.concurrent_modification"),
			Code:  "concurrent_modification",
		}
	case errors.Is(err, generic.ErrUpstream):
		return http.StatusBadGateway, ErrorResponse{
			Error: i18n.T(ctx, "error.upstream"),
			Code:  "upstream",
		}
	}
	return http.StatusInternalServerError, ErrorResponse{
		Error: i18n.T(ctx, "error.internal"),
		Code:  "internal",
	}
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusUnauthorized, ErrorResponse{
		Error: i18n.T(r.Context(), "error.unauthorized"),
		Code:  "unauthorized",
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}
