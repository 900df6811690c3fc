package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"
	"gearshare-backend/internal/security"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// errorMapping is checked in order; more specific sentinels come first.
var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrAlreadyTerminal, http.StatusConflict, "ALREADY_TERMINAL"},
	{domain.ErrStaleState, http.StatusConflict, "STALE_STATE"},
	{domain.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
	{domain.ErrUnauthorizedActor, http.StatusForbidden, "UNAUTHORIZED_ACTOR"},
	{domain.ErrAccountNotReady, http.StatusConflict, "ACCOUNT_NOT_READY"},
	{domain.ErrPaymentNotComplete, http.StatusConflict, "PAYMENT_NOT_COMPLETE"},
	{domain.ErrInvalidSignature, http.StatusBadRequest, "INVALID_SIGNATURE"},
	{domain.ErrAlreadyReviewed, http.StatusConflict, "ALREADY_REVIEWED"},
	{domain.ErrNotEligible, http.StatusForbidden, "NOT_ELIGIBLE"},
	{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{domain.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
	{domain.ErrGearUnavailable, http.StatusConflict, "GEAR_UNAVAILABLE"},
	{security.ErrExpiredToken, http.StatusUnauthorized, "UNAUTHENTICATED"},
	{security.ErrInvalidToken, http.StatusUnauthorized, "UNAUTHENTICATED"},
	{security.ErrWrongTokenType, http.StatusUnauthorized, "UNAUTHENTICATED"},
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

// writeError maps a domain error to its HTTP status and error code.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			writeJSON(w, m.status, errorResponse{Error: err.Error(), Code: m.code})
			return
		}
	}
	logger.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error", Code: "INTERNAL"})
}
