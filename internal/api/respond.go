package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/guillermolam/alberguecarcalejo-sub002/internal/auth"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/booking"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/pilgrim"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/registration"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/room"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/usecase"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Details: details})
}

// writeUsecaseError maps domain errors to HTTP statuses. Unknown errors are logged
// and reported as 500 without internals.
func writeUsecaseError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := http.StatusInternalServerError, "internal error"

	switch {
	case errors.Is(err, usecase.ErrValidation):
		status, msg = http.StatusBadRequest, "validation failed"
	case errors.Is(err, booking.ErrNotFound), errors.Is(err, pilgrim.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, booking.ErrInvalidTransition):
		status, msg = http.StatusConflict, "invalid status transition"
	case errors.Is(err, room.ErrNoBedAvailable):
		status, msg = http.StatusConflict, "no bed available"
	case errors.Is(err, usecase.ErrBookingFull), errors.Is(err, usecase.ErrBookingCancelled):
		status, msg = http.StatusConflict, "booking not open for registration"
	case errors.Is(err, registration.ErrStepIncomplete):
		status, msg = http.StatusUnprocessableEntity, "registration step incomplete"
	case errors.Is(err, auth.ErrInvalidCredentials):
		status, msg = http.StatusUnauthorized, "invalid credentials"
	}

	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, status, msg, "the request could not be completed")
		return
	}
	writeError(w, status, msg, detail(err))
}

// detail strips the wrapping added by usecases ("create booking: validation failed: ...").
func detail(err error) string {
	s := err.Error()
	if i := strings.LastIndex(s, usecase.ErrValidation.Error()+": "); i >= 0 {
		return s[i+len(usecase.ErrValidation.Error())+2:]
	}
	return s
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}
	return true
}

// parseDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp.
// An empty string gives the zero time.
func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be YYYY-MM-DD or RFC 3339", field)
	}
	return t, nil
}
