package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Battlearmour2000/invest-tracker/internal/domain"
	"github.com/Battlearmour2000/invest-tracker/internal/usecase/auth"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the service error taxonomy to HTTP statuses. Unmapped
// errors become opaque 500s so internals never leak to clients.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var status int
	message := err.Error()

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidValue):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	default:
		status = http.StatusInternalServerError
		message = "internal server error"
		s.log.WithError(err).Error("request failed")
	}

	s.writeJSON(w, status, map[string]string{"error": message})
}
