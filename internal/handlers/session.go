package handlers

import (
	"errors"
	"net/http"

	"github.com/jason-s-yu/chroma/internal/session"
	"github.com/sirupsen/logrus"
)

// PingHandler answers the root health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Server running."))
}

// CreateSessionHandler creates an empty session and returns its code.
func CreateSessionHandler(logger *logrus.Logger, coord *session.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := coord.CreateSession(r.Context())
		if err != nil {
			logger.Errorf("Error creating lobby: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to create lobby"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"code": s.Code})
	}
}

// GetSessionHandler returns the stored session for the {code} path value.
func GetSessionHandler(logger *logrus.Logger, coord *session.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := normalizeCode(r.PathValue("code"))
		s, err := coord.GetSession(r.Context(), code)
		if errors.Is(err, session.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Room not found"})
			return
		}
		if err != nil {
			logger.WithField("code", code).Errorf("Error loading lobby: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to load lobby"})
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}
