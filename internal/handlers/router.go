package handlers

import (
	"net/http"

	"github.com/jason-s-yu/chroma/internal/middleware"
	"github.com/jason-s-yu/chroma/internal/session"
	"github.com/sirupsen/logrus"
)

// NewRouter mounts the lobby HTTP API and WebSocket endpoint.
func NewRouter(logger *logrus.Logger, coord *session.Coordinator, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", PingHandler)

	// session endpoints
	mux.Handle("POST /lobbies", CreateSessionHandler(logger, coord))
	mux.Handle("GET /lobbies/{code}", GetSessionHandler(logger, coord))

	// lobby ws
	mux.Handle("GET /lobbies/ws", LobbyWSHandler(logger, coord, allowedOrigins))

	withLogging := middleware.LogMiddleware(logger)
	withCORS := middleware.CORS(allowedOrigins)
	return withCORS(withLogging(mux))
}
