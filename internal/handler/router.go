/*
Package handler provides the HTTP handlers and routing setup for the RelayChat server.

This file defines the main Router, applying middleware like logging, CORS and
identity extraction before delegating to the health check and the WebSocket endpoint.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"relaychat/internal/pkg/auth/jwt"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/resp"
)

// Router sets up the main HTTP routing table for the application.
// The WebSocket route is registered with and without the trailing slash used by
// the web client.
func Router(deps *AppDeps) http.Handler {
	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		logx.Debug("Health check endpoint hit")

		data := map[string]any{
			"status":       "ok",
			"service":      "RelayChat Server",
			"activeGroups": deps.Relay.Registry().GroupCount(),
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Group(func(ws chi.Router) {
		ws.Use(deps.JoinLimiter.Middleware)
		ws.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))

		wsHandler := HandleWebSocket(deps, wsUpgrader)
		ws.Get("/ws/chat/{kind}/{key}", wsHandler)
		ws.Get("/ws/chat/{kind}/{key}/", wsHandler)
	})

	return r
}
