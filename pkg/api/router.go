package api

import (
	"net/http"

	"github.com/dskvich/local-chat-relay/pkg/api/middleware"
)

type ChatHandler interface {
	Chat(w http.ResponseWriter, r *http.Request)
}

type ResetHandler interface {
	Reset(w http.ResponseWriter, r *http.Request)
}

type HealthHandler interface {
	Health(w http.ResponseWriter, r *http.Request)
}

// NewRouter wires the HTTP routes. reset may be nil, in which case /reset is
// not served.
func NewRouter(chat ChatHandler, reset ResetHandler, health HealthHandler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", chat.Chat)
	mux.HandleFunc("GET /health", health.Health)
	if reset != nil {
		mux.HandleFunc("POST /reset", reset.Reset)
	}

	return middleware.RequestID(middleware.AccessLog(middleware.Recover(mux)))
}
