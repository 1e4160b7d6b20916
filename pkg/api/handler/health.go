package handler

import (
	"context"
	"net/http"

	"github.com/dskvich/local-chat-relay/pkg/api/response"
	"github.com/dskvich/local-chat-relay/pkg/domain"
)

type HealthChecker interface {
	Check(ctx context.Context) domain.Health
}

type health struct {
	checker HealthChecker
	writer  response.JSONResponseWriter
}

func NewHealth(checker HealthChecker) *health {
	return &health{
		checker: checker,
		writer:  response.JSONResponseWriter{},
	}
}

func (h *health) Health(w http.ResponseWriter, r *http.Request) {
	status := h.checker.Check(r.Context())
	if !status.IsOnline() {
		h.writer.WriteResponse(w, http.StatusServiceUnavailable, status)
		return
	}

	h.writer.WriteSuccessResponse(w, status)
}
