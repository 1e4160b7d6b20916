package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dskvich/local-chat-relay/pkg/api/response"
	"github.com/dskvich/local-chat-relay/pkg/domain"
	"github.com/dskvich/local-chat-relay/pkg/logger"
)

type HistoryCleaner interface {
	ClearChatHistory(ctx context.Context, sessionID string)
}

type resetRequest struct {
	SessionID string `json:"session_id"`
}

type reset struct {
	cleaner HistoryCleaner
	writer  response.JSONResponseWriter
}

func NewReset(cleaner HistoryCleaner) *reset {
	return &reset{
		cleaner: cleaner,
		writer:  response.JSONResponseWriter{},
	}
}

// Reset clears retained history. The body is optional.
func (h *reset) Reset(w http.ResponseWriter, r *http.Request) {
	var body resetRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		slog.WarnContext(r.Context(), "Decoding reset request", logger.Err(err))
		h.writer.WriteErrorResponse(w, http.StatusBadRequest, invalidRequestBody)
		return
	}

	h.cleaner.ClearChatHistory(r.Context(), body.SessionID)

	h.writer.WriteSuccessResponse(w, response.StatusResponse{Status: domain.HistoryClearedMessage})
}
