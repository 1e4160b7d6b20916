package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dskvich/local-chat-relay/pkg/logger"
)

const ContentTypeText = "text/plain; charset=utf-8"

// StreamWriter writes a plain text body piece by piece, flushing each piece
// to the client as soon as it is written.
type StreamWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func NewStreamWriter(w http.ResponseWriter) *StreamWriter {
	w.Header().Set("Content-Type", ContentTypeText)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	return &StreamWriter{w: w, rc: http.NewResponseController(w)}
}

// Write sends one piece and flushes it.
func (s *StreamWriter) Write(text string) error {
	if _, err := s.w.Write([]byte(text)); err != nil {
		return err
	}
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

// WriteTextError answers with a plain text error body.
func WriteTextError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", ContentTypeText)
	w.WriteHeader(statusCode)
	if _, err := w.Write([]byte(message)); err != nil {
		slog.Error("writing error response", "status", statusCode, logger.Err(err))
	}
}
