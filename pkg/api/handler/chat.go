package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/dskvich/local-chat-relay/pkg/api/response"
	"github.com/dskvich/local-chat-relay/pkg/domain"
	"github.com/dskvich/local-chat-relay/pkg/logger"
)

const (
	noMessageProvided  = "No message provided"
	invalidRequestBody = "Invalid request body"
	invalidHistory     = "Invalid history"
)

type ChatStreamer interface {
	Stream(ctx context.Context, req domain.ChatRequest) (<-chan string, error)
}

type chatRequest struct {
	Message     string           `json:"message"`
	History     []domain.Message `json:"history"`
	Persona     string           `json:"persona"`
	SessionID   string           `json:"session_id"`
	Temperature optionalFloat    `json:"temperature"`
}

type chat struct {
	streamer ChatStreamer
}

func NewChat(streamer ChatStreamer) *chat {
	return &chat{streamer: streamer}
}

// Chat relays the model reply as a plain text stream. Once the first byte is
// sent the status is 200; later failures arrive in-band as "Error: ..." text.
func (c *chat) Chat(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		slog.WarnContext(r.Context(), "Decoding chat request", logger.Err(err))
		response.WriteTextError(w, http.StatusBadRequest, invalidRequestBody)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	fragments, err := c.streamer.Stream(ctx, domain.ChatRequest{
		SessionID:   body.SessionID,
		Message:     body.Message,
		Persona:     body.Persona,
		History:     body.History,
		Temperature: body.Temperature.Ptr(),
	})
	switch {
	case errors.Is(err, domain.ErrEmptyMessage):
		response.WriteTextError(w, http.StatusBadRequest, noMessageProvided)
		return
	case errors.Is(err, domain.ErrInvalidRole):
		response.WriteTextError(w, http.StatusBadRequest, invalidHistory+": "+err.Error())
		return
	case err != nil:
		slog.ErrorContext(ctx, "Starting chat stream", logger.Err(err))
		response.WriteTextError(w, http.StatusInternalServerError, err.Error())
		return
	}

	stream := response.NewStreamWriter(w)
	w.WriteHeader(http.StatusOK)

	for fragment := range fragments {
		if err := stream.Write(fragment); err != nil {
			slog.WarnContext(ctx, "Client went away, stopping stream", logger.Err(err))
			cancel()
			break
		}
	}

	// Let the relay observe the cancellation and close the channel.
	for range fragments {
	}
}

// optionalFloat accepts a JSON number or a numeric string, as sent by
// browser form inputs. Empty strings and null leave it unset. NaN and
// infinities are rejected.
type optionalFloat struct {
	value float32
	set   bool
}

func (o *optionalFloat) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	if raw == "" {
		return nil
	}

	v, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("temperature must be a finite number, got %s", raw)
	}

	o.value, o.set = float32(v), true
	return nil
}

func (o optionalFloat) Ptr() *float32 {
	if !o.set {
		return nil
	}
	v := o.value
	return &v
}
