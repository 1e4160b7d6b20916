package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/dskvich/local-chat-relay/pkg/domain"
	"github.com/dskvich/local-chat-relay/pkg/logger"
)

const (
	summarySystemPrompt = "You are a helpful assistant."
	summaryInstruction  = "Summarize this conversation efficiently:\n\n"
)

type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, messages []domain.Message, temperature float32) (string, error)
}

type summarizer struct {
	client      CompletionClient
	temperature float32
	timeout     time.Duration
}

func NewSummarizer(client CompletionClient, temperature float32, timeout time.Duration) *summarizer {
	return &summarizer{
		client:      client,
		temperature: temperature,
		timeout:     timeout,
	}
}

// Summarize condenses chunk into prose. It never fails: any error is logged
// and reported as an unavailable summary.
func (s *summarizer) Summarize(ctx context.Context, chunk []domain.Message) domain.Summary {
	transcript, err := json.Marshal(chunk)
	if err != nil {
		slog.ErrorContext(ctx, "Summarization failed", "stage", "encoding", logger.Err(err))
		return domain.SummaryUnavailable()
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	prompt := []domain.Message{
		{Role: domain.MessageRoleSystem, Content: summarySystemPrompt},
		{Role: domain.MessageRoleUser, Content: summaryInstruction + string(transcript)},
	}

	text, err := s.client.CreateChatCompletion(ctx, prompt, s.temperature)
	if err != nil {
		slog.ErrorContext(ctx, "Summarization failed", "messages", len(chunk), logger.Err(err))
		return domain.SummaryUnavailable()
	}

	text = strings.TrimSpace(text)
	if text == "" {
		slog.WarnContext(ctx, "Summarization returned no text", "messages", len(chunk))
		return domain.SummaryUnavailable()
	}

	return domain.SummaryOf(text)
}
