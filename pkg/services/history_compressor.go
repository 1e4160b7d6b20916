package services

import (
	"context"
	"log/slog"

	"github.com/dskvich/local-chat-relay/pkg/domain"
)

const (
	// DefaultTokenThreshold is the estimated size above which history is compressed.
	DefaultTokenThreshold = 3000

	// minMessagesToCompress guards against compressing trivially short conversations.
	minMessagesToCompress = 4
	// recentWindow keeps the last two exchanges plus the new prompt verbatim.
	recentWindow = 5

	summaryPrefix = "Previous summary: "
)

type Summarizer interface {
	Summarize(ctx context.Context, chunk []domain.Message) domain.Summary
}

type historyCompressor struct {
	summarizer Summarizer
	threshold  int
}

func NewHistoryCompressor(summarizer Summarizer, threshold int) *historyCompressor {
	if threshold <= 0 {
		threshold = DefaultTokenThreshold
	}
	return &historyCompressor{
		summarizer: summarizer,
		threshold:  threshold,
	}
}

// ShouldCompress reports whether a history of the given size needs compression.
func (c *historyCompressor) ShouldCompress(history []domain.Message, tokens int) bool {
	return tokens > c.threshold && len(history) > minMessagesToCompress
}

// Compress replaces the middle of history with a single summary message,
// keeping history[0] and the last recentWindow messages verbatim. The second
// return value reports whether the history was replaced; when it is false
// the input slice is returned as is.
func (c *historyCompressor) Compress(ctx context.Context, history []domain.Message, tokens int) ([]domain.Message, bool) {
	if !c.ShouldCompress(history, tokens) {
		return history, false
	}

	if len(history) <= recentWindow+1 {
		// Nothing between the persona and the recent window.
		slog.DebugContext(ctx, "Skipping compression, no middle slice", "messages", len(history))
		return history, false
	}

	slog.InfoContext(ctx, "Compressing context", "tokens", tokens, "messages", len(history))

	persona := history[0]
	middle := history[1 : len(history)-recentWindow]
	recent := history[len(history)-recentWindow:]

	summary := c.summarizer.Summarize(ctx, middle)
	if !summary.Available() {
		slog.WarnContext(ctx, "Compression skipped, sending full history", "messages", len(history))
		return history, false
	}

	compressed := make([]domain.Message, 0, 2+len(recent))
	compressed = append(compressed,
		persona,
		domain.Message{Role: domain.MessageRoleSystem, Content: summaryPrefix + summary.Text()},
	)
	compressed = append(compressed, recent...)

	slog.InfoContext(ctx, "Context compressed", "from", len(history), "to", len(compressed), "summarized", len(middle))

	return compressed, true
}
