package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/dskvich/local-chat-relay/pkg/domain"
	"github.com/dskvich/local-chat-relay/pkg/tokens"
)

const (
	DefaultPersona     = "You are a helpful AI assistant."
	DefaultTemperature = 0.7

	minTemperature = 0
	maxTemperature = 2
)

type StreamClient interface {
	CreateChatCompletionStream(ctx context.Context, messages []domain.Message, temperature float32) (domain.FragmentStream, error)
}

type Compressor interface {
	Compress(ctx context.Context, history []domain.Message, tokens int) ([]domain.Message, bool)
}

type ChatRepository interface {
	GetByID(chatID string) (domain.Chat, bool)
	Update(chatID string, fn func(messages []domain.Message) ([]domain.Message, bool))
	Clear(chatID string)
}

type chatService struct {
	client         StreamClient
	compressor     Compressor
	chatRepo       ChatRepository
	mode           domain.HistoryMode
	defaultPersona string
	temperature    float32
	streamTimeout  time.Duration
}

func NewChatService(
	client StreamClient,
	compressor Compressor,
	chatRepo ChatRepository,
	mode domain.HistoryMode,
	defaultPersona string,
	temperature float32,
	streamTimeout time.Duration,
) *chatService {
	mode, _ = lo.Coalesce(mode, domain.HistoryModeStateless)
	defaultPersona, _ = lo.Coalesce(defaultPersona, DefaultPersona)

	return &chatService{
		client:         client,
		compressor:     compressor,
		chatRepo:       chatRepo,
		mode:           mode,
		defaultPersona: defaultPersona,
		temperature:    temperature,
		streamTimeout:  streamTimeout,
	}
}

// PrepareMessages builds the exact sequence submitted upstream for one turn:
// persona first (unless history already starts with a system message), then
// history, then the new user message, compressed when it is too large.
// history is never modified.
func (s *chatService) PrepareMessages(ctx context.Context, history []domain.Message, persona, message string) []domain.Message {
	return s.compress(ctx, appendUserMessage(s.withPersona(history, persona), message))
}

// Stream validates req and starts relaying the model reply. Fragments are
// delivered on the returned channel, which is closed when the reply is
// complete, failed or ctx was cancelled. Validation errors are returned
// before any upstream call.
func (s *chatService) Stream(ctx context.Context, req domain.ChatRequest) (<-chan string, error) {
	if req.Message == "" {
		return nil, domain.ErrEmptyMessage
	}

	temperature := s.temperature
	if req.Temperature != nil {
		temperature = lo.Clamp(*req.Temperature, minTemperature, maxTemperature)
	}

	out := make(chan string)

	switch s.mode {
	case domain.HistoryModeSession:
		if len(req.History) > 0 {
			slog.WarnContext(ctx, "Ignoring client history in session mode", "messages", len(req.History))
		}
		sessionID, _ := lo.Coalesce(req.SessionID, domain.DefaultSessionID)

		go func() {
			defer close(out)
			s.chatRepo.Update(sessionID, func(history []domain.Message) ([]domain.Message, bool) {
				return s.streamSessionTurn(ctx, history, req, temperature, out)
			})
		}()
	default:
		if invalid, found := lo.Find(req.History, func(m domain.Message) bool {
			return !domain.IsValidRole(m.Role)
		}); found {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRole, invalid.Role)
		}

		go func() {
			defer close(out)
			messages := s.PrepareMessages(ctx, req.History, req.Persona, req.Message)
			s.relay(ctx, messages, temperature, out)
		}()
	}

	return out, nil
}

// ClearChatHistory drops the retained history of a session.
func (s *chatService) ClearChatHistory(ctx context.Context, sessionID string) {
	sessionID, _ = lo.Coalesce(sessionID, domain.DefaultSessionID)

	chat, found := s.chatRepo.GetByID(sessionID)
	if !found {
		slog.InfoContext(ctx, "No chat history to clear", "sessionID", sessionID)
		return
	}

	s.chatRepo.Clear(sessionID)
	slog.InfoContext(ctx, "Chat history cleared",
		"sessionID", sessionID,
		"messages", len(chat.Messages),
		"idle", time.Since(chat.LastUpdate).Round(time.Second),
	)
}

// streamSessionTurn runs one turn against retained history and returns the
// history to keep. Nothing is kept unless the stream completed.
func (s *chatService) streamSessionTurn(
	ctx context.Context,
	history []domain.Message,
	req domain.ChatRequest,
	temperature float32,
	out chan<- string,
) ([]domain.Message, bool) {
	turn := appendUserMessage(s.withPersona(history, req.Persona), req.Message)

	relay := s.relay(ctx, s.compress(ctx, turn), temperature, out)
	if relay.State() != domain.RelayDone {
		return nil, false
	}

	return append(turn, domain.Message{
		Role:    domain.MessageRoleAssistant,
		Content: relay.Reply(),
	}), true
}

func (s *chatService) relay(ctx context.Context, messages []domain.Message, temperature float32, out chan<- string) *streamRelay {
	slog.InfoContext(ctx, "Streaming completion", "messages", len(messages), "temperature", temperature)

	relay := NewStreamRelay(s.openStream(messages, temperature))
	relay.Run(ctx, out)
	return relay
}

func (s *chatService) openStream(messages []domain.Message, temperature float32) StreamOpener {
	return func(ctx context.Context) (domain.FragmentStream, error) {
		cancel := context.CancelFunc(func() {})
		if s.streamTimeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, s.streamTimeout)
		}

		stream, err := s.client.CreateChatCompletionStream(ctx, messages, temperature)
		if err != nil {
			cancel()
			return nil, err
		}
		return &timedStream{FragmentStream: stream, cancel: cancel}, nil
	}
}

func (s *chatService) withPersona(history []domain.Message, persona string) []domain.Message {
	messages := make([]domain.Message, 0, len(history)+2)
	if len(history) == 0 || history[0].Role != domain.MessageRoleSystem {
		persona, _ = lo.Coalesce(persona, s.defaultPersona)
		messages = append(messages, domain.Message{Role: domain.MessageRoleSystem, Content: persona})
	}
	return append(messages, history...)
}

func (s *chatService) compress(ctx context.Context, messages []domain.Message) []domain.Message {
	compressed, _ := s.compressor.Compress(ctx, messages, tokens.Estimate(messages))
	return compressed
}

func appendUserMessage(messages []domain.Message, message string) []domain.Message {
	return append(messages, domain.Message{Role: domain.MessageRoleUser, Content: message})
}

// timedStream releases the stream deadline together with the stream.
type timedStream struct {
	domain.FragmentStream
	cancel context.CancelFunc
}

func (t *timedStream) Close() {
	t.FragmentStream.Close()
	t.cancel()
}
