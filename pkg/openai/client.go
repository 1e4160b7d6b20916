package openai

import (
	"context"
	"errors"
	"fmt"

	gogpt "github.com/sashabaranov/go-openai"

	"github.com/dskvich/local-chat-relay/pkg/domain"
)

// client talks to an OpenAI-compatible inference server such as LM Studio.
type client struct {
	api   *gogpt.Client
	model string
}

func NewClient(baseURL, token, model string) (*client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base url is empty")
	}
	if model == "" {
		return nil, fmt.Errorf("model is empty")
	}

	cfg := gogpt.DefaultConfig(token)
	cfg.BaseURL = baseURL

	return &client{
		api:   gogpt.NewClientWithConfig(cfg),
		model: model,
	}, nil
}

// CreateChatCompletion requests a single, non-streamed reply.
func (c *client) CreateChatCompletion(ctx context.Context, messages []domain.Message, temperature float32) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, c.buildRequest(messages, temperature))
	if err != nil {
		return "", fmt.Errorf("creating chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in response")
	}

	return resp.Choices[0].Message.Content, nil
}

// CreateChatCompletionStream opens a streamed completion. The caller must Close the stream.
func (c *client) CreateChatCompletionStream(ctx context.Context, messages []domain.Message, temperature float32) (domain.FragmentStream, error) {
	s, err := c.api.CreateChatCompletionStream(ctx, c.buildRequest(messages, temperature))
	if err != nil {
		return nil, fmt.Errorf("creating chat completion stream: %w", err)
	}

	return &stream{s: s}, nil
}

// ListModels returns the ids of the models the server currently exposes.
func (c *client) ListModels(ctx context.Context) ([]string, error) {
	list, err := c.api.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}

	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (c *client) buildRequest(messages []domain.Message, temperature float32) gogpt.ChatCompletionRequest {
	converted := make([]gogpt.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		converted = append(converted, gogpt.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	return gogpt.ChatCompletionRequest{
		Model:       c.model,
		Messages:    converted,
		Temperature: temperature,
	}
}

type stream struct {
	s *gogpt.ChatCompletionStream
}

// Recv returns the next content delta, "" for chunks that carry none.
func (s *stream) Recv() (string, error) {
	resp, err := s.s.Recv()
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Delta.Content, nil
}

func (s *stream) Close() {
	s.s.Close()
}
