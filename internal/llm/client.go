package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sashabaranov/go-openai"
)

// ErrEmptyResponse is returned when the model answers with no usable text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// ChatCompleter is the part of *openai.Client the generator calls.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Config struct {
	BaseURL      string
	APIKey       string
	Model        string
	SystemPrompt string
	// MaxRetries bounds in-call retries of transient errors (429, 5xx, network).
	MaxRetries uint64
}

// Client produces a single text reply for a prompt.
type Client struct {
	api        ChatCompleter
	cfg        Config
	log        *slog.Logger
	newBackOff func() backoff.BackOff
}

// New builds a client against an OpenAI-compatible endpoint.
func New(cfg Config, log *slog.Logger) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return NewWithCompleter(openai.NewClientWithConfig(oc), cfg, log)
}

func NewWithCompleter(api ChatCompleter, cfg Config, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		api: api,
		cfg: cfg,
		log: log,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
	}
}

// Generate sends prompt as a single user turn and returns the reply text.
// ctx bounds the whole call including retries.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.cfg.Model,
		Messages: make([]openai.ChatCompletionMessage, 0, 2),
	}
	if c.cfg.SystemPrompt != "" {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: c.cfg.SystemPrompt,
		})
	}
	req.Messages = append(req.Messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser, Content: prompt,
	})

	var text string
	attempt := 0
	op := func() error {
		attempt++
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			c.log.Warn("model call failed, retrying", "attempt", attempt, "error", err)
			return err
		}
		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			return backoff.Permanent(ErrEmptyResponse)
		}
		text = resp.Choices[0].Message.Content
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.cfg.MaxRetries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return text, nil
}

// retryable reports whether err is worth another call: rate limits, server
// errors and transport failures. Other 4xx responses and cancellation are not.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	return true
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500 || code == 0
}
