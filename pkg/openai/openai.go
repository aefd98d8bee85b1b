// Package openai is the remote generation adapter. It sends the whole
// conversation to the OpenAI chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/papercomputeco/parley/pkg/backend"
	"github.com/papercomputeco/parley/pkg/llm"
)

var _ llm.RemoteAdapter = (*Client)(nil)

// Client implements llm.RemoteAdapter over the chat completions API.
// The credential is supplied per request, not per client.
type Client struct {
	api    sdk.Client
	cfg    Config
	logger *zap.Logger
}

// New creates an OpenAI adapter. cfg.BaseURL is the API host; the
// versioned path is appended here.
func New(cfg Config, logger *zap.Logger) *Client {
	opts := []option.RequestOption{
		option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/") + "/v1/"),
		option.WithMaxRetries(0),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &Client{
		api:    sdk.NewClient(opts...),
		cfg:    cfg,
		logger: logger,
	}
}

// Chat sends the conversation and returns the first choice's content,
// trimmed of surrounding whitespace.
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (*llm.Response, error) {
	if req.Credential == "" {
		return nil, llm.NewAdapterError(backend.Remote, llm.KindMissingCredential, nil)
	}

	params := sdk.ChatCompletionNewParams{
		Model:       sdk.ChatModel(c.cfg.Model),
		Messages:    messageParams(req.Messages),
		Temperature: sdk.Float(req.Options.Temperature),
		N:           sdk.Int(1),
	}
	if c.cfg.MaxTokens > 0 {
		params.MaxTokens = sdk.Int(int64(c.cfg.MaxTokens))
	}

	c.logger.Debug("sending chat completion",
		zap.String("model", c.cfg.Model),
		zap.Int("message_count", len(req.Messages)),
		zap.Float64("temperature", req.Options.Temperature),
	)

	start := time.Now()
	resp, err := c.api.Chat.Completions.New(ctx, params, option.WithAPIKey(req.Credential))
	if err != nil {
		return nil, llm.NewAdapterError(backend.Remote, llm.KindRequestFailed, requestError(err))
	}

	if len(resp.Choices) == 0 {
		return nil, llm.NewAdapterError(backend.Remote, llm.KindRequestFailed, errors.New("response contained no choices"))
	}

	return &llm.Response{
		Content:          strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:            resp.Model,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		Duration:         time.Since(start),
	}, nil
}

func messageParams(messages []llm.Message) []sdk.ChatCompletionMessageParamUnion {
	params := make([]sdk.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case llm.RoleAssistant:
			params = append(params, sdk.AssistantMessage(m.Content))
		case llm.RoleSystem:
			params = append(params, sdk.SystemMessage(m.Content))
		default:
			params = append(params, sdk.UserMessage(m.Content))
		}
	}
	return params
}

// StatusError is an error response from the API, reduced to the parts
// worth showing in a diagnostic.
type StatusError struct {
	StatusCode int
	Type       string
	Message    string

	err *sdk.Error
}

func (e *StatusError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("status %d %s: %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error { return e.err }

// requestError flattens SDK API errors into a StatusError and wraps
// everything else (transport failures, decode errors) as is.
func requestError(err error) error {
	var apiErr *sdk.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("do request: %w", err)
	}

	msg := apiErr.Message
	if msg == "" {
		msg = http.StatusText(apiErr.StatusCode)
	}
	return &StatusError{
		StatusCode: apiErr.StatusCode,
		Type:       apiErr.Type,
		Message:    msg,
		err:        apiErr,
	}
}
