// Package ollama is the local generation adapter. It runs raw text completion
// against an Ollama server, treating the flattened prompt as the start of a
// document to be continued.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/papercomputeco/parley/pkg/backend"
	"github.com/papercomputeco/parley/pkg/llm"
)

var _ llm.LocalAdapter = (*Generator)(nil)

// Generator implements llm.LocalAdapter using the Ollama generate endpoint.
type Generator struct {
	client *api.Client
	cfg    Config
	logger *zap.Logger
}

// New creates a local generator. It does not verify connectivity;
// call Heartbeat for an early health check.
func New(cfg Config, logger *zap.Logger) (*Generator, error) {
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse ollama url %q: %w", cfg.URL, err)
	}

	return &Generator{
		client: api.NewClient(base, &http.Client{Timeout: cfg.Timeout}),
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Generate continues req.Prompt by at most req.Options.MaxTokens tokens.
// The returned content is the prompt followed by the continuation.
func (g *Generator) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.Response, error) {
	stream := false
	genReq := &api.GenerateRequest{
		Model:  g.cfg.Model,
		Prompt: req.Prompt,
		Raw:    true,
		Stream: &stream,
		Options: map[string]any{
			"temperature": req.Options.Temperature,
			"num_predict": req.Options.MaxTokens,
			"seed":        g.cfg.Seed,
		},
	}

	g.logger.Debug("generating locally",
		zap.String("model", g.cfg.Model),
		zap.Int("prompt_len", len(req.Prompt)),
		zap.Int("max_tokens", req.Options.MaxTokens),
	)

	var (
		continuation strings.Builder
		final        api.GenerateResponse
	)
	start := time.Now()
	err := g.client.Generate(ctx, genReq, func(resp api.GenerateResponse) error {
		continuation.WriteString(resp.Response)
		if resp.Done {
			final = resp
		}
		return nil
	})
	if err != nil {
		return nil, llm.NewAdapterError(backend.Local, llm.KindRequestFailed, mapError(err))
	}

	model := final.Model
	if model == "" {
		model = g.cfg.Model
	}

	return &llm.Response{
		Content:          req.Prompt + continuation.String(),
		Model:            model,
		PromptTokens:     final.PromptEvalCount,
		CompletionTokens: final.EvalCount,
		Duration:         time.Since(start),
	}, nil
}

// Heartbeat checks whether the Ollama server is reachable.
func (g *Generator) Heartbeat(ctx context.Context) error {
	return g.client.Heartbeat(ctx)
}

// mapError makes Ollama status errors read like the server's own message.
func mapError(err error) error {
	var se api.StatusError
	if errors.As(err, &se) {
		msg := se.ErrorMessage
		if msg == "" {
			msg = se.Status
		}
		return fmt.Errorf("ollama status %d: %s", se.StatusCode, msg)
	}
	return err
}
