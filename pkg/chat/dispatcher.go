package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/parley/pkg/backend"
	"github.com/papercomputeco/parley/pkg/conversation"
	"github.com/papercomputeco/parley/pkg/llm"
	"github.com/papercomputeco/parley/pkg/prompt"
)

// Dispatcher routes a conversation to the remote or local adapter and always
// resolves to display text. Either adapter may be nil, in which case selecting
// it yields a missing-dependency diagnostic.
type Dispatcher struct {
	remote llm.RemoteAdapter
	local  llm.LocalAdapter
	window int
	logger *zap.Logger
}

// NewDispatcher creates a dispatcher. window bounds the turns fed to the local
// prompt; a non-positive value uses prompt.DefaultWindow.
func NewDispatcher(remote llm.RemoteAdapter, local llm.LocalAdapter, window int, logger *zap.Logger) *Dispatcher {
	if window <= 0 {
		window = prompt.DefaultWindow
	}
	return &Dispatcher{
		remote: remote,
		local:  local,
		window: window,
		logger: logger,
	}
}

// Result is the outcome of one dispatch.
type Result struct {
	Backend  backend.Backend
	Text     string // The answer, or a diagnostic when Err is set
	Model    string
	Duration time.Duration
	Err      error // *llm.AdapterError on failure
}

// Dispatch selects a backend from settings and generates the next assistant
// answer for conv. Adapter failures are rendered into Result.Text.
func (d *Dispatcher) Dispatch(ctx context.Context, conv *conversation.Conversation, settings Settings) Result {
	b := backend.Select(settings.Mode, settings.Credential)
	start := time.Now()

	var (
		resp *llm.Response
		err  error
		p    string
	)
	switch b {
	case backend.Remote:
		resp, err = d.callRemote(ctx, conv, settings)
	default:
		p, resp, err = d.callLocal(ctx, conv, settings)
	}
	if err == nil && resp == nil {
		err = llm.NewAdapterError(b, llm.KindRequestFailed, errors.New("adapter returned no response"))
	}

	elapsed := time.Since(start)
	generationDuration.WithLabelValues(string(b)).Observe(elapsed.Seconds())

	if err != nil {
		generationsTotal.WithLabelValues(string(b), outcome(err)).Inc()
		d.logger.Warn("generation failed",
			zap.String("backend", string(b)),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		return Result{Backend: b, Text: llm.Diagnostic(err), Duration: elapsed, Err: err}
	}

	text := resp.Content
	if b == backend.Local {
		text = prompt.ExtractAnswer(resp.Content, p)
	}

	generationsTotal.WithLabelValues(string(b), "ok").Inc()
	d.logger.Debug("generation complete",
		zap.String("backend", string(b)),
		zap.String("model", resp.Model),
		zap.Duration("duration", elapsed),
		zap.String("content_preview", truncate(text, 50)),
	)
	return Result{Backend: b, Text: text, Model: resp.Model, Duration: elapsed}
}

func (d *Dispatcher) callRemote(ctx context.Context, conv *conversation.Conversation, settings Settings) (resp *llm.Response, err error) {
	if d.remote == nil {
		return nil, llm.NewAdapterError(backend.Remote, llm.KindMissingDependency, nil)
	}
	defer recoverAdapter(backend.Remote, &err)

	return d.remote.Chat(ctx, llm.ChatRequest{
		Messages:   llm.Messages(conv.Turns()),
		Options:    llm.Options{Temperature: settings.Temperature},
		Credential: settings.Credential,
	})
}

func (d *Dispatcher) callLocal(ctx context.Context, conv *conversation.Conversation, settings Settings) (p string, resp *llm.Response, err error) {
	if d.local == nil {
		return "", nil, llm.NewAdapterError(backend.Local, llm.KindMissingDependency, nil)
	}
	defer recoverAdapter(backend.Local, &err)

	p = prompt.Build(conv.Window(d.window))
	resp, err = d.local.Generate(ctx, llm.GenerateRequest{
		Prompt: p,
		Options: llm.Options{
			Temperature: settings.Temperature,
			MaxTokens:   settings.MaxTokens,
		},
	})
	return p, resp, err
}

// recoverAdapter turns an adapter panic into a request failure.
func recoverAdapter(b backend.Backend, err *error) {
	if r := recover(); r != nil {
		*err = llm.NewAdapterError(b, llm.KindRequestFailed, fmt.Errorf("adapter panic: %v", r))
	}
}

func outcome(err error) string {
	var ae *llm.AdapterError
	if errors.As(err, &ae) {
		return ae.Kind.String()
	}
	return llm.KindRequestFailed.String()
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
