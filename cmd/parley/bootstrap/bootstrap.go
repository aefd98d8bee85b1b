// Package bootstrap builds the runtime shared by the parley commands:
// configuration, logger, adapters, transcript store and dispatcher.
package bootstrap

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/parley/pkg/chat"
	"github.com/papercomputeco/parley/pkg/config"
	"github.com/papercomputeco/parley/pkg/llm"
	"github.com/papercomputeco/parley/pkg/logger"
	"github.com/papercomputeco/parley/pkg/merkle"
	"github.com/papercomputeco/parley/pkg/ollama"
	"github.com/papercomputeco/parley/pkg/openai"
)

// Options select how the runtime is built.
type Options struct {
	ConfigPath string
	Debug      bool

	// LogPath, when set, sends logs to a file instead of stdout.
	LogPath string

	// LogWriter, when set and LogPath is empty, receives plain log lines.
	LogWriter io.Writer

	// SQLitePath overrides storage.sqlite.
	SQLitePath string
}

// OptionsFromCommand reads the root command's persistent --config and
// --debug flags, if cmd has them.
func OptionsFromCommand(cmd *cobra.Command) Options {
	var opts Options
	if f := cmd.Flag("config"); f != nil {
		opts.ConfigPath = f.Value.String()
	}
	if f := cmd.Flag("debug"); f != nil {
		opts.Debug = f.Value.String() == "true"
	}
	return opts
}

// Runtime is everything a command needs to run chat sessions.
type Runtime struct {
	Config *config.Config

	// ConfigPath is the file Config was read from, or would have been had
	// it existed. Empty when no home directory can be resolved.
	ConfigPath string

	Logger     *zap.Logger
	Storer     merkle.Storer
	Dispatcher *chat.Dispatcher

	closers []func() error
}

// New loads configuration and wires the adapters. A local generator that
// cannot be built is left unset, so selecting it yields the missing
// dependency diagnostic.
func New(opts Options) (*Runtime, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	r := &Runtime{Config: cfg}
	if path, err := config.ResolvePath(opts.ConfigPath); err == nil {
		r.ConfigPath = path
	}

	if opts.LogPath != "" {
		l, closeFn, err := logger.NewFileLogger(opts.LogPath, opts.Debug)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		r.Logger = l
		r.closers = append(r.closers, closeFn)
	} else if opts.LogWriter != nil {
		r.Logger = logger.NewWriterLogger(opts.LogWriter, opts.Debug, false)
	} else {
		r.Logger = logger.NewLogger(opts.Debug)
	}

	sqlitePath := cfg.Storage.SQLite
	if opts.SQLitePath != "" {
		sqlitePath = opts.SQLitePath
	}
	if sqlitePath != "" {
		storer, err := merkle.NewSQLiteStorer(sqlitePath)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("failed to create SQLite storer: %w", err)
		}
		r.Storer = storer
		r.Logger.Info("using SQLite storage", zap.String("path", sqlitePath))
	} else {
		r.Storer = merkle.NewMemoryStorer()
		r.Logger.Debug("using in-memory storage")
	}
	r.closers = append([]func() error{r.Storer.Close}, r.closers...)

	var remote llm.RemoteAdapter = openai.New(cfg.OpenAI.Config, r.Logger)

	var local llm.LocalAdapter
	if cfg.Local.Enabled {
		gen, err := ollama.New(cfg.Local, r.Logger)
		if err != nil {
			r.Logger.Warn("local generator unavailable", zap.Error(err))
		} else {
			local = gen
		}
	}

	r.Dispatcher = chat.NewDispatcher(remote, local, cfg.Chat.Window, r.Logger)
	return r, nil
}

// Settings returns the configured session defaults.
func (r *Runtime) Settings() chat.Settings {
	return r.Config.Settings()
}

// Close releases the store and flushes the logger.
func (r *Runtime) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	if r.Logger != nil {
		_ = r.Logger.Sync()
	}
	return first
}
