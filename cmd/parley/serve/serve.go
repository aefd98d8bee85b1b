package servecmder

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/parley/cmd/parley/bootstrap"
	"github.com/papercomputeco/parley/pkg/chat"
	"github.com/papercomputeco/parley/pkg/config"
	"github.com/papercomputeco/parley/server"
)

const serveLongDesc string = `Run the chat HTTP service.

Each client creates a session, then posts user messages to it. Every
turn is recorded in the transcript DAG, which can be inspected under
/dag. Metrics are exposed at /metrics.

The config file is watched while the service runs. Edits to the [chat]
section and the OpenAI API key apply to sessions created afterwards;
existing sessions keep their settings. Other sections need a restart.
Sessions idle for longer than server.session_ttl are ended.

Examples:
  parley serve
  parley serve --listen :9090 --sqlite ~/.parley/parley.db`

const serveShortDesc string = "Run the chat HTTP service"

type serveCommander struct {
	listen     string
	sqlitePath string
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", "", "Address to listen on (default from config)")
	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite transcript database (default: in-memory)")

	return cmd
}

func (c *serveCommander) run(ctx context.Context, cmd *cobra.Command) error {
	opts := bootstrap.OptionsFromCommand(cmd)
	opts.SQLitePath = c.sqlitePath

	rt, err := bootstrap.New(opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	listen := rt.Config.Server.Listen
	if c.listen != "" {
		listen = c.listen
	}

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("could not listen on %s: %w", listen, err)
	}

	return serve(ctx, rt, ln)
}

// serve runs the server on ln until ctx is cancelled.
func serve(ctx context.Context, rt *bootstrap.Runtime, ln net.Listener) error {
	manager := chat.NewManager(rt.Dispatcher, rt.Storer, rt.Settings(), rt.Logger)
	srv := server.New(server.Config{
		ListenAddr: ln.Addr().String(),
	}, manager, rt.Storer, rt.Logger)

	bgCtx, stop := context.WithCancel(ctx)
	defer stop()

	if rt.ConfigPath != "" {
		go func() {
			err := config.Watch(bgCtx, rt.ConfigPath, rt.Logger, func(cfg *config.Config) {
				manager.SetDefaults(cfg.Settings())
			})
			if err != nil {
				rt.Logger.Info("config reload disabled", zap.Error(err))
			}
		}()
	}

	if ttl := rt.Config.Server.SessionTTL; ttl > 0 {
		go manager.ExpireIdle(bgCtx, ttl, sweepInterval(ttl))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.RunWithListener(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		rt.Logger.Info("shutting down", zap.Error(context.Cause(ctx)))
		if err := srv.Shutdown(); err != nil && !errors.Is(err, net.ErrClosed) {
			return err
		}
		return <-errCh
	}
}

// sweepInterval checks for idle sessions at half the ttl, between one
// second and one minute.
func sweepInterval(ttl time.Duration) time.Duration {
	return min(max(ttl/2, time.Second), time.Minute)
}
