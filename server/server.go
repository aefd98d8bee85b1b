// Package server exposes chat sessions and their transcript DAG over HTTP.
package server

import (
	"net"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/papercomputeco/parley/pkg/chat"
	"github.com/papercomputeco/parley/pkg/merkle"
)

// Server serves the chat API. Sessions live in the chat.Manager; every turn
// they produce is recorded in the storer and can be inspected via /dag.
type Server struct {
	config   Config
	sessions *chat.Manager
	storer   merkle.Storer
	logger   *zap.Logger
	app      *fiber.App
}

// New creates a Server and registers its routes.
func New(config Config, sessions *chat.Manager, storer merkle.Storer, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:   config,
		sessions: sessions,
		storer:   storer,
		logger:   logger,
		app:      app,
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Post("/sessions", s.handleCreateSession)
	app.Get("/sessions/:id", s.handleGetSession)
	app.Delete("/sessions/:id", s.handleEndSession)
	app.Put("/sessions/:id/settings", s.handleUpdateSettings)
	app.Post("/sessions/:id/messages", s.handleSubmit)
	app.Delete("/sessions/:id/history", s.handleClearHistory)

	// DAG inspection endpoints
	app.Get("/dag/stats", s.handleDAGStats)
	app.Get("/dag/node/:hash", s.handleGetNode)
	app.Get("/dag/history", s.handleListHistories)
	app.Get("/dag/history/:hash", s.handleGetHistory)
	app.Post("/dag/nodes", s.handlePutNodes)

	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the server on the configured listening address.
func (s *Server) Run() error {
	s.logger.Info("starting chat server", zap.String("listen", s.config.ListenAddr))
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// RunWithListener serves on an existing listener.
func (s *Server) RunWithListener(ln net.Listener) error {
	s.logger.Info("starting chat server", zap.String("listen", ln.Addr().String()))
	return s.app.Listener(ln)
}
