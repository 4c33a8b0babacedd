package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/papercomputeco/agentchat/api/mcp"
	"github.com/papercomputeco/agentchat/pkg/conversation"
)

// Server is the API server for inspecting and managing stored conversations.
type Server struct {
	config Config
	store  conversation.Store
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server.
// The store is injected so it can be shared with a running chat session.
func NewServer(config Config, store conversation.Store, logger *slog.Logger) (*Server, error) {
	if store == nil {
		return nil, errors.New("conversation store is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	gatherer := config.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		Store:  store,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		store:  store,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/conversations", s.handleListConversations)
	app.Get("/conversations/:id", s.handleGetConversation)
	app.Patch("/conversations/:id", s.handleRenameConversation)
	app.Delete("/conversations/:id", s.handleDeleteConversation)
	app.Delete("/conversations/:id/messages/:messageID", s.handleDeleteMessage)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
