// Package servecmder provides the serve command, which runs the API server
// over the conversation store.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/api"
	"github.com/papercomputeco/agentchat/cmd/agentchat/wiring"
	"github.com/papercomputeco/agentchat/pkg/config"
	"github.com/papercomputeco/agentchat/pkg/conversation"
	"github.com/papercomputeco/agentchat/pkg/metrics"
)

type serveCommander struct {
	listen string
	logger *slog.Logger
}

const serveLongDesc string = `Run the agentchat API server.

The server exposes the conversation store over HTTP:
  GET    /conversations                            List conversations
  GET    /conversations/:id                        Get a conversation with its messages
  PATCH  /conversations/:id                        Rename a conversation
  DELETE /conversations/:id                        Delete a conversation
  DELETE /conversations/:id/messages/:messageID    Delete one message
  GET    /metrics                                  Prometheus metrics
  POST   /mcp                                      MCP tools over streamable HTTP

Examples:
  agentchat serve
  agentchat serve --listen :9090 --storage postgres --postgres-dsn postgres://localhost/agentchat`

const serveShortDesc string = "Run the agentchat API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := wiring.Settings(cmd, append([]string{config.FlagAPIListenStandalone}, wiring.StoreFlagKeys...)...)
			if err != nil {
				return err
			}
			cmder.listen = cfg.API.Listen
			cmder.logger = wiring.Logger(cmd, cmd.ErrOrStderr())

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			store, err := wiring.OpenStore(ctx, cfg, wiring.ConfigDir(cmd), cmder.logger)
			if err != nil {
				return err
			}
			defer store.Close()

			return cmder.run(store)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListenStandalone, &cmder.listen)
	wiring.AddStoreFlags(cmd)

	return cmd
}

func (c *serveCommander) run(store conversation.Store) error {
	server, err := api.NewServer(api.Config{
		ListenAddr: c.listen,
		Gatherer:   metrics.NewRegistry(),
	}, store, c.logger)
	if err != nil {
		return fmt.Errorf("creating api server: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return server.Shutdown()
	}
}
