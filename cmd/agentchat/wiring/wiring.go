// Package wiring builds the components agentchat commands share (logger,
// settings, conversation store, chat client, event publisher) from the
// resolved configuration.
package wiring

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/agentchat/cmd/agentchat/sqlitepath"
	"github.com/papercomputeco/agentchat/pkg/chatstream"
	"github.com/papercomputeco/agentchat/pkg/config"
	"github.com/papercomputeco/agentchat/pkg/conversation"
	"github.com/papercomputeco/agentchat/pkg/conversation/inmemory"
	"github.com/papercomputeco/agentchat/pkg/conversation/postgres"
	"github.com/papercomputeco/agentchat/pkg/conversation/sqlite"
	"github.com/papercomputeco/agentchat/pkg/dotdir"
	"github.com/papercomputeco/agentchat/pkg/eventstream"
	"github.com/papercomputeco/agentchat/pkg/eventstream/kafka"
	"github.com/papercomputeco/agentchat/pkg/eventstream/nop"
	"github.com/papercomputeco/agentchat/pkg/eventstream/worker"
	"github.com/papercomputeco/agentchat/pkg/logger"
)

// ConfigDir returns the --config-dir persistent flag value.
func ConfigDir(cmd *cobra.Command) string {
	dir, _ := cmd.Flags().GetString("config-dir")
	return dir
}

// Logger builds the command logger. Logs go to w with the pretty handler,
// or as JSON with --log-json, at debug level when --debug is set and at
// --log-level otherwise. With --log-file, records are also appended to
// that file as JSON.
func Logger(cmd *cobra.Command, w io.Writer) *slog.Logger {
	flags := cmd.Flags()
	debug, _ := flags.GetBool("debug")
	level, _ := flags.GetString("log-level")
	asJSON, _ := flags.GetBool("log-json")
	source, _ := flags.GetBool("log-source")
	path, _ := flags.GetString("log-file")

	levelOpt := logger.WithDebug(debug)
	if level != "" && !debug {
		levelOpt = logger.WithLevel(level)
	}

	log := logger.New(
		levelOpt,
		logger.WithPretty(true),
		logger.WithJSON(asJSON),
		logger.WithSource(source),
		logger.WithPrefix(cmd.Name()),
		logger.WithWriter(w),
	)
	if path == "" {
		return log
	}

	// The file stays open for the life of the process.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		log.Warn("could not open log file", "path", path, "error", err)
		return log
	}
	return logger.Multi(log, logger.New(
		levelOpt,
		logger.WithJSON(true),
		logger.WithSource(source),
		logger.WithWriter(f),
	))
}

// Settings resolves the effective configuration for cmd, binding the given
// flag registry keys so that flags override env and file values.
func Settings(cmd *cobra.Command, flagKeys ...string) (*config.Config, error) {
	v, err := config.InitViper(ConfigDir(cmd))
	if err != nil {
		return nil, err
	}

	config.BindRegisteredFlags(v, cmd, config.Flags, flagKeys)
	return config.Resolve(v)
}

// StoreFlagKeys are the registry keys of the storage flags.
var StoreFlagKeys = []string{
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgresDSN,
}

// AddStoreFlags registers the storage flags on cmd.
func AddStoreFlags(cmd *cobra.Command) {
	var driver, sqlitePath, dsn string
	config.AddStringFlag(cmd, config.Flags, config.FlagStorageDriver, &driver)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgresDSN, &dsn)
}

// OpenStore opens the conversation store selected by cfg.Storage.
func OpenStore(ctx context.Context, cfg *config.Config, configDir string, log *slog.Logger) (conversation.Store, error) {
	switch cfg.Storage.Driver {
	case config.StorageInMemory:
		log.Debug("using in-memory storage")
		return inmemory.NewStore(), nil

	case config.StorageSQLite, "":
		dotDir, err := dotdir.NewManager().Target(configDir)
		if err != nil {
			return nil, err
		}
		path, err := sqlitepath.ResolveSQLitePath(cfg.Storage.SQLitePath, dotDir)
		if err != nil {
			return nil, err
		}
		store, err := sqlite.NewStore(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("opening SQLite store: %w", err)
		}
		log.Debug("using SQLite storage", "path", path)
		return store, nil

	case config.StoragePostgres:
		if cfg.Storage.PostgresDSN == "" {
			return nil, fmt.Errorf("storage.postgres_dsn is required for the postgres driver")
		}
		store, err := postgres.NewStore(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("opening PostgreSQL store: %w", err)
		}
		log.Debug("using PostgreSQL storage")
		return store, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// EventFlagKeys are the registry keys of the event stream flags.
var EventFlagKeys = []string{
	config.FlagEventProvider,
	config.FlagEventBrokers,
	config.FlagEventTopic,
}

// AddEventFlags registers the event stream flags on cmd.
func AddEventFlags(cmd *cobra.Command) {
	var provider, brokers, topic string
	config.AddStringFlag(cmd, config.Flags, config.FlagEventProvider, &provider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventBrokers, &brokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventTopic, &topic)
}

// NewPublisher builds the finalized-message publisher selected by
// cfg.EventStream.
func NewPublisher(cfg *config.Config, log *slog.Logger) (eventstream.Publisher, error) {
	switch cfg.EventStream.Provider {
	case config.EventStreamNop, "":
		return nop.NewPublisher(), nil

	case config.EventStreamKafka:
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: kafka.ParseBrokers(cfg.EventStream.Brokers),
			Topic:   cfg.EventStream.Topic,
		}, kafka.WithLogger(log))
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		log.Debug("publishing finalized messages to kafka",
			"brokers", cfg.EventStream.Brokers,
			"topic", cfg.EventStream.Topic,
		)
		return worker.NewPool(&worker.Config{Publisher: p, Logger: log})

	default:
		return nil, fmt.Errorf("unknown eventstream provider %q", cfg.EventStream.Provider)
	}
}

// ClientFlagKeys are the registry keys of the chat client flags.
var ClientFlagKeys = []string{
	config.FlagBaseURL,
	config.FlagAgent,
	config.FlagProtocol,
	config.FlagTimeout,
	config.FlagReadSize,
}

// AddClientFlags registers the chat client flags on cmd.
func AddClientFlags(cmd *cobra.Command) {
	var baseURL, agent, protocol, timeout string
	var readSize uint
	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &baseURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagAgent, &agent)
	config.AddStringFlag(cmd, config.Flags, config.FlagProtocol, &protocol)
	config.AddStringFlag(cmd, config.Flags, config.FlagTimeout, &timeout)
	config.AddUintFlag(cmd, config.Flags, config.FlagReadSize, &readSize)
}

// NewClient builds the chat stream client from cfg.Client.
func NewClient(cfg *config.Config, log *slog.Logger) (*chatstream.Client, error) {
	protocol, err := chatstream.ParseProtocol(cfg.Client.Protocol)
	if err != nil {
		return nil, err
	}

	timeout, err := cfg.Client.RequestTimeout()
	if err != nil {
		return nil, err
	}

	opts := []chatstream.Option{
		chatstream.WithProtocol(protocol),
		chatstream.WithHTTPClient(&http.Client{Timeout: timeout}),
		chatstream.WithLogger(log),
	}
	if cfg.Client.ReadSize > 0 {
		opts = append(opts, chatstream.WithReadSize(int(cfg.Client.ReadSize)))
	}

	return chatstream.NewClient(cfg.Client.BaseURL, opts...), nil
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// TerminalWidth returns the width of w, or fallback when w is not a
// terminal.
func TerminalWidth(w io.Writer, fallback int) int {
	f, ok := w.(*os.File)
	if !ok {
		return fallback
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}

// RunWithStore opens the configured store, runs fn and closes the store.
// Store flags must have been registered with AddStoreFlags.
func RunWithStore(cmd *cobra.Command, fn func(ctx context.Context, store conversation.Store) error) error {
	cfg, err := Settings(cmd, StoreFlagKeys...)
	if err != nil {
		return err
	}

	log := Logger(cmd, cmd.ErrOrStderr())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := OpenStore(ctx, cfg, ConfigDir(cmd), log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("closing store", "error", err)
		}
	}()

	return fn(ctx, store)
}
