package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --sqlite
// on "agentchat chat", "agentchat conversations" and "agentchat serve").
type Flag struct {
	// Name is the long flag name (e.g. "base-url").
	Name string

	// Shorthand is the one-letter short flag (e.g. "b"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "client.base_url").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagBaseURL       = "base-url"
	FlagAgent         = "agent"
	FlagProtocol      = "protocol"
	FlagTimeout       = "timeout"
	FlagReadSize      = "read-size"
	FlagStorageDriver = "storage"
	FlagSQLite        = "sqlite"
	FlagPostgresDSN   = "postgres-dsn"
	FlagAPIListen     = "api-listen"
	FlagEventProvider = "eventstream-provider"
	FlagEventBrokers  = "eventstream-brokers"
	FlagEventTopic    = "eventstream-topic"

	// The serve command uses "listen" as the flag name for api.listen.
	FlagAPIListenStandalone = "api-listen-standalone"
)

// Flags is the shared registry used by the agentchat commands.
var Flags = FlagSet{
	FlagBaseURL:             {Name: "base-url", Shorthand: "b", ViperKey: "client.base_url", Description: "Chat backend base URL"},
	FlagAgent:               {Name: "agent", Shorthand: "a", ViperKey: "client.agent", Description: "Agent to chat with"},
	FlagProtocol:            {Name: "protocol", Shorthand: "p", ViperKey: "client.protocol", Description: "Response framing protocol (sentinel, inline-tag, sse)"},
	FlagTimeout:             {Name: "timeout", ViperKey: "client.timeout", Description: "Per-request timeout (0 disables)"},
	FlagReadSize:            {Name: "read-size", ViperKey: "client.read_size", Description: "Bytes requested per body read"},
	FlagStorageDriver:       {Name: "storage", ViperKey: "storage.driver", Description: "Conversation store driver (inmemory, sqlite, postgres)"},
	FlagSQLite:              {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to SQLite database"},
	FlagPostgresDSN:         {Name: "postgres-dsn", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string"},
	FlagAPIListen:           {Name: "api-listen", ViperKey: "api.listen", Description: "Address for API server to listen on"},
	FlagAPIListenStandalone: {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for API server to listen on"},
	FlagEventProvider:       {Name: "eventstream-provider", ViperKey: "eventstream.provider", Description: "Finalized-message publisher (nop, kafka)"},
	FlagEventBrokers:        {Name: "eventstream-brokers", ViperKey: "eventstream.brokers", Description: "Comma separated Kafka brokers"},
	FlagEventTopic:          {Name: "eventstream-topic", ViperKey: "eventstream.topic", Description: "Kafka topic for finalized messages"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}
