package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/agentchat/pkg/chatstream"
)

// Config represents the persistent agentchat configuration stored as config.toml
// in the .agentchat/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Client      ClientConfig      `toml:"client"`
	Storage     StorageConfig     `toml:"storage"`
	API         APIConfig         `toml:"api"`
	EventStream EventStreamConfig `toml:"eventstream"`
	Agents      []AgentConfig     `toml:"agents,omitempty"`
}

// ClientConfig holds settings for talking to the chat backend.
// BaseURL is a full URL (scheme + host + port) without the /api/chat path.
type ClientConfig struct {
	BaseURL  string `toml:"base_url,omitempty"`
	Agent    string `toml:"agent,omitempty"`
	Protocol string `toml:"protocol,omitempty"`
	Timeout  string `toml:"timeout,omitempty"`
	ReadSize uint   `toml:"read_size,omitempty"`
}

// StorageConfig selects and configures the conversation store.
type StorageConfig struct {
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// EventStreamConfig configures where finalized-message events are published.
// Brokers is a comma separated host:port list.
type EventStreamConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// Storage drivers.
const (
	StorageInMemory = "inmemory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Event stream providers.
const (
	EventStreamNop   = "nop"
	EventStreamKafka = "kafka"
)

// StorageDrivers returns the recognized storage.driver values.
func StorageDrivers() []string {
	return []string{StorageInMemory, StorageSQLite, StoragePostgres}
}

// EventStreamProviders returns the recognized eventstream.provider values.
func EventStreamProviders() []string {
	return []string{EventStreamNop, EventStreamKafka}
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"client.base_url": {
		get: func(c *Config) string { return c.Client.BaseURL },
		set: func(c *Config, v string) error { c.Client.BaseURL = strings.TrimRight(v, "/"); return nil },
	},
	"client.agent": {
		get: func(c *Config) string { return c.Client.Agent },
		set: func(c *Config, v string) error { c.Client.Agent = v; return nil },
	},
	"client.protocol": {
		get: func(c *Config) string { return c.Client.Protocol },
		set: func(c *Config, v string) error {
			p, err := chatstream.ParseProtocol(v)
			if err != nil {
				return fmt.Errorf("invalid value for client.protocol: %w", err)
			}
			c.Client.Protocol = p.String()
			return nil
		},
	},
	"client.timeout": {
		get: func(c *Config) string { return c.Client.Timeout },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid value for client.timeout: %w", err)
			}
			if d < 0 {
				return fmt.Errorf("invalid value for client.timeout: %q is negative", v)
			}
			c.Client.Timeout = v
			return nil
		},
	},
	"client.read_size": {
		get: func(c *Config) string {
			if c.Client.ReadSize == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Client.ReadSize), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return fmt.Errorf("invalid value for client.read_size: %w", err)
			}
			c.Client.ReadSize = uint(n)
			return nil
		},
	},
	"storage.driver": {
		get: func(c *Config) string { return c.Storage.Driver },
		set: func(c *Config, v string) error {
			if !slices.Contains(StorageDrivers(), v) {
				return fmt.Errorf("invalid value for storage.driver: %q (available: %s)", v, strings.Join(StorageDrivers(), ", "))
			}
			c.Storage.Driver = v
			return nil
		},
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"eventstream.provider": {
		get: func(c *Config) string { return c.EventStream.Provider },
		set: func(c *Config, v string) error {
			if !slices.Contains(EventStreamProviders(), v) {
				return fmt.Errorf("invalid value for eventstream.provider: %q (available: %s)", v, strings.Join(EventStreamProviders(), ", "))
			}
			c.EventStream.Provider = v
			return nil
		},
	},
	"eventstream.brokers": {
		get: func(c *Config) string { return c.EventStream.Brokers },
		set: func(c *Config, v string) error { c.EventStream.Brokers = v; return nil },
	},
	"eventstream.topic": {
		get: func(c *Config) string { return c.EventStream.Topic },
		set: func(c *Config, v string) error { c.EventStream.Topic = v; return nil },
	},
}

// RequestTimeout parses Client.Timeout. An empty value means no timeout.
func (c ClientConfig) RequestTimeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid client.timeout %q: %w", c.Timeout, err)
	}
	return d, nil
}
