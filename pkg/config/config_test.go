package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/pkg/config"
)

var _ = Describe("Configer config", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("LoadConfig", func() {
		It("returns default config when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).To(Equal(config.NewDefaultConfig()))
		})

		It("loads a valid config file", func() {
			data := `version = 0

[client]
base_url = "https://chat.example.com"
protocol = "inline-tag"
read_size = 512
`
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Version).To(Equal(0))
			Expect(cfg.Client.BaseURL).To(Equal("https://chat.example.com"))
			Expect(cfg.Client.Protocol).To(Equal("inline-tag"))
			Expect(cfg.Client.ReadSize).To(Equal(uint(512)))
		})

		It("loads all config fields", func() {
			data := `version = 0

[client]
base_url = "http://chat:3000"
agent = "support-agent"
protocol = "sse"
timeout = "30s"
read_size = 1024

[storage]
driver = "postgres"
sqlite_path = "/tmp/agentchat.sqlite"
postgres_dsn = "postgres://localhost/agentchat"

[api]
listen = ":9091"

[eventstream]
provider = "kafka"
brokers = "k1:9092,k2:9092"
topic = "chat.finalized"
`
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Client.BaseURL).To(Equal("http://chat:3000"))
			Expect(cfg.Client.Agent).To(Equal("support-agent"))
			Expect(cfg.Client.Protocol).To(Equal("sse"))
			Expect(cfg.Client.Timeout).To(Equal("30s"))
			Expect(cfg.Client.ReadSize).To(Equal(uint(1024)))
			Expect(cfg.Storage.Driver).To(Equal("postgres"))
			Expect(cfg.Storage.SQLitePath).To(Equal("/tmp/agentchat.sqlite"))
			Expect(cfg.Storage.PostgresDSN).To(Equal("postgres://localhost/agentchat"))
			Expect(cfg.API.Listen).To(Equal(":9091"))
			Expect(cfg.EventStream.Provider).To(Equal("kafka"))
			Expect(cfg.EventStream.Brokers).To(Equal("k1:9092,k2:9092"))
			Expect(cfg.EventStream.Topic).To(Equal("chat.finalized"))
		})

		It("fills in defaults for unset fields in a partial config", func() {
			data := `[client]
agent = "support-agent"
`
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())

			defaults := config.NewDefaultConfig()
			Expect(cfg.Client.Agent).To(Equal("support-agent"))
			Expect(cfg.Client.BaseURL).To(Equal(defaults.Client.BaseURL))
			Expect(cfg.Client.Protocol).To(Equal(defaults.Client.Protocol))
			Expect(cfg.Client.Timeout).To(Equal(defaults.Client.Timeout))
			Expect(cfg.Storage.Driver).To(Equal(defaults.Storage.Driver))
			Expect(cfg.API.Listen).To(Equal(defaults.API.Listen))
			Expect(cfg.EventStream.Provider).To(Equal(defaults.EventStream.Provider))
			Expect(cfg.EventStream.Topic).To(Equal(defaults.EventStream.Topic))
		})

		It("returns error for malformed TOML", func() {
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("not valid toml [[["), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("parsing config TOML"))
		})

		It("returns error for unsupported config version", func() {
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("version = 99\n"), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unsupported config version 99"))
		})
	})

	Describe("SaveConfig", func() {
		It("persists config to disk", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg := config.NewDefaultConfig()
			cfg.Client.Agent = "support-agent"
			Expect(c.SaveConfig(cfg)).To(Succeed())

			data, err := os.ReadFile(filepath.Join(tmpDir, "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`agent = "support-agent"`))
			Expect(string(data)).To(ContainSubstring("[eventstream]"))
		})

		It("returns error for nil config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SaveConfig(nil)).To(MatchError("cannot save nil config"))
		})

		It("round-trips every field", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			original := &config.Config{
				Client: config.ClientConfig{
					BaseURL:  "http://chat:3000",
					Agent:    "support-agent",
					Protocol: "sse",
					Timeout:  "45s",
					ReadSize: 2048,
				},
				Storage: config.StorageConfig{
					Driver:      "sqlite",
					SQLitePath:  "/var/lib/agentchat.db",
					PostgresDSN: "postgres://db/agentchat",
				},
				API: config.APIConfig{Listen: ":9999"},
				EventStream: config.EventStreamConfig{
					Provider: "kafka",
					Brokers:  "k1:9092",
					Topic:    "chat.finalized",
				},
			}
			Expect(c.SaveConfig(original)).To(Succeed())

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(original))
		})
	})

	Describe("SetConfigValue", func() {
		var c *config.Configer

		BeforeEach(func() {
			var err error
			c, err = config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
		})

		It("sets a string config key", func() {
			Expect(c.SetConfigValue("client.agent", "support-agent")).To(Succeed())

			v, err := c.GetConfigValue("client.agent")
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal("support-agent"))
		})

		It("trims a trailing slash from the base url", func() {
			Expect(c.SetConfigValue("client.base_url", "http://chat:3000/")).To(Succeed())

			v, err := c.GetConfigValue("client.base_url")
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal("http://chat:3000"))
		})

		It("normalizes protocol aliases", func() {
			Expect(c.SetConfigValue("client.protocol", "legacy")).To(Succeed())

			v, err := c.GetConfigValue("client.protocol")
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal("inline-tag"))
		})

		It("rejects unknown protocols", func() {
			err := c.SetConfigValue("client.protocol", "carrier-pigeon")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("client.protocol"))
		})

		It("rejects invalid durations", func() {
			Expect(c.SetConfigValue("client.timeout", "soon")).NotTo(Succeed())
			Expect(c.SetConfigValue("client.timeout", "-1s")).NotTo(Succeed())
			Expect(c.SetConfigValue("client.timeout", "90s")).To(Succeed())
		})

		It("sets a uint config key", func() {
			Expect(c.SetConfigValue("client.read_size", "64")).To(Succeed())

			v, err := c.GetConfigValue("client.read_size")
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal("64"))
		})

		It("returns error for invalid uint value", func() {
			err := c.SetConfigValue("client.read_size", "lots")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("invalid value for client.read_size"))
		})

		It("validates enumerated keys", func() {
			Expect(c.SetConfigValue("storage.driver", "mongo")).NotTo(Succeed())
			Expect(c.SetConfigValue("storage.driver", "postgres")).To(Succeed())
			Expect(c.SetConfigValue("eventstream.provider", "rabbit")).NotTo(Succeed())
			Expect(c.SetConfigValue("eventstream.provider", "kafka")).To(Succeed())
		})

		It("returns error for unknown key", func() {
			err := c.SetConfigValue("proxy.upstream", "x")
			Expect(err).To(MatchError(ContainSubstring("unknown config key")))
		})

		It("preserves existing values when setting a new key", func() {
			Expect(c.SetConfigValue("client.agent", "support-agent")).To(Succeed())
			Expect(c.SetConfigValue("api.listen", ":7000")).To(Succeed())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Client.Agent).To(Equal("support-agent"))
			Expect(cfg.API.Listen).To(Equal(":7000"))
		})
	})

	Describe("GetConfigValue", func() {
		It("returns default value when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			v, err := c.GetConfigValue("client.base_url")
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal("http://localhost:3000"))
		})

		It("returns empty string for key with no default", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			v, err := c.GetConfigValue("storage.postgres_dsn")
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(BeEmpty())
		})

		It("returns error for unknown key", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.GetConfigValue("nope")
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("ValidConfigKeys", func() {
	It("returns all expected keys in section order", func() {
		Expect(config.ValidConfigKeys()).To(Equal([]string{
			"client.base_url",
			"client.agent",
			"client.protocol",
			"client.timeout",
			"client.read_size",
			"storage.driver",
			"storage.sqlite_path",
			"storage.postgres_dsn",
			"api.listen",
			"eventstream.provider",
			"eventstream.brokers",
			"eventstream.topic",
		}))
	})

	It("agrees with IsValidConfigKey", func() {
		for _, k := range config.ValidConfigKeys() {
			Expect(config.IsValidConfigKey(k)).To(BeTrue(), k)
		}
		Expect(config.IsValidConfigKey("proxy.listen")).To(BeFalse())
		Expect(config.IsValidConfigKey("base_url")).To(BeFalse())
	})
})

var _ = Describe("PresetConfig", func() {
	It("returns the defaults plus the share agent catalog for forward", func() {
		cfg, err := config.PresetConfig("forward")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Agents).To(Equal(config.DefaultAgents()))

		cfg.Agents = nil
		Expect(cfg).To(Equal(config.NewDefaultConfig()))
	})

	It("selects the inline tag protocol for legacy", func() {
		cfg, err := config.PresetConfig("Legacy")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Client.Protocol).To(Equal("inline-tag"))
		Expect(cfg.Agents).To(HaveLen(4))
	})

	It("selects sse for openai", func() {
		cfg, err := config.PresetConfig("openai")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Client.Protocol).To(Equal("sse"))
		Expect(cfg.Client.BaseURL).To(Equal("http://localhost:8000"))
		Expect(cfg.Agents).To(BeEmpty())
	})

	It("returns error for unknown preset", func() {
		_, err := config.PresetConfig("ollama")
		Expect(err).To(MatchError(ContainSubstring("unknown preset")))
	})

	It("lists the recognized presets", func() {
		Expect(config.ValidPresetNames()).To(ConsistOf("forward", "legacy", "openai"))
	})
})

var _ = Describe("ParseConfigTOML", func() {
	It("returns empty config for empty input", func() {
		cfg, err := config.ParseConfigTOML([]byte(""))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg).To(Equal(&config.Config{}))
	})

	It("rejects unsupported config version", func() {
		_, err := config.ParseConfigTOML([]byte("version = 2\n"))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("ClientConfig.RequestTimeout", func() {
	It("parses durations", func() {
		d, err := config.ClientConfig{Timeout: "2m30s"}.RequestTimeout()
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(Equal(150 * time.Second))
	})

	It("treats empty as no timeout", func() {
		d, err := config.ClientConfig{}.RequestTimeout()
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeZero())
	})

	It("reports malformed values", func() {
		_, err := config.ClientConfig{Timeout: "later"}.RequestTimeout()
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("InitViper", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "viper-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("returns viper with defaults when no config file exists", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cfg, err := config.Resolve(v)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg).To(Equal(config.NewDefaultConfig()))
	})

	It("reads config file values over defaults", func() {
		data := `[client]
protocol = "sse"
`
		err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
		Expect(err).NotTo(HaveOccurred())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(v.GetString("client.protocol")).To(Equal("sse"))
		Expect(v.GetString("client.agent")).To(Equal("share-agent"))
	})

	It("respects environment variables with AGENTCHAT_ prefix", func() {
		GinkgoT().Setenv("AGENTCHAT_CLIENT_AGENT", "env-agent")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cfg, err := config.Resolve(v)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Client.Agent).To(Equal("env-agent"))
	})

	It("env vars take precedence over config file values", func() {
		data := `[storage]
driver = "inmemory"
`
		err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
		Expect(err).NotTo(HaveOccurred())

		GinkgoT().Setenv("AGENTCHAT_STORAGE_DRIVER", "postgres")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(v.GetString("storage.driver")).To(Equal("postgres"))
	})
})

var _ = Describe("BindFlags", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "bindflag-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("binds cobra flags to viper keys via registry", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var listen string
		config.AddStringFlag(cmd, config.Flags, config.FlagAPIListenStandalone, &listen)

		Expect(cmd.Flags().Set("listen", ":7777")).To(Succeed())

		config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagAPIListenStandalone})

		Expect(v.GetString("api.listen")).To(Equal(":7777"))
	})

	It("falls through to config when flag not set", func() {
		data := `[client]
base_url = "http://from-file:3000"
`
		err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
		Expect(err).NotTo(HaveOccurred())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var baseURL string
		config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &baseURL)

		config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagBaseURL})

		Expect(v.GetString("client.base_url")).To(Equal("http://from-file:3000"))
	})

	It("skips bindings for nonexistent registry keys", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		config.BindRegisteredFlags(v, cmd, config.FlagSet{}, []string{"nonexistent"})

		Expect(v.GetString("api.listen")).To(Equal(":8081"))
	})

	It("AddStringFlag pulls name, shorthand, and description from FlagSet", func() {
		cmd := &cobra.Command{Use: "test"}
		var target string
		config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &target)

		f := cmd.Flags().Lookup("base-url")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("b"))
		Expect(f.Usage).To(Equal("Chat backend base URL"))
		Expect(f.DefValue).To(Equal("http://localhost:3000"))
	})

	It("AddUintFlag works for read-size", func() {
		cmd := &cobra.Command{Use: "test"}
		var size uint
		config.AddUintFlag(cmd, config.Flags, config.FlagReadSize, &size)

		f := cmd.Flags().Lookup("read-size")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal("4096"))
	})
})
