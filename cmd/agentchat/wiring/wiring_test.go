package wiring_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/cmd/agentchat/wiring"
	"github.com/papercomputeco/agentchat/pkg/chatstream"
	"github.com/papercomputeco/agentchat/pkg/config"
	"github.com/papercomputeco/agentchat/pkg/conversation/inmemory"
	"github.com/papercomputeco/agentchat/pkg/conversation/sqlite"
	"github.com/papercomputeco/agentchat/pkg/eventstream/nop"
	"github.com/papercomputeco/agentchat/pkg/eventstream/worker"
	"github.com/papercomputeco/agentchat/pkg/logger"
)

// newCmd builds a command with the global flags and the client flags, parsed
// from args.
func newCmd(configDir string, args ...string) *cobra.Command {
	root := &cobra.Command{Use: "agentchat"}
	root.PersistentFlags().String("config-dir", "", "")
	root.PersistentFlags().Bool("debug", false, "")

	cmd := &cobra.Command{Use: "test"}
	wiring.AddClientFlags(cmd)
	wiring.AddStoreFlags(cmd)
	wiring.AddEventFlags(cmd)
	root.AddCommand(cmd)

	Expect(root.ParseFlags(nil)).To(Succeed())
	Expect(cmd.ParseFlags(append(args, "--config-dir", configDir))).To(Succeed())
	return cmd
}

var _ = Describe("Settings", func() {
	var configDir string

	BeforeEach(func() {
		configDir = GinkgoT().TempDir()
	})

	It("returns defaults when nothing is configured", func() {
		cfg, err := wiring.Settings(newCmd(configDir), wiring.ClientFlagKeys...)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Client.Protocol).To(Equal("sentinel"))
		Expect(cfg.Client.BaseURL).To(Equal("http://localhost:3000"))
	})

	It("layers flags over env over the config file", func() {
		data := "[client]\nagent = \"from-file\"\nprotocol = \"inline-tag\"\nbase_url = \"http://file\"\n"
		Expect(os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(data), 0o600)).To(Succeed())
		GinkgoT().Setenv("AGENTCHAT_CLIENT_AGENT", "from-env")
		GinkgoT().Setenv("AGENTCHAT_CLIENT_BASE_URL", "http://env/")

		cmd := newCmd(configDir, "--agent", "from-flag")
		cfg, err := wiring.Settings(cmd, wiring.ClientFlagKeys...)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Client.Agent).To(Equal("from-flag"))
		Expect(cfg.Client.BaseURL).To(Equal("http://env"))
		Expect(cfg.Client.Protocol).To(Equal("inline-tag"))
	})
})

var _ = Describe("ConfigDir", func() {
	It("reads the persistent flag", func() {
		dir := GinkgoT().TempDir()
		Expect(wiring.ConfigDir(newCmd(dir))).To(Equal(dir))
	})
})

var _ = Describe("OpenStore", func() {
	var (
		ctx context.Context
		cfg *config.Config
	)

	BeforeEach(func() {
		ctx = context.Background()
		cfg = config.NewDefaultConfig()
	})

	It("opens an in-memory store", func() {
		cfg.Storage.Driver = config.StorageInMemory
		store, err := wiring.OpenStore(ctx, cfg, GinkgoT().TempDir(), logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(store).To(BeAssignableToTypeOf(&inmemory.Store{}))
	})

	It("opens a SQLite store at the configured path", func() {
		path := filepath.Join(GinkgoT().TempDir(), "chat.db")
		cfg.Storage.SQLitePath = path

		store, err := wiring.OpenStore(ctx, cfg, GinkgoT().TempDir(), logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(store.Close)
		Expect(store).To(BeAssignableToTypeOf(&sqlite.Store{}))
		Expect(path).To(BeAnExistingFile())
	})

	It("defaults the SQLite path into the config dir", func() {
		GinkgoT().Setenv("AGENTCHAT_SQLITE", "")
		GinkgoT().Setenv("XDG_DATA_HOME", GinkgoT().TempDir())
		GinkgoT().Setenv("HOME", GinkgoT().TempDir())
		dir := GinkgoT().TempDir()
		wd, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(GinkgoT().TempDir())).To(Succeed())
		DeferCleanup(os.Chdir, wd)

		store, err := wiring.OpenStore(ctx, cfg, dir, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(store.Close)
		Expect(filepath.Join(dir, "agentchat.db")).To(BeAnExistingFile())
	})

	It("requires a DSN for postgres", func() {
		cfg.Storage.Driver = config.StoragePostgres
		_, err := wiring.OpenStore(ctx, cfg, "", logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("postgres_dsn")))
	})

	It("rejects unknown drivers", func() {
		cfg.Storage.Driver = "floppy"
		_, err := wiring.OpenStore(ctx, cfg, "", logger.Nop())
		Expect(err).To(MatchError(`unknown storage driver "floppy"`))
	})
})

var _ = Describe("NewPublisher", func() {
	var cfg *config.Config

	BeforeEach(func() {
		cfg = config.NewDefaultConfig()
	})

	It("defaults to the nop publisher", func() {
		p, err := wiring.NewPublisher(cfg, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(&nop.Publisher{}))
	})

	It("builds an async kafka publisher", func() {
		cfg.EventStream.Provider = config.EventStreamKafka
		cfg.EventStream.Brokers = "localhost:9092, localhost:9093"

		p, err := wiring.NewPublisher(cfg, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(p.Close)
		Expect(p).To(BeAssignableToTypeOf(&worker.Pool{}))
	})

	It("requires kafka brokers", func() {
		cfg.EventStream.Provider = config.EventStreamKafka
		_, err := wiring.NewPublisher(cfg, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("at least one broker")))
	})

	It("rejects unknown providers", func() {
		cfg.EventStream.Provider = "pigeon"
		_, err := wiring.NewPublisher(cfg, logger.Nop())
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("NewClient", func() {
	var cfg *config.Config

	BeforeEach(func() {
		cfg = config.NewDefaultConfig()
	})

	It("uses the configured protocol", func() {
		cfg.Client.Protocol = "sse"
		client, err := wiring.NewClient(cfg, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(client.Protocol()).To(Equal(chatstream.ProtocolSSE))
	})

	It("rejects unknown protocols", func() {
		cfg.Client.Protocol = "morse"
		_, err := wiring.NewClient(cfg, logger.Nop())
		Expect(err).To(HaveOccurred())
	})

	It("rejects invalid timeouts", func() {
		cfg.Client.Timeout = "later"
		_, err := wiring.NewClient(cfg, logger.Nop())
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Logger", func() {
	It("logs debug records only with --debug", func() {
		var buf bytes.Buffer
		root := &cobra.Command{Use: "agentchat"}
		root.PersistentFlags().Bool("debug", false, "")
		Expect(root.ParseFlags([]string{"--debug"})).To(Succeed())

		wiring.Logger(root, &buf).Debug("hello", "at", time.Unix(0, 0).UTC())
		Expect(buf.String()).To(ContainSubstring("hello"))

		buf.Reset()
		quiet := &cobra.Command{Use: "agentchat"}
		quiet.PersistentFlags().Bool("debug", false, "")
		wiring.Logger(quiet, &buf).Debug("hello")
		Expect(buf.String()).To(BeEmpty())
	})

	logRoot := func(args ...string) *cobra.Command {
		root := &cobra.Command{Use: "agentchat"}
		root.PersistentFlags().Bool("debug", false, "")
		root.PersistentFlags().String("log-level", "", "")
		root.PersistentFlags().Bool("log-json", false, "")
		root.PersistentFlags().Bool("log-source", false, "")
		root.PersistentFlags().String("log-file", "", "")
		Expect(root.ParseFlags(args)).To(Succeed())
		return root
	}

	It("writes JSON records with --log-json and --log-source", func() {
		var buf bytes.Buffer
		wiring.Logger(logRoot("--log-json", "--log-source"), &buf).Info("hello", "conversation_id", "c1")

		var record map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &record)).To(Succeed())
		Expect(record).To(HaveKeyWithValue("msg", "hello"))
		Expect(record).To(HaveKeyWithValue("conversation_id", "c1"))
		Expect(record).To(HaveKey("source"))
	})

	It("filters records below --log-level", func() {
		var buf bytes.Buffer
		log := wiring.Logger(logRoot("--log-level", "warn"), &buf)
		log.Info("quiet")
		log.Warn("loud")

		Expect(buf.String()).NotTo(ContainSubstring("quiet"))
		Expect(buf.String()).To(ContainSubstring("loud"))
	})

	It("also appends JSON records to --log-file", func() {
		var buf bytes.Buffer
		path := filepath.Join(GinkgoT().TempDir(), "agentchat.log")
		wiring.Logger(logRoot("--log-file", path), &buf).Info("hello")

		Expect(buf.String()).To(ContainSubstring("hello"))
		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		var record map[string]any
		Expect(json.Unmarshal(data, &record)).To(Succeed())
		Expect(record).To(HaveKeyWithValue("msg", "hello"))
	})

	It("keeps logging to the terminal when the log file cannot be opened", func() {
		var buf bytes.Buffer
		path := filepath.Join(GinkgoT().TempDir(), "missing", "agentchat.log")
		wiring.Logger(logRoot("--log-file", path), &buf).Info("hello")

		Expect(buf.String()).To(ContainSubstring("could not open log file"))
		Expect(buf.String()).To(ContainSubstring("hello"))
	})
})
