// Package initcmder provides the init command for initializing a local
// .agentchat directory in the current working directory.
package initcmder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/pkg/cliui"
	"github.com/papercomputeco/agentchat/pkg/config"
)

const (
	dirName = ".agentchat"

	// maxRemoteConfig bounds the size of a fetched config.toml.
	maxRemoteConfig = 1 << 20
)

const initLongDesc string = `Initialize a new .agentchat/ directory in the current working directory.

Creates a local .agentchat/ directory that takes precedence over the default
~/.agentchat/ directory for the current conversation, the SQLite store and
configuration. A config.toml is written with default values, or with the
values of the named preset:

  forward   Sentinel-framed responses from a local chat backend (default)
  legacy    Responses with inline <dynamic_form_schema> tags
  openai    OpenAI-compatible server-sent events on localhost:8000

--preset also accepts an http(s) URL to a config.toml to fetch.

Examples:
  agentchat init
  agentchat init --preset legacy
  agentchat init --preset https://example.com/agentchat/config.toml`

const initShortDesc string = "Initialize a local .agentchat/ directory"

type initCommander struct {
	preset string
	out    io.Writer
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "",
		fmt.Sprintf("Config preset (%s) or URL to a config.toml", strings.Join(config.ValidPresetNames(), ", ")))

	return cmd
}

func (c *initCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .agentchat directory: %w", err)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	_, statErr := os.Stat(cfger.GetTarget())
	exists := statErr == nil

	// A bare re-init leaves an existing config untouched.
	if exists && c.preset == "" {
		fmt.Fprintf(c.out, "  %s Already initialized: %s\n", cliui.SuccessMark, dir)
		return nil
	}

	cfg, err := c.resolveConfig(ctx)
	if err != nil {
		return err
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "  %s Initialized .agentchat directory: %s\n", cliui.SuccessMark, dir)
	if c.preset != "" {
		fmt.Fprintf(c.out, "  %s %s\n", cliui.KeyStyle.Render("Preset:"), cliui.ValueStyle.Render(c.preset))
	}
	return nil
}

func (c *initCommander) resolveConfig(ctx context.Context) (*config.Config, error) {
	switch {
	case c.preset == "":
		return config.NewDefaultConfig(), nil
	case strings.HasPrefix(c.preset, "http://"), strings.HasPrefix(c.preset, "https://"):
		return fetchRemoteConfig(ctx, c.preset)
	default:
		return config.PresetConfig(c.preset)
	}
}

func fetchRemoteConfig(ctx context.Context, url string) (*config.Config, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteConfig))
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}

	return config.ParseConfigTOML(data)
}
