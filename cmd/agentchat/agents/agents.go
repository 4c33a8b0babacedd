// Package agentscmder provides the agents command for browsing the agent
// catalog configured in config.toml.
package agentscmder

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/cmd/agentchat/wiring"
	"github.com/papercomputeco/agentchat/pkg/config"
)

const agentsLongDesc string = `Browse the agents the chat server offers.

The catalog is read from the [[agents]] tables of config.toml. When a
catalog is configured, "agentchat chat --agent" only accepts agents from
it. "agentchat init --preset forward" writes the share agent catalog.

  [[agents]]
  id = "share-agent"
  name = "Share Agent"
  type = "single"

  [[agents.tools]]
  name = "file_operations"
  requires_human_intervention = true

Examples:
  agentchat agents list
  agentchat agents show share-agent
  agentchat agents show --json`

const agentsShortDesc string = "Browse the configured agent catalog"

func NewAgentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: agentsShortDesc,
		Long:  agentsLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newShowCmd())

	return cmd
}

func completeAgents(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	cfg, err := wiring.Settings(cmd)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return cfg.AgentIDs(), cobra.ShellCompDirectiveNoFileComp
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// catalog resolves the effective configuration, including the catalog.
func catalog(cmd *cobra.Command) (*config.Config, error) {
	return wiring.Settings(cmd, config.FlagAgent)
}
