package agentscmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/pkg/cliui"
	"github.com/papercomputeco/agentchat/pkg/config"
)

func newListCmd() *cobra.Command {
	var agent string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the configured agents",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := catalog(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				agents := cfg.Agents
				if agents == nil {
					agents = []config.AgentConfig{}
				}
				return writeJSON(out, agents)
			}

			if len(cfg.Agents) == 0 {
				fmt.Fprintf(out, "  %s\n", cliui.DimStyle.Render(
					"No agents configured. Any --agent is accepted; add [[agents]] to config.toml to define a catalog."))
				return nil
			}

			width := 0
			for _, a := range cfg.Agents {
				width = max(width, len(a.ID))
			}
			for _, a := range cfg.Agents {
				marker := " "
				if a.ID == cfg.Client.Agent {
					marker = cliui.SuccessMark
				}
				fmt.Fprintf(out, "%s %s  %s %s  %s\n",
					marker,
					cliui.IDStyle.Render(fmt.Sprintf("%-*s", width, a.ID)),
					cliui.NameStyle.Render(a.DisplayName()),
					cliui.DimStyle.Render(agentType(a)),
					cliui.PreviewStyle.Render(a.Description),
				)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print agents as JSON")
	config.AddStringFlag(cmd, config.Flags, config.FlagAgent, &agent)
	return cmd
}

func agentType(a config.AgentConfig) string {
	if a.Type == "" {
		return "(" + config.AgentTypeSingle + ")"
	}
	return "(" + a.Type + ")"
}
