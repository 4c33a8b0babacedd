package agentscmder

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/pkg/cliui"
	"github.com/papercomputeco/agentchat/pkg/config"
)

func newShowCmd() *cobra.Command {
	var agent string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:               "show [id]",
		Short:             "Show one agent, by default the configured client.agent",
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeAgents,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := catalog(cmd)
			if err != nil {
				return err
			}

			id := cfg.Client.Agent
			if len(args) == 1 {
				id = args[0]
			}

			if len(cfg.Agents) == 0 {
				return errors.New("no agents configured; add [[agents]] to config.toml")
			}
			if err := cfg.CheckAgent(id); err != nil {
				return err
			}
			a, _ := cfg.FindAgent(id)

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), a)
			}
			printAgent(cmd.OutOrStdout(), a)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the agent as JSON")
	config.AddStringFlag(cmd, config.Flags, config.FlagAgent, &agent)
	return cmd
}

func printAgent(w io.Writer, a config.AgentConfig) {
	row := func(key, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render(fmt.Sprintf("%-12s", key+":")), cliui.ValueStyle.Render(value))
	}

	fmt.Fprintf(w, "\n  %s %s\n\n", cliui.NameStyle.Render(a.DisplayName()), cliui.IDStyle.Render(a.ID))
	row("Type", a.Type)
	row("Description", a.Description)
	row("Prompt", a.Prompt)

	if len(a.Tools) == 0 {
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintf(w, "  %s\n", cliui.KeyStyle.Render("Tools:"))
	for _, t := range a.Tools {
		line := "    • " + t.Name
		if t.RequiresHumanIntervention {
			line += "  " + cliui.WarnStyle.Render("(requires approval)")
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)
}
