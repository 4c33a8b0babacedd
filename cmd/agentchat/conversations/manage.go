package conversationscmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/cmd/agentchat/wiring"
	"github.com/papercomputeco/agentchat/pkg/cliui"
	"github.com/papercomputeco/agentchat/pkg/config"
	"github.com/papercomputeco/agentchat/pkg/conversation"
	"github.com/papercomputeco/agentchat/pkg/dotdir"
)

func newNewCmd() *cobra.Command {
	var agent string

	cmd := storeCmd(&cobra.Command{
		Use:   "new [name]",
		Short: "Start a new conversation and make it current",
		Args:  cobra.MaximumNArgs(1),
	}, func(ctx context.Context, cmd *cobra.Command, store conversation.Store, args []string) error {
		cfg, err := wiring.Settings(cmd, config.FlagAgent)
		if err != nil {
			return err
		}
		if err := cfg.CheckAgent(cfg.Client.Agent); err != nil {
			return err
		}

		name := ""
		if len(args) == 1 {
			name = args[0]
		}

		c, err := store.Create(ctx, cfg.Client.Agent, name)
		if err != nil {
			return err
		}
		if err := makeCurrent(c, wiring.ConfigDir(cmd)); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "  %s Started %s %s\n",
			cliui.SuccessMark,
			cliui.NameStyle.Render(c.Name),
			cliui.IDStyle.Render(c.ID),
		)
		return nil
	})

	config.AddStringFlag(cmd, config.Flags, config.FlagAgent, &agent)
	return cmd
}

func newSwitchCmd() *cobra.Command {
	return storeCmd(&cobra.Command{
		Use:   "switch <id>",
		Short: "Make a conversation current",
		Args:  cobra.ExactArgs(1),
	}, func(ctx context.Context, cmd *cobra.Command, store conversation.Store, args []string) error {
		id, err := resolveID(ctx, store, args[0])
		if err != nil {
			return err
		}

		c, err := store.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := makeCurrent(c, wiring.ConfigDir(cmd)); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "  %s Switched to %s %s\n",
			cliui.SuccessMark,
			cliui.NameStyle.Render(c.Name),
			cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", len(c.Messages))),
		)
		return nil
	})
}

func newRenameCmd() *cobra.Command {
	return storeCmd(&cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a conversation",
		Args:  cobra.ExactArgs(2),
	}, func(ctx context.Context, cmd *cobra.Command, store conversation.Store, args []string) error {
		id, err := resolveID(ctx, store, args[0])
		if err != nil {
			return err
		}

		if err := store.Rename(ctx, id, args[1]); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "  %s Renamed %s to %s\n",
			cliui.SuccessMark,
			cliui.IDStyle.Render(id),
			cliui.NameStyle.Render(args[1]),
		)
		return nil
	})
}

func newDeleteCmd() *cobra.Command {
	return storeCmd(&cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a conversation and its messages",
		Args:    cobra.ExactArgs(1),
	}, func(ctx context.Context, cmd *cobra.Command, store conversation.Store, args []string) error {
		id, err := resolveID(ctx, store, args[0])
		if err != nil {
			return err
		}

		if err := store.Delete(ctx, id); err != nil {
			return err
		}

		configDir := wiring.ConfigDir(cmd)
		if currentID(configDir) == id {
			if err := dotdir.NewManager().ClearCurrent(configDir); err != nil {
				return err
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "  %s Deleted %s\n", cliui.SuccessMark, cliui.IDStyle.Render(id))
		return nil
	})
}
