package conversationscmder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/cmd/agentchat/wiring"
	"github.com/papercomputeco/agentchat/pkg/cliui"
	"github.com/papercomputeco/agentchat/pkg/conversation"
)

func newListCmd() *cobra.Command {
	var asJSON bool

	cmd := storeCmd(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List conversations, most recently updated first",
		Args:    cobra.NoArgs,
	}, func(ctx context.Context, cmd *cobra.Command, store conversation.Store, _ []string) error {
		list, err := store.List(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(list)
		}

		if len(list) == 0 {
			fmt.Fprintf(out, "  %s\n", cliui.DimStyle.Render("No conversations yet. Start one with \"agentchat chat\"."))
			return nil
		}

		current := currentID(wiring.ConfigDir(cmd))
		for _, c := range list {
			fmt.Fprintln(out, cliui.ConversationRow(*c, c.ID == current))
		}
		return nil
	})

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print conversations as JSON")
	return cmd
}
