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

func newShowCmd() *cobra.Command {
	var asJSON bool

	cmd := storeCmd(&cobra.Command{
		Use:   "show [id]",
		Short: "Print a conversation's messages (defaults to the current one)",
		Args:  cobra.MaximumNArgs(1),
	}, func(ctx context.Context, cmd *cobra.Command, store conversation.Store, args []string) error {
		arg := currentID(wiring.ConfigDir(cmd))
		if len(args) == 1 {
			arg = args[0]
		}
		if arg == "" {
			return fmt.Errorf("no current conversation; pass an id")
		}

		id, err := resolveID(ctx, store, arg)
		if err != nil {
			return err
		}

		c, err := store.Get(ctx, id)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(c)
		}

		fmt.Fprintf(out, "\n  %s %s\n", cliui.KeyStyle.Render("Conversation:"), cliui.NameStyle.Render(c.Name))
		fmt.Fprintf(out, "  %s %s\n", cliui.KeyStyle.Render("Id:"), cliui.IDStyle.Render(c.ID))
		fmt.Fprintf(out, "  %s %s\n\n", cliui.KeyStyle.Render("Agent:"), cliui.ValueStyle.Render(c.Agent))

		opts := cliui.MessageOptions{
			Markdown: wiring.IsTerminal(out),
			Width:    wiring.TerminalWidth(out, 80),
		}
		for _, m := range c.Messages {
			fmt.Fprintln(out, cliui.RenderMessage(m, opts))
		}
		return nil
	})

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the conversation as JSON")
	return cmd
}
