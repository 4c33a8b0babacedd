// Package decodecmder provides the decode command, which replays a captured
// response body through the stream decoder.
package decodecmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/cmd/agentchat/wiring"
	"github.com/papercomputeco/agentchat/pkg/chat"
	"github.com/papercomputeco/agentchat/pkg/chatstream"
	"github.com/papercomputeco/agentchat/pkg/cliui"
	"github.com/papercomputeco/agentchat/pkg/config"
)

type decodeCommander struct {
	protocol  string
	readSize  uint
	asJSON    bool
	snapshots bool
}

const decodeLongDesc string = `Decode a captured chat response body.

Reads a response body saved from a chat backend (or stdin with "-") and
runs it through the same decoder a live chat session uses, printing the
final message, any form it carries and any decode warnings.

Examples:
  agentchat decode response.txt
  agentchat decode --protocol inline-tag legacy.txt
  curl -sN -X POST http://localhost:3000/api/chat/forward/share-agent/c1 \
    -d '{"role":"user","content":"hi"}' | agentchat decode --snapshots -`

const decodeShortDesc string = "Decode a captured chat response body"

func NewDecodeCmd() *cobra.Command {
	cmder := &decodeCommander{}

	cmd := &cobra.Command{
		Use:   "decode <file|->",
		Short: decodeShortDesc,
		Long:  decodeLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := wiring.Settings(cmd, config.FlagProtocol, config.FlagReadSize)
			if err != nil {
				return err
			}

			var body io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("opening response body: %w", err)
				}
				defer f.Close()
				body = f
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			logger := wiring.Logger(cmd, cmd.ErrOrStderr())
			return cmder.run(ctx, cfg, body, cmd.OutOrStdout(), logger)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagProtocol, &cmder.protocol)
	config.AddUintFlag(cmd, config.Flags, config.FlagReadSize, &cmder.readSize)
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print the decoded message as JSON")
	cmd.Flags().BoolVar(&cmder.snapshots, "snapshots", false, "Print every snapshot as it is decoded")

	return cmd
}

// decodeOutput is the --json document.
type decodeOutput struct {
	Message  chat.Message `json:"message"`
	Frames   int          `json:"frames"`
	Warnings []string     `json:"warnings,omitempty"`
}

func (c *decodeCommander) run(ctx context.Context, cfg *config.Config, body io.Reader, out io.Writer, logger *slog.Logger) error {
	protocol, err := chatstream.ParseProtocol(cfg.Client.Protocol)
	if err != nil {
		return err
	}

	opts := []chatstream.Option{}
	if cfg.Client.ReadSize > 0 {
		opts = append(opts, chatstream.WithReadSize(int(cfg.Client.ReadSize)))
	}

	n := 0
	onSnapshot := func(m chat.Message) {
		n++
		if c.snapshots && !c.asJSON {
			fmt.Fprintf(out, "%s %s\n", cliui.DimStyle.Render(fmt.Sprintf("#%d", n)), m.Content)
		}
	}

	result, err := chatstream.Decode(ctx, protocol, body, onSnapshot, opts...)
	if err != nil {
		return err
	}
	logger.Debug("decoded response", "protocol", protocol.String(), "frames", result.Frames, "snapshots", n)

	if c.asJSON {
		doc := decodeOutput{Message: result.Message, Frames: result.Frames}
		for _, w := range result.Warnings {
			doc.Warnings = append(doc.Warnings, w.Error())
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}

	fmt.Fprintln(out, cliui.RenderMessage(result.Message, cliui.MessageOptions{
		Markdown: wiring.IsTerminal(out),
		Width:    wiring.TerminalWidth(out, 80),
	}))
	fmt.Fprint(out, cliui.Warnings(result.Warnings))
	fmt.Fprintf(out, "  %s %s\n",
		cliui.KeyStyle.Render("Frames:"),
		cliui.ValueStyle.Render(fmt.Sprintf("%d (%s)", result.Frames, protocol)),
	)
	return nil
}
