// Package chatcmder provides the chat command, an interactive session with
// a chat agent that streams responses and fills in the forms they carry.
package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/cmd/agentchat/wiring"
	"github.com/papercomputeco/agentchat/pkg/chat"
	"github.com/papercomputeco/agentchat/pkg/chatstream"
	"github.com/papercomputeco/agentchat/pkg/cliui"
	"github.com/papercomputeco/agentchat/pkg/config"
	"github.com/papercomputeco/agentchat/pkg/conversation"
	"github.com/papercomputeco/agentchat/pkg/dotdir"
	"github.com/papercomputeco/agentchat/pkg/eventstream"
)

const chatLongDesc string = `Start an interactive chat session with an agent.

Messages are posted to the configured chat backend and the streamed
response is shown as it arrives. When a response carries a form, you are
prompted for each field and the answers are sent back as a form
submission.

The session resumes the current conversation (see "agentchat conversations
switch") or starts a new one. Every message is saved to the configured
store, and each finished response is published to the configured event
stream.

Commands:
  /retry   Resend your last message, replacing the last response
  /new     Start a new conversation
  /exit    Quit (or Ctrl+D)

Press Esc or Ctrl+C while a response streams to cancel it.

Examples:
  agentchat chat
  agentchat chat --agent travel-agent --new
  agentchat chat --protocol inline-tag --base-url http://localhost:3000`

const chatShortDesc string = "Chat with an agent"

type chatCommander struct {
	configDir string
	newConv   bool
	plain     bool

	cfg       *config.Config
	logger    *slog.Logger
	client    *chatstream.Client
	store     conversation.Store
	publisher eventstream.Publisher
	streamer  streamer

	in      *bufio.Scanner
	out     io.Writer
	now     func() time.Time
	current *conversation.Conversation
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{now: time.Now}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			keys := append(append(append([]string{}, wiring.ClientFlagKeys...), wiring.StoreFlagKeys...), wiring.EventFlagKeys...)
			cfg, err := wiring.Settings(cmd, keys...)
			if err != nil {
				return err
			}
			if err := cfg.CheckAgent(cfg.Client.Agent); err != nil {
				return err
			}

			cmder.cfg = cfg
			cmder.configDir = wiring.ConfigDir(cmd)
			cmder.logger = wiring.Logger(cmd, cmd.ErrOrStderr())
			cmder.out = cmd.OutOrStdout()
			cmder.in = bufio.NewScanner(cmd.InOrStdin())

			in := cmd.InOrStdin()
			if !cmder.plain && wiring.IsTerminal(cmder.out) && isTerminalReader(in) {
				cmder.streamer = &tuiStreamer{in: in, out: cmder.out, width: wiring.TerminalWidth(cmder.out, 80)}
			} else {
				cmder.streamer = &lineStreamer{out: cmder.out}
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return cmder.run(ctx)
		},
	}

	wiring.AddClientFlags(cmd)
	wiring.AddStoreFlags(cmd)
	wiring.AddEventFlags(cmd)
	cmd.Flags().BoolVarP(&cmder.newConv, "new", "n", false, "Start a new conversation instead of resuming the current one")
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Print responses as plain text instead of the live terminal view")

	return cmd
}

func isTerminalReader(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && wiring.IsTerminal(f)
}

func (c *chatCommander) run(ctx context.Context) error {
	client, err := wiring.NewClient(c.cfg, c.logger)
	if err != nil {
		return err
	}
	c.client = client

	store, err := wiring.OpenStore(ctx, c.cfg, c.configDir, c.logger)
	if err != nil {
		return err
	}
	c.store = store
	defer func() {
		if err := store.Close(); err != nil {
			c.logger.Warn("closing store", "error", err)
		}
	}()

	publisher, err := wiring.NewPublisher(c.cfg, c.logger)
	if err != nil {
		return err
	}
	c.publisher = publisher
	defer func() {
		if err := publisher.Close(); err != nil {
			c.logger.Warn("closing publisher", "error", err)
		}
	}()

	if err := c.openConversation(ctx); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "  %s %s\n\n", cliui.DimStyle.Render("Type your message and press Enter."), cliui.DimStyle.Render("/retry, /new, /exit or Ctrl+D."))

	// A form left unanswered in a resumed conversation is asked first.
	if last, ok := c.current.LastMessage(chat.RoleAssistant); ok && last.HasForm() && c.lastIsAssistant() {
		fmt.Fprintln(c.out, cliui.RenderForm(last.FormTitle, last.FormSchema))
		if err := c.answerForm(ctx, last); err != nil {
			return err
		}
	}

	for {
		fmt.Fprint(c.out, cliui.RoleLabel(chat.RoleUser)+"> ")
		input, ok := c.readLine()
		if !ok {
			break
		}

		switch input {
		case "":
			continue
		case "/exit", "/quit":
			fmt.Fprintln(c.out)
			return nil
		case "/new":
			if err := c.startConversation(ctx); err != nil {
				return err
			}
			continue
		case "/retry":
			if err := c.retry(ctx); err != nil {
				fmt.Fprintf(c.out, "  %s %v\n", cliui.FailMark, err)
			}
			continue
		}

		if err := c.exchange(ctx, chat.NewUserMessage(input)); err != nil {
			return err
		}
	}

	if err := c.in.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(c.out)
	return nil
}

// readLine reads one trimmed line of input. It reports false at EOF.
func (c *chatCommander) readLine() (string, bool) {
	if !c.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.in.Text()), true
}

// openConversation resumes the current conversation, or starts a new one
// when there is none, it is gone from the store or --new was passed.
func (c *chatCommander) openConversation(ctx context.Context) error {
	state, err := dotdir.NewManager().LoadCurrent(c.configDir)
	if err != nil {
		return fmt.Errorf("loading current conversation: %w", err)
	}

	if state == nil || c.newConv {
		return c.startConversation(ctx)
	}

	conv, err := c.store.Get(ctx, state.ConversationID)
	if errors.As(err, new(conversation.NotFoundError)) {
		c.logger.Debug("current conversation not in store, starting a new one", "conversation_id", state.ConversationID)
		return c.startConversation(ctx)
	}
	if err != nil {
		return err
	}

	c.current = conv
	fmt.Fprintf(c.out, "\n  %s Resuming %s %s\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(conv.Name),
		cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", len(conv.Messages))),
	)
	c.printSession()
	return nil
}

func (c *chatCommander) startConversation(ctx context.Context) error {
	conv, err := c.store.Create(ctx, c.cfg.Client.Agent, "")
	if err != nil {
		return fmt.Errorf("creating conversation: %w", err)
	}

	err = dotdir.NewManager().SaveCurrent(&dotdir.CurrentState{
		ConversationID: conv.ID,
		Agent:          conv.Agent,
		SwitchedAt:     c.now().UTC(),
	}, c.configDir)
	if err != nil {
		return err
	}

	c.current = conv
	fmt.Fprintf(c.out, "\n  %s New conversation %s\n", cliui.DimStyle.Render("●"), cliui.NameStyle.Render(conv.Name))
	c.printSession()
	return nil
}

func (c *chatCommander) printSession() {
	agent := c.current.Agent
	if a, ok := c.cfg.FindAgent(agent); ok && a.Name != "" {
		agent = fmt.Sprintf("%s (%s)", a.Name, a.ID)
	}
	fmt.Fprintf(c.out, "  %s %s  %s %s\n\n",
		cliui.KeyStyle.Render("Agent:"),
		cliui.NameStyle.Render(agent),
		cliui.KeyStyle.Render("Protocol:"),
		cliui.ValueStyle.Render(c.client.Protocol().String()),
	)
}

// lastIsAssistant reports whether the newest message is a response.
func (c *chatCommander) lastIsAssistant() bool {
	n := len(c.current.Messages)
	return n > 0 && c.current.Messages[n-1].Role == chat.RoleAssistant
}

// exchange sends msg and, while responses carry forms, prompts for and
// sends their submissions.
func (c *chatCommander) exchange(ctx context.Context, msg chat.OutboundMessage) error {
	response, err := c.send(ctx, msg)
	if err != nil {
		return err
	}
	if response.HasForm() {
		return c.answerForm(ctx, response)
	}
	return nil
}

func (c *chatCommander) answerForm(ctx context.Context, response chat.Message) error {
	values, err := c.fillForm(response.FormSchema)
	if errors.Is(err, errFormSkipped) {
		fmt.Fprintf(c.out, "  %s\n", cliui.DimStyle.Render("Form skipped."))
		return nil
	}
	if err != nil {
		return err
	}

	submission, err := chat.NewFormSubmission(values)
	if err != nil {
		return err
	}
	return c.exchange(ctx, submission)
}

// send stores the echo of msg, streams the response and stores it. A
// failed stream is stored and shown as an error message; send only returns
// an error when the store fails.
func (c *chatCommander) send(ctx context.Context, msg chat.OutboundMessage) (chat.Message, error) {
	echo := msg.Echo(c.now())
	if err := c.store.UpsertMessage(ctx, c.current.ID, echo); err != nil {
		return chat.Message{}, fmt.Errorf("saving message: %w", err)
	}
	if msg.FormSubmitted {
		fmt.Fprintln(c.out, cliui.RenderMessage(echo, cliui.MessageOptions{}))
	}

	streamCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	result, err := c.streamer.stream(streamCtx, func(ctx context.Context, onSnapshot func(chat.Message)) (*chatstream.Result, error) {
		return c.client.Stream(ctx, c.current.Agent, c.current.ID, msg, onSnapshot)
	})
	stop()

	var response chat.Message
	var warnings []error
	if err != nil {
		response = chat.ErrorMessage(err, c.now())
		fmt.Fprintf(c.out, "  %s %v\n", cliui.FailMark, err)
	} else {
		response = c.withUniqueID(result.Message)
		warnings = result.Warnings
		fmt.Fprint(c.out, cliui.Warnings(warnings))
	}
	fmt.Fprintln(c.out)

	if storeErr := c.store.UpsertMessage(ctx, c.current.ID, response); storeErr != nil {
		return chat.Message{}, fmt.Errorf("saving response: %w", storeErr)
	}
	c.publish(ctx, response, warnings, err)

	conv, getErr := c.store.Get(ctx, c.current.ID)
	if getErr != nil {
		return chat.Message{}, getErr
	}
	c.current = conv

	if err != nil {
		return chat.Message{}, nil
	}
	return response, nil
}

// withUniqueID gives m a fresh id when the conversation already holds a
// message with its id. Agents may reuse ids across turns and a response must
// never replace an earlier message.
func (c *chatCommander) withUniqueID(m chat.Message) chat.Message {
	for _, existing := range c.current.Messages {
		if existing.ID == m.ID {
			c.logger.Debug("agent reused a message id", "message_id", m.ID, "conversation_id", c.current.ID)
			m.ID = uuid.NewString()
			return m
		}
	}
	return m
}

func (c *chatCommander) publish(ctx context.Context, response chat.Message, warnings []error, streamErr error) {
	event := eventstream.NewMessageFinalizedEvent(eventstream.MessageEventInput{
		Agent:          c.current.Agent,
		ConversationID: c.current.ID,
		Protocol:       c.client.Protocol().String(),
		Message:        response,
		Warnings:       warnings,
		Err:            streamErr,
	}, c.now())

	if err := c.publisher.PublishMessage(ctx, event); err != nil {
		c.logger.Warn("publishing finalized message", "error", err, "conversation_id", c.current.ID)
	}
}

// retry drops the last exchange and resends the last user message.
func (c *chatCommander) retry(ctx context.Context) error {
	last, ok := c.current.LastMessage(chat.RoleUser)
	if !ok {
		return errors.New("nothing to retry")
	}

	// Everything from the last user message on is replaced.
	drop := false
	for _, m := range c.current.Messages {
		if m.ID == last.ID {
			drop = true
		}
		if !drop {
			continue
		}
		if err := c.store.DeleteMessage(ctx, c.current.ID, m.ID); err != nil {
			return err
		}
	}

	fmt.Fprintf(c.out, "  %s %s\n", cliui.DimStyle.Render("↻"), cliui.DimStyle.Render("Retrying: "+cliui.PreviewStyle.Render(last.Content)))
	return c.exchange(ctx, chat.Resend(last))
}
