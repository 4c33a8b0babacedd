package chatcmder

import (
	"context"
	"fmt"
	"io"
	"strings"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"

	"github.com/papercomputeco/agentchat/pkg/chat"
	"github.com/papercomputeco/agentchat/pkg/chatstream"
	"github.com/papercomputeco/agentchat/pkg/cliui"
)

type snapshotMsg chat.Message

type doneMsg struct {
	result *chatstream.Result
	err    error
}

// streamModel renders one streaming response inline, with a spinner until
// the message is final. Esc or ctrl+c cancels the stream.
type streamModel struct {
	spinner spinner.Model
	cancel  context.CancelFunc
	width   int

	message chat.Message
	started bool

	done   bool
	result *chatstream.Result
	err    error
}

func newStreamModel(cancel context.CancelFunc, width int) streamModel {
	return streamModel{
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Spinner{Frames: cliui.SpinnerFrames, FPS: spinner.Dot.FPS}),
			spinner.WithStyle(cliui.StepStyle),
		),
		cancel:  cancel,
		width:   width,
		message: chat.Message{Role: chat.RoleAssistant, Streaming: true},
	}
}

func (m streamModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m streamModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.message = chat.Message(msg)
		m.started = true
		return m, nil

	case doneMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit

	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m streamModel) View() tea.View {
	var b strings.Builder

	switch {
	case m.done && m.err != nil:
		b.WriteString(cliui.MessageHeader(m.message) + "\n")

	case m.done:
		b.WriteString(cliui.RenderMessage(m.result.Message, cliui.MessageOptions{
			Markdown: true,
			Width:    m.width,
		}))

	case !m.started:
		fmt.Fprintf(&b, "%s\n%s%s\n",
			cliui.MessageHeader(m.message),
			m.spinner.View(),
			cliui.DimStyle.Render("waiting for response"),
		)

	default:
		b.WriteString(cliui.RenderMessage(m.message, cliui.MessageOptions{Width: m.width}))
		b.WriteString(m.spinner.View())
		b.WriteString("\n")
	}

	return tea.NewView(b.String())
}

// tuiStreamer shows the response in a bubbletea program while it streams
// and leaves the final render, with markdown, in the terminal.
type tuiStreamer struct {
	in    io.Reader
	out   io.Writer
	width int
}

func (s *tuiStreamer) stream(ctx context.Context, run runFunc) (*chatstream.Result, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newStreamModel(cancel, s.width),
		tea.WithContext(ctx),
		tea.WithInput(s.in),
		tea.WithOutput(s.out),
		tea.WithoutSignalHandler(),
	)

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		result, err := run(streamCtx, func(m chat.Message) {
			p.Send(snapshotMsg(m))
		})
		p.Send(doneMsg{result: result, err: err})
	}()

	final, runErr := p.Run()
	cancel()
	<-finished

	m, ok := final.(streamModel)
	if !ok || !m.done {
		if runErr != nil {
			return nil, runErr
		}
		return nil, context.Canceled
	}
	return m.result, m.err
}
