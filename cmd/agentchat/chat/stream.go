package chatcmder

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/papercomputeco/agentchat/pkg/chat"
	"github.com/papercomputeco/agentchat/pkg/chatstream"
	"github.com/papercomputeco/agentchat/pkg/cliui"
)

// runFunc runs one stream session, delivering snapshots to onSnapshot.
type runFunc func(ctx context.Context, onSnapshot func(chat.Message)) (*chatstream.Result, error)

// streamer displays a response while it streams.
type streamer interface {
	stream(ctx context.Context, run runFunc) (*chatstream.Result, error)
}

// lineStreamer prints content as it arrives and the form once the message
// is final. It is used when output is not a terminal.
type lineStreamer struct {
	out io.Writer
}

func (s *lineStreamer) stream(ctx context.Context, run runFunc) (*chatstream.Result, error) {
	fmt.Fprint(s.out, cliui.RoleLabel(chat.RoleAssistant)+"> ")

	printed := ""
	result, err := run(ctx, func(m chat.Message) {
		if rest, ok := strings.CutPrefix(m.Content, printed); ok {
			fmt.Fprint(s.out, rest)
		} else {
			fmt.Fprint(s.out, "\n"+m.Content)
		}
		printed = m.Content
	})
	fmt.Fprintln(s.out)
	if err != nil {
		return nil, err
	}

	if result.Message.HasForm() {
		fmt.Fprintln(s.out, cliui.RenderForm(result.Message.FormTitle, result.Message.FormSchema))
	}
	return result, nil
}
