// Package chatstream decodes an agent's streamed chat response into
// successive message snapshots and one final message.
//
// A response body is processed in three stages. A FrameDecoder cuts the raw
// text into self-contained frames, an Interpreter turns each frame into a
// Fragment, and the Assembler folds fragments into the message being built.
// The Protocol picks the decoder and interpreter pair.
package chatstream

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/papercomputeco/agentchat/pkg/chat"
)

// Separator delimits frames in the sentinel protocol.
const Separator = "__CHUNK_SEPARATOR__"

// Tags that open and close a form section in the inline-tag protocol.
const (
	FormStartTag = "<dynamic_form_schema>"
	FormEndTag   = "</dynamic_form_schema>"
)

// Protocol selects how a response body is framed and interpreted.
type Protocol int

const (
	// ProtocolSentinel frames the body on Separator. Each frame is a JSON
	// message object whose chatContent is cumulative.
	ProtocolSentinel Protocol = iota

	// ProtocolInlineTag is the legacy protocol: concatenated JSON objects
	// carrying content deltas, with the form schema embedded in the
	// content between FormStartTag and FormEndTag lines.
	ProtocolInlineTag

	// ProtocolSSE reads text/event-stream bodies whose data lines carry
	// either message objects or OpenAI style completion chunks.
	ProtocolSSE
)

var protocolNames = map[Protocol]string{
	ProtocolSentinel:  "sentinel",
	ProtocolInlineTag: "inline-tag",
	ProtocolSSE:       "sse",
}

// Protocols lists the accepted protocol names.
func Protocols() []string {
	return []string{"sentinel", "inline-tag", "sse"}
}

func (p Protocol) String() string {
	if name, ok := protocolNames[p]; ok {
		return name
	}
	return fmt.Sprintf("protocol(%d)", int(p))
}

// ParseProtocol resolves a protocol name as written in config or flags.
func ParseProtocol(name string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sentinel", "forward":
		return ProtocolSentinel, nil
	case "inline-tag", "inline", "legacy":
		return ProtocolInlineTag, nil
	case "sse", "event-stream":
		return ProtocolSSE, nil
	default:
		return 0, fmt.Errorf("unknown protocol %q (expected one of %s)", name, strings.Join(Protocols(), ", "))
	}
}

// strategies returns a fresh decoder and interpreter for one response.
func (p Protocol) strategies() (FrameDecoder, Interpreter) {
	switch p {
	case ProtocolInlineTag:
		return NewObjectDecoder(), NewInlineTagInterpreter()
	case ProtocolSSE:
		return NewEventDecoder(), NewEventInterpreter()
	default:
		return NewSentinelDecoder(), NewMessageInterpreter()
	}
}

// Path returns the request path for a turn in the given conversation.
func (p Protocol) Path(agent, conversationID string) string {
	a, c := url.PathEscape(agent), url.PathEscape(conversationID)
	if p == ProtocolInlineTag {
		return "/api/chat/" + a + "/" + c
	}
	return "/api/chat/forward/" + a + "/" + c
}

// Body returns the JSON request body for msg.
func (p Protocol) Body(msg chat.OutboundMessage) any {
	if p == ProtocolInlineTag {
		return msg.Legacy()
	}
	return msg
}

// Accept is the Accept header sent with the request.
func (p Protocol) Accept() string {
	if p == ProtocolSSE {
		return "text/event-stream"
	}
	return "application/json, text/plain, */*"
}
