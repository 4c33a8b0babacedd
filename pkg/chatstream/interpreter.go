package chatstream

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/papercomputeco/agentchat/pkg/chat"
)

// Interpreter turns frames into fragments. Interpreters may keep state
// across frames of one response.
type Interpreter interface {
	// Interpret maps one non-blank frame to a fragment. It returns a
	// *ProtocolError when the frame cannot be read as a message.
	Interpret(f Frame) (Fragment, error)

	// Flush is called once at end of stream and returns anything the
	// interpreter was still holding back.
	Flush() Fragment
}

// MessageInterpreter reads frames that each carry a whole message object.
// The content field is cumulative: every frame repeats the text so far, and
// the interpreter reports only what is new.
type MessageInterpreter struct {
	seen string
}

// NewMessageInterpreter returns a MessageInterpreter with no content seen.
func NewMessageInterpreter() *MessageInterpreter {
	return &MessageInterpreter{}
}

func (in *MessageInterpreter) Interpret(f Frame) (Fragment, error) {
	m, err := decodeWireMessage(f.Data)
	if err != nil {
		return Fragment{}, &ProtocolError{Frame: f.Data, Err: err}
	}
	return in.fragment(m), nil
}

func (in *MessageInterpreter) Flush() Fragment {
	return Fragment{}
}

func (in *MessageInterpreter) fragment(m *wireMessage) Fragment {
	frag := Fragment{
		ID:        string(m.ID),
		Role:      m.role(),
		Timestamp: m.timestamp(),
		FormTitle: m.FormTitle,
	}
	if content, ok := m.content(); ok {
		frag.ContentDelta = in.delta(content)
	}
	if raw := m.schemaText(); raw != "" {
		frag.Schema = newSchemaUpdate(raw)
	}
	return frag
}

// delta reconciles a cumulative content value with what was already seen.
// A value that extends the seen text contributes its suffix, a value that is
// a prefix of it contributes nothing, and anything else is appended whole.
func (in *MessageInterpreter) delta(full string) string {
	switch {
	case strings.HasPrefix(full, in.seen):
		d := full[len(in.seen):]
		in.seen = full
		return d
	case strings.HasPrefix(in.seen, full):
		return ""
	default:
		in.seen += full
		return full
	}
}

// InlineTagInterpreter reads the legacy protocol. Each frame carries a
// content delta, and a form schema may be embedded in the content between
// a FormStartTag line and a FormEndTag line. Tag lines never reach the
// content or the schema.
type InlineTagInterpreter struct {
	scan tagScanner
}

// NewInlineTagInterpreter returns an InlineTagInterpreter outside any form
// section.
func NewInlineTagInterpreter() *InlineTagInterpreter {
	return &InlineTagInterpreter{}
}

func (in *InlineTagInterpreter) Interpret(f Frame) (Fragment, error) {
	if f.Raw {
		content, schema := in.scan.feed(f.Data)
		return Fragment{ContentDelta: content, SchemaDelta: schema}, nil
	}

	m, err := decodeWireMessage(f.Data)
	if err != nil {
		return Fragment{}, &ProtocolError{Frame: f.Data, Err: err}
	}

	frag := Fragment{
		ID:        string(m.ID),
		Role:      m.role(),
		Timestamp: m.timestamp(),
		FormTitle: m.FormTitle,
	}
	if text, ok := m.content(); ok {
		frag.ContentDelta, frag.SchemaDelta = in.scan.feed(text)
	}
	if raw := m.schemaText(); raw != "" {
		frag.Schema = newSchemaUpdate(raw)
	}
	return frag, nil
}

func (in *InlineTagInterpreter) Flush() Fragment {
	content, schema := in.scan.flush()
	return Fragment{ContentDelta: content, SchemaDelta: schema}
}

// tagScanner splits text into content and form schema text, line by line,
// across arbitrarily split input. A tag line matches only when the whole
// line, trimmed, equals the tag.
type tagScanner struct {
	inForm bool
	// midLine is set when the text emitted so far ends partway through a
	// line. Such a line can no longer be a tag line.
	midLine bool
	held    string
}

func (s *tagScanner) feed(text string) (content, schema string) {
	var out [2]strings.Builder
	emit := func(t string) {
		if s.inForm {
			out[1].WriteString(t)
		} else {
			out[0].WriteString(t)
		}
	}

	buf := s.held + text
	s.held = ""
	for buf != "" {
		idx := strings.IndexByte(buf, '\n')
		if idx == -1 {
			switch {
			case s.midLine:
				emit(buf)
			case s.couldBeTag(buf):
				s.held = buf
			default:
				emit(buf)
				s.midLine = true
			}
			break
		}

		line := buf[:idx]
		buf = buf[idx+1:]
		if s.midLine {
			emit(line + "\n")
			s.midLine = false
			continue
		}

		switch strings.TrimSpace(line) {
		case FormStartTag:
			if !s.inForm {
				s.inForm = true
				continue
			}
		case FormEndTag:
			if s.inForm {
				s.inForm = false
				continue
			}
		}
		emit(line + "\n")
	}
	return out[0].String(), out[1].String()
}

// flush releases any held partial line.
func (s *tagScanner) flush() (content, schema string) {
	held := s.held
	s.held = ""
	if held == "" {
		return "", ""
	}
	if strings.TrimSpace(held) == s.nextTag() {
		s.inForm = !s.inForm
		return "", ""
	}
	if s.inForm {
		return "", held
	}
	return held, ""
}

func (s *tagScanner) nextTag() string {
	if s.inForm {
		return FormEndTag
	}
	return FormStartTag
}

// couldBeTag reports whether a partial line may still turn out to be the
// next expected tag line.
func (s *tagScanner) couldBeTag(partial string) bool {
	trimmed := strings.TrimSpace(partial)
	tag := s.nextTag()
	return strings.HasPrefix(tag, trimmed) || trimmed == tag
}

// EventInterpreter reads text/event-stream frames. A frame is either an
// OpenAI style completion chunk, whose delta content is appended, or a
// message object handled like the sentinel protocol.
type EventInterpreter struct {
	messages MessageInterpreter
}

// NewEventInterpreter returns an EventInterpreter with no content seen.
func NewEventInterpreter() *EventInterpreter {
	return &EventInterpreter{}
}

type completionChunk struct {
	ID      string `json:"id"`
	Created int64  `json:"created"` // epoch seconds
	Choices []struct {
		Delta struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (in *EventInterpreter) Interpret(f Frame) (Fragment, error) {
	var head struct {
		Choices json.RawMessage `json:"choices"`
	}
	if err := json.Unmarshal([]byte(f.Data), &head); err != nil {
		return Fragment{}, &ProtocolError{Frame: f.Data, Err: err}
	}
	if head.Choices == nil {
		return in.messages.Interpret(f)
	}

	var chunk completionChunk
	if err := json.Unmarshal([]byte(f.Data), &chunk); err != nil {
		return Fragment{}, &ProtocolError{Frame: f.Data, Err: err}
	}

	frag := Fragment{ID: chunk.ID}
	if chunk.Created > 0 {
		frag.Timestamp = time.Unix(chunk.Created, 0).UnixMilli()
	}
	if len(chunk.Choices) == 0 {
		return frag, nil
	}

	delta := chunk.Choices[0].Delta
	if r := chat.Role(delta.Role); r.Valid() {
		frag.Role = r
	}
	if delta.Content != nil {
		frag.ContentDelta = *delta.Content
		in.messages.seen += *delta.Content
	}
	return frag, nil
}

func (in *EventInterpreter) Flush() Fragment {
	return Fragment{}
}
