package chatstream

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/papercomputeco/agentchat/pkg/sse"
)

// Frame is one self-contained unit cut from a response body.
type Frame struct {
	Data string

	// Raw marks plain text from a body that is not framed as JSON.
	Raw bool
}

// Blank reports whether the frame carries nothing to interpret. Raw text
// is never blank since its whitespace is content.
func (f Frame) Blank() bool {
	if f.Raw {
		return f.Data == ""
	}
	return strings.TrimSpace(f.Data) == ""
}

// FrameDecoder cuts arbitrarily chunked response text into frames. The
// frames produced are the same however the text is split across Feed calls.
type FrameDecoder interface {
	// Feed appends text and returns the frames it completed, in order.
	Feed(text string) []Frame

	// Finalize is called once at end of stream. It returns any last frames
	// and, if undecodable text remained, a warning describing what was
	// discarded.
	Finalize() ([]Frame, *DecodeWarning)
}

// SentinelDecoder frames text on Separator. A segment that is not valid
// JSON on its own is held and rejoined with the separator and the next
// segment, so a separator inside a JSON string never splits a frame.
type SentinelDecoder struct {
	pending string
	carry   string
	held    bool
}

// NewSentinelDecoder returns an empty SentinelDecoder.
func NewSentinelDecoder() *SentinelDecoder {
	return &SentinelDecoder{}
}

func (d *SentinelDecoder) Feed(text string) []Frame {
	if text == "" {
		return nil
	}
	d.pending += text
	if !strings.Contains(d.pending, Separator) {
		return nil
	}

	parts := strings.Split(d.pending, Separator)
	d.pending = parts[len(parts)-1]

	var frames []Frame
	for _, seg := range parts[:len(parts)-1] {
		if f, ok := d.settle(seg); ok {
			frames = append(frames, f)
		}
	}
	return frames
}

func (d *SentinelDecoder) Finalize() ([]Frame, *DecodeWarning) {
	rest := d.pending
	d.pending = ""

	var frames []Frame
	if d.held || strings.TrimSpace(rest) != "" {
		if f, ok := d.settle(rest); ok && !f.Blank() {
			frames = append(frames, f)
		}
	}

	if !d.held {
		return frames, nil
	}
	w := &DecodeWarning{Discarded: d.carry, Reason: "incomplete frame"}
	d.carry, d.held = "", false
	return frames, w
}

// settle decides whether seg, together with anything held, completes a frame.
func (d *SentinelDecoder) settle(seg string) (Frame, bool) {
	candidate := seg
	if d.held {
		candidate = d.carry + Separator + seg
	} else if strings.TrimSpace(seg) == "" {
		return Frame{Data: seg}, true
	}

	if json.Valid([]byte(candidate)) {
		d.carry, d.held = "", false
		return Frame{Data: candidate}, true
	}
	d.carry, d.held = candidate, true
	return Frame{}, false
}

// ObjectDecoder frames a body of concatenated JSON objects. If the body
// does not start with an object it switches to raw mode and forwards the
// text unchanged, one frame per Feed.
type ObjectDecoder struct {
	pending string
	raw     bool
}

// NewObjectDecoder returns an empty ObjectDecoder.
func NewObjectDecoder() *ObjectDecoder {
	return &ObjectDecoder{}
}

func (d *ObjectDecoder) Feed(text string) []Frame {
	if d.raw {
		if text == "" {
			return nil
		}
		return []Frame{{Data: text, Raw: true}}
	}

	d.pending += text
	var frames []Frame
	for {
		trimmed := strings.TrimLeft(d.pending, " \t\r\n")
		if trimmed == "" {
			return frames
		}
		if trimmed[0] != '{' {
			d.raw = true
			frames = append(frames, Frame{Data: d.pending, Raw: true})
			d.pending = ""
			return frames
		}

		dec := json.NewDecoder(strings.NewReader(trimmed))
		var obj json.RawMessage
		if err := dec.Decode(&obj); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
				d.pending = trimmed
				return frames
			}
			// Braced text that is not JSON. Treat the rest of the body as
			// plain content.
			d.raw = true
			frames = append(frames, Frame{Data: d.pending, Raw: true})
			d.pending = ""
			return frames
		}

		n := dec.InputOffset()
		frames = append(frames, Frame{Data: trimmed[:n]})
		d.pending = trimmed[n:]
	}
}

func (d *ObjectDecoder) Finalize() ([]Frame, *DecodeWarning) {
	rest := d.pending
	d.pending = ""
	if strings.TrimSpace(rest) == "" {
		return nil, nil
	}
	return nil, &DecodeWarning{Discarded: rest, Reason: "incomplete object"}
}

// EventDecoder frames a text/event-stream body. Each event's data is one
// frame. Events whose data is not JSON are skipped, and a [DONE] event ends
// the stream.
type EventDecoder struct {
	parser  *sse.Parser
	done    bool
	skipped []string
}

// NewEventDecoder returns an EventDecoder with an empty parser.
func NewEventDecoder() *EventDecoder {
	return &EventDecoder{parser: sse.NewParser()}
}

// doneMarker is the data of the event that ends an OpenAI style stream.
const doneMarker = "[DONE]"

func (d *EventDecoder) Feed(text string) []Frame {
	if d.done {
		return nil
	}

	var frames []Frame
	for _, ev := range d.parser.Feed(text) {
		if f, ok := d.frame(ev); ok {
			frames = append(frames, f)
		}
		if d.done {
			break
		}
	}
	return frames
}

func (d *EventDecoder) Finalize() ([]Frame, *DecodeWarning) {
	var frames []Frame
	if !d.done {
		if ev, ok := d.parser.Flush(); ok {
			if f, ok := d.frame(ev); ok {
				frames = append(frames, f)
			}
		}
	}

	if len(d.skipped) == 0 {
		return frames, nil
	}
	w := &DecodeWarning{Discarded: strings.Join(d.skipped, "\n"), Reason: "undecodable event data"}
	d.skipped = nil
	return frames, w
}

func (d *EventDecoder) frame(ev sse.Event) (Frame, bool) {
	data := strings.TrimSpace(ev.Data)
	switch {
	case data == "":
		return Frame{}, false
	case data == doneMarker:
		d.done = true
		return Frame{}, false
	case !json.Valid([]byte(data)):
		d.skipped = append(d.skipped, data)
		return Frame{}, false
	}
	return Frame{Data: data}, true
}
