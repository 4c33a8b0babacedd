package sse

import (
	"strings"
)

// Parser accumulates pushed text and yields complete events.
//
//	┌───────────────┐    ┌──────────────┐    ┌─────────┐
//	│ Feed(text)    │──▶ │ line buffer  │──▶ │ []Event │
//	└───────────────┘    └──────────────┘    └─────────┘
//
// A Parser is not safe for concurrent use; each stream owns one.
type Parser struct {
	partial string

	current Event
	hasData bool
}

// NewParser returns an empty Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Feed appends text and returns every event completed by it, in order.
func (p *Parser) Feed(text string) []Event {
	buf := p.partial + text
	p.partial = ""

	var events []Event
	for {
		idx := strings.IndexByte(buf, '\n')
		if idx == -1 {
			break
		}

		line := strings.TrimSuffix(buf[:idx], "\r")
		buf = buf[idx+1:]

		if ev, ok := p.line(line); ok {
			events = append(events, ev)
		}
	}

	p.partial = buf
	return events
}

// Flush ends the stream. A trailing line without a newline is processed, and
// an event left without its terminating blank line is returned.
func (p *Parser) Flush() (Event, bool) {
	if p.partial != "" {
		rest := strings.TrimSuffix(p.partial, "\r")
		p.partial = ""
		p.line(rest)
	}

	if !p.hasData {
		return Event{}, false
	}

	ev := p.current
	p.reset()
	return ev, true
}

// Pending returns the buffered text that has not formed a complete line yet.
func (p *Parser) Pending() string {
	return p.partial
}

// line handles one line and reports whether it completed an event.
func (p *Parser) line(raw string) (Event, bool) {
	if raw == "" {
		if !p.hasData {
			// keep-alive or leading blank line
			return Event{}, false
		}
		ev := p.current
		p.reset()
		return ev, true
	}

	if strings.HasPrefix(raw, ":") {
		return Event{}, false
	}

	field, value, _ := strings.Cut(raw, ":")
	value = strings.TrimPrefix(value, " ")

	switch field {
	case "data":
		if p.hasData && p.current.Data != "" {
			p.current.Data += "\n"
		}
		p.current.Data += value
		p.hasData = true
	case "event":
		p.current.Type = value
		p.hasData = true
	case "id":
		p.current.ID = value
		p.hasData = true
	default:
		// "retry" and unknown fields are ignored.
	}

	return Event{}, false
}

func (p *Parser) reset() {
	p.current = Event{}
	p.hasData = false
}
