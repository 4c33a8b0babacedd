// Package sse provides an incremental Server-Sent Events parser. Text is
// pushed in as it arrives from the network and complete events come out;
// a line split across two pushes is held until its newline shows up.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// Event represents a single parsed SSE event, delimited by a blank line.
type Event struct {
	// Type is the value of the "event:" field. Empty means "message".
	Type string

	// Data is the concatenation of all "data:" lines, joined with "\n".
	Data string

	// ID is the last "id:" field value, if present.
	ID string
}
