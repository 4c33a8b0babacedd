package chatstream

import (
	"fmt"
)

// TransportError reports a failure to open or read the response: a
// connection error, a read error, cancellation, or a non-2xx status.
type TransportError struct {
	// StatusCode is set when the server answered with a non-2xx status.
	StatusCode int
	Op         string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
	}
	if e.Err == nil {
		return e.Op
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError reports a frame that parsed as JSON but is not a message.
type ProtocolError struct {
	Frame string
	Err   error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("malformed frame %s: %v", preview(e.Frame), e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// DecodeWarning reports text left over at the end of a stream that could
// not be decoded and was discarded. It never fails a session.
type DecodeWarning struct {
	Discarded string
	Reason    string
}

func (w *DecodeWarning) Error() string {
	return fmt.Sprintf("discarded %d bytes at end of stream (%s): %s", len(w.Discarded), w.Reason, preview(w.Discarded))
}

// SchemaParseError reports a form schema that was not valid. The message is
// still delivered, without a form.
type SchemaParseError struct {
	Raw string
	Err error
}

func (e *SchemaParseError) Error() string {
	return fmt.Sprintf("invalid form schema %s: %v", preview(e.Raw), e.Err)
}

func (e *SchemaParseError) Unwrap() error {
	return e.Err
}

const previewLen = 64

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewLen {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%q...", string(r[:previewLen]))
}
