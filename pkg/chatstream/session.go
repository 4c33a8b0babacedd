package chatstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/agentchat/pkg/chat"
	"github.com/papercomputeco/agentchat/pkg/logger"
	"github.com/papercomputeco/agentchat/pkg/metrics"
)

// State is the lifecycle stage of a Session.
type State int

const (
	StateIdle State = iota
	StateOpening
	StateStreaming
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpening:
		return "opening"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	defaultReadSize = 4096
	defaultTimeout  = 5 * time.Minute
)

// ErrSessionUsed is returned when Run is called on a session that already ran.
var ErrSessionUsed = errors.New("stream session already used")

// Client opens stream sessions against one agent server.
type Client struct {
	baseURL    string
	protocol   Protocol
	httpClient *http.Client
	logger     *slog.Logger
	readSize   int
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithProtocol selects the wire protocol. The default is ProtocolSentinel.
func WithProtocol(p Protocol) Option {
	return func(c *Client) {
		c.protocol = p
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithReadSize sets the size of each read from the response body.
func WithReadSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.readSize = n
		}
	}
}

// WithNow sets the clock used to stamp messages that arrive without a
// timestamp.
func WithNow(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient returns a Client for the agent server at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		protocol:   ProtocolSentinel,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger.Nop(),
		readSize:   defaultReadSize,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Protocol returns the protocol the client speaks.
func (c *Client) Protocol() Protocol {
	return c.protocol
}

// NewSession prepares a session for one turn in a conversation.
func (c *Client) NewSession(agent, conversationID string) *Session {
	return &Session{
		client:         c,
		agent:          agent,
		conversationID: conversationID,
		logger: c.logger.With(
			"agent", agent,
			"conversation_id", conversationID,
			"protocol", c.protocol.String(),
		),
	}
}

// Stream sends msg and streams the response. It is shorthand for
// NewSession followed by Run.
func (c *Client) Stream(ctx context.Context, agent, conversationID string, msg chat.OutboundMessage, onSnapshot func(chat.Message)) (*Result, error) {
	return c.NewSession(agent, conversationID).Run(ctx, msg, onSnapshot)
}

// Result is the outcome of a completed session.
type Result struct {
	Message chat.Message

	// Warnings holds non-fatal problems: *DecodeWarning and
	// *SchemaParseError values.
	Warnings []error

	Frames int
}

// Session sends one outbound message and consumes the streamed response.
// A session runs once.
type Session struct {
	client         *Client
	agent          string
	conversationID string
	logger         *slog.Logger

	state  State
	frames int
}

// State returns the session's lifecycle stage.
func (s *Session) State() State {
	return s.state
}

// Run posts msg and reads the response to the end. onSnapshot, if non-nil,
// is called on the caller's goroutine with a snapshot of the message after
// every applied frame. It is never called after Run returns or after ctx is
// done.
//
// Run fails with a *TransportError when the request cannot be sent, the
// server answers with a non-2xx status, the body cannot be read or ctx is
// canceled, and with a *ProtocolError when a frame is not a message.
func (s *Session) Run(ctx context.Context, msg chat.OutboundMessage, onSnapshot func(chat.Message)) (*Result, error) {
	if s.state != StateIdle {
		return nil, ErrSessionUsed
	}

	protocol := s.client.protocol.String()
	start := time.Now()
	metrics.SessionStarted()

	result, err := s.run(ctx, msg, onSnapshot)

	status := metrics.StatusCompleted
	switch {
	case err != nil && ctx.Err() != nil:
		status = metrics.StatusCanceled
	case err != nil:
		status = metrics.StatusFailed
	}
	metrics.SessionEnded(protocol, status, time.Since(start).Seconds())
	metrics.RecordFrames(protocol, s.frames)

	if err != nil {
		s.state = StateFailed
		if status == metrics.StatusCanceled {
			s.logger.Debug("stream canceled", "error", err, "frames", s.frames)
		} else {
			s.logger.Error("stream failed", "error", err, "frames", s.frames)
		}
		return nil, err
	}

	s.state = StateCompleted
	for _, w := range result.Warnings {
		var schemaErr *SchemaParseError
		if errors.As(w, &schemaErr) {
			metrics.RecordSchemaParseError(protocol)
		} else {
			metrics.RecordDecodeWarning(protocol)
		}
		s.logger.Warn("stream warning", "warning", w)
	}
	s.logger.Debug("stream completed",
		"message_id", result.Message.ID,
		"frames", result.Frames,
		"content_length", len(result.Message.Content),
		"has_form", result.Message.HasForm(),
	)
	return result, nil
}

func (s *Session) run(ctx context.Context, msg chat.OutboundMessage, onSnapshot func(chat.Message)) (*Result, error) {
	s.state = StateOpening

	req, err := s.newRequest(ctx, msg)
	if err != nil {
		return nil, &TransportError{Op: "creating request", Err: err}
	}

	s.logger.Debug("sending chat request", "url", req.URL.String(), "form_submitted", msg.FormSubmitted)

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return nil, s.transportError(ctx, "sending request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		s.logger.Debug("agent returned error status",
			"status", resp.StatusCode,
			"body", string(snippet),
		)
		return nil, &TransportError{StatusCode: resp.StatusCode, Op: "response status"}
	}

	s.state = StateStreaming
	return s.consume(ctx, resp.Body, onSnapshot)
}

// consume decodes body to the end.
func (s *Session) consume(ctx context.Context, r io.Reader, onSnapshot func(chat.Message)) (*Result, error) {
	decoder, interp := s.client.protocol.strategies()
	asm := NewAssembler(WithClock(s.client.now))

	apply := func(frames []Frame) error {
		for _, f := range frames {
			if f.Blank() {
				continue
			}
			s.frames++

			frag, err := interp.Interpret(f)
			if err != nil {
				return err
			}
			snapshot := asm.Apply(frag)

			if err := ctx.Err(); err != nil {
				return s.transportError(ctx, "streaming", err)
			}
			if onSnapshot != nil {
				onSnapshot(snapshot)
			}
		}
		return nil
	}

	body := newTextReader(r, s.client.readSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, s.transportError(ctx, "streaming", err)
		}

		text, readErr := body.Next()
		if text != "" {
			if err := apply(decoder.Feed(text)); err != nil {
				return nil, err
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return nil, s.transportError(ctx, "reading response", readErr)
		}
	}

	frames, warning := decoder.Finalize()
	if err := apply(frames); err != nil {
		return nil, err
	}

	if tail := interp.Flush(); !tail.Empty() {
		snapshot := asm.Apply(tail)
		if onSnapshot != nil && ctx.Err() == nil {
			onSnapshot(snapshot)
		}
	}

	final, warnings := asm.Finalize()
	if warning != nil {
		warnings = append([]error{warning}, warnings...)
	}

	return &Result{Message: final, Warnings: warnings, Frames: s.frames}, nil
}

func (s *Session) newRequest(ctx context.Context, msg chat.OutboundMessage) (*http.Request, error) {
	p := s.client.protocol

	body, err := json.Marshal(p.Body(msg))
	if err != nil {
		return nil, fmt.Errorf("marshaling body: %w", err)
	}

	url := s.client.baseURL + p.Path(s.agent, s.conversationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", p.Accept())
	return req, nil
}

// transportError wraps err, preferring the context's error once ctx is done
// so callers can match context.Canceled.
func (s *Session) transportError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	return &TransportError{Op: op, Err: err}
}

// Decode reads a captured response body with protocol p, as a session
// would after a successful request.
func Decode(ctx context.Context, p Protocol, body io.Reader, onSnapshot func(chat.Message), opts ...Option) (*Result, error) {
	c := NewClient("", append([]Option{WithProtocol(p)}, opts...)...)
	s := c.NewSession("", "")
	s.state = StateStreaming

	result, err := s.consume(ctx, body, onSnapshot)
	if err != nil {
		s.state = StateFailed
		return nil, err
	}
	s.state = StateCompleted
	return result, nil
}
