// Package worker provides an asynchronous worker pool that publishes
// finalized message events through a wrapped eventstream.Publisher.
//
// The pool decouples slow event stream backends from the chat loop so a
// response is shown as soon as it is stored.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/agentchat/pkg/eventstream"
	"github.com/papercomputeco/agentchat/pkg/logger"
)

var (
	defaultNumWorkers     uint = 2
	defaultJobQueueSize   uint = 256
	defaultPublishTimeout      = 10 * time.Second
)

// ErrQueueFull is returned by PublishMessage when the event was dropped.
var ErrQueueFull = errors.New("event queue full, event dropped")

// ErrClosed is returned by PublishMessage after Close.
var ErrClosed = errors.New("event pool closed")

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher is the backend events are handed to.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered event channel (defaults to 256).
	QueueSize uint

	// PublishTimeout bounds each backend publish (defaults to 10s).
	PublishTimeout time.Duration

	Logger *slog.Logger
}

// Pool publishes events asynchronously via a worker pool. It implements
// eventstream.Publisher.
type Pool struct {
	config *Config
	queue  chan *eventstream.MessageFinalizedEvent
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, errors.New("publisher is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.PublishTimeout <= 0 {
		c.PublishTimeout = defaultPublishTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan *eventstream.MessageFinalizedEvent, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// PublishMessage validates and queues event. It never blocks: when the
// queue is full the event is dropped and ErrQueueFull returned.
func (p *Pool) PublishMessage(_ context.Context, event *eventstream.MessageFinalizedEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	select {
	case p.queue <- event:
		p.logger.Debug("event queued",
			"event_id", event.EventID,
			"conversation_id", event.ConversationID,
		)
		return nil
	default:
		p.logger.Error("event not queued, queue full, event dropped",
			"event_id", event.EventID,
			"conversation_id", event.ConversationID,
		)
		return ErrQueueFull
	}
}

// Close stops accepting events, waits for queued events to be published
// and closes the wrapped publisher.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	return p.config.Publisher.Close()
}

// worker is the inner worker thread that continuously pulls events off the queue.
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("event worker started", "worker_id", id)

	for event := range p.queue {
		p.publish(event)
	}

	p.logger.Debug("event worker stopped", "worker_id", id)
}

func (p *Pool) publish(event *eventstream.MessageFinalizedEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.PublishTimeout)
	defer cancel()

	if err := p.config.Publisher.PublishMessage(ctx, event); err != nil {
		p.logger.Error("async event publish failed",
			"event_id", event.EventID,
			"conversation_id", event.ConversationID,
			"error", err,
		)
		return
	}

	p.logger.Debug("event published",
		"event_id", event.EventID,
		"conversation_id", event.ConversationID,
	)
}
