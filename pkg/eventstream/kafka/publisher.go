// Package kafka publishes finalized message events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/agentchat/pkg/eventstream"
	"github.com/papercomputeco/agentchat/pkg/logger"
)

// DefaultTopic is the topic used when none is configured.
const DefaultTopic = "agentchat.messages"

// Writer is the subset of *kafka.Writer the publisher uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Config configures a Publisher.
type Config struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// Publisher writes each event as one Kafka message keyed by conversation
// id, so a conversation's events stay ordered within a partition.
type Publisher struct {
	writer Writer
	topic  string
	logger *slog.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithWriter replaces the Kafka writer, typically with a fake in tests.
func WithWriter(w Writer) Option {
	return func(p *Publisher) {
		p.writer = w
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = l
	}
}

// NewPublisher creates a publisher for cfg.
func NewPublisher(cfg Config, opts ...Option) (*Publisher, error) {
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	p := &Publisher{topic: topic, logger: logger.Nop()}
	for _, opt := range opts {
		opt(p)
	}

	if p.writer == nil {
		brokers := ParseBrokers(strings.Join(cfg.Brokers, ","))
		if len(brokers) == 0 {
			return nil, errors.New("kafka publisher requires at least one broker")
		}

		timeout := cfg.WriteTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		p.writer = &kafkago.Writer{
			Addr:                   kafkago.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafkago.Hash{},
			RequiredAcks:           kafkago.RequireAll,
			WriteTimeout:           timeout,
			AllowAutoTopicCreation: true,
		}
	}
	return p, nil
}

// PublishMessage encodes event as JSON and writes it.
func (p *Publisher) PublishMessage(ctx context.Context, event *eventstream.MessageFinalizedEvent) error {
	if event == nil {
		return eventstream.ErrNilMessageEvent
	}
	if err := event.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.ConversationID),
		Value: payload,
		Time:  event.EmittedAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "schema_version", Value: []byte(fmt.Sprint(event.SchemaVersion))},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing event %s to %s: %w", event.EventID, p.topic, err)
	}

	p.logger.Debug("published message event",
		"topic", p.topic,
		"event_id", event.EventID,
		"conversation_id", event.ConversationID,
	)
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// ParseBrokers splits a comma separated broker list, dropping blanks.
func ParseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
