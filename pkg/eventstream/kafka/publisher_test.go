package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/agentchat/pkg/chat"
	"github.com/papercomputeco/agentchat/pkg/eventstream"
	"github.com/papercomputeco/agentchat/pkg/eventstream/kafka"
)

type fakeWriter struct {
	messages []kafkago.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var (
		writer *fakeWriter
		pub    *kafka.Publisher
		event  *eventstream.MessageFinalizedEvent
	)

	BeforeEach(func() {
		writer = &fakeWriter{}
		var err error
		pub, err = kafka.NewPublisher(kafka.Config{Topic: "chat"}, kafka.WithWriter(writer))
		Expect(err).NotTo(HaveOccurred())

		event = eventstream.NewMessageFinalizedEvent(eventstream.MessageEventInput{
			Agent:          "share-agent",
			ConversationID: "c1",
			Protocol:       "sentinel",
			Message:        chat.Message{ID: "m1", Role: chat.RoleAssistant, Content: "hi"},
		}, time.Unix(1735689600, 0))
	})

	It("writes the event keyed by conversation id", func() {
		Expect(pub.PublishMessage(context.Background(), event)).To(Succeed())
		Expect(writer.messages).To(HaveLen(1))

		msg := writer.messages[0]
		Expect(string(msg.Key)).To(Equal("c1"))
		Expect(msg.Headers).To(ContainElement(kafkago.Header{Key: "event_type", Value: []byte(eventstream.EventTypeMessageFinalized)}))

		var decoded eventstream.MessageFinalizedEvent
		Expect(json.Unmarshal(msg.Value, &decoded)).To(Succeed())
		Expect(decoded.EventID).To(Equal(event.EventID))
		Expect(decoded.Message.Content).To(Equal("hi"))
	})

	It("rejects nil and incomplete events", func() {
		Expect(pub.PublishMessage(context.Background(), nil)).To(MatchError(eventstream.ErrNilMessageEvent))
		Expect(pub.PublishMessage(context.Background(), &eventstream.MessageFinalizedEvent{EventID: "e"})).NotTo(Succeed())
		Expect(writer.messages).To(BeEmpty())
	})

	It("wraps write failures", func() {
		writer.err = errors.New("broker down")
		err := pub.PublishMessage(context.Background(), event)
		Expect(err).To(MatchError(ContainSubstring("broker down")))
		Expect(errors.Is(err, writer.err)).To(BeTrue())
	})

	It("closes the writer", func() {
		Expect(pub.Close()).To(Succeed())
		Expect(writer.closed).To(BeTrue())
	})

	It("requires brokers without an injected writer", func() {
		_, err := kafka.NewPublisher(kafka.Config{Brokers: []string{" ", ""}})
		Expect(err).To(HaveOccurred())
	})

	It("builds a real writer when brokers are given", func() {
		p, err := kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Close()).To(Succeed())
	})
})

var _ = Describe("ParseBrokers", func() {
	It("splits and trims", func() {
		Expect(kafka.ParseBrokers(" a:9092, ,b:9092 ")).To(Equal([]string{"a:9092", "b:9092"}))
		Expect(kafka.ParseBrokers("")).To(BeNil())
	})
})
