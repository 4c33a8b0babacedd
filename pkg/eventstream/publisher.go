package eventstream

import "context"

// Publisher publishes finalized message events to an event stream backend.
type Publisher interface {
	PublishMessage(ctx context.Context, event *MessageFinalizedEvent) error
	Close() error
}
