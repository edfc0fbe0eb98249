package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/blitz/pkg/events"
	"github.com/google/uuid"
)

// decoders builds an empty value for every event type the bus can consume.
var decoders = map[events.EventType]func() any{
	events.ExecutionStartedEvent:   func() any { return &events.ExecutionStarted{} },
	events.ExecutionCompletedEvent: func() any { return &events.ExecutionCompleted{} },
	events.ExecutionFailedEvent:    func() any { return &events.ExecutionFailed{} },
	events.WorkflowSavedEvent:      func() any { return &events.WorkflowSaved{} },
	events.WorkflowDeletedEvent:    func() any { return &events.WorkflowDeleted{} },
}

var errUndecodable = errors.New("event cannot be decoded")

// WatermillEventBus publishes JSON encoded events to a single topic and dispatches consumed
// messages by their event type metadata.
type WatermillEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	topic      string
	logger     *slog.Logger

	mu       sync.RWMutex
	handlers map[events.EventType]EventHandler
}

type Option func(*WatermillEventBus)

// WithTopic overrides events.Topic.
func WithTopic(topic string) Option {
	return func(eb *WatermillEventBus) {
		eb.topic = topic
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(eb *WatermillEventBus) {
		eb.logger = logger
	}
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber, opts ...Option) *WatermillEventBus {
	eb := &WatermillEventBus{
		publisher:  pub,
		subscriber: sub,
		topic:      events.Topic,
		logger:     slog.Default(),
		handlers:   make(map[events.EventType]EventHandler),
	}

	for _, opt := range opts {
		opt(eb)
	}

	eb.logger = eb.logger.With("module", "eventbus", "topic", eb.topic)

	return eb
}

func (eb *WatermillEventBus) Publish(ctx context.Context, key string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.GetType(), err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	if err := eb.publisher.Publish(eb.topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.GetType(), err)
	}

	return nil
}

// Handle registers the handler for eventType, replacing any earlier one.
func (eb *WatermillEventBus) Handle(eventType events.EventType, handler EventHandler) error {
	if _, ok := decoders[eventType]; !ok {
		return fmt.Errorf("%w: unknown type %q", errUndecodable, eventType)
	}

	eb.mu.Lock()
	eb.handlers[eventType] = handler
	eb.mu.Unlock()

	return nil
}

// Subscribe starts consuming in the background until ctx is done.
func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	messages, err := eb.subscriber.Subscribe(ctx, eb.topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", eb.topic, err)
	}

	go eb.consume(ctx, messages)

	return nil
}

func (eb *WatermillEventBus) consume(ctx context.Context, messages <-chan *message.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}

			eb.ack(ctx, msg, eb.dispatch(ctx, msg))
		}
	}
}

// ack retries handler failures. Messages that can never be decoded are dropped.
func (eb *WatermillEventBus) ack(ctx context.Context, msg *message.Message, err error) {
	switch {
	case err == nil:
		msg.Ack()
	case errors.Is(err, errUndecodable):
		eb.logger.WarnContext(ctx, "Dropping event", "message_id", msg.UUID, "error", err)
		msg.Ack()
	default:
		eb.logger.ErrorContext(ctx, "Event handler failed", "message_id", msg.UUID, "error", err)
		msg.Nack()
	}
}

func (eb *WatermillEventBus) dispatch(ctx context.Context, msg *message.Message) error {
	eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

	eb.mu.RLock()
	handler, ok := eb.handlers[eventType]
	eb.mu.RUnlock()

	if !ok {
		return nil
	}

	decode, ok := decoders[eventType]
	if !ok {
		return fmt.Errorf("%w: unknown type %q", errUndecodable, eventType)
	}

	event := decode()
	if err := json.Unmarshal(msg.Payload, event); err != nil {
		return fmt.Errorf("%w: %w", errUndecodable, err)
	}

	return handler(ctx, event)
}

func (eb *WatermillEventBus) Close() error {
	return errors.Join(eb.publisher.Close(), eb.subscriber.Close())
}
