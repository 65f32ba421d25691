package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type PubSub interface {
	message.Publisher
	message.Subscriber
}

// Bus manages event publishing and subscription over an in-process
// watermill channel.
type Bus struct {
	pubSub PubSub
	router *message.Router
	logger watermill.LoggerAdapter
}

// Handler is a function that handles typed events.
type Handler[T any] func(ctx context.Context, event *Event[T]) error

// NewBus creates a new event bus.
func NewBus() (*Bus, error) {
	logger := watermill.NewStdLogger(false, false)

	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer: 256,
		},
		logger,
	)

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}

	return &Bus{
		pubSub: pubSub,
		router: router,
		logger: logger,
	}, nil
}

// Start runs the router until ctx is cancelled.
func (b *Bus) Start(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Running returns a channel closed once the router is running. Subscribers
// registered before Start become active at that point.
func (b *Bus) Running() <-chan struct{} {
	return b.router.Running()
}

// Stop stops the event bus. Publishing after Stop fails.
func (b *Bus) Stop() error {
	if err := b.router.Close(); err != nil {
		return err
	}
	return b.pubSub.Close()
}

// Publish publishes an event, inferring its type from the payload.
func (b *Bus) Publish(ctx context.Context, source string, data any) error {
	eventMsg := &Message{
		ID:        newEventID(),
		Type:      inferType(data),
		Timestamp: time.Now(),
		Source:    source,
	}

	rawData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	eventMsg.Data = rawData

	payload, err := json.Marshal(eventMsg)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := b.pubSub.Publish(string(eventMsg.Type), msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// SubscribeAsync subscribes to events of one type using the message router.
func (b *Bus) SubscribeAsync(eventType Type, handlerName string, handler func(msg *Message) error) error {
	b.router.AddNoPublisherHandler(
		handlerName,
		string(eventType),
		b.pubSub,
		func(msg *message.Message) error {
			var eventMsg Message
			if err := json.Unmarshal(msg.Payload, &eventMsg); err != nil {
				return fmt.Errorf("failed to unmarshal event message: %w", err)
			}
			return handler(&eventMsg)
		},
	)
	return nil
}

// SubscribeTyped subscribes a typed handler to events of one type.
func SubscribeTyped[T any](b *Bus, eventType Type, handlerName string, handler Handler[T]) error {
	return b.SubscribeAsync(eventType, handlerName, func(msg *Message) error {
		ev, err := FromMessage[T](msg)
		if err != nil {
			return fmt.Errorf("failed to convert message to event: %w", err)
		}
		return handler(context.Background(), ev)
	})
}
