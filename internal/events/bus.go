// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/trackrelay/internal/metrics"
	"github.com/tomtom215/trackrelay/internal/relay"
)

// TopicSessions carries every session lifecycle event.
const TopicSessions = "relay.sessions"

// MetadataEventType holds the event type on each message.
const MetadataEventType = "event_type"

// Bus is an in-process publish/subscribe bus for session lifecycle events.
// It satisfies relay.EventSink.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger watermill.LoggerAdapter
}

// NewBus creates a bus. bufferSize bounds each subscriber's queue.
func NewBus(bufferSize int64, logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = NewLoggerAdapter()
	}
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer:            bufferSize,
			BlockPublishUntilSubscriberAck: false,
		}, logger),
		logger: logger,
	}
}

// Publish implements relay.EventSink. Failures are logged, never returned.
func (b *Bus) Publish(event relay.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to encode lifecycle event", err, watermill.LogFields{"event_type": event.Type})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetadataEventType, event.Type)

	if err := b.pubsub.Publish(TopicSessions, msg); err != nil {
		b.logger.Error("Failed to publish lifecycle event", err, watermill.LogFields{
			"event_type": event.Type,
			"session_id": event.SessionID,
		})
		return
	}
	metrics.EventsPublished.WithLabelValues(event.Type).Inc()
}

// Subscribe returns a channel of raw lifecycle messages on topic.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

// Subscriber exposes the underlying watermill subscriber for routers.
func (b *Bus) Subscriber() message.Subscriber {
	return b.pubsub
}

// Close stops delivery to all subscribers.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// Decode parses a lifecycle message payload.
func Decode(msg *message.Message) (relay.Event, error) {
	var event relay.Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return relay.Event{}, fmt.Errorf("decode lifecycle event %s: %w", msg.UUID, err)
	}
	return event, nil
}
