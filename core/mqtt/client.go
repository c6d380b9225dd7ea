// Package mqtt declares the broker-facing interface used by the MQTT gateway
// and the Home Assistant discovery publisher.
package mqtt

import "context"

// MessageHandler receives the payload of a message delivered on topic.
type MessageHandler func(topic string, payload []byte)

// Client is a connected MQTT session. Subscriptions survive reconnects.
type Client interface {
	// Subscribe registers h for topic. kind selects the QoS from the
	// configured QoS map.
	Subscribe(topic, kind string, h MessageHandler) error

	// Publish sends payload on topic, retrying with backoff until ctx ends
	// or the retry budget is spent.
	Publish(ctx context.Context, topic, kind string, retained bool, payload []byte) error
}
