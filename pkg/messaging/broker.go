package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Message is the envelope published for every outbox event.
type Message struct {
	ID          string      `json:"id"`
	Type        string      `json:"type"`
	AggregateID int64       `json:"aggregate_id"`
	Payload     interface{} `json:"payload"`
}
