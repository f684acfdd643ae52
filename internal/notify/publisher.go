// Package notify publishes registration lifecycle messages to Kafka and
// consumes them for confirmation delivery.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// Kind names a registration lifecycle message.
type Kind string

const (
	KindRegistrationCreated   Kind = "registration.created"
	KindRegistrationCancelled Kind = "registration.cancelled"
)

// MessageVersion is the current payload version.
const MessageVersion = 1

// RegistrationMessage is the payload published for every ledger change.
type RegistrationMessage struct {
	Event          Kind      `json:"event"`
	Version        int       `json:"version"`
	RegistrationID string    `json:"registration_id"`
	EventID        string    `json:"event_id"`
	EventTitle     string    `json:"event_title"`
	UserID         string    `json:"user_id,omitempty"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	TS             time.Time `json:"ts"`
}

// Publisher delivers registration messages.
type Publisher interface {
	Publish(ctx context.Context, msg RegistrationMessage) error
	Close() error
}

// Nop discards every message. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, RegistrationMessage) error { return nil }
func (Nop) Close() error                                        { return nil }

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes registration messages to a Kafka topic, keyed by
// event id so all messages for one event stay ordered on one partition.
type KafkaPublisher struct {
	w messageWriter
}

// NewKafkaPublisher creates a synchronous publisher for topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchTimeout: 20 * time.Millisecond,
		Compression:  kafka.Snappy,
	}}
}

// Publish encodes msg and writes it.
func (p *KafkaPublisher) Publish(ctx context.Context, msg RegistrationMessage) error {
	if msg.Version == 0 {
		msg.Version = MessageVersion
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Event, err)
	}
	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.EventID),
		Value: payload,
		Time:  msg.TS,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(msg.Event)},
			{Key: "version", Value: []byte(strconv.Itoa(msg.Version))},
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", msg.Event, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
