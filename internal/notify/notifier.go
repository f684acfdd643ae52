package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// messageReader is the subset of *kafka.Reader the notifier needs.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Notifier consumes registration messages and emits a confirmation for each.
// Delivery is a structured log line; an SMTP sender can replace it.
type Notifier struct {
	r      messageReader
	logger *slog.Logger
}

// NewNotifier creates a consumer-group reader on topic.
func NewNotifier(brokers []string, topic, group string, logger *slog.Logger) *Notifier {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        group,
		MinBytes:       1,
		MaxBytes:       10e6,
		SessionTimeout: 10 * time.Second,
		CommitInterval: 0,
	})
	return newNotifier(r, logger)
}

func newNotifier(r messageReader, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{r: r, logger: logger}
}

// Run consumes until ctx is cancelled. Undecodable messages are logged and
// committed so they do not block the partition.
func (n *Notifier) Run(ctx context.Context) error {
	defer n.r.Close()

	for {
		m, err := n.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			n.logger.Warn("fetch registration message", slog.String("error", err.Error()))
			continue
		}

		if _, err := n.handle(m); err != nil {
			n.logger.Warn("skip registration message",
				slog.Int64("offset", m.Offset),
				slog.String("error", err.Error()))
		}

		if err := n.r.CommitMessages(ctx, m); err != nil {
			n.logger.Warn("commit registration message", slog.String("error", err.Error()))
		}
	}
}

func (n *Notifier) handle(m kafka.Message) (RegistrationMessage, error) {
	var msg RegistrationMessage
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		return RegistrationMessage{}, fmt.Errorf("decode: %w", err)
	}

	switch msg.Event {
	case KindRegistrationCreated:
		n.logger.Info("send registration confirmation",
			slog.String("email", msg.Email),
			slog.String("event_id", msg.EventID),
			slog.String("event_title", msg.EventTitle))
	case KindRegistrationCancelled:
		n.logger.Info("send cancellation notice",
			slog.String("email", msg.Email),
			slog.String("event_id", msg.EventID),
			slog.String("event_title", msg.EventTitle))
	default:
		return msg, fmt.Errorf("unknown message type %q", msg.Event)
	}
	return msg, nil
}
