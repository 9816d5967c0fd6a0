package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// LogSender writes alerts to the structured log. It is the default channel
// when no broker is configured.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger.With().Str("component", "notification").Logger()}
}

func (s *LogSender) Send(_ context.Context, n *Notification) error {
	s.logger.Info().
		Str("kind", string(n.Kind)).
		Str("audience", string(n.Audience)).
		Str("recipient", n.Recipient).
		Str("appointment_id", n.AppointmentID).
		Str("subject", n.Subject).
		Msg(n.Body)
	return nil
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSender publishes alerts as JSON to a topic, keyed by appointment id so
// alerts for one appointment stay ordered within a partition.
type KafkaSender struct {
	writer messageWriter
	topic  string
}

// kafkaBatchTimeout bounds how long a synchronous write waits for a batch to
// fill. Alerts are sent one at a time on the request path, so the writer's
// 1s default would stall every status change.
const kafkaBatchTimeout = 10 * time.Millisecond

func NewKafkaSender(brokers []string, topic string) *KafkaSender {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokers,
		Balancer:     &kafka.Hash{},
		BatchTimeout: kafkaBatchTimeout,
	})
	return &KafkaSender{writer: w, topic: topic}
}

func (s *KafkaSender) Send(ctx context.Context, n *Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	msg := kafka.Message{
		Topic: s.topic,
		Key:   []byte(n.AppointmentID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(n.ID)},
			{Key: "event_type", Value: []byte(n.Kind)},
			{Key: "audience", Value: []byte(n.Audience)},
		},
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

func (s *KafkaSender) Close() error {
	return s.writer.Close()
}

// MultiSender sends to every channel and joins their errors.
type MultiSender []Sender

func (m MultiSender) Send(ctx context.Context, n *Notification) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
