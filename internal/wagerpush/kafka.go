package wagerpush

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes events to one topic keyed by account id, so the hash
// balancer keeps each account on one partition.
type KafkaSink struct {
	writer messageWriter
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           10 * time.Second,
	}}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Send(ctx context.Context, msg Message) error {
	at := msg.At
	if at.IsZero() {
		at = time.Now()
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.Key),
		Value: msg.Body,
		Time:  at,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(msg.Type)},
			{Key: "event_id", Value: []byte(msg.ID)},
		},
	})
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
