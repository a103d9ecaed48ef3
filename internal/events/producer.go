// Package events appends every change event to a Kafka topic as an outbound
// integration stream, alongside the real-time bus.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/yourorg/ephemeral-chats/internal/bus"
)

type Producer struct {
	writer *kafka.Writer
	topic  string
}

func NewProducer(brokers []string, topic string) *Producer {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	})
	return &Producer{writer: w, topic: topic}
}

type changeRecord struct {
	Topic  string     `json:"topic"`
	Change bus.Change `json:"change"`
	At     time.Time  `json:"at"`
}

// PublishChange appends a change event keyed by its bus topic, so one chat's
// events land in order on one partition.
func (p *Producer) PublishChange(ctx context.Context, topic string, c bus.Change) error {
	b, err := json.Marshal(changeRecord{Topic: topic, Change: c, At: time.Now().UTC()})
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(topic),
		Value: b,
		Time:  time.Now(),
	})
}

func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
