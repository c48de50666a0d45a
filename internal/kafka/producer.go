package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/adverge/ppc-decision-engine/internal/models"
	"github.com/segmentio/kafka-go"
)

// Producer publishes decision batch events.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a Kafka producer for the decisions topic
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}

	return &Producer{writer: writer}
}

// PublishDecisionBatch publishes a batch-appended event keyed by account so
// downstream consumers see one account's batches in order.
func (p *Producer) PublishDecisionBatch(ctx context.Context, event *models.DecisionBatchEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal decision batch event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Data.AccountID),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish decision batch event: %w", err)
	}

	log.Printf("Published decision batch event: batch=%s appended=%d",
		event.Data.BatchID, event.Data.Appended)
	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
