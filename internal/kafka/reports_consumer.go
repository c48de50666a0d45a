package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/adverge/ppc-decision-engine/internal/metrics"
	"github.com/adverge/ppc-decision-engine/internal/models"
	"github.com/segmentio/kafka-go"
)

// OptimizerRunner triggers a decision run for an account.
type OptimizerRunner interface {
	Run(ctx context.Context, accountID string) error
}

// ReportsConsumer consumes report-ingested events and kicks off an optimizer
// run for the affected account.
type ReportsConsumer struct {
	reader *kafka.Reader
	runner OptimizerRunner
}

// NewReportsConsumer creates a new Kafka consumer for report events
func NewReportsConsumer(brokers []string, topic, groupID string, runner OptimizerRunner) *ReportsConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID + "-reports",
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &ReportsConsumer{
		reader: reader,
		runner: runner,
	}
}

// Start begins consuming messages from Kafka
func (c *ReportsConsumer) Start(ctx context.Context) error {
	log.Printf("Starting reports consumer for topic: %s", c.reader.Config().Topic)

	for {
		select {
		case <-ctx.Done():
			log.Println("Reports consumer shutting down...")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // Context cancelled, normal shutdown
				}
				log.Printf("Error reading report message: %v", err)
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				log.Printf("Error processing report message: %v", err)
				// Continue processing other messages
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *ReportsConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	log.Printf("Received report message from partition %d offset %d: key=%s",
		msg.Partition, msg.Offset, string(msg.Key))

	var event models.ReportIngestedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal report event: %w", err)
	}

	switch event.EventType {
	case "REPORT_INGESTED":
		return c.handleReportIngested(ctx, event)
	default:
		log.Printf("Ignoring unknown report event type: %s", event.EventType)
		return nil
	}
}

// handleReportIngested runs the optimizer for the account the report covered.
func (c *ReportsConsumer) handleReportIngested(ctx context.Context, event models.ReportIngestedEvent) error {
	accountID := event.Data.AccountID
	if accountID == "" {
		return fmt.Errorf("report event missing account_id")
	}
	metrics.ReportsConsumed.Inc()

	log.Printf("Report ingested for account %s (%d rows), starting optimizer run",
		accountID, event.Data.RowCount)

	if err := c.runner.Run(ctx, accountID); err != nil {
		return fmt.Errorf("optimizer run for %s: %w", accountID, err)
	}
	return nil
}

// Close closes the Kafka consumer
func (c *ReportsConsumer) Close() error {
	return c.reader.Close()
}
