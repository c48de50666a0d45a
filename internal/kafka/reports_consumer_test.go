package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adverge/ppc-decision-engine/internal/models"
)

// ---------------------------------------------------------------------------
// Mock OptimizerRunner
// ---------------------------------------------------------------------------

type mockRunner struct {
	mu   sync.Mutex
	runs []string
	err  error
}

func (m *mockRunner) Run(ctx context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.runs = append(m.runs, accountID)
	return nil
}

func (m *mockRunner) Runs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]string, len(m.runs))
	copy(cp, m.runs)
	return cp
}

func reportEvent(accountID string, rows int) []byte {
	event := models.ReportIngestedEvent{
		EventType: "REPORT_INGESTED",
		Source:    "report-ingestion",
		Timestamp: time.Now().Format(time.RFC3339),
		Data: models.ReportIngestedEventData{
			AccountID:  accountID,
			ReportType: "search_term",
			RowCount:   rows,
		},
	}
	payload, _ := json.Marshal(event)
	return payload
}

// ---------------------------------------------------------------------------
// processMessage tests
// ---------------------------------------------------------------------------

func TestReportsConsumer_processMessage_ReportIngested(t *testing.T) {
	runner := &mockRunner{}
	consumer := &ReportsConsumer{runner: runner}

	err := consumer.processMessage(context.Background(), kafkago.Message{
		Value: reportEvent("acct-1", 420),
	})
	require.NoError(t, err)

	runs := runner.Runs()
	require.Len(t, runs, 1)
	assert.Equal(t, "acct-1", runs[0])
}

func TestReportsConsumer_processMessage_MissingAccountID(t *testing.T) {
	runner := &mockRunner{}
	consumer := &ReportsConsumer{runner: runner}

	err := consumer.processMessage(context.Background(), kafkago.Message{
		Value: reportEvent("", 10),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing account_id")
	assert.Empty(t, runner.Runs())
}

func TestReportsConsumer_processMessage_UnknownEventType(t *testing.T) {
	runner := &mockRunner{}
	consumer := &ReportsConsumer{runner: runner}

	event := models.ReportIngestedEvent{
		EventType: "TOTALLY_UNKNOWN",
		Data:      models.ReportIngestedEventData{AccountID: "acct-1"},
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	err = consumer.processMessage(context.Background(), kafkago.Message{Value: payload})
	require.NoError(t, err) // Unknown types are silently ignored
	assert.Empty(t, runner.Runs())
}

func TestReportsConsumer_processMessage_InvalidJSON(t *testing.T) {
	runner := &mockRunner{}
	consumer := &ReportsConsumer{runner: runner}

	err := consumer.processMessage(context.Background(), kafkago.Message{Value: []byte("{invalid")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
	assert.Empty(t, runner.Runs())
}

func TestReportsConsumer_processMessage_RunnerErrorPropagates(t *testing.T) {
	runner := &mockRunner{err: assert.AnError}
	consumer := &ReportsConsumer{runner: runner}

	err := consumer.processMessage(context.Background(), kafkago.Message{
		Value: reportEvent("acct-1", 5),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "optimizer run for acct-1")
}
