package sweeper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tariqnasser/airwave-backend/pkg/config"
	"github.com/tariqnasser/airwave-backend/pkg/db/models"
	"github.com/tariqnasser/airwave-backend/pkg/enums"
	"github.com/tariqnasser/airwave-backend/pkg/events"
	"github.com/tariqnasser/airwave-backend/pkg/kafka"
	"github.com/tariqnasser/airwave-backend/pkg/logger"
)

func newTestService(t *testing.T, repo *fakeRepo, dlq *fakeDLQ, brk *fakeBroker) *Service {
	t.Helper()
	cfg := &config.Config{}
	cfg.Outbox.SweepInterval = time.Second
	cfg.Outbox.SweepBatch = 10
	cfg.Outbox.MaxRetries = 3
	cfg.Outbox.PendingGrace = 5 * time.Minute

	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:         &fakeDB{},
		Repository: repo,
		DLQ:        dlq,
		Broker:     brk,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

func outboxRow(retryCount int) models.OutboxEvent {
	return models.OutboxEvent{
		ID:           uuid.New(),
		EntityType:   enums.EntityProgram,
		EntityID:     uuid.New(),
		EventType:    enums.EventPublished,
		Topic:        events.TopicPrograms,
		PartitionKey: "key",
		Version:      7,
		Payload:      json.RawMessage(`{"version":7}`),
		Status:       enums.OutboxFailed,
		RetryCount:   retryCount,
	}
}

func TestSweepReplaysFailedRowVerbatim(t *testing.T) {
	row := outboxRow(1)
	repo := &fakeRepo{rows: []models.OutboxEvent{row}}
	brk := &fakeBroker{}
	service := newTestService(t, repo, &fakeDLQ{}, brk)

	if err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}

	if len(brk.sent) != 1 {
		t.Fatalf("expected one send, got %d", len(brk.sent))
	}
	if !bytes.Equal(brk.sent[0].value, row.Payload) {
		t.Fatalf("payload was not resent verbatim")
	}
	if brk.sent[0].key != "key" {
		t.Fatalf("partition key changed on replay")
	}
	if len(repo.sent) != 1 || repo.sent[0] != row.ID {
		t.Fatalf("row was not marked sent")
	}
}

func TestSweepMarksFailedBelowRetryBudget(t *testing.T) {
	row := outboxRow(0)
	repo := &fakeRepo{rows: []models.OutboxEvent{row}}
	brk := &fakeBroker{err: errors.New("still down")}
	dlq := &fakeDLQ{}
	service := newTestService(t, repo, dlq, brk)

	if err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}

	if len(repo.failed) != 1 || repo.failed[0] != row.ID {
		t.Fatalf("row was not marked failed")
	}
	if len(dlq.entries) != 0 {
		t.Fatalf("row should not be dead lettered yet")
	}
	if len(repo.deleted) != 0 {
		t.Fatalf("row should not be deleted")
	}
}

func TestSweepMovesExhaustedRowToDeadLetter(t *testing.T) {
	row := outboxRow(2) // third failure hits the budget of 3
	repo := &fakeRepo{rows: []models.OutboxEvent{row}}
	brk := &fakeBroker{err: errors.New("broker gone")}
	dlq := &fakeDLQ{}
	service := newTestService(t, repo, dlq, brk)

	if err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}

	if len(dlq.entries) != 1 {
		t.Fatalf("expected one dead letter entry, got %d", len(dlq.entries))
	}
	entry := dlq.entries[0]
	if entry.OutboxID != row.ID {
		t.Fatalf("dead letter references wrong row")
	}
	if entry.Reason != enums.DeadLetterMaxRetries {
		t.Fatalf("unexpected reason %q", entry.Reason)
	}
	if !bytes.Equal(entry.Payload, row.Payload) {
		t.Fatalf("dead letter lost the payload")
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != row.ID {
		t.Fatalf("exhausted row was not removed from the outbox")
	}
	if len(repo.failed) != 0 {
		t.Fatalf("exhausted row should not be marked failed")
	}
}

func TestSweepContinuesAfterMixedResults(t *testing.T) {
	bad := outboxRow(0)
	good := outboxRow(1)
	repo := &fakeRepo{rows: []models.OutboxEvent{bad, good}}
	brk := &fakeBroker{failFirst: errors.New("transient")}
	service := newTestService(t, repo, &fakeDLQ{}, brk)

	if err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}

	if len(repo.failed) != 1 || repo.failed[0] != bad.ID {
		t.Fatalf("transient row was not marked failed")
	}
	if len(repo.sent) != 1 || repo.sent[0] != good.ID {
		t.Fatalf("healthy row was not replayed")
	}
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error { return nil }

func (f *fakeDB) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeRepo struct {
	rows    []models.OutboxEvent
	sent    []uuid.UUID
	failed  []uuid.UUID
	deleted []uuid.UUID
}

func (f *fakeRepo) FetchRetryableTx(tx *gorm.DB, limit, maxRetries int, pendingGrace time.Duration) ([]models.OutboxEvent, error) {
	return f.rows, nil
}

func (f *fakeRepo) MarkSentTx(tx *gorm.DB, id uuid.UUID) error {
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, cause error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRepo) StatusCounts(ctx context.Context) (map[enums.OutboxStatus]int64, error) {
	return nil, nil
}

func (f *fakeRepo) DeleteSentBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type fakeDLQ struct {
	entries []models.OutboxDeadLetter
}

func (f *fakeDLQ) InsertTx(tx *gorm.DB, entry models.OutboxDeadLetter) error {
	f.entries = append(f.entries, entry)
	return nil
}

type sentMessage struct {
	topic string
	key   string
	value []byte
}

type fakeBroker struct {
	sent      []sentMessage
	err       error
	failFirst error
	calls     int
}

func (f *fakeBroker) SendMessage(topic, key string, value []byte, headers []kafka.Header) (int32, int64, error) {
	f.calls++
	if f.err != nil {
		return 0, 0, f.err
	}
	if f.failFirst != nil && f.calls == 1 {
		return 0, 0, f.failFirst
	}
	f.sent = append(f.sent, sentMessage{topic: topic, key: key, value: value})
	return 0, int64(len(f.sent)), nil
}

func (f *fakeBroker) Ping(context.Context) error { return nil }
