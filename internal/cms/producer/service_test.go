package producer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tariqnasser/airwave-backend/pkg/db/models"
	"github.com/tariqnasser/airwave-backend/pkg/enums"
	"github.com/tariqnasser/airwave-backend/pkg/events"
	"github.com/tariqnasser/airwave-backend/pkg/kafka"
	"github.com/tariqnasser/airwave-backend/pkg/logger"
)

func newTestService(t *testing.T, repo *fakeRepo, brk *fakeBroker) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Repository: repo,
		Broker:     brk,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

func TestStageWritesOutboxRow(t *testing.T) {
	repo := &fakeRepo{}
	service := newTestService(t, repo, &fakeBroker{})
	programID := uuid.New()

	row, err := service.Stage(context.Background(), &gorm.DB{}, StageInput{
		EventType:    enums.EventPublished,
		EntityType:   enums.EntityProgram,
		EntityID:     programID,
		Version:      3,
		PartitionKey: events.ProgramPartitionKey(programID),
		Data:         json.RawMessage(`{"id":"` + programID.String() + `"}`),
	})
	if err != nil {
		t.Fatalf("stage returned error: %v", err)
	}

	if len(repo.inserted) != 1 {
		t.Fatalf("expected one inserted row, got %d", len(repo.inserted))
	}
	if row.Topic != events.TopicPrograms {
		t.Fatalf("unexpected topic %q", row.Topic)
	}
	if row.PartitionKey != programID.String() {
		t.Fatalf("unexpected partition key %q", row.PartitionKey)
	}
	if row.Status != enums.OutboxPending {
		t.Fatalf("expected pending status, got %q", row.Status)
	}

	var envelope events.Envelope
	if err := json.Unmarshal(row.Payload, &envelope); err != nil {
		t.Fatalf("payload is not an envelope: %v", err)
	}
	if envelope.Version != 3 {
		t.Fatalf("unexpected envelope version %d", envelope.Version)
	}
	if envelope.Source != enums.SourceCMS {
		t.Fatalf("unexpected source %q", envelope.Source)
	}
	if envelope.EventID == uuid.Nil {
		t.Fatalf("event id was not assigned")
	}
}

func TestStageRequiresPartitionKey(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakeBroker{})

	_, err := service.Stage(context.Background(), &gorm.DB{}, StageInput{
		EventType:  enums.EventCreated,
		EntityType: enums.EntityProgram,
		EntityID:   uuid.New(),
		Version:    1,
	})
	if err == nil {
		t.Fatalf("expected error for missing partition key")
	}
}

func TestStageRejectsInvalidVersion(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakeBroker{})

	_, err := service.Stage(context.Background(), &gorm.DB{}, StageInput{
		EventType:    enums.EventCreated,
		EntityType:   enums.EntityProgram,
		EntityID:     uuid.New(),
		Version:      0,
		PartitionKey: "key",
	})
	if err == nil {
		t.Fatalf("expected error for zero version")
	}
}

func TestPublishMarksSentOnSuccess(t *testing.T) {
	repo := &fakeRepo{}
	brk := &fakeBroker{}
	service := newTestService(t, repo, brk)

	row := &models.OutboxEvent{
		ID:           uuid.New(),
		EntityType:   enums.EntityProgram,
		EntityID:     uuid.New(),
		EventType:    enums.EventPublished,
		Topic:        events.TopicPrograms,
		PartitionKey: "key",
		Version:      1,
		Payload:      json.RawMessage(`{}`),
	}
	service.Publish(context.Background(), row)

	if len(brk.sent) != 1 {
		t.Fatalf("expected one send, got %d", len(brk.sent))
	}
	if len(repo.sent) != 1 || repo.sent[0] != row.ID {
		t.Fatalf("row was not marked sent")
	}
	if len(repo.failed) != 0 {
		t.Fatalf("row should not be marked failed")
	}

	headers := brk.sent[0].headers
	if len(headers) != 4 {
		t.Fatalf("expected 4 headers, got %d", len(headers))
	}
	if headers[0].Key != events.HeaderEventType || headers[0].Value != "published" {
		t.Fatalf("unexpected event type header %+v", headers[0])
	}
}

func TestPublishMarksFailedOnBrokerError(t *testing.T) {
	repo := &fakeRepo{}
	brk := &fakeBroker{err: errors.New("broker unreachable")}
	service := newTestService(t, repo, brk)

	row := &models.OutboxEvent{
		ID:           uuid.New(),
		EntityType:   enums.EntityEpisode,
		EntityID:     uuid.New(),
		EventType:    enums.EventUpdated,
		Topic:        events.TopicEpisodes,
		PartitionKey: "key",
		Version:      2,
		Payload:      json.RawMessage(`{}`),
	}
	service.Publish(context.Background(), row)

	if len(repo.failed) != 1 || repo.failed[0] != row.ID {
		t.Fatalf("row was not marked failed")
	}
	if len(repo.sent) != 0 {
		t.Fatalf("row should not be marked sent")
	}
}

type sentMessage struct {
	topic   string
	key     string
	value   []byte
	headers []kafka.Header
}

type fakeBroker struct {
	sent []sentMessage
	err  error
}

func (f *fakeBroker) SendMessage(topic, key string, value []byte, headers []kafka.Header) (int32, int64, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	f.sent = append(f.sent, sentMessage{topic: topic, key: key, value: value, headers: headers})
	return 0, int64(len(f.sent)), nil
}

func (f *fakeBroker) Ping(context.Context) error { return nil }

type fakeRepo struct {
	inserted []models.OutboxEvent
	sent     []uuid.UUID
	failed   []uuid.UUID
	counts   map[enums.OutboxStatus]int64
}

func (f *fakeRepo) Insert(tx *gorm.DB, event *models.OutboxEvent) error {
	f.inserted = append(f.inserted, *event)
	return nil
}

func (f *fakeRepo) MarkSent(ctx context.Context, id uuid.UUID) error {
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeRepo) MarkFailed(ctx context.Context, id uuid.UUID, cause error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) StatusCounts(ctx context.Context) (map[enums.OutboxStatus]int64, error) {
	return f.counts, nil
}
