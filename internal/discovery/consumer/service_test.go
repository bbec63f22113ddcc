package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/tariqnasser/airwave-backend/pkg/db/models"
	"github.com/tariqnasser/airwave-backend/pkg/enums"
	"github.com/tariqnasser/airwave-backend/pkg/events"
	"github.com/tariqnasser/airwave-backend/pkg/logger"
)

type fakeStore struct {
	programVersions map[uuid.UUID]int64
	episodeVersions map[uuid.UUID]int64
	// episodePrograms maps an episode id to its parent program for deletes.
	episodePrograms map[uuid.UUID]uuid.UUID

	upsertedPrograms []*models.DiscoveryProgram
	upsertedEpisodes []*models.DiscoveryEpisode
	deletedPrograms  []uuid.UUID
	deletedEpisodes  []uuid.UUID
	recounted        []uuid.UUID
	deadLetters      []*models.SyncDeadLetter

	upsertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		programVersions: map[uuid.UUID]int64{},
		episodeVersions: map[uuid.UUID]int64{},
		episodePrograms: map[uuid.UUID]uuid.UUID{},
	}
}

func (f *fakeStore) ProgramVersion(ctx context.Context, id uuid.UUID) (int64, error) {
	return f.programVersions[id], nil
}

func (f *fakeStore) EpisodeVersion(ctx context.Context, id uuid.UUID) (int64, error) {
	return f.episodeVersions[id], nil
}

func (f *fakeStore) UpsertProgram(ctx context.Context, row *models.DiscoveryProgram) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upsertedPrograms = append(f.upsertedPrograms, row)
	f.programVersions[row.ID] = row.KafkaVersion
	return nil
}

func (f *fakeStore) DeleteProgram(ctx context.Context, id uuid.UUID) error {
	f.deletedPrograms = append(f.deletedPrograms, id)
	delete(f.programVersions, id)
	return nil
}

func (f *fakeStore) UpsertEpisode(ctx context.Context, row *models.DiscoveryEpisode) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upsertedEpisodes = append(f.upsertedEpisodes, row)
	f.episodeVersions[row.ID] = row.KafkaVersion
	f.episodePrograms[row.ID] = row.ProgramID
	return nil
}

func (f *fakeStore) DeleteEpisode(ctx context.Context, id uuid.UUID) (uuid.UUID, bool, error) {
	programID, ok := f.episodePrograms[id]
	if !ok {
		return uuid.Nil, false, nil
	}
	f.deletedEpisodes = append(f.deletedEpisodes, id)
	delete(f.episodeVersions, id)
	delete(f.episodePrograms, id)
	return programID, true, nil
}

func (f *fakeStore) RecountEpisodes(ctx context.Context, programID uuid.UUID) error {
	f.recounted = append(f.recounted, programID)
	return nil
}

func (f *fakeStore) InsertSyncDeadLetter(ctx context.Context, row *models.SyncDeadLetter) error {
	f.deadLetters = append(f.deadLetters, row)
	return nil
}

func newTestService(t *testing.T, fs *fakeStore) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Store:  fs,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func message(t *testing.T, envelope *events.Envelope) *sarama.ConsumerMessage {
	t.Helper()
	raw, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return &sarama.ConsumerMessage{
		Topic:     "airwave.cms.programs",
		Partition: 1,
		Offset:    42,
		Key:       []byte(envelope.EntityID.String()),
		Value:     raw,
	}
}

func programEnvelope(t *testing.T, id uuid.UUID, version int64, eventType enums.EventType, data any) *events.Envelope {
	t.Helper()
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			t.Fatalf("marshal data: %v", err)
		}
		raw = b
	}
	return &events.Envelope{
		EventID:    uuid.New(),
		EventType:  eventType,
		EntityType: enums.EntityProgram,
		EntityID:   id,
		Version:    version,
		Timestamp:  time.Now().UTC(),
		Source:     enums.SourceCMS,
		Data:       raw,
	}
}

func TestMalformedMessageIsDeadLetteredAndCommitted(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(t, fs)

	msg := &sarama.ConsumerMessage{
		Topic:     "airwave.cms.programs",
		Partition: 0,
		Offset:    7,
		Value:     []byte("{not json"),
	}

	if err := svc.Handler()(context.Background(), msg); err != nil {
		t.Fatalf("expected commit, got %v", err)
	}
	if len(fs.deadLetters) != 1 {
		t.Fatalf("expected 1 dead letter, got %d", len(fs.deadLetters))
	}
	dl := fs.deadLetters[0]
	if dl.Reason != enums.DeadLetterMalformed {
		t.Fatalf("reason = %q", dl.Reason)
	}
	if dl.Offset != 7 || dl.Partition != 0 {
		t.Fatalf("wrong coordinates: partition=%d offset=%d", dl.Partition, dl.Offset)
	}
	if string(dl.RawMessage) != "{not json" {
		t.Fatalf("raw message not preserved")
	}
}

func TestStaleVersionIsDiscarded(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(t, fs)

	id := uuid.New()
	fs.programVersions[id] = 5

	projection := events.ProgramProjection{ID: id, Title: "old", Description: "old", Category: "news"}
	envelope := programEnvelope(t, id, 5, enums.EventUpdated, projection)

	if err := svc.Handler()(context.Background(), message(t, envelope)); err != nil {
		t.Fatalf("expected commit, got %v", err)
	}
	if len(fs.upsertedPrograms) != 0 {
		t.Fatal("stale event must not be applied")
	}
	if len(fs.deadLetters) != 0 {
		t.Fatal("version discards are not dead letters")
	}
}

func TestPublishedProgramIsUpserted(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(t, fs)

	id := uuid.New()
	projection := events.ProgramProjection{
		ID:            id,
		PublisherID:   uuid.New(),
		PublisherName: "Sahara Media",
		Title:         "Desert Histories",
		Description:   "Long form documentary series",
		Category:      "history",
		Language:      "ar",
		Type:          "documentary",
	}
	envelope := programEnvelope(t, id, 3, enums.EventPublished, projection)

	if err := svc.Handler()(context.Background(), message(t, envelope)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(fs.upsertedPrograms) != 1 {
		t.Fatalf("expected upsert, got %d", len(fs.upsertedPrograms))
	}
	row := fs.upsertedPrograms[0]
	if row.KafkaVersion != 3 {
		t.Fatalf("kafka version = %d", row.KafkaVersion)
	}
	if len(row.SearchKeywords) == 0 {
		t.Fatal("search keywords must be extracted")
	}
	if len(fs.recounted) != 1 || fs.recounted[0] != id {
		t.Fatal("episode count must be recomputed after program upsert")
	}
}

func TestNullDataRemovesProgram(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(t, fs)

	id := uuid.New()
	fs.programVersions[id] = 2

	envelope := programEnvelope(t, id, 3, enums.EventUpdated, nil)

	if err := svc.Handler()(context.Background(), message(t, envelope)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(fs.deletedPrograms) != 1 || fs.deletedPrograms[0] != id {
		t.Fatal("null data must remove the program row")
	}
}

func TestTombstoneDataOnUpdateRemovesProgram(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(t, fs)

	id := uuid.New()
	envelope := programEnvelope(t, id, 1, enums.EventUpdated, events.Tombstone{ID: id, Deleted: true})

	if err := svc.Handler()(context.Background(), message(t, envelope)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(fs.upsertedPrograms) != 0 {
		t.Fatalf("tombstone data must never be upserted, got %+v", fs.upsertedPrograms[0])
	}
	if len(fs.deletedPrograms) != 1 || fs.deletedPrograms[0] != id {
		t.Fatal("tombstone data must remove the program row")
	}
}

func TestTombstoneRemovesEpisodeAndRecounts(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(t, fs)

	episodeID := uuid.New()
	programID := uuid.New()
	fs.episodeVersions[episodeID] = 1
	fs.episodePrograms[episodeID] = programID

	envelope := &events.Envelope{
		EventID:    uuid.New(),
		EventType:  enums.EventDeleted,
		EntityType: enums.EntityEpisode,
		EntityID:   episodeID,
		Version:    2,
		Timestamp:  time.Now().UTC(),
		Source:     enums.SourceCMS,
		Data:       mustMarshal(t, events.Tombstone{ID: episodeID, Deleted: true}),
	}

	if err := svc.Handler()(context.Background(), message(t, envelope)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(fs.deletedEpisodes) != 1 {
		t.Fatal("episode must be deleted")
	}
	if len(fs.recounted) != 1 || fs.recounted[0] != programID {
		t.Fatal("parent program must be recounted after episode delete")
	}
}

func TestDeletingMissingEpisodeIsIdempotent(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(t, fs)

	envelope := &events.Envelope{
		EventID:    uuid.New(),
		EventType:  enums.EventDeleted,
		EntityType: enums.EntityEpisode,
		EntityID:   uuid.New(),
		Version:    1,
		Timestamp:  time.Now().UTC(),
		Source:     enums.SourceCMS,
		Data:       mustMarshal(t, events.Tombstone{Deleted: true}),
	}

	if err := svc.Handler()(context.Background(), message(t, envelope)); err != nil {
		t.Fatalf("expected commit, got %v", err)
	}
	if len(fs.recounted) != 0 {
		t.Fatal("no recount when nothing was deleted")
	}
}

func TestPayloadEntityMismatchIsDeadLettered(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(t, fs)

	id := uuid.New()
	projection := events.ProgramProjection{ID: uuid.New(), Title: "t", Description: "d", Category: "c"}
	envelope := programEnvelope(t, id, 1, enums.EventPublished, projection)

	if err := svc.Handler()(context.Background(), message(t, envelope)); err != nil {
		t.Fatalf("expected commit, got %v", err)
	}
	if len(fs.deadLetters) != 1 || fs.deadLetters[0].Reason != enums.DeadLetterNonRetryable {
		t.Fatal("id mismatch must dead-letter as non-retryable")
	}
	if len(fs.upsertedPrograms) != 0 {
		t.Fatal("mismatched payload must not be applied")
	}
}

func TestStoreErrorForcesRedelivery(t *testing.T) {
	fs := newFakeStore()
	fs.upsertErr = errors.New("connection reset")
	svc := newTestService(t, fs)

	id := uuid.New()
	projection := events.ProgramProjection{ID: id, Title: "t", Description: "d", Category: "c"}
	envelope := programEnvelope(t, id, 1, enums.EventPublished, projection)

	if err := svc.Handler()(context.Background(), message(t, envelope)); err == nil {
		t.Fatal("store errors must propagate so the offset is not committed")
	}
	if len(fs.deadLetters) != 0 {
		t.Fatal("transient store errors are not dead letters")
	}
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}
