// Package producer stages envelopes in the outbox and pushes them to the
// broker. Staging happens inside the caller's domain transaction; sending
// happens after commit and is best effort, the sweeper picks up the rest.
package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tariqnasser/airwave-backend/pkg/db/models"
	"github.com/tariqnasser/airwave-backend/pkg/enums"
	"github.com/tariqnasser/airwave-backend/pkg/events"
	"github.com/tariqnasser/airwave-backend/pkg/kafka"
	"github.com/tariqnasser/airwave-backend/pkg/logger"
	"github.com/tariqnasser/airwave-backend/pkg/metrics"
)

type outboxRepository interface {
	Insert(tx *gorm.DB, event *models.OutboxEvent) error
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause error) error
	StatusCounts(ctx context.Context) (map[enums.OutboxStatus]int64, error)
}

type broker interface {
	SendMessage(topic, key string, value []byte, headers []kafka.Header) (int32, int64, error)
	Ping(ctx context.Context) error
}

type ServiceParams struct {
	Logger     *logger.Logger
	Repository outboxRepository
	Broker     broker
	Metrics    *metrics.PipelineMetrics
}

type Service struct {
	logg    *logger.Logger
	repo    outboxRepository
	broker  broker
	metrics *metrics.PipelineMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.Broker == nil {
		return nil, errors.New("broker is required")
	}
	return &Service{
		logg:    params.Logger,
		repo:    params.Repository,
		broker:  params.Broker,
		metrics: params.Metrics,
	}, nil
}

// StageInput describes one domain mutation to turn into an envelope.
// Version must come from the entity's sync_version counter, already
// incremented inside the same transaction.
type StageInput struct {
	EventType    enums.EventType
	EntityType   enums.EntityType
	EntityID     uuid.UUID
	Version      int64
	PartitionKey string
	Data         json.RawMessage
	Metadata     *events.Metadata
}

// Stage builds the envelope and writes the outbox row inside tx. The row
// commits or rolls back together with the domain write.
func (s *Service) Stage(ctx context.Context, tx *gorm.DB, input StageInput) (*models.OutboxEvent, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	if input.PartitionKey == "" {
		return nil, errors.New("partition key is required")
	}

	topic, err := events.TopicFor(input.EntityType)
	if err != nil {
		return nil, err
	}

	envelope := events.Envelope{
		EventID:    uuid.New(),
		EventType:  input.EventType,
		EntityType: input.EntityType,
		EntityID:   input.EntityID,
		Version:    input.Version,
		Timestamp:  time.Now().UTC(),
		Source:     enums.SourceCMS,
		Data:       input.Data,
		Metadata:   input.Metadata,
	}
	if err := envelope.Validate(); err != nil {
		return nil, fmt.Errorf("staging envelope: %w", err)
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}

	row := models.OutboxEvent{
		EntityType:   input.EntityType,
		EntityID:     input.EntityID,
		EventType:    input.EventType,
		Topic:        topic,
		PartitionKey: input.PartitionKey,
		Version:      input.Version,
		Payload:      payload,
		Status:       enums.OutboxPending,
	}
	if err := s.repo.Insert(tx, &row); err != nil {
		return nil, fmt.Errorf("insert outbox row: %w", err)
	}

	logCtx := s.logg.WithEntity(ctx, string(input.EntityType), input.EntityID.String())
	logCtx = s.logg.WithField(logCtx, "event_type", input.EventType)
	logCtx = s.logg.WithField(logCtx, "version", input.Version)
	s.logg.Info(logCtx, "outbox event staged")

	return &row, nil
}

// Publish sends one staged row to the broker and updates its status. Errors
// are logged and absorbed: the domain write already committed, and the
// sweeper replays failed rows.
func (s *Service) Publish(ctx context.Context, row *models.OutboxEvent) {
	if row == nil {
		return
	}
	logCtx := s.logg.WithTopic(ctx, row.Topic)
	logCtx = s.logg.WithEntity(logCtx, string(row.EntityType), row.EntityID.String())
	logCtx = s.logg.WithField(logCtx, "outbox_id", row.ID.String())
	logCtx = s.logg.WithField(logCtx, "version", row.Version)

	partition, offset, err := s.broker.SendMessage(row.Topic, row.PartitionKey, row.Payload, Headers(row))
	if err != nil {
		s.metrics.IncPublishFailure(string(row.EntityType))
		s.logg.Error(logCtx, "publish failed, row left for sweeper", err)
		if markErr := s.repo.MarkFailed(ctx, row.ID, err); markErr != nil {
			s.logg.Error(logCtx, "marking outbox row failed", markErr)
		}
		return
	}

	if markErr := s.repo.MarkSent(ctx, row.ID); markErr != nil {
		// The send succeeded; the sweeper will replay this row and the
		// consumer's version gate will discard the duplicate.
		s.logg.Error(logCtx, "marking outbox row sent", markErr)
		return
	}

	s.metrics.IncPublished(string(row.EntityType), string(row.EventType))
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"partition": partition,
		"offset":    offset,
	})
	s.logg.Info(logCtx, "event published")
}

// Headers builds the wire headers mirrored from the envelope body.
func Headers(row *models.OutboxEvent) []kafka.Header {
	return []kafka.Header{
		{Key: events.HeaderEventType, Value: string(row.EventType)},
		{Key: events.HeaderEntityType, Value: string(row.EntityType)},
		{Key: events.HeaderSource, Value: string(enums.SourceCMS)},
		{Key: events.HeaderVersion, Value: strconv.FormatInt(row.Version, 10)},
	}
}

// RefreshOutboxGauge pushes current outbox row counts into the metrics
// registry. Called periodically by the sweeper.
func (s *Service) RefreshOutboxGauge(ctx context.Context) error {
	counts, err := s.repo.StatusCounts(ctx)
	if err != nil {
		return err
	}
	for _, status := range []enums.OutboxStatus{enums.OutboxPending, enums.OutboxSent, enums.OutboxFailed} {
		s.metrics.SetOutboxRows(string(status), counts[status])
	}
	return nil
}

// Ping verifies the broker connection for readiness checks.
func (s *Service) Ping(ctx context.Context) error {
	return s.broker.Ping(ctx)
}
