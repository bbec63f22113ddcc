// Package consumer applies the CMS sync stream to the discovery read model.
// Processing is idempotent behind a per-entity version gate: an envelope
// whose version is at or below the stored one is discarded, which makes
// at-least-once delivery safe.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/tariqnasser/airwave-backend/pkg/db/models"
	"github.com/tariqnasser/airwave-backend/pkg/enums"
	"github.com/tariqnasser/airwave-backend/pkg/events"
	"github.com/tariqnasser/airwave-backend/pkg/kafka"
	"github.com/tariqnasser/airwave-backend/pkg/logger"
	"github.com/tariqnasser/airwave-backend/pkg/metrics"
	"github.com/tariqnasser/airwave-backend/pkg/search"
)

type syncStore interface {
	ProgramVersion(ctx context.Context, id uuid.UUID) (int64, error)
	EpisodeVersion(ctx context.Context, id uuid.UUID) (int64, error)
	UpsertProgram(ctx context.Context, row *models.DiscoveryProgram) error
	DeleteProgram(ctx context.Context, id uuid.UUID) error
	UpsertEpisode(ctx context.Context, row *models.DiscoveryEpisode) error
	DeleteEpisode(ctx context.Context, id uuid.UUID) (uuid.UUID, bool, error)
	RecountEpisodes(ctx context.Context, programID uuid.UUID) error
	InsertSyncDeadLetter(ctx context.Context, row *models.SyncDeadLetter) error
}

type ServiceParams struct {
	Logger  *logger.Logger
	Store   syncStore
	Metrics *metrics.PipelineMetrics
}

type Service struct {
	logg    *logger.Logger
	store   syncStore
	metrics *metrics.PipelineMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	return &Service{
		logg:    params.Logger,
		store:   params.Store,
		metrics: params.Metrics,
	}, nil
}

// Handler adapts the service to the consumer group loop.
func (s *Service) Handler() kafka.HandlerFunc {
	return s.handleMessage
}

// handleMessage processes one message. A nil return commits the offset; a
// non-nil return leaves it uncommitted so the message is redelivered.
// Malformed messages are dead-lettered and committed, because redelivering
// them can never succeed.
func (s *Service) handleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	ctx = s.logg.WithTopic(ctx, msg.Topic)

	envelope, err := events.Decode(msg.Value)
	if err != nil {
		return s.deadLetter(ctx, msg, enums.DeadLetterMalformed, err)
	}

	ctx = s.logg.WithEntity(ctx, string(envelope.EntityType), envelope.EntityID.String())

	switch envelope.EntityType {
	case enums.EntityProgram:
		return s.applyProgram(ctx, msg, envelope)
	case enums.EntityEpisode:
		return s.applyEpisode(ctx, msg, envelope)
	default:
		// No read model for this entity kind yet. Commit and move on.
		s.logg.Debug(ctx, "no read model for entity, skipping")
		return nil
	}
}

func (s *Service) applyProgram(ctx context.Context, msg *sarama.ConsumerMessage, envelope *events.Envelope) error {
	stored, err := s.store.ProgramVersion(ctx, envelope.EntityID)
	if err != nil {
		return fmt.Errorf("load program version: %w", err)
	}
	if stored >= envelope.Version {
		s.logg.Debug(ctx, "stale program event discarded")
		s.metrics.IncDiscarded(string(enums.EntityProgram))
		return nil
	}

	started := time.Now()

	if s.isRemoval(envelope) {
		if err := s.store.DeleteProgram(ctx, envelope.EntityID); err != nil {
			return fmt.Errorf("delete program: %w", err)
		}
		s.applied(ctx, envelope, started)
		return nil
	}

	var projection events.ProgramProjection
	if err := json.Unmarshal(envelope.Data, &projection); err != nil {
		return s.deadLetter(ctx, msg, enums.DeadLetterNonRetryable, err)
	}
	if projection.ID != envelope.EntityID {
		return s.deadLetter(ctx, msg, enums.DeadLetterNonRetryable,
			fmt.Errorf("payload id %s does not match entity id %s", projection.ID, envelope.EntityID))
	}

	row := programRow(&projection, envelope.Version)
	if err := s.store.UpsertProgram(ctx, row); err != nil {
		return fmt.Errorf("upsert program: %w", err)
	}
	// The wire never carries episode counts; recompute from our own rows.
	if err := s.store.RecountEpisodes(ctx, row.ID); err != nil {
		return fmt.Errorf("recount episodes: %w", err)
	}

	s.applied(ctx, envelope, started)
	return nil
}

func (s *Service) applyEpisode(ctx context.Context, msg *sarama.ConsumerMessage, envelope *events.Envelope) error {
	stored, err := s.store.EpisodeVersion(ctx, envelope.EntityID)
	if err != nil {
		return fmt.Errorf("load episode version: %w", err)
	}
	if stored >= envelope.Version {
		s.logg.Debug(ctx, "stale episode event discarded")
		s.metrics.IncDiscarded(string(enums.EntityEpisode))
		return nil
	}

	started := time.Now()

	if s.isRemoval(envelope) {
		programID, existed, err := s.store.DeleteEpisode(ctx, envelope.EntityID)
		if err != nil {
			return fmt.Errorf("delete episode: %w", err)
		}
		if existed {
			if err := s.store.RecountEpisodes(ctx, programID); err != nil {
				return fmt.Errorf("recount episodes: %w", err)
			}
		}
		s.applied(ctx, envelope, started)
		return nil
	}

	var projection events.EpisodeProjection
	if err := json.Unmarshal(envelope.Data, &projection); err != nil {
		return s.deadLetter(ctx, msg, enums.DeadLetterNonRetryable, err)
	}
	if projection.ID != envelope.EntityID {
		return s.deadLetter(ctx, msg, enums.DeadLetterNonRetryable,
			fmt.Errorf("payload id %s does not match entity id %s", projection.ID, envelope.EntityID))
	}

	row := episodeRow(&projection, envelope.Version)
	if err := s.store.UpsertEpisode(ctx, row); err != nil {
		return fmt.Errorf("upsert episode: %w", err)
	}
	if err := s.store.RecountEpisodes(ctx, row.ProgramID); err != nil {
		return fmt.Errorf("recount episodes: %w", err)
	}

	s.applied(ctx, envelope, started)
	return nil
}

// isRemoval reports whether the envelope should remove the row. Null data
// and tombstone payloads both mean the entity is no longer public, whatever
// the event type says, so neither may ever be upserted.
func (s *Service) isRemoval(envelope *events.Envelope) bool {
	return envelope.EventType.IsRemoval() || !envelope.HasData() || envelope.IsTombstone()
}

func (s *Service) applied(ctx context.Context, envelope *events.Envelope, started time.Time) {
	s.metrics.IncApplied(string(envelope.EntityType), string(envelope.EventType))
	s.metrics.ObserveApplyDuration(string(envelope.EntityType), time.Since(started))
	s.logg.Debug(ctx, "sync event applied")
}

// deadLetter parks the raw message and returns nil so the offset commits.
// A failed insert returns the error instead: losing the message silently is
// worse than redelivering it.
func (s *Service) deadLetter(ctx context.Context, msg *sarama.ConsumerMessage, reason enums.DeadLetterReason, cause error) error {
	errMsg := cause.Error()
	row := &models.SyncDeadLetter{
		Topic:        msg.Topic,
		Partition:    msg.Partition,
		Offset:       msg.Offset,
		RawMessage:   msg.Value,
		Reason:       reason,
		ErrorMessage: &errMsg,
	}
	if err := s.store.InsertSyncDeadLetter(ctx, row); err != nil {
		return fmt.Errorf("insert sync dead letter: %w", err)
	}
	s.metrics.IncDeadLettered("sync", string(reason))
	s.logg.Warn(ctx, "message dead-lettered: "+errMsg)
	return nil
}

func programRow(projection *events.ProgramProjection, version int64) *models.DiscoveryProgram {
	publishedAt := time.Now().UTC()
	if projection.PublishedAt != nil {
		publishedAt = *projection.PublishedAt
	}
	return &models.DiscoveryProgram{
		ID:               projection.ID,
		PublisherID:      projection.PublisherID,
		PublisherName:    projection.PublisherName,
		Title:            projection.Title,
		TitleAr:          projection.TitleAr,
		Description:      optional(projection.Description),
		DescriptionAr:    projection.DescriptionAr,
		ShortDescription: projection.ShortDescription,
		Category:         projection.Category,
		Language:         projection.Language,
		Type:             projection.Type,
		Rating:           projection.Rating,
		ViewCount:        projection.ViewCount,
		ThumbnailURL:     projection.ThumbnailURL,
		CoverImageURL:    projection.CoverImageURL,
		Tags:             projection.Tags,
		IsFeatured:       projection.IsFeatured,
		PublishedAt:      publishedAt,
		LastUpdated:      time.Now().UTC(),
		SearchKeywords: search.ExtractKeywords(
			projection.Title,
			derefString(projection.TitleAr),
			projection.Description,
			derefString(projection.DescriptionAr),
			projection.PublisherName,
			projection.Category,
		),
		KafkaVersion: version,
		SyncedAt:     time.Now().UTC(),
	}
}

func episodeRow(projection *events.EpisodeProjection, version int64) *models.DiscoveryEpisode {
	publishDate := time.Now().UTC()
	if projection.PublishDate != nil {
		publishDate = *projection.PublishDate
	}
	seasonNumber := 1
	if projection.SeasonNumber != nil {
		seasonNumber = *projection.SeasonNumber
	}
	duration := projection.DurationSeconds
	episodeNumber := projection.EpisodeNumber
	return &models.DiscoveryEpisode{
		ID:                projection.ID,
		ProgramID:         projection.ProgramID,
		ProgramTitle:      projection.ProgramTitle,
		ProgramCategory:   projection.ProgramCategory,
		Title:             projection.Title,
		TitleAr:           projection.TitleAr,
		Description:       projection.Description,
		DescriptionAr:     projection.DescriptionAr,
		ProcessedMediaURL: projection.ProcessedMediaURL,
		DurationSeconds:   &duration,
		EpisodeNumber:     &episodeNumber,
		SeasonNumber:      seasonNumber,
		PublishDate:       publishDate,
		ViewCount:         projection.ViewCount,
		DownloadCount:     projection.DownloadCount,
		Tags:              projection.Tags,
		SearchKeywords: search.ExtractKeywords(
			projection.Title,
			derefString(projection.TitleAr),
			derefString(projection.Description),
			derefString(projection.DescriptionAr),
			projection.ProgramTitle,
		),
		KafkaVersion: version,
		SyncedAt:     time.Now().UTC(),
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
