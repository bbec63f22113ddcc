// Package episodes implements episode management on the CMS side. Episode
// events are keyed by the parent program id so a program and all of its
// episodes flow through a single partition in order.
package episodes

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tariqnasser/airwave-backend/internal/cms/producer"
	"github.com/tariqnasser/airwave-backend/pkg/db"
	"github.com/tariqnasser/airwave-backend/pkg/db/models"
	"github.com/tariqnasser/airwave-backend/pkg/enums"
	pkgerrors "github.com/tariqnasser/airwave-backend/pkg/errors"
	"github.com/tariqnasser/airwave-backend/pkg/events"
)

// Service exposes episode management operations.
type Service interface {
	Create(ctx context.Context, input CreateEpisodeInput) (*EpisodeDTO, error)
	Update(ctx context.Context, episodeID uuid.UUID, input UpdateEpisodeInput) (*EpisodeDTO, error)
	Publish(ctx context.Context, episodeID uuid.UUID) (*EpisodeDTO, error)
	Unpublish(ctx context.Context, episodeID uuid.UUID) (*EpisodeDTO, error)
	Delete(ctx context.Context, episodeID uuid.UUID) error
	Resync(ctx context.Context, episodeID uuid.UUID) error
	Get(ctx context.Context, episodeID uuid.UUID) (*EpisodeDTO, error)
	List(ctx context.Context, filter ListFilter) (*EpisodeListResult, error)
}

// CreateEpisodeInput holds the validated payload to create an episode.
// Episodes are always born as drafts.
type CreateEpisodeInput struct {
	ProgramID        uuid.UUID
	Title            string
	TitleAr          *string
	Description      *string
	DescriptionAr    *string
	DurationSeconds  int
	EpisodeNumber    int
	SeasonNumber     *int
	OriginalMediaURL *string
	ThumbnailURL     *string
	Tags             []string
}

// UpdateEpisodeInput holds optional mutation values for an episode.
type UpdateEpisodeInput struct {
	Title             *string
	TitleAr           *string
	Description       *string
	DescriptionAr     *string
	DurationSeconds   *int
	EpisodeNumber     *int
	SeasonNumber      *int
	OriginalMediaURL  *string
	ProcessedMediaURL *string
	ThumbnailURL      *string
	Tags              *[]string
}

type txRunner interface {
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type eventStager interface {
	Stage(ctx context.Context, tx *gorm.DB, input producer.StageInput) (*models.OutboxEvent, error)
	Publish(ctx context.Context, row *models.OutboxEvent)
}

type service struct {
	repo     *Repository
	dbClient txRunner
	stager   eventStager
}

// NewService constructs an episode service instance.
func NewService(repo *Repository, dbClient txRunner, stager eventStager) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("episode repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if stager == nil {
		return nil, fmt.Errorf("event stager required")
	}
	return &service{repo: repo, dbClient: dbClient, stager: stager}, nil
}

func (s *service) Create(ctx context.Context, input CreateEpisodeInput) (*EpisodeDTO, error) {
	if input.Title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if input.DurationSeconds <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "duration must be positive")
	}
	if input.EpisodeNumber <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "episode number must be positive")
	}

	program, err := s.repo.FindProgram(ctx, input.ProgramID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load program")
	}
	if program == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "program not found")
	}

	var created *models.Episode
	var staged *models.OutboxEvent
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		episode := &models.Episode{
			ProgramID:        input.ProgramID,
			Title:            input.Title,
			TitleAr:          input.TitleAr,
			Description:      input.Description,
			DescriptionAr:    input.DescriptionAr,
			DurationSeconds:  input.DurationSeconds,
			EpisodeNumber:    input.EpisodeNumber,
			SeasonNumber:     input.SeasonNumber,
			Status:           enums.ContentDraft,
			OriginalMediaURL: input.OriginalMediaURL,
			ThumbnailURL:     input.ThumbnailURL,
			Tags:             input.Tags,
		}
		if _, err := txRepo.Create(ctx, episode); err != nil {
			if db.IsUniqueViolation(err, "uq_episodes_program_season_number") {
				return pkgerrors.New(pkgerrors.CodeConflict, "episode number already used in this season")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert episode")
		}
		created = episode

		if err := txRepo.RefreshProgramEpisodeCount(ctx, input.ProgramID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: refresh episode count")
		}

		row, err := s.stageEpisodeEvent(ctx, tx, txRepo, episode, program, enums.EventCreated)
		if err != nil {
			return err
		}
		staged = row
		return nil
	})
	if err != nil {
		return nil, liftError(err, "create episode")
	}

	s.stager.Publish(ctx, staged)
	created.Program = program
	return NewEpisodeDTO(created), nil
}

func (s *service) Update(ctx context.Context, episodeID uuid.UUID, input UpdateEpisodeInput) (*EpisodeDTO, error) {
	episode, err := s.loadEpisode(ctx, episodeID)
	if err != nil {
		return nil, err
	}

	applyEpisodeUpdate(episode, input)

	var staged *models.OutboxEvent
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Save(ctx, episode); err != nil {
			if db.IsUniqueViolation(err, "uq_episodes_program_season_number") {
				return pkgerrors.New(pkgerrors.CodeConflict, "episode number already used in this season")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update episode")
		}
		row, err := s.stageEpisodeEvent(ctx, tx, txRepo, episode, episode.Program, enums.EventUpdated)
		if err != nil {
			return err
		}
		staged = row
		return nil
	})
	if err != nil {
		return nil, liftError(err, "update episode")
	}

	s.stager.Publish(ctx, staged)
	return NewEpisodeDTO(episode), nil
}

func (s *service) Publish(ctx context.Context, episodeID uuid.UUID) (*EpisodeDTO, error) {
	episode, err := s.loadEpisode(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	if episode.Status == enums.ContentPublished {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "episode is already published")
	}
	if episode.ProcessedMediaURL == nil && episode.OriginalMediaURL == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "episode has no media to publish")
	}

	now := time.Now().UTC()
	episode.Status = enums.ContentPublished
	if episode.PublishDate == nil {
		episode.PublishDate = &now
	}

	var staged *models.OutboxEvent
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Save(ctx, episode); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: publish episode")
		}
		row, err := s.stageEpisodeEvent(ctx, tx, txRepo, episode, episode.Program, enums.EventPublished)
		if err != nil {
			return err
		}
		staged = row
		return nil
	})
	if err != nil {
		return nil, liftError(err, "publish episode")
	}

	s.stager.Publish(ctx, staged)
	return NewEpisodeDTO(episode), nil
}

func (s *service) Unpublish(ctx context.Context, episodeID uuid.UUID) (*EpisodeDTO, error) {
	episode, err := s.loadEpisode(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	if episode.Status != enums.ContentPublished {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "episode is not published")
	}

	episode.Status = enums.ContentDraft

	var staged *models.OutboxEvent
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Save(ctx, episode); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: unpublish episode")
		}
		row, err := s.stageEpisodeEvent(ctx, tx, txRepo, episode, episode.Program, enums.EventUnpublished)
		if err != nil {
			return err
		}
		staged = row
		return nil
	})
	if err != nil {
		return nil, liftError(err, "unpublish episode")
	}

	s.stager.Publish(ctx, staged)
	return NewEpisodeDTO(episode), nil
}

func (s *service) Delete(ctx context.Context, episodeID uuid.UUID) error {
	episode, err := s.loadEpisode(ctx, episodeID)
	if err != nil {
		return err
	}

	var staged *models.OutboxEvent
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		// Stage before delete so the version counter is still there to bump.
		row, err := s.stageEpisodeEvent(ctx, tx, txRepo, episode, episode.Program, enums.EventDeleted)
		if err != nil {
			return err
		}
		staged = row
		if err := txRepo.Delete(ctx, episode.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete episode")
		}
		if err := txRepo.RefreshProgramEpisodeCount(ctx, episode.ProgramID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: refresh episode count")
		}
		return nil
	})
	if err != nil {
		return liftError(err, "delete episode")
	}

	s.stager.Publish(ctx, staged)
	return nil
}

// Resync republishes the episode's current state with a fresh version.
func (s *service) Resync(ctx context.Context, episodeID uuid.UUID) error {
	episode, err := s.loadEpisode(ctx, episodeID)
	if err != nil {
		return err
	}

	eventType := enums.EventUpdated
	if episode.Status != enums.ContentPublished {
		eventType = enums.EventUnpublished
	}

	var staged *models.OutboxEvent
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		row, err := s.stageEpisodeEvent(ctx, tx, txRepo, episode, episode.Program, eventType)
		if err != nil {
			return err
		}
		staged = row
		return nil
	})
	if err != nil {
		return liftError(err, "resync episode")
	}

	s.stager.Publish(ctx, staged)
	return nil
}

func (s *service) Get(ctx context.Context, episodeID uuid.UUID) (*EpisodeDTO, error) {
	episode, err := s.loadEpisode(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	return NewEpisodeDTO(episode), nil
}

func (s *service) List(ctx context.Context, filter ListFilter) (*EpisodeListResult, error) {
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list episodes")
	}
	result := &EpisodeListResult{
		Episodes: make([]EpisodeDTO, 0, len(rows)),
		Total:    total,
	}
	for i := range rows {
		result.Episodes = append(result.Episodes, *NewEpisodeDTO(&rows[i]))
	}
	return result, nil
}

// stageEpisodeEvent bumps the episode version counter and writes the outbox
// row inside tx. The partition key is the PARENT PROGRAM id so the episode
// stream stays ordered relative to its program.
func (s *service) stageEpisodeEvent(ctx context.Context, tx *gorm.DB, txRepo *Repository, episode *models.Episode, program *models.Program, eventType enums.EventType) (*models.OutboxEvent, error) {
	version, err := txRepo.BumpSyncVersion(ctx, episode.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: bump sync version")
	}
	episode.SyncVersion = version

	payload, err := producer.EpisodePayload(episode, program, eventType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build episode payload")
	}

	return s.stager.Stage(ctx, tx, producer.StageInput{
		EventType:    eventType,
		EntityType:   enums.EntityEpisode,
		EntityID:     episode.ID,
		Version:      version,
		PartitionKey: events.EpisodePartitionKey(episode.ProgramID),
		Data:         payload,
		Metadata: &events.Metadata{
			ProgramContext: episode.ProgramID.String(),
		},
	})
}

func (s *service) loadEpisode(ctx context.Context, episodeID uuid.UUID) (*models.Episode, error) {
	episode, err := s.repo.FindByID(ctx, episodeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load episode")
	}
	if episode == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "episode not found")
	}
	return episode, nil
}

func applyEpisodeUpdate(episode *models.Episode, input UpdateEpisodeInput) {
	if input.Title != nil {
		episode.Title = *input.Title
	}
	if input.TitleAr != nil {
		episode.TitleAr = input.TitleAr
	}
	if input.Description != nil {
		episode.Description = input.Description
	}
	if input.DescriptionAr != nil {
		episode.DescriptionAr = input.DescriptionAr
	}
	if input.DurationSeconds != nil {
		episode.DurationSeconds = *input.DurationSeconds
	}
	if input.EpisodeNumber != nil {
		episode.EpisodeNumber = *input.EpisodeNumber
	}
	if input.SeasonNumber != nil {
		episode.SeasonNumber = input.SeasonNumber
	}
	if input.OriginalMediaURL != nil {
		episode.OriginalMediaURL = input.OriginalMediaURL
	}
	if input.ProcessedMediaURL != nil {
		episode.ProcessedMediaURL = input.ProcessedMediaURL
	}
	if input.ThumbnailURL != nil {
		episode.ThumbnailURL = input.ThumbnailURL
	}
	if input.Tags != nil {
		episode.Tags = *input.Tags
	}
}

func liftError(err error, op string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
