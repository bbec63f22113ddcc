// Package programs implements program management on the CMS side. Every
// mutation stages its sync event in the same transaction as the domain
// write; delivery to the broker happens after commit and never blocks or
// fails the API call.
package programs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tariqnasser/airwave-backend/internal/cms/producer"
	"github.com/tariqnasser/airwave-backend/pkg/db/models"
	"github.com/tariqnasser/airwave-backend/pkg/enums"
	pkgerrors "github.com/tariqnasser/airwave-backend/pkg/errors"
	"github.com/tariqnasser/airwave-backend/pkg/events"
)

// Service exposes program management operations.
type Service interface {
	Create(ctx context.Context, input CreateProgramInput) (*ProgramDTO, error)
	Update(ctx context.Context, programID uuid.UUID, input UpdateProgramInput) (*ProgramDTO, error)
	Publish(ctx context.Context, programID uuid.UUID) (*ProgramDTO, error)
	Unpublish(ctx context.Context, programID uuid.UUID) (*ProgramDTO, error)
	Archive(ctx context.Context, programID uuid.UUID) (*ProgramDTO, error)
	Delete(ctx context.Context, programID uuid.UUID) error
	Resync(ctx context.Context, programID uuid.UUID) error
	Get(ctx context.Context, programID uuid.UUID) (*ProgramDTO, error)
	List(ctx context.Context, filter ListFilter) (*ProgramListResult, error)
}

// CreateProgramInput holds the validated payload to create a program.
// Programs are always born as drafts; publishing is a separate call.
type CreateProgramInput struct {
	PublisherID        uuid.UUID
	Title              string
	TitleAr            *string
	Description        string
	DescriptionAr      *string
	ShortDescription   *string
	ShortDescriptionAr *string
	Category           string
	Language           string
	Type               enums.ProgramType
	ThumbnailURL       *string
	CoverImageURL      *string
	TrailerURL         *string
	Tags               []string
}

// UpdateProgramInput holds optional mutation values for a program.
type UpdateProgramInput struct {
	Title              *string
	TitleAr            *string
	Description        *string
	DescriptionAr      *string
	ShortDescription   *string
	ShortDescriptionAr *string
	Category           *string
	Language           *string
	Type               *enums.ProgramType
	ThumbnailURL       *string
	CoverImageURL      *string
	TrailerURL         *string
	Tags               *[]string
	IsFeatured         *bool
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

// NewService constructs a program service instance.
func NewService(repo *Repository, dbClient txRunner, stager eventStager) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("program repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if stager == nil {
		return nil, fmt.Errorf("event stager required")
	}
	return &service{repo: repo, dbClient: dbClient, stager: stager}, nil
}

func (s *service) Create(ctx context.Context, input CreateProgramInput) (*ProgramDTO, error) {
	if input.Title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if input.Category == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid program type")
	}

	publisher, err := s.repo.FindPublisher(ctx, input.PublisherID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load publisher")
	}
	if publisher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "publisher not found")
	}

	language := input.Language
	if language == "" {
		language = "ar"
	}

	var created *models.Program
	var staged *models.OutboxEvent
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		program := &models.Program{
			PublisherID:        input.PublisherID,
			Title:              input.Title,
			TitleAr:            input.TitleAr,
			Description:        input.Description,
			DescriptionAr:      input.DescriptionAr,
			ShortDescription:   input.ShortDescription,
			ShortDescriptionAr: input.ShortDescriptionAr,
			Category:           input.Category,
			Language:           language,
			Type:               input.Type,
			Status:             enums.ContentDraft,
			ThumbnailURL:       input.ThumbnailURL,
			CoverImageURL:      input.CoverImageURL,
			TrailerURL:         input.TrailerURL,
			Tags:               input.Tags,
		}
		if _, err := txRepo.Create(ctx, program); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert program")
		}
		created = program

		row, err := s.stageProgramEvent(ctx, tx, txRepo, program, publisher.Name, enums.EventCreated)
		if err != nil {
			return err
		}
		staged = row
		return nil
	})
	if err != nil {
		return nil, liftError(err, "create program")
	}

	s.stager.Publish(ctx, staged)
	created.Publisher = publisher
	return NewProgramDTO(created), nil
}

func (s *service) Update(ctx context.Context, programID uuid.UUID, input UpdateProgramInput) (*ProgramDTO, error) {
	program, err := s.loadProgram(ctx, programID)
	if err != nil {
		return nil, err
	}

	applyProgramUpdate(program, input)

	var staged *models.OutboxEvent
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Save(ctx, program); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update program")
		}
		row, err := s.stageProgramEvent(ctx, tx, txRepo, program, publisherName(program), enums.EventUpdated)
		if err != nil {
			return err
		}
		staged = row
		return nil
	})
	if err != nil {
		return nil, liftError(err, "update program")
	}

	s.stager.Publish(ctx, staged)
	return NewProgramDTO(program), nil
}

func (s *service) Publish(ctx context.Context, programID uuid.UUID) (*ProgramDTO, error) {
	program, err := s.loadProgram(ctx, programID)
	if err != nil {
		return nil, err
	}
	if program.Status == enums.ContentPublished {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "program is already published")
	}

	now := time.Now().UTC()
	program.Status = enums.ContentPublished
	if program.PublishedAt == nil {
		program.PublishedAt = &now
	}

	var staged *models.OutboxEvent
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Save(ctx, program); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: publish program")
		}
		row, err := s.stageProgramEvent(ctx, tx, txRepo, program, publisherName(program), enums.EventPublished)
		if err != nil {
			return err
		}
		staged = row
		return nil
	})
	if err != nil {
		return nil, liftError(err, "publish program")
	}

	s.stager.Publish(ctx, staged)
	return NewProgramDTO(program), nil
}

func (s *service) Unpublish(ctx context.Context, programID uuid.UUID) (*ProgramDTO, error) {
	return s.retire(ctx, programID, enums.ContentDraft, "unpublish program")
}

func (s *service) Archive(ctx context.Context, programID uuid.UUID) (*ProgramDTO, error) {
	return s.retire(ctx, programID, enums.ContentArchived, "archive program")
}

// retire takes a program off the air. Both unpublish and archive emit an
// unpublished event so the discovery side drops the program and its episodes.
func (s *service) retire(ctx context.Context, programID uuid.UUID, target enums.ContentStatus, op string) (*ProgramDTO, error) {
	program, err := s.loadProgram(ctx, programID)
	if err != nil {
		return nil, err
	}
	if program.Status != enums.ContentPublished {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "program is not published")
	}

	program.Status = target

	var staged *models.OutboxEvent
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Save(ctx, program); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update program status")
		}
		row, err := s.stageProgramEvent(ctx, tx, txRepo, program, publisherName(program), enums.EventUnpublished)
		if err != nil {
			return err
		}
		staged = row
		return nil
	})
	if err != nil {
		return nil, liftError(err, op)
	}

	s.stager.Publish(ctx, staged)
	return NewProgramDTO(program), nil
}

func (s *service) Delete(ctx context.Context, programID uuid.UUID) error {
	program, err := s.loadProgram(ctx, programID)
	if err != nil {
		return err
	}

	var staged *models.OutboxEvent
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		// The event is staged before the row disappears so the version
		// counter is still there to bump.
		row, err := s.stageProgramEvent(ctx, tx, txRepo, program, publisherName(program), enums.EventDeleted)
		if err != nil {
			return err
		}
		staged = row
		if err := txRepo.Delete(ctx, program.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete program")
		}
		return nil
	})
	if err != nil {
		return liftError(err, "delete program")
	}

	s.stager.Publish(ctx, staged)
	return nil
}

// Resync republishes the program's current state with a fresh version. Used
// by operators when the discovery side is suspected to have drifted.
func (s *service) Resync(ctx context.Context, programID uuid.UUID) error {
	program, err := s.loadProgram(ctx, programID)
	if err != nil {
		return err
	}

	eventType := enums.EventUpdated
	if program.Status != enums.ContentPublished {
		eventType = enums.EventUnpublished
	}

	var staged *models.OutboxEvent
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		row, err := s.stageProgramEvent(ctx, tx, txRepo, program, publisherName(program), eventType)
		if err != nil {
			return err
		}
		staged = row
		return nil
	})
	if err != nil {
		return liftError(err, "resync program")
	}

	s.stager.Publish(ctx, staged)
	return nil
}

func (s *service) Get(ctx context.Context, programID uuid.UUID) (*ProgramDTO, error) {
	program, err := s.loadProgram(ctx, programID)
	if err != nil {
		return nil, err
	}
	return NewProgramDTO(program), nil
}

func (s *service) List(ctx context.Context, filter ListFilter) (*ProgramListResult, error) {
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list programs")
	}
	result := &ProgramListResult{
		Programs: make([]ProgramDTO, 0, len(rows)),
		Total:    total,
	}
	for i := range rows {
		result.Programs = append(result.Programs, *NewProgramDTO(&rows[i]))
	}
	return result, nil
}

// stageProgramEvent bumps the version counter and writes the outbox row,
// both inside tx.
func (s *service) stageProgramEvent(ctx context.Context, tx *gorm.DB, txRepo *Repository, program *models.Program, pubName string, eventType enums.EventType) (*models.OutboxEvent, error) {
	version, err := txRepo.BumpSyncVersion(ctx, program.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: bump sync version")
	}
	program.SyncVersion = version

	payload, err := producer.ProgramPayload(program, pubName, eventType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build program payload")
	}

	return s.stager.Stage(ctx, tx, producer.StageInput{
		EventType:    eventType,
		EntityType:   enums.EntityProgram,
		EntityID:     program.ID,
		Version:      version,
		PartitionKey: events.ProgramPartitionKey(program.ID),
		Data:         payload,
		Metadata: &events.Metadata{
			PublisherContext: program.PublisherID.String(),
		},
	})
}

func (s *service) loadProgram(ctx context.Context, programID uuid.UUID) (*models.Program, error) {
	program, err := s.repo.FindByID(ctx, programID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load program")
	}
	if program == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "program not found")
	}
	return program, nil
}

func applyProgramUpdate(program *models.Program, input UpdateProgramInput) {
	if input.Title != nil {
		program.Title = *input.Title
	}
	if input.TitleAr != nil {
		program.TitleAr = input.TitleAr
	}
	if input.Description != nil {
		program.Description = *input.Description
	}
	if input.DescriptionAr != nil {
		program.DescriptionAr = input.DescriptionAr
	}
	if input.ShortDescription != nil {
		program.ShortDescription = input.ShortDescription
	}
	if input.ShortDescriptionAr != nil {
		program.ShortDescriptionAr = input.ShortDescriptionAr
	}
	if input.Category != nil {
		program.Category = *input.Category
	}
	if input.Language != nil {
		program.Language = *input.Language
	}
	if input.Type != nil {
		program.Type = *input.Type
	}
	if input.ThumbnailURL != nil {
		program.ThumbnailURL = input.ThumbnailURL
	}
	if input.CoverImageURL != nil {
		program.CoverImageURL = input.CoverImageURL
	}
	if input.TrailerURL != nil {
		program.TrailerURL = input.TrailerURL
	}
	if input.Tags != nil {
		program.Tags = *input.Tags
	}
	if input.IsFeatured != nil {
		program.IsFeatured = *input.IsFeatured
	}
}

func publisherName(program *models.Program) string {
	if program.Publisher != nil {
		return program.Publisher.Name
	}
	return ""
}

func liftError(err error, op string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
