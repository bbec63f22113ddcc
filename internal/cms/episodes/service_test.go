package episodes

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tariqnasser/airwave-backend/internal/cms/producer"
	"github.com/tariqnasser/airwave-backend/pkg/db/models"
	pkgerrors "github.com/tariqnasser/airwave-backend/pkg/errors"
)

type noopTxRunner struct{}

func (noopTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type noopStager struct{}

func (noopStager) Stage(ctx context.Context, tx *gorm.DB, input producer.StageInput) (*models.OutboxEvent, error) {
	return &models.OutboxEvent{}, nil
}

func (noopStager) Publish(ctx context.Context, row *models.OutboxEvent) {}

func TestCreateValidation(t *testing.T) {
	svc, err := NewService(&Repository{}, noopTxRunner{}, noopStager{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	cases := []struct {
		name  string
		input CreateEpisodeInput
	}{
		{
			name:  "missing title",
			input: CreateEpisodeInput{ProgramID: uuid.New(), DurationSeconds: 120, EpisodeNumber: 1},
		},
		{
			name:  "zero duration",
			input: CreateEpisodeInput{ProgramID: uuid.New(), Title: "ep", EpisodeNumber: 1},
		},
		{
			name:  "zero episode number",
			input: CreateEpisodeInput{ProgramID: uuid.New(), Title: "ep", DurationSeconds: 120},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.input)
			if err == nil {
				t.Fatal("expected validation error")
			}
			appErr := pkgerrors.As(err)
			if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation code, got %v", err)
			}
		})
	}
}

func TestApplyEpisodeUpdatePartial(t *testing.T) {
	title := "new title"
	duration := 900
	episode := &models.Episode{
		Title:           "old title",
		DurationSeconds: 600,
		EpisodeNumber:   3,
	}

	applyEpisodeUpdate(episode, UpdateEpisodeInput{
		Title:           &title,
		DurationSeconds: &duration,
	})

	if episode.Title != "new title" {
		t.Fatalf("title = %q", episode.Title)
	}
	if episode.DurationSeconds != 900 {
		t.Fatalf("duration = %d", episode.DurationSeconds)
	}
	if episode.EpisodeNumber != 3 {
		t.Fatalf("episode number changed: %d", episode.EpisodeNumber)
	}
}

func TestNewEpisodeDTOCarriesProgramTitle(t *testing.T) {
	episode := &models.Episode{
		ID:        uuid.New(),
		ProgramID: uuid.New(),
		Title:     "ep one",
		Program:   &models.Program{Title: "morning show"},
	}

	dto := NewEpisodeDTO(episode)
	if dto.ProgramTitle != "morning show" {
		t.Fatalf("programTitle = %q", dto.ProgramTitle)
	}
	if dto.Tags == nil {
		t.Fatal("tags should be an empty slice, not nil")
	}
}
