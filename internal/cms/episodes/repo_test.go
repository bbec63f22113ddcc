//go:build db
// +build db

package episodes

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tariqnasser/airwave-backend/pkg/db/models"
	"github.com/tariqnasser/airwave-backend/pkg/enums"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("AIRWAVE_DB_DSN")
	if dsn == "" {
		t.Skip("AIRWAVE_DB_DSN is not set")
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	return conn
}

func seedProgram(t *testing.T, tx *gorm.DB) *models.Program {
	t.Helper()

	publisher := &models.Publisher{ID: uuid.New(), Name: "Episode Publisher"}
	if err := tx.Create(publisher).Error; err != nil {
		t.Fatalf("create publisher: %v", err)
	}
	program := &models.Program{
		ID:          uuid.New(),
		PublisherID: publisher.ID,
		Title:       "Episode Host",
		Description: "desc",
		Category:    "culture",
		Language:    "ar",
		Type:        enums.ProgramPodcast,
		Status:      enums.ContentPublished,
	}
	if err := tx.Create(program).Error; err != nil {
		t.Fatalf("create program: %v", err)
	}
	return program
}

func TestEpisodeBumpSyncVersion(t *testing.T) {
	conn := openTestDB(t)
	tx := conn.Begin()
	if tx.Error != nil {
		t.Fatalf("begin tx: %v", tx.Error)
	}
	t.Cleanup(func() {
		_ = tx.Rollback()
	})

	repo := NewRepository(tx)
	ctx := context.Background()
	program := seedProgram(t, tx)

	episode := &models.Episode{
		ID:              uuid.New(),
		ProgramID:       program.ID,
		Title:           "Version Episode",
		DurationSeconds: 60,
		EpisodeNumber:   1,
		Status:          enums.ContentDraft,
	}
	if err := tx.Create(episode).Error; err != nil {
		t.Fatalf("create episode: %v", err)
	}

	first, err := repo.BumpSyncVersion(ctx, episode.ID)
	if err != nil {
		t.Fatalf("first bump: %v", err)
	}
	second, err := repo.BumpSyncVersion(ctx, episode.ID)
	if err != nil {
		t.Fatalf("second bump: %v", err)
	}
	if first != 1 || second != 2 {
		t.Fatalf("expected versions 1 then 2, got %d then %d", first, second)
	}

	if _, err := repo.BumpSyncVersion(ctx, uuid.New()); err == nil {
		t.Fatal("expected error for unknown episode")
	}
}

func TestListFiltersByProgram(t *testing.T) {
	conn := openTestDB(t)
	tx := conn.Begin()
	if tx.Error != nil {
		t.Fatalf("begin tx: %v", tx.Error)
	}
	t.Cleanup(func() {
		_ = tx.Rollback()
	})

	repo := NewRepository(tx)
	ctx := context.Background()
	program := seedProgram(t, tx)
	other := seedProgram(t, tx)

	for i, pid := range []uuid.UUID{program.ID, program.ID, other.ID} {
		episode := &models.Episode{
			ID:              uuid.New(),
			ProgramID:       pid,
			Title:           "List Episode",
			DurationSeconds: 60,
			EpisodeNumber:   i + 1,
			Status:          enums.ContentPublished,
		}
		if err := tx.Create(episode).Error; err != nil {
			t.Fatalf("create episode: %v", err)
		}
	}

	rows, total, err := repo.List(ctx, ListFilter{ProgramID: &program.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("expected 2 episodes, got total=%d len=%d", total, len(rows))
	}
	for _, row := range rows {
		if row.ProgramID != program.ID {
			t.Fatalf("episode %s belongs to wrong program", row.ID)
		}
	}
}
