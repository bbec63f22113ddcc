//go:build db
// +build db

package programs

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

func TestBumpSyncVersionIsMonotonic(t *testing.T) {
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

	publisher := &models.Publisher{ID: uuid.New(), Name: "Test Publisher"}
	if err := tx.Create(publisher).Error; err != nil {
		t.Fatalf("create publisher: %v", err)
	}

	program := &models.Program{
		ID:          uuid.New(),
		PublisherID: publisher.ID,
		Title:       "Version Test",
		Description: "desc",
		Category:    "news",
		Language:    "ar",
		Type:        enums.ProgramPodcast,
		Status:      enums.ContentDraft,
	}
	if err := tx.Create(program).Error; err != nil {
		t.Fatalf("create program: %v", err)
	}

	first, err := repo.BumpSyncVersion(ctx, program.ID)
	if err != nil {
		t.Fatalf("first bump: %v", err)
	}
	second, err := repo.BumpSyncVersion(ctx, program.ID)
	if err != nil {
		t.Fatalf("second bump: %v", err)
	}
	if first != 1 || second != 2 {
		t.Fatalf("expected versions 1 then 2, got %d then %d", first, second)
	}
}

func TestBumpSyncVersionMissingProgram(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)

	if _, err := repo.BumpSyncVersion(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error for unknown program")
	}
}

func TestRefreshEpisodeCountCountsRows(t *testing.T) {
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

	publisher := &models.Publisher{ID: uuid.New(), Name: "Count Publisher"}
	if err := tx.Create(publisher).Error; err != nil {
		t.Fatalf("create publisher: %v", err)
	}
	program := &models.Program{
		ID:          uuid.New(),
		PublisherID: publisher.ID,
		Title:       "Count Test",
		Description: "desc",
		Category:    "news",
		Language:    "ar",
		Type:        enums.ProgramPodcast,
		Status:      enums.ContentPublished,
		EpisodeCount: 99, // deliberately wrong, refresh must fix it
	}
	if err := tx.Create(program).Error; err != nil {
		t.Fatalf("create program: %v", err)
	}
	for i := 0; i < 2; i++ {
		episode := &models.Episode{
			ID:              uuid.New(),
			ProgramID:       program.ID,
			Title:           "Episode",
			DurationSeconds: 60,
			EpisodeNumber:   i + 1,
			Status:          enums.ContentPublished,
		}
		if err := tx.Create(episode).Error; err != nil {
			t.Fatalf("create episode: %v", err)
		}
	}

	if err := repo.RefreshEpisodeCount(ctx, program.ID); err != nil {
		t.Fatalf("refresh count: %v", err)
	}

	var reloaded models.Program
	if err := tx.First(&reloaded, "id = ?", program.ID).Error; err != nil {
		t.Fatalf("reload program: %v", err)
	}
	if reloaded.EpisodeCount != 2 {
		t.Fatalf("expected episode count 2, got %d", reloaded.EpisodeCount)
	}
}
