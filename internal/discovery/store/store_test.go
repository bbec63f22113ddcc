//go:build db
// +build db

package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tariqnasser/airwave-backend/pkg/db/models"
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

func testProgramRow(version int64) *models.DiscoveryProgram {
	return &models.DiscoveryProgram{
		ID:            uuid.New(),
		PublisherID:   uuid.New(),
		PublisherName: "Sahara Media",
		Title:         "Desert Histories",
		Category:      "history",
		Language:      "ar",
		Type:          "documentary",
		Tags:          []string{"history"},
		PublishedAt:   time.Now().UTC(),
		LastUpdated:   time.Now().UTC(),
		KafkaVersion:  version,
		SyncedAt:      time.Now().UTC(),
	}
}

func TestUpsertProgramTracksVersion(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn, "arabic")
	ctx := context.Background()

	row := testProgramRow(1)
	t.Cleanup(func() {
		_ = store.DeleteProgram(ctx, row.ID)
	})

	if err := store.UpsertProgram(ctx, row); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	version, err := store.ProgramVersion(ctx, row.ID)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if version != 1 {
		t.Fatalf("expected version 1, got %d", version)
	}

	row.KafkaVersion = 4
	row.Title = "Desert Histories, Revisited"
	if err := store.UpsertProgram(ctx, row); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	version, err = store.ProgramVersion(ctx, row.ID)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if version != 4 {
		t.Fatalf("expected version 4 after update, got %d", version)
	}
}

func TestMissingRowHasVersionZero(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn, "arabic")

	version, err := store.ProgramVersion(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if version != 0 {
		t.Fatalf("expected 0 for missing row, got %d", version)
	}
}

func TestDeleteProgramCascadesEpisodes(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn, "arabic")
	ctx := context.Background()

	program := testProgramRow(1)
	if err := store.UpsertProgram(ctx, program); err != nil {
		t.Fatalf("upsert program: %v", err)
	}

	episode := &models.DiscoveryEpisode{
		ID:              uuid.New(),
		ProgramID:       program.ID,
		ProgramTitle:    program.Title,
		ProgramCategory: program.Category,
		Title:           "Episode One",
		PublishDate:     time.Now().UTC(),
		KafkaVersion:    1,
		SyncedAt:        time.Now().UTC(),
	}
	if err := store.UpsertEpisode(ctx, episode); err != nil {
		t.Fatalf("upsert episode: %v", err)
	}

	if err := store.DeleteProgram(ctx, program.ID); err != nil {
		t.Fatalf("delete program: %v", err)
	}

	version, err := store.EpisodeVersion(ctx, episode.ID)
	if err != nil {
		t.Fatalf("episode version: %v", err)
	}
	if version != 0 {
		t.Fatal("episode rows must be removed with their program")
	}
}

func TestRecountEpisodes(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn, "arabic")
	ctx := context.Background()

	program := testProgramRow(1)
	t.Cleanup(func() {
		_ = store.DeleteProgram(ctx, program.ID)
	})
	if err := store.UpsertProgram(ctx, program); err != nil {
		t.Fatalf("upsert program: %v", err)
	}

	for i := 0; i < 3; i++ {
		episode := &models.DiscoveryEpisode{
			ID:              uuid.New(),
			ProgramID:       program.ID,
			ProgramTitle:    program.Title,
			ProgramCategory: program.Category,
			Title:           "Episode",
			PublishDate:     time.Now().UTC(),
			KafkaVersion:    1,
			SyncedAt:        time.Now().UTC(),
		}
		if err := store.UpsertEpisode(ctx, episode); err != nil {
			t.Fatalf("upsert episode: %v", err)
		}
	}

	if err := store.RecountEpisodes(ctx, program.ID); err != nil {
		t.Fatalf("recount: %v", err)
	}

	var reloaded models.DiscoveryProgram
	if err := conn.First(&reloaded, "id = ?", program.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.EpisodeCount != 3 {
		t.Fatalf("expected episode count 3, got %d", reloaded.EpisodeCount)
	}
}
