// Package store owns the discovery read model. All writes come from the
// sync consumer; the search layer only reads.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tariqnasser/airwave-backend/pkg/db/models"
)

type Store struct {
	db *gorm.DB
	// searchLanguage is the text search configuration passed to to_tsvector.
	searchLanguage string
}

func NewStore(db *gorm.DB, searchLanguage string) *Store {
	if searchLanguage == "" {
		searchLanguage = "arabic"
	}
	return &Store{db: db, searchLanguage: searchLanguage}
}

// ProgramVersion returns the applied envelope version for a program row, or
// 0 when the row does not exist. A missing row gates nothing, so any
// incoming version applies.
func (s *Store) ProgramVersion(ctx context.Context, id uuid.UUID) (int64, error) {
	var row models.DiscoveryProgram
	err := s.db.WithContext(ctx).Select("kafka_version").First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return row.KafkaVersion, nil
}

// EpisodeVersion mirrors ProgramVersion for episode rows.
func (s *Store) EpisodeVersion(ctx context.Context, id uuid.UUID) (int64, error) {
	var row models.DiscoveryEpisode
	err := s.db.WithContext(ctx).Select("kafka_version").First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return row.KafkaVersion, nil
}

// UpsertProgram writes the full program row and rebuilds its search vector.
func (s *Store) UpsertProgram(ctx context.Context, row *models.DiscoveryProgram) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(row).Error
	if err != nil {
		return err
	}
	return s.refreshProgramSearchVector(ctx, row.ID)
}

// DeleteProgram removes a program row together with all of its episode rows.
func (s *Store) DeleteProgram(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("program_id = ?", id).Delete(&models.DiscoveryEpisode{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.DiscoveryProgram{}).Error
	})
}

// UpsertEpisode writes the full episode row and rebuilds its search vector.
func (s *Store) UpsertEpisode(ctx context.Context, row *models.DiscoveryEpisode) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(row).Error
	if err != nil {
		return err
	}
	return s.refreshEpisodeSearchVector(ctx, row.ID)
}

// DeleteEpisode removes an episode row. It returns the parent program id so
// the caller can recount, and false when the row was already gone.
func (s *Store) DeleteEpisode(ctx context.Context, id uuid.UUID) (uuid.UUID, bool, error) {
	var row models.DiscoveryEpisode
	err := s.db.WithContext(ctx).Select("id", "program_id").First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, err
	}
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.DiscoveryEpisode{}).Error; err != nil {
		return uuid.Nil, false, err
	}
	return row.ProgramID, true, nil
}

// RecountEpisodes recomputes a program's episode_count from its own episode
// rows. The count never rides on the wire.
func (s *Store) RecountEpisodes(ctx context.Context, programID uuid.UUID) error {
	return s.db.WithContext(ctx).
		Exec("UPDATE discovery_programs SET episode_count = (SELECT COUNT(*) FROM discovery_episodes WHERE program_id = ?) WHERE id = ?",
			programID, programID).Error
}

func (s *Store) refreshProgramSearchVector(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Exec(`
		UPDATE discovery_programs
		SET search_vector = to_tsvector(?::regconfig,
			coalesce(title, '') || ' ' ||
			coalesce(title_ar, '') || ' ' ||
			coalesce(description, '') || ' ' ||
			coalesce(description_ar, '') || ' ' ||
			coalesce(publisher_name, '') || ' ' ||
			coalesce(category, '') || ' ' ||
			array_to_string(tags, ' '))
		WHERE id = ?`, s.searchLanguage, id).Error
}

func (s *Store) refreshEpisodeSearchVector(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Exec(`
		UPDATE discovery_episodes
		SET search_vector = to_tsvector(?::regconfig,
			coalesce(title, '') || ' ' ||
			coalesce(title_ar, '') || ' ' ||
			coalesce(description, '') || ' ' ||
			coalesce(description_ar, '') || ' ' ||
			coalesce(program_title, '') || ' ' ||
			array_to_string(tags, ' '))
		WHERE id = ?`, s.searchLanguage, id).Error
}

// InsertSyncDeadLetter records a message the consumer could not apply.
func (s *Store) InsertSyncDeadLetter(ctx context.Context, row *models.SyncDeadLetter) error {
	return s.db.WithContext(ctx).Create(row).Error
}

// SyncStats summarizes the state of the read model for the ops endpoint.
type SyncStats struct {
	Programs    int64      `json:"programs"`
	Episodes    int64      `json:"episodes"`
	DeadLetters int64      `json:"deadLetters"`
	LastSyncAt  *time.Time `json:"lastSyncAt,omitempty"`
}

func (s *Store) Stats(ctx context.Context) (*SyncStats, error) {
	var stats SyncStats
	if err := s.db.WithContext(ctx).Model(&models.DiscoveryProgram{}).Count(&stats.Programs).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.DiscoveryEpisode{}).Count(&stats.Episodes).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.SyncDeadLetter{}).Count(&stats.DeadLetters).Error; err != nil {
		return nil, err
	}

	var last struct {
		SyncedAt *time.Time
	}
	err := s.db.WithContext(ctx).
		Raw("SELECT MAX(synced_at) AS synced_at FROM (SELECT synced_at FROM discovery_programs UNION ALL SELECT synced_at FROM discovery_episodes) t").
		Scan(&last).Error
	if err != nil {
		return nil, err
	}
	stats.LastSyncAt = last.SyncedAt
	return &stats, nil
}
