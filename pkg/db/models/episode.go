package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/tariqnasser/airwave-backend/pkg/enums"
)

// Episode is the canonical CMS record for a single installment of a program.
type Episode struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProgramID        uuid.UUID           `gorm:"column:program_id;type:uuid;not null"`
	Program          *Program            `gorm:"foreignKey:ProgramID"`
	Title            string              `gorm:"column:title;not null"`
	TitleAr          *string             `gorm:"column:title_ar"`
	Description      *string             `gorm:"column:description"`
	DescriptionAr    *string             `gorm:"column:description_ar"`
	DurationSeconds  int                 `gorm:"column:duration_seconds;not null"`
	EpisodeNumber    int                 `gorm:"column:episode_number;not null;default:1"`
	SeasonNumber     *int                `gorm:"column:season_number"`
	Status           enums.ContentStatus `gorm:"column:status;type:content_status;not null;default:draft"`
	OriginalMediaURL *string             `gorm:"column:original_media_url"`
	ProcessedMediaURL *string            `gorm:"column:processed_media_url"`
	ThumbnailURL     *string             `gorm:"column:thumbnail_url"`
	Tags             pq.StringArray      `gorm:"column:tags;type:text[];not null;default:ARRAY[]::text[]"`
	ViewCount        int                 `gorm:"column:view_count;not null;default:0"`
	DownloadCount    int                 `gorm:"column:download_count;not null;default:0"`
	Rating           float64             `gorm:"column:rating;type:numeric(3,2);not null;default:0"`
	PublishDate      *time.Time          `gorm:"column:publish_date"`
	// SyncVersion mirrors Program.SyncVersion: incremented with the domain
	// write so envelope versions stay strictly increasing per episode.
	SyncVersion int64     `gorm:"column:sync_version;not null;default:0"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
