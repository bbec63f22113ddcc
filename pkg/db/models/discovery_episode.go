package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// DiscoveryEpisode is the denormalized read-model row for a published episode.
// Written exclusively by the discovery consumer.
type DiscoveryEpisode struct {
	ID                uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	ProgramID         uuid.UUID      `gorm:"column:program_id;type:uuid;not null"`
	ProgramTitle      string         `gorm:"column:program_title;not null"`
	ProgramCategory   string         `gorm:"column:program_category;not null"`
	Title             string         `gorm:"column:title;not null"`
	TitleAr           *string        `gorm:"column:title_ar"`
	Description       *string        `gorm:"column:description"`
	DescriptionAr     *string        `gorm:"column:description_ar"`
	ProcessedMediaURL *string        `gorm:"column:processed_media_url"`
	DurationSeconds   *int           `gorm:"column:duration_seconds"`
	EpisodeNumber     *int           `gorm:"column:episode_number"`
	SeasonNumber      int            `gorm:"column:season_number;not null;default:1"`
	PublishDate       time.Time      `gorm:"column:publish_date;not null"`
	ViewCount         int            `gorm:"column:view_count;not null;default:0"`
	DownloadCount     int            `gorm:"column:download_count;not null;default:0"`
	Tags              pq.StringArray `gorm:"column:tags;type:text[];not null;default:ARRAY[]::text[]"`
	SearchKeywords    pq.StringArray `gorm:"column:search_keywords;type:text[];not null;default:ARRAY[]::text[]"`
	KafkaVersion      int64          `gorm:"column:kafka_version;not null;default:0"`
	SyncedAt          time.Time      `gorm:"column:synced_at;not null"`
}

func (DiscoveryEpisode) TableName() string {
	return "discovery_episodes"
}
