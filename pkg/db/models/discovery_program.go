package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// DiscoveryProgram is the denormalized read-model row for a published program.
// It is written exclusively by the discovery consumer; no other path mutates
// it, which is what makes the version gate sufficient without locking.
//
// The search_vector tsvector column exists in the table but is maintained via
// raw SQL (see discovery store) and deliberately absent from the model.
type DiscoveryProgram struct {
	ID               uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	PublisherID      uuid.UUID      `gorm:"column:publisher_id;type:uuid;not null"`
	PublisherName    string         `gorm:"column:publisher_name;not null"`
	Title            string         `gorm:"column:title;not null"`
	TitleAr          *string        `gorm:"column:title_ar"`
	Description      *string        `gorm:"column:description"`
	DescriptionAr    *string        `gorm:"column:description_ar"`
	ShortDescription *string        `gorm:"column:short_description"`
	Category         string         `gorm:"column:category;not null"`
	Language         string         `gorm:"column:language;not null;default:ar"`
	Type             string         `gorm:"column:type;not null;default:podcast"`
	Rating           float64        `gorm:"column:rating;type:numeric(3,2);not null;default:0"`
	ViewCount        int            `gorm:"column:view_count;not null;default:0"`
	EpisodeCount     int            `gorm:"column:episode_count;not null;default:0"`
	ThumbnailURL     *string        `gorm:"column:thumbnail_url"`
	CoverImageURL    *string        `gorm:"column:cover_image_url"`
	Tags             pq.StringArray `gorm:"column:tags;type:text[];not null;default:ARRAY[]::text[]"`
	IsFeatured       bool           `gorm:"column:is_featured;not null;default:false"`
	PublishedAt      time.Time      `gorm:"column:published_at;not null"`
	LastUpdated      time.Time      `gorm:"column:last_updated;not null"`
	SearchKeywords   pq.StringArray `gorm:"column:search_keywords;type:text[];not null;default:ARRAY[]::text[]"`
	// KafkaVersion is the version of the last applied envelope for this row.
	KafkaVersion int64     `gorm:"column:kafka_version;not null;default:0"`
	SyncedAt     time.Time `gorm:"column:synced_at;not null"`
}

func (DiscoveryProgram) TableName() string {
	return "discovery_programs"
}
