package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/tariqnasser/airwave-backend/pkg/enums"
)

// Program is the canonical CMS record for a show.
type Program struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PublisherID        uuid.UUID           `gorm:"column:publisher_id;type:uuid;not null"`
	Publisher          *Publisher          `gorm:"foreignKey:PublisherID"`
	Title              string              `gorm:"column:title;not null"`
	TitleAr            *string             `gorm:"column:title_ar"`
	Description        string              `gorm:"column:description;not null"`
	DescriptionAr      *string             `gorm:"column:description_ar"`
	ShortDescription   *string             `gorm:"column:short_description"`
	ShortDescriptionAr *string             `gorm:"column:short_description_ar"`
	Category           string              `gorm:"column:category;not null"`
	Language           string              `gorm:"column:language;not null;default:ar"`
	Type               enums.ProgramType   `gorm:"column:type;type:program_type;not null;default:podcast"`
	Status             enums.ContentStatus `gorm:"column:status;type:content_status;not null;default:draft"`
	ThumbnailURL       *string             `gorm:"column:thumbnail_url"`
	CoverImageURL      *string             `gorm:"column:cover_image_url"`
	TrailerURL         *string             `gorm:"column:trailer_url"`
	Tags               pq.StringArray      `gorm:"column:tags;type:text[];not null;default:ARRAY[]::text[]"`
	EpisodeCount       int                 `gorm:"column:episode_count;not null;default:0"`
	ViewCount          int                 `gorm:"column:view_count;not null;default:0"`
	Rating             float64             `gorm:"column:rating;type:numeric(3,2);not null;default:0"`
	IsFeatured         bool                `gorm:"column:is_featured;not null;default:false"`
	PublishedAt        *time.Time          `gorm:"column:published_at"`
	// SyncVersion is the monotonic counter stamped on every envelope for this
	// program. It is incremented in the same transaction as the domain write,
	// which keeps version assignment atomic under concurrent writers.
	SyncVersion int64     `gorm:"column:sync_version;not null;default:0"`
	Episodes    []Episode `gorm:"foreignKey:ProgramID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
