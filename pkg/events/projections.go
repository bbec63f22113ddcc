package events

import (
	"time"

	"github.com/google/uuid"
)

// ProgramProjection is the public shape of a program on the wire. Internal
// CMS fields (original media, sync bookkeeping) never leave the service.
// Episode counts are deliberately absent: the discovery side derives them
// from its own rows.
type ProgramProjection struct {
	ID               uuid.UUID  `json:"id"`
	PublisherID      uuid.UUID  `json:"publisherId"`
	PublisherName    string     `json:"publisherName"`
	Title            string     `json:"title"`
	TitleAr          *string    `json:"titleAr,omitempty"`
	Description      string     `json:"description"`
	DescriptionAr    *string    `json:"descriptionAr,omitempty"`
	ShortDescription *string    `json:"shortDescription,omitempty"`
	Category         string     `json:"category"`
	Language         string     `json:"language"`
	Type             string     `json:"type"`
	Rating           float64    `json:"rating"`
	ViewCount        int        `json:"viewCount"`
	ThumbnailURL     *string    `json:"thumbnailUrl,omitempty"`
	CoverImageURL    *string    `json:"coverImageUrl,omitempty"`
	Tags             []string   `json:"tags"`
	IsFeatured       bool       `json:"isFeatured"`
	PublishedAt      *time.Time `json:"publishedAt,omitempty"`
}

// EpisodeProjection is the public shape of an episode on the wire. Program
// context rides along so the consumer can denormalize without a lookup.
type EpisodeProjection struct {
	ID                uuid.UUID  `json:"id"`
	ProgramID         uuid.UUID  `json:"programId"`
	ProgramTitle      string     `json:"programTitle"`
	ProgramCategory   string     `json:"programCategory"`
	Title             string     `json:"title"`
	TitleAr           *string    `json:"titleAr,omitempty"`
	Description       *string    `json:"description,omitempty"`
	DescriptionAr     *string    `json:"descriptionAr,omitempty"`
	ProcessedMediaURL *string    `json:"processedMediaUrl,omitempty"`
	DurationSeconds   int        `json:"durationSeconds"`
	EpisodeNumber     int        `json:"episodeNumber"`
	SeasonNumber      *int       `json:"seasonNumber,omitempty"`
	PublishDate       *time.Time `json:"publishDate,omitempty"`
	ViewCount         int        `json:"viewCount"`
	DownloadCount     int        `json:"downloadCount"`
	Tags              []string   `json:"tags"`
}
