package search

import (
	"time"

	"github.com/google/uuid"

	"github.com/tariqnasser/airwave-backend/pkg/db/models"
)

type ProgramResult struct {
	ID               uuid.UUID `json:"id"`
	PublisherID      uuid.UUID `json:"publisherId"`
	PublisherName    string    `json:"publisherName"`
	Title            string    `json:"title"`
	TitleAr          *string   `json:"titleAr,omitempty"`
	Description      *string   `json:"description,omitempty"`
	DescriptionAr    *string   `json:"descriptionAr,omitempty"`
	ShortDescription *string   `json:"shortDescription,omitempty"`
	Category         string    `json:"category"`
	Language         string    `json:"language"`
	Type             string    `json:"type"`
	Rating           float64   `json:"rating"`
	ViewCount        int       `json:"viewCount"`
	EpisodeCount     int       `json:"episodeCount"`
	ThumbnailURL     *string   `json:"thumbnailUrl,omitempty"`
	CoverImageURL    *string   `json:"coverImageUrl,omitempty"`
	Tags             []string  `json:"tags"`
	IsFeatured       bool      `json:"isFeatured"`
	PublishedAt      time.Time `json:"publishedAt"`
}

type EpisodeResult struct {
	ID                uuid.UUID `json:"id"`
	ProgramID         uuid.UUID `json:"programId"`
	ProgramTitle      string    `json:"programTitle"`
	ProgramCategory   string    `json:"programCategory"`
	Title             string    `json:"title"`
	TitleAr           *string   `json:"titleAr,omitempty"`
	Description       *string   `json:"description,omitempty"`
	DescriptionAr     *string   `json:"descriptionAr,omitempty"`
	ProcessedMediaURL *string   `json:"processedMediaUrl,omitempty"`
	DurationSeconds   *int      `json:"durationSeconds,omitempty"`
	EpisodeNumber     *int      `json:"episodeNumber,omitempty"`
	SeasonNumber      int       `json:"seasonNumber"`
	PublishDate       time.Time `json:"publishDate"`
	ViewCount         int       `json:"viewCount"`
	DownloadCount     int       `json:"downloadCount"`
	Tags              []string  `json:"tags"`
}

type SearchResult struct {
	Query    string          `json:"query"`
	Programs []ProgramResult `json:"programs"`
	Episodes []EpisodeResult `json:"episodes"`
	Total    int64           `json:"total"`
}

type BrowseResult struct {
	Programs []ProgramResult `json:"programs"`
	Total    int64           `json:"total"`
}

type ProgramDetail struct {
	Program  ProgramResult   `json:"program"`
	Episodes []EpisodeResult `json:"episodes"`
	Total    int64           `json:"total"`
}

func newProgramResult(row *models.DiscoveryProgram) ProgramResult {
	tags := []string(row.Tags)
	if tags == nil {
		tags = []string{}
	}
	return ProgramResult{
		ID:               row.ID,
		PublisherID:      row.PublisherID,
		PublisherName:    row.PublisherName,
		Title:            row.Title,
		TitleAr:          row.TitleAr,
		Description:      row.Description,
		DescriptionAr:    row.DescriptionAr,
		ShortDescription: row.ShortDescription,
		Category:         row.Category,
		Language:         row.Language,
		Type:             row.Type,
		Rating:           row.Rating,
		ViewCount:        row.ViewCount,
		EpisodeCount:     row.EpisodeCount,
		ThumbnailURL:     row.ThumbnailURL,
		CoverImageURL:    row.CoverImageURL,
		Tags:             tags,
		IsFeatured:       row.IsFeatured,
		PublishedAt:      row.PublishedAt,
	}
}

func newEpisodeResult(row *models.DiscoveryEpisode) EpisodeResult {
	tags := []string(row.Tags)
	if tags == nil {
		tags = []string{}
	}
	return EpisodeResult{
		ID:                row.ID,
		ProgramID:         row.ProgramID,
		ProgramTitle:      row.ProgramTitle,
		ProgramCategory:   row.ProgramCategory,
		Title:             row.Title,
		TitleAr:           row.TitleAr,
		Description:       row.Description,
		DescriptionAr:     row.DescriptionAr,
		ProcessedMediaURL: row.ProcessedMediaURL,
		DurationSeconds:   row.DurationSeconds,
		EpisodeNumber:     row.EpisodeNumber,
		SeasonNumber:      row.SeasonNumber,
		PublishDate:       row.PublishDate,
		ViewCount:         row.ViewCount,
		DownloadCount:     row.DownloadCount,
		Tags:              tags,
	}
}

func programResults(rows []models.DiscoveryProgram) []ProgramResult {
	out := make([]ProgramResult, 0, len(rows))
	for i := range rows {
		out = append(out, newProgramResult(&rows[i]))
	}
	return out
}

func episodeResults(rows []models.DiscoveryEpisode) []EpisodeResult {
	out := make([]EpisodeResult, 0, len(rows))
	for i := range rows {
		out = append(out, newEpisodeResult(&rows[i]))
	}
	return out
}
