package episodes

import (
	"time"

	"github.com/google/uuid"

	"github.com/tariqnasser/airwave-backend/pkg/db/models"
	"github.com/tariqnasser/airwave-backend/pkg/enums"
)

type EpisodeDTO struct {
	ID                uuid.UUID           `json:"id"`
	ProgramID         uuid.UUID           `json:"programId"`
	ProgramTitle      string              `json:"programTitle,omitempty"`
	Title             string              `json:"title"`
	TitleAr           *string             `json:"titleAr,omitempty"`
	Description       *string             `json:"description,omitempty"`
	DescriptionAr     *string             `json:"descriptionAr,omitempty"`
	DurationSeconds   int                 `json:"durationSeconds"`
	EpisodeNumber     int                 `json:"episodeNumber"`
	SeasonNumber      *int                `json:"seasonNumber,omitempty"`
	Status            enums.ContentStatus `json:"status"`
	OriginalMediaURL  *string             `json:"originalMediaUrl,omitempty"`
	ProcessedMediaURL *string             `json:"processedMediaUrl,omitempty"`
	ThumbnailURL      *string             `json:"thumbnailUrl,omitempty"`
	Tags              []string            `json:"tags"`
	ViewCount         int                 `json:"viewCount"`
	DownloadCount     int                 `json:"downloadCount"`
	Rating            float64             `json:"rating"`
	PublishDate       *time.Time          `json:"publishDate,omitempty"`
	SyncVersion       int64               `json:"syncVersion"`
	CreatedAt         time.Time           `json:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

func NewEpisodeDTO(episode *models.Episode) *EpisodeDTO {
	if episode == nil {
		return nil
	}
	dto := &EpisodeDTO{
		ID:                episode.ID,
		ProgramID:         episode.ProgramID,
		Title:             episode.Title,
		TitleAr:           episode.TitleAr,
		Description:       episode.Description,
		DescriptionAr:     episode.DescriptionAr,
		DurationSeconds:   episode.DurationSeconds,
		EpisodeNumber:     episode.EpisodeNumber,
		SeasonNumber:      episode.SeasonNumber,
		Status:            episode.Status,
		OriginalMediaURL:  episode.OriginalMediaURL,
		ProcessedMediaURL: episode.ProcessedMediaURL,
		ThumbnailURL:      episode.ThumbnailURL,
		Tags:              episode.Tags,
		ViewCount:         episode.ViewCount,
		DownloadCount:     episode.DownloadCount,
		Rating:            episode.Rating,
		PublishDate:       episode.PublishDate,
		SyncVersion:       episode.SyncVersion,
		CreatedAt:         episode.CreatedAt,
		UpdatedAt:         episode.UpdatedAt,
	}
	if episode.Program != nil {
		dto.ProgramTitle = episode.Program.Title
	}
	if dto.Tags == nil {
		dto.Tags = []string{}
	}
	return dto
}

type EpisodeListResult struct {
	Episodes []EpisodeDTO `json:"episodes"`
	Total    int64        `json:"total"`
}
