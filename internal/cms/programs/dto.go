package programs

import (
	"time"

	"github.com/google/uuid"

	"github.com/tariqnasser/airwave-backend/pkg/db/models"
	"github.com/tariqnasser/airwave-backend/pkg/enums"
)

// ProgramDTO is the API-facing view of a CMS program.
type ProgramDTO struct {
	ID                 uuid.UUID           `json:"id"`
	PublisherID        uuid.UUID           `json:"publisherId"`
	PublisherName      string              `json:"publisherName,omitempty"`
	Title              string              `json:"title"`
	TitleAr            *string             `json:"titleAr,omitempty"`
	Description        string              `json:"description"`
	DescriptionAr      *string             `json:"descriptionAr,omitempty"`
	ShortDescription   *string             `json:"shortDescription,omitempty"`
	ShortDescriptionAr *string             `json:"shortDescriptionAr,omitempty"`
	Category           string              `json:"category"`
	Language           string              `json:"language"`
	Type               enums.ProgramType   `json:"type"`
	Status             enums.ContentStatus `json:"status"`
	ThumbnailURL       *string             `json:"thumbnailUrl,omitempty"`
	CoverImageURL      *string             `json:"coverImageUrl,omitempty"`
	TrailerURL         *string             `json:"trailerUrl,omitempty"`
	Tags               []string            `json:"tags"`
	EpisodeCount       int                 `json:"episodeCount"`
	ViewCount          int                 `json:"viewCount"`
	Rating             float64             `json:"rating"`
	IsFeatured         bool                `json:"isFeatured"`
	PublishedAt        *time.Time          `json:"publishedAt,omitempty"`
	CreatedAt          time.Time           `json:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
}

func NewProgramDTO(program *models.Program) *ProgramDTO {
	if program == nil {
		return nil
	}
	dto := &ProgramDTO{
		ID:                 program.ID,
		PublisherID:        program.PublisherID,
		Title:              program.Title,
		TitleAr:            program.TitleAr,
		Description:        program.Description,
		DescriptionAr:      program.DescriptionAr,
		ShortDescription:   program.ShortDescription,
		ShortDescriptionAr: program.ShortDescriptionAr,
		Category:           program.Category,
		Language:           program.Language,
		Type:               program.Type,
		Status:             program.Status,
		ThumbnailURL:       program.ThumbnailURL,
		CoverImageURL:      program.CoverImageURL,
		TrailerURL:         program.TrailerURL,
		Tags:               program.Tags,
		EpisodeCount:       program.EpisodeCount,
		ViewCount:          program.ViewCount,
		Rating:             program.Rating,
		IsFeatured:         program.IsFeatured,
		PublishedAt:        program.PublishedAt,
		CreatedAt:          program.CreatedAt,
		UpdatedAt:          program.UpdatedAt,
	}
	if program.Publisher != nil {
		dto.PublisherName = program.Publisher.Name
	}
	return dto
}

// ProgramListResult pairs one page of programs with the total row count.
type ProgramListResult struct {
	Programs []ProgramDTO `json:"programs"`
	Total    int64        `json:"total"`
}
