package producer

import (
	"encoding/json"

	"github.com/tariqnasser/airwave-backend/pkg/db/models"
	"github.com/tariqnasser/airwave-backend/pkg/enums"
	"github.com/tariqnasser/airwave-backend/pkg/events"
)

// ProgramPayload builds the envelope data for a program event. Removal
// events carry a tombstone, unpublished programs carry null, published
// programs carry the full projection.
func ProgramPayload(program *models.Program, publisherName string, eventType enums.EventType) (json.RawMessage, error) {
	if eventType.IsRemoval() {
		return json.Marshal(events.Tombstone{ID: program.ID, Deleted: true})
	}
	if program.Status != enums.ContentPublished {
		return json.RawMessage("null"), nil
	}
	projection := events.ProgramProjection{
		ID:               program.ID,
		PublisherID:      program.PublisherID,
		PublisherName:    publisherName,
		Title:            program.Title,
		TitleAr:          program.TitleAr,
		Description:      program.Description,
		DescriptionAr:    program.DescriptionAr,
		ShortDescription: program.ShortDescription,
		Category:         program.Category,
		Language:         program.Language,
		Type:             string(program.Type),
		Rating:           program.Rating,
		ViewCount:        program.ViewCount,
		ThumbnailURL:     program.ThumbnailURL,
		CoverImageURL:    program.CoverImageURL,
		Tags:             program.Tags,
		IsFeatured:       program.IsFeatured,
		PublishedAt:      program.PublishedAt,
	}
	return json.Marshal(projection)
}

// EpisodePayload builds the envelope data for an episode event. An episode
// is only public when both it and its parent program are published.
func EpisodePayload(episode *models.Episode, program *models.Program, eventType enums.EventType) (json.RawMessage, error) {
	if eventType.IsRemoval() {
		return json.Marshal(events.Tombstone{ID: episode.ID, Deleted: true})
	}
	if episode.Status != enums.ContentPublished || program.Status != enums.ContentPublished {
		return json.RawMessage("null"), nil
	}
	projection := events.EpisodeProjection{
		ID:                episode.ID,
		ProgramID:         episode.ProgramID,
		ProgramTitle:      program.Title,
		ProgramCategory:   program.Category,
		Title:             episode.Title,
		TitleAr:           episode.TitleAr,
		Description:       episode.Description,
		DescriptionAr:     episode.DescriptionAr,
		ProcessedMediaURL: episode.ProcessedMediaURL,
		DurationSeconds:   episode.DurationSeconds,
		EpisodeNumber:     episode.EpisodeNumber,
		SeasonNumber:      episode.SeasonNumber,
		PublishDate:       episode.PublishDate,
		ViewCount:         episode.ViewCount,
		DownloadCount:     episode.DownloadCount,
		Tags:              episode.Tags,
	}
	return json.Marshal(projection)
}
