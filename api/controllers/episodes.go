package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tariqnasser/airwave-backend/api/responses"
	"github.com/tariqnasser/airwave-backend/api/validators"
	episodesvc "github.com/tariqnasser/airwave-backend/internal/cms/episodes"
	"github.com/tariqnasser/airwave-backend/pkg/enums"
	pkgerrors "github.com/tariqnasser/airwave-backend/pkg/errors"
	"github.com/tariqnasser/airwave-backend/pkg/logger"
)

type createEpisodeRequest struct {
	ProgramID        string   `json:"programId" validate:"required,uuid"`
	Title            string   `json:"title" validate:"required,max=300"`
	TitleAr          *string  `json:"titleAr,omitempty"`
	Description      *string  `json:"description,omitempty"`
	DescriptionAr    *string  `json:"descriptionAr,omitempty"`
	DurationSeconds  int      `json:"durationSeconds" validate:"required,min=1"`
	EpisodeNumber    int      `json:"episodeNumber" validate:"required,min=1"`
	SeasonNumber     *int     `json:"seasonNumber,omitempty" validate:"omitempty,min=1"`
	OriginalMediaURL *string  `json:"originalMediaUrl,omitempty"`
	ThumbnailURL     *string  `json:"thumbnailUrl,omitempty"`
	Tags             []string `json:"tags,omitempty"`
}

func (r createEpisodeRequest) toInput() (episodesvc.CreateEpisodeInput, error) {
	programID, err := uuid.Parse(r.ProgramID)
	if err != nil {
		return episodesvc.CreateEpisodeInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid program id")
	}
	return episodesvc.CreateEpisodeInput{
		ProgramID:        programID,
		Title:            validators.SanitizeString(r.Title, 300),
		TitleAr:          r.TitleAr,
		Description:      r.Description,
		DescriptionAr:    r.DescriptionAr,
		DurationSeconds:  r.DurationSeconds,
		EpisodeNumber:    r.EpisodeNumber,
		SeasonNumber:     r.SeasonNumber,
		OriginalMediaURL: r.OriginalMediaURL,
		ThumbnailURL:     r.ThumbnailURL,
		Tags:             r.Tags,
	}, nil
}

type updateEpisodeRequest struct {
	Title             *string   `json:"title,omitempty" validate:"omitempty,max=300"`
	TitleAr           *string   `json:"titleAr,omitempty"`
	Description       *string   `json:"description,omitempty"`
	DescriptionAr     *string   `json:"descriptionAr,omitempty"`
	DurationSeconds   *int      `json:"durationSeconds,omitempty" validate:"omitempty,min=1"`
	EpisodeNumber     *int      `json:"episodeNumber,omitempty" validate:"omitempty,min=1"`
	SeasonNumber      *int      `json:"seasonNumber,omitempty" validate:"omitempty,min=1"`
	OriginalMediaURL  *string   `json:"originalMediaUrl,omitempty"`
	ProcessedMediaURL *string   `json:"processedMediaUrl,omitempty"`
	ThumbnailURL      *string   `json:"thumbnailUrl,omitempty"`
	Tags              *[]string `json:"tags,omitempty"`
}

func (r updateEpisodeRequest) toInput() episodesvc.UpdateEpisodeInput {
	return episodesvc.UpdateEpisodeInput{
		Title:             r.Title,
		TitleAr:           r.TitleAr,
		Description:       r.Description,
		DescriptionAr:     r.DescriptionAr,
		DurationSeconds:   r.DurationSeconds,
		EpisodeNumber:     r.EpisodeNumber,
		SeasonNumber:      r.SeasonNumber,
		OriginalMediaURL:  r.OriginalMediaURL,
		ProcessedMediaURL: r.ProcessedMediaURL,
		ThumbnailURL:      r.ThumbnailURL,
		Tags:              r.Tags,
	}
}

func CreateEpisode(svc episodesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createEpisodeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		episode, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, episode)
	}
}

func UpdateEpisode(svc episodesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		episodeID, err := pathUUID(r, "episodeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateEpisodeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		episode, err := svc.Update(r.Context(), episodeID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, episode)
	}
}

func PublishEpisode(svc episodesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return episodeTransition(svc.Publish, logg)
}

func UnpublishEpisode(svc episodesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return episodeTransition(svc.Unpublish, logg)
}

func DeleteEpisode(svc episodesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		episodeID, err := pathUUID(r, "episodeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), episodeID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func ResyncEpisode(svc episodesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		episodeID, err := pathUUID(r, "episodeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Resync(r.Context(), episodeID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "resync queued"})
	}
}

func GetEpisode(svc episodesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		episodeID, err := pathUUID(r, "episodeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		episode, err := svc.Get(r.Context(), episodeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, episode)
	}
}

func ListEpisodes(svc episodesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := episodeListFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func episodeTransition(op func(context.Context, uuid.UUID) (*episodesvc.EpisodeDTO, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		episodeID, err := pathUUID(r, "episodeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		episode, err := op(r.Context(), episodeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, episode)
	}
}

func episodeListFilter(r *http.Request) (episodesvc.ListFilter, error) {
	filter := episodesvc.ListFilter{}

	if raw := strings.TrimSpace(r.URL.Query().Get("programId")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid program id")
		}
		filter.ProgramID = &id
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseContentStatus(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		filter.Status = &status
	}

	limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
	if err != nil {
		return filter, err
	}
	offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1_000_000)
	if err != nil {
		return filter, err
	}
	filter.Limit = limit
	filter.Offset = offset
	return filter, nil
}
