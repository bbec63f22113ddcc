package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tariqnasser/airwave-backend/api/responses"
	"github.com/tariqnasser/airwave-backend/api/validators"
	programsvc "github.com/tariqnasser/airwave-backend/internal/cms/programs"
	"github.com/tariqnasser/airwave-backend/pkg/enums"
	pkgerrors "github.com/tariqnasser/airwave-backend/pkg/errors"
	"github.com/tariqnasser/airwave-backend/pkg/logger"
)

type createProgramRequest struct {
	PublisherID        string   `json:"publisherId" validate:"required,uuid"`
	Title              string   `json:"title" validate:"required,max=300"`
	TitleAr            *string  `json:"titleAr,omitempty"`
	Description        string   `json:"description" validate:"required"`
	DescriptionAr      *string  `json:"descriptionAr,omitempty"`
	ShortDescription   *string  `json:"shortDescription,omitempty"`
	ShortDescriptionAr *string  `json:"shortDescriptionAr,omitempty"`
	Category           string   `json:"category" validate:"required"`
	Language           string   `json:"language,omitempty"`
	Type               string   `json:"type" validate:"required"`
	ThumbnailURL       *string  `json:"thumbnailUrl,omitempty"`
	CoverImageURL      *string  `json:"coverImageUrl,omitempty"`
	TrailerURL         *string  `json:"trailerUrl,omitempty"`
	Tags               []string `json:"tags,omitempty"`
}

func (r createProgramRequest) toInput() (programsvc.CreateProgramInput, error) {
	publisherID, err := uuid.Parse(r.PublisherID)
	if err != nil {
		return programsvc.CreateProgramInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid publisher id")
	}
	programType, err := enums.ParseProgramType(strings.TrimSpace(r.Type))
	if err != nil {
		return programsvc.CreateProgramInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid program type")
	}
	return programsvc.CreateProgramInput{
		PublisherID:        publisherID,
		Title:              validators.SanitizeString(r.Title, 300),
		TitleAr:            r.TitleAr,
		Description:        strings.TrimSpace(r.Description),
		DescriptionAr:      r.DescriptionAr,
		ShortDescription:   r.ShortDescription,
		ShortDescriptionAr: r.ShortDescriptionAr,
		Category:           validators.SanitizeString(r.Category, 100),
		Language:           strings.TrimSpace(r.Language),
		Type:               programType,
		ThumbnailURL:       r.ThumbnailURL,
		CoverImageURL:      r.CoverImageURL,
		TrailerURL:         r.TrailerURL,
		Tags:               r.Tags,
	}, nil
}

type updateProgramRequest struct {
	Title              *string   `json:"title,omitempty" validate:"omitempty,max=300"`
	TitleAr            *string   `json:"titleAr,omitempty"`
	Description        *string   `json:"description,omitempty"`
	DescriptionAr      *string   `json:"descriptionAr,omitempty"`
	ShortDescription   *string   `json:"shortDescription,omitempty"`
	ShortDescriptionAr *string   `json:"shortDescriptionAr,omitempty"`
	Category           *string   `json:"category,omitempty"`
	Language           *string   `json:"language,omitempty"`
	Type               *string   `json:"type,omitempty"`
	ThumbnailURL       *string   `json:"thumbnailUrl,omitempty"`
	CoverImageURL      *string   `json:"coverImageUrl,omitempty"`
	TrailerURL         *string   `json:"trailerUrl,omitempty"`
	Tags               *[]string `json:"tags,omitempty"`
	IsFeatured         *bool     `json:"isFeatured,omitempty"`
}

func (r updateProgramRequest) toInput() (programsvc.UpdateProgramInput, error) {
	input := programsvc.UpdateProgramInput{
		Title:              r.Title,
		TitleAr:            r.TitleAr,
		Description:        r.Description,
		DescriptionAr:      r.DescriptionAr,
		ShortDescription:   r.ShortDescription,
		ShortDescriptionAr: r.ShortDescriptionAr,
		Category:           r.Category,
		Language:           r.Language,
		ThumbnailURL:       r.ThumbnailURL,
		CoverImageURL:      r.CoverImageURL,
		TrailerURL:         r.TrailerURL,
		Tags:               r.Tags,
		IsFeatured:         r.IsFeatured,
	}
	if r.Type != nil {
		programType, err := enums.ParseProgramType(strings.TrimSpace(*r.Type))
		if err != nil {
			return programsvc.UpdateProgramInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid program type")
		}
		input.Type = &programType
	}
	return input, nil
}

func CreateProgram(svc programsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createProgramRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		program, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, program)
	}
}

func UpdateProgram(svc programsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		programID, err := pathUUID(r, "programId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProgramRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		program, err := svc.Update(r.Context(), programID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, program)
	}
}

func PublishProgram(svc programsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return programTransition(svc.Publish, logg)
}

func UnpublishProgram(svc programsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return programTransition(svc.Unpublish, logg)
}

func ArchiveProgram(svc programsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return programTransition(svc.Archive, logg)
}

func DeleteProgram(svc programsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		programID, err := pathUUID(r, "programId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), programID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// ResyncProgram forces a fresh sync event for the program's current state.
func ResyncProgram(svc programsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		programID, err := pathUUID(r, "programId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Resync(r.Context(), programID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "resync queued"})
	}
}

func GetProgram(svc programsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		programID, err := pathUUID(r, "programId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		program, err := svc.Get(r.Context(), programID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, program)
	}
}

func ListPrograms(svc programsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := programListFilter(r)
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

func programTransition(op func(context.Context, uuid.UUID) (*programsvc.ProgramDTO, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		programID, err := pathUUID(r, "programId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		program, err := op(r.Context(), programID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, program)
	}
}

func programListFilter(r *http.Request) (programsvc.ListFilter, error) {
	filter := programsvc.ListFilter{}

	if raw := strings.TrimSpace(r.URL.Query().Get("publisherId")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid publisher id")
		}
		filter.PublisherID = &id
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseContentStatus(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		filter.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
		filter.Category = &raw
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

func pathUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := chi.URLParam(r, key)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+key)
	}
	return id, nil
}
