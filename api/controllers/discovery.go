package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/tariqnasser/airwave-backend/api/responses"
	"github.com/tariqnasser/airwave-backend/api/validators"
	searchsvc "github.com/tariqnasser/airwave-backend/internal/discovery/search"
	"github.com/tariqnasser/airwave-backend/internal/discovery/store"
	"github.com/tariqnasser/airwave-backend/pkg/logger"
)

// Search runs full-text search over the discovery catalog.
func Search(svc *searchsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := strings.TrimSpace(r.URL.Query().Get("q"))

		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 50)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Search(r.Context(), query, limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Browse lists the catalog by category, type and feature flags.
func Browse(svc *searchsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := browseFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Browse(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// DiscoveryProgram returns one program with a page of its episodes.
func DiscoveryProgram(svc *searchsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		programID, err := pathUUID(r, "programId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 50)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Program(r.Context(), programID, limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type statsProvider interface {
	Stats(ctx context.Context) (*store.SyncStats, error)
}

// SyncStats reports how far the read model has drifted from the CMS.
func SyncStats(provider statsProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := provider.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

func browseFilter(r *http.Request) (searchsvc.BrowseFilter, error) {
	filter := searchsvc.BrowseFilter{}

	if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
		filter.Category = &raw
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
		filter.Type = &raw
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("language")); raw != "" {
		filter.Language = &raw
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("featured")); raw != "" {
		featured := raw == "true" || raw == "1"
		filter.Featured = &featured
	}
	filter.Sort = strings.TrimSpace(r.URL.Query().Get("sort"))

	limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 50)
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
