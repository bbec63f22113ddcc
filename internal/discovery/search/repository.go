package search

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tariqnasser/airwave-backend/pkg/db/models"
	pkgsearch "github.com/tariqnasser/airwave-backend/pkg/search"
)

// Repository reads the discovery tables. It never writes; the sync consumer
// owns all mutations.
type Repository struct {
	db *gorm.DB
	// searchLanguage matches the configuration used to build search_vector.
	searchLanguage string
}

func NewRepository(db *gorm.DB, searchLanguage string) *Repository {
	if searchLanguage == "" {
		searchLanguage = "arabic"
	}
	return &Repository{db: db, searchLanguage: searchLanguage}
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// SearchPrograms ranks full-text matches first and falls back to keyword
// overlap so partial Arabic tokens still match.
func (r *Repository) SearchPrograms(ctx context.Context, query string, limit, offset int) ([]models.DiscoveryProgram, int64, error) {
	limit, offset = clampPage(limit, offset)
	keywords := pq.StringArray(pkgsearch.ExtractKeywords(query))

	where := "search_vector @@ websearch_to_tsquery(?::regconfig, ?) OR search_keywords && ?"
	base := r.db.WithContext(ctx).
		Model(&models.DiscoveryProgram{}).
		Where(where, r.searchLanguage, query, keywords)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.DiscoveryProgram
	err := base.
		Clauses(clause.OrderBy{Expression: clause.Expr{
			SQL:  "ts_rank(search_vector, websearch_to_tsquery(?::regconfig, ?)) DESC, view_count DESC",
			Vars: []interface{}{r.searchLanguage, query},
		}}).
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	return rows, total, err
}

// SearchEpisodes mirrors SearchPrograms on the episode table.
func (r *Repository) SearchEpisodes(ctx context.Context, query string, limit, offset int) ([]models.DiscoveryEpisode, int64, error) {
	limit, offset = clampPage(limit, offset)
	keywords := pq.StringArray(pkgsearch.ExtractKeywords(query))

	where := "search_vector @@ websearch_to_tsquery(?::regconfig, ?) OR search_keywords && ?"
	base := r.db.WithContext(ctx).
		Model(&models.DiscoveryEpisode{}).
		Where(where, r.searchLanguage, query, keywords)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.DiscoveryEpisode
	err := base.
		Clauses(clause.OrderBy{Expression: clause.Expr{
			SQL:  "ts_rank(search_vector, websearch_to_tsquery(?::regconfig, ?)) DESC, publish_date DESC",
			Vars: []interface{}{r.searchLanguage, query},
		}}).
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	return rows, total, err
}

// BrowseFilter narrows the program catalog.
type BrowseFilter struct {
	Category *string
	Type     *string
	Language *string
	Featured *bool
	// Sort is one of "recent", "popular", "rating". Empty means recent.
	Sort   string
	Limit  int
	Offset int
}

func (r *Repository) BrowsePrograms(ctx context.Context, filter BrowseFilter) ([]models.DiscoveryProgram, int64, error) {
	limit, offset := clampPage(filter.Limit, filter.Offset)

	query := r.db.WithContext(ctx).Model(&models.DiscoveryProgram{})
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.Language != nil {
		query = query.Where("language = ?", *filter.Language)
	}
	if filter.Featured != nil {
		query = query.Where("is_featured = ?", *filter.Featured)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch filter.Sort {
	case "popular":
		query = query.Order("view_count DESC")
	case "rating":
		query = query.Order("rating DESC")
	default:
		query = query.Order("published_at DESC")
	}

	var rows []models.DiscoveryProgram
	err := query.Limit(limit).Offset(offset).Find(&rows).Error
	return rows, total, err
}

func (r *Repository) GetProgram(ctx context.Context, id uuid.UUID) (*models.DiscoveryProgram, error) {
	var row models.DiscoveryProgram
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *Repository) ListProgramEpisodes(ctx context.Context, programID uuid.UUID, limit, offset int) ([]models.DiscoveryEpisode, int64, error) {
	limit, offset = clampPage(limit, offset)

	base := r.db.WithContext(ctx).
		Model(&models.DiscoveryEpisode{}).
		Where("program_id = ?", programID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.DiscoveryEpisode
	err := base.
		Order("episode_number ASC, publish_date ASC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	return rows, total, err
}
