package programs

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tariqnasser/airwave-backend/pkg/db/models"
	"github.com/tariqnasser/airwave-backend/pkg/enums"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, program *models.Program) (*models.Program, error) {
	if err := r.db.WithContext(ctx).Create(program).Error; err != nil {
		return nil, err
	}
	return program, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Program, error) {
	var program models.Program
	err := r.db.WithContext(ctx).Preload("Publisher").First(&program, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &program, nil
}

func (r *Repository) Save(ctx context.Context, program *models.Program) error {
	return r.db.WithContext(ctx).Save(program).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Program{}).Error
}

// BumpSyncVersion atomically increments the program's version counter and
// returns the new value. Because the increment runs inside the domain
// transaction, two concurrent writers can never stage the same version.
func (r *Repository) BumpSyncVersion(ctx context.Context, id uuid.UUID) (int64, error) {
	var version int64
	err := r.db.WithContext(ctx).
		Raw("UPDATE programs SET sync_version = sync_version + 1 WHERE id = ? RETURNING sync_version", id).
		Scan(&version).Error
	if err != nil {
		return 0, err
	}
	if version == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return version, nil
}

// RefreshEpisodeCount recounts the program's episodes from rows. The column
// is never incremented in place; counting is what keeps it honest after
// deletes and retries.
func (r *Repository) RefreshEpisodeCount(ctx context.Context, programID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Exec("UPDATE programs SET episode_count = (SELECT COUNT(*) FROM episodes WHERE program_id = ?) WHERE id = ?",
			programID, programID).Error
}

type ListFilter struct {
	PublisherID *uuid.UUID
	Status      *enums.ContentStatus
	Category    *string
	Limit       int
	Offset      int
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Program, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Program{})
	if filter.PublisherID != nil {
		query = query.Where("publisher_id = ?", *filter.PublisherID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var rows []models.Program
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&rows).Error
	return rows, total, err
}

func (r *Repository) FindPublisher(ctx context.Context, id uuid.UUID) (*models.Publisher, error) {
	var publisher models.Publisher
	err := r.db.WithContext(ctx).First(&publisher, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &publisher, nil
}
