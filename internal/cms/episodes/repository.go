package episodes

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

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, episode *models.Episode) (*models.Episode, error) {
	if err := r.db.WithContext(ctx).Create(episode).Error; err != nil {
		return nil, err
	}
	return episode, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Episode, error) {
	var episode models.Episode
	err := r.db.WithContext(ctx).Preload("Program").Preload("Program.Publisher").First(&episode, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &episode, nil
}

func (r *Repository) Save(ctx context.Context, episode *models.Episode) error {
	return r.db.WithContext(ctx).Save(episode).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Episode{}).Error
}

// BumpSyncVersion mirrors the program counter: atomic increment inside the
// domain transaction.
func (r *Repository) BumpSyncVersion(ctx context.Context, id uuid.UUID) (int64, error) {
	var version int64
	err := r.db.WithContext(ctx).
		Raw("UPDATE episodes SET sync_version = sync_version + 1 WHERE id = ? RETURNING sync_version", id).
		Scan(&version).Error
	if err != nil {
		return 0, err
	}
	if version == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return version, nil
}

type ListFilter struct {
	ProgramID *uuid.UUID
	Status    *enums.ContentStatus
	Limit     int
	Offset    int
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Episode, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Episode{})
	if filter.ProgramID != nil {
		query = query.Where("program_id = ?", *filter.ProgramID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var rows []models.Episode
	err := query.
		Order("episode_number ASC").
		Order("created_at ASC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&rows).Error
	return rows, total, err
}

func (r *Repository) FindProgram(ctx context.Context, id uuid.UUID) (*models.Program, error) {
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

// RefreshProgramEpisodeCount recounts the parent's episodes after a create
// or delete.
func (r *Repository) RefreshProgramEpisodeCount(ctx context.Context, programID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Exec("UPDATE programs SET episode_count = (SELECT COUNT(*) FROM episodes WHERE program_id = ?) WHERE id = ?",
			programID, programID).Error
}
