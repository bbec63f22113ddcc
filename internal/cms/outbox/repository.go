// Package outbox persists publish intent next to domain writes and tracks
// each row until the broker acknowledges it.
package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tariqnasser/airwave-backend/pkg/db/models"
	"github.com/tariqnasser/airwave-backend/pkg/enums"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes the outbox row inside the caller's transaction. This is the
// half of the pattern that must share a commit with the domain write.
func (r *Repository) Insert(tx *gorm.DB, event *models.OutboxEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(event).Error
}

// MarkSent records broker acknowledgment for a row. Runs outside the domain
// transaction, after the send.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":  enums.OutboxSent,
			"sent_at": time.Now().UTC(),
		}).Error
}

// MarkFailed flags a row for the sweeper. The row keeps its payload and
// version; a later replay sends the identical envelope.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, cause error) error {
	return r.db.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      enums.OutboxFailed,
			"last_error":  cause.Error(),
			"retry_count": gorm.Expr("retry_count + 1"),
		}).Error
}

// FetchRetryableTx returns rows the sweeper should replay: failed rows below
// the retry budget plus pending rows older than pendingGrace, which were
// orphaned by a crash between commit and send. Rows are locked so concurrent
// sweeps do not double-send.
func (r *Repository) FetchRetryableTx(tx *gorm.DB, limit, maxRetries int, pendingGrace time.Duration) ([]models.OutboxEvent, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	cutoff := time.Now().UTC().Add(-pendingGrace)
	var rows []models.OutboxEvent
	err := tx.
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("(status = ? AND retry_count < ?) OR (status = ? AND created_at < ?)",
			enums.OutboxFailed, maxRetries, enums.OutboxPending, cutoff).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkSentTx(tx *gorm.DB, id uuid.UUID) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":  enums.OutboxSent,
			"sent_at": time.Now().UTC(),
		}).Error
}

func (r *Repository) MarkFailedTx(tx *gorm.DB, id uuid.UUID, cause error) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      enums.OutboxFailed,
			"last_error":  cause.Error(),
			"retry_count": gorm.Expr("retry_count + 1"),
		}).Error
}

// DeleteTx removes a row after it has been copied to the dead letter table.
func (r *Repository) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Where("id = ?", id).Delete(&models.OutboxEvent{}).Error
}

// StatusCounts reports row counts per status for the monitoring endpoint and
// the outbox gauge.
func (r *Repository) StatusCounts(ctx context.Context) (map[enums.OutboxStatus]int64, error) {
	type row struct {
		Status enums.OutboxStatus
		Total  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&models.OutboxEvent{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[enums.OutboxStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts, nil
}

// DeleteSentBefore purges acknowledged rows older than cutoff. Sent rows are
// pure history; the discovery store is the durable read model.
func (r *Repository) DeleteSentBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status = ? AND sent_at < ?", enums.OutboxSent, cutoff).
		Delete(&models.OutboxEvent{})
	return res.RowsAffected, res.Error
}
