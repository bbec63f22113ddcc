// Package sweeper replays outbox rows the immediate publish path could not
// deliver. It is the safety net that makes the outbox pattern at-least-once:
// rows are resent verbatim, and rows that exhaust their retry budget move to
// the dead letter table.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tariqnasser/airwave-backend/internal/cms/producer"
	"github.com/tariqnasser/airwave-backend/pkg/config"
	"github.com/tariqnasser/airwave-backend/pkg/db/models"
	"github.com/tariqnasser/airwave-backend/pkg/enums"
	"github.com/tariqnasser/airwave-backend/pkg/kafka"
	"github.com/tariqnasser/airwave-backend/pkg/logger"
	"github.com/tariqnasser/airwave-backend/pkg/metrics"
)

const (
	defaultSweepInterval = 30 * time.Second
	defaultSweepBatch    = 10
	defaultMaxRetries    = 3
	maxBackoff           = 5 * time.Minute
	jitterWindow         = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	FetchRetryableTx(tx *gorm.DB, limit, maxRetries int, pendingGrace time.Duration) ([]models.OutboxEvent, error)
	MarkSentTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, cause error) error
	DeleteTx(tx *gorm.DB, id uuid.UUID) error
	StatusCounts(ctx context.Context) (map[enums.OutboxStatus]int64, error)
	DeleteSentBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDeadLetter) error
}

type broker interface {
	SendMessage(topic, key string, value []byte, headers []kafka.Header) (int32, int64, error)
	Ping(ctx context.Context) error
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         dbClient
	Repository outboxRepository
	DLQ        dlqRepository
	Broker     broker
	Metrics    *metrics.PipelineMetrics
}

type Service struct {
	cfg          *config.Config
	logg         *logger.Logger
	db           dbClient
	repo         outboxRepository
	dlq          dlqRepository
	broker       broker
	metrics      *metrics.PipelineMetrics
	interval     time.Duration
	batchSize    int
	maxRetries   int
	pendingGrace time.Duration
	retention    time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.DLQ == nil {
		return nil, errors.New("dlq repository is required")
	}
	if params.Broker == nil {
		return nil, errors.New("broker is required")
	}

	interval := params.Config.Outbox.SweepInterval
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	batch := params.Config.Outbox.SweepBatch
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	maxRetries := params.Config.Outbox.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	return &Service{
		cfg:          params.Config,
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		dlq:          params.DLQ,
		broker:       params.Broker,
		metrics:      params.Metrics,
		interval:     interval,
		batchSize:    batch,
		maxRetries:   maxRetries,
		pendingGrace: params.Config.Outbox.PendingGrace,
		retention:    params.Config.Outbox.RetentionAge,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "database", s.db.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "kafka", s.broker.Ping); err != nil {
		return err
	}
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

// Run sweeps on an interval until ctx is cancelled. Sweep errors back off
// exponentially; a clean sweep resets the cadence.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	backoff := s.interval
	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "outbox sweeper context canceled")
			return ctx.Err()
		default:
		}

		if err := s.Sweep(ctx); err != nil {
			s.logg.Error(ctx, "outbox sweep error", err)
			backoff = nextBackoff(backoff, s.interval, maxBackoff)
		} else {
			backoff = s.interval
		}

		if err := s.sleep(ctx, withJitter(backoff)); err != nil {
			return err
		}
	}
}

// Sweep replays one batch of retryable rows, refreshes the outbox gauge and
// purges old acknowledged rows.
func (s *Service) Sweep(ctx context.Context) error {
	if err := s.processBatch(ctx); err != nil {
		return err
	}
	s.refreshGauge(ctx)
	s.purgeSent(ctx)
	return nil
}

func (s *Service) processBatch(ctx context.Context) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.FetchRetryableTx(tx, s.batchSize, s.maxRetries, s.pendingGrace)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if err := s.replay(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
}

// replay resends the stored payload byte for byte. The envelope already
// carries its version; regenerating anything here would break idempotence on
// the consumer side.
func (s *Service) replay(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	logCtx := s.logg.WithTopic(ctx, row.Topic)
	logCtx = s.logg.WithEntity(logCtx, string(row.EntityType), row.EntityID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"outbox_id":   row.ID.String(),
		"version":     row.Version,
		"retry_count": row.RetryCount,
	})

	_, _, sendErr := s.broker.SendMessage(row.Topic, row.PartitionKey, row.Payload, producer.Headers(&row))
	if sendErr == nil {
		if err := s.repo.MarkSentTx(tx, row.ID); err != nil {
			return fmt.Errorf("mark sent %s: %w", row.ID, err)
		}
		s.metrics.IncPublished(string(row.EntityType), string(row.EventType))
		s.logg.Info(logCtx, "outbox row replayed")
		return nil
	}

	s.metrics.IncPublishFailure(string(row.EntityType))

	if row.RetryCount+1 >= s.maxRetries {
		s.logg.Error(logCtx, "outbox row exhausted retries, moving to dead letter", sendErr)
		return s.moveToDeadLetter(tx, row, sendErr)
	}

	s.logg.Warn(s.logg.WithField(logCtx, "error", sendErr.Error()), "outbox replay failed")
	if err := s.repo.MarkFailedTx(tx, row.ID, sendErr); err != nil {
		return fmt.Errorf("mark failed %s: %w", row.ID, err)
	}
	return nil
}

func (s *Service) moveToDeadLetter(tx *gorm.DB, row models.OutboxEvent, cause error) error {
	msg := cause.Error()
	entry := models.OutboxDeadLetter{
		OutboxID:     row.ID,
		EntityType:   row.EntityType,
		EntityID:     row.EntityID,
		EventType:    row.EventType,
		Topic:        row.Topic,
		Payload:      row.Payload,
		Reason:       enums.DeadLetterMaxRetries,
		ErrorMessage: &msg,
		RetryCount:   row.RetryCount + 1,
		FailedAt:     time.Now().UTC(),
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dead letter %s: %w", row.ID, err)
	}
	if err := s.repo.DeleteTx(tx, row.ID); err != nil {
		return fmt.Errorf("delete exhausted row %s: %w", row.ID, err)
	}
	s.metrics.IncDeadLettered("outbox", string(enums.DeadLetterMaxRetries))
	return nil
}

func (s *Service) refreshGauge(ctx context.Context) {
	counts, err := s.repo.StatusCounts(ctx)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "outbox status counts unavailable")
		return
	}
	for _, status := range []enums.OutboxStatus{enums.OutboxPending, enums.OutboxSent, enums.OutboxFailed} {
		s.metrics.SetOutboxRows(string(status), counts[status])
	}
}

func (s *Service) purgeSent(ctx context.Context) {
	if s.retention <= 0 {
		return
	}
	cutoff := time.Now().UTC().Add(-s.retention)
	purged, err := s.repo.DeleteSentBefore(ctx, cutoff)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "outbox retention purge failed")
		return
	}
	if purged > 0 {
		s.logg.Info(s.logg.WithField(ctx, "purged", purged), "purged acknowledged outbox rows")
	}
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	jitter := time.Duration(jitterSource.Int63n(int64(jitterWindow)))
	return d + jitter
}
