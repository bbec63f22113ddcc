package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tariqnasser/airwave-backend/api/responses"
	"github.com/tariqnasser/airwave-backend/api/validators"
	"github.com/tariqnasser/airwave-backend/internal/cms/outbox"
	pkgerrors "github.com/tariqnasser/airwave-backend/pkg/errors"
	"github.com/tariqnasser/airwave-backend/pkg/logger"
)

// OutboxStatus reports row counts per outbox status. Operators watch the
// failed count; a growing one means the broker is down or rejecting sends.
func OutboxStatus(repo *outbox.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := repo.StatusCounts(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: outbox status counts"))
			return
		}

		payload := map[string]int64{}
		for status, count := range counts {
			payload[string(status)] = count
		}
		responses.WriteSuccess(w, map[string]any{"counts": payload})
	}
}

type deadLetterView struct {
	ID           uuid.UUID `json:"id"`
	OutboxID     uuid.UUID `json:"outboxId"`
	EntityType   string    `json:"entityType"`
	EntityID     uuid.UUID `json:"entityId"`
	EventType    string    `json:"eventType"`
	Topic        string    `json:"topic"`
	Reason       string    `json:"reason"`
	ErrorMessage *string   `json:"errorMessage,omitempty"`
	RetryCount   int       `json:"retryCount"`
	FailedAt     time.Time `json:"failedAt"`
}

// OutboxDeadLetters lists events that exhausted their retry budget.
func OutboxDeadLetters(repo *outbox.DLQRepository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := repo.List(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list dead letters"))
			return
		}

		views := make([]deadLetterView, 0, len(rows))
		for _, row := range rows {
			views = append(views, deadLetterView{
				ID:           row.ID,
				OutboxID:     row.OutboxID,
				EntityType:   string(row.EntityType),
				EntityID:     row.EntityID,
				EventType:    string(row.EventType),
				Topic:        row.Topic,
				Reason:       string(row.Reason),
				ErrorMessage: row.ErrorMessage,
				RetryCount:   row.RetryCount,
				FailedAt:     row.FailedAt,
			})
		}
		responses.WriteSuccess(w, map[string]any{"deadLetters": views, "count": len(views)})
	}
}
