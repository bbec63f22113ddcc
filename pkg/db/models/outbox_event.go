package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/tariqnasser/airwave-backend/pkg/enums"
)

// OutboxEvent is the durable record of publish intent written alongside every
// domain mutation. A retried send reuses the same row and increments
// RetryCount; it never allocates a new row or a new version.
type OutboxEvent struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EntityType   enums.EntityType   `gorm:"column:entity_type;type:entity_type;not null"`
	EntityID     uuid.UUID          `gorm:"column:entity_id;type:uuid;not null"`
	EventType    enums.EventType    `gorm:"column:event_type;type:event_type;not null"`
	Topic        string             `gorm:"column:topic;not null"`
	PartitionKey string             `gorm:"column:partition_key;not null"`
	Version      int64              `gorm:"column:version;not null"`
	Payload      json.RawMessage    `gorm:"column:payload;type:jsonb;not null"`
	Status       enums.OutboxStatus `gorm:"column:status;type:outbox_status;not null;default:pending"`
	RetryCount   int                `gorm:"column:retry_count;not null;default:0"`
	LastError    *string            `gorm:"column:last_error"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	SentAt       *time.Time         `gorm:"column:sent_at"`
}
