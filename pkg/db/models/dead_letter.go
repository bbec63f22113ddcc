package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/tariqnasser/airwave-backend/pkg/enums"
)

// OutboxDeadLetter captures outbox rows that exhausted their retry budget on
// the producer side. Rows here need operator attention; nothing replays them
// automatically.
type OutboxDeadLetter struct {
	ID           uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OutboxID     uuid.UUID              `gorm:"column:outbox_id;type:uuid;not null"`
	EntityType   enums.EntityType       `gorm:"column:entity_type;type:entity_type;not null"`
	EntityID     uuid.UUID              `gorm:"column:entity_id;type:uuid;not null"`
	EventType    enums.EventType        `gorm:"column:event_type;type:event_type;not null"`
	Topic        string                 `gorm:"column:topic;not null"`
	Payload      json.RawMessage        `gorm:"column:payload;type:jsonb;not null"`
	Reason       enums.DeadLetterReason `gorm:"column:reason;type:dead_letter_reason;not null"`
	ErrorMessage *string                `gorm:"column:error_message"`
	RetryCount   int                    `gorm:"column:retry_count;not null;default:0"`
	FailedAt     time.Time              `gorm:"column:failed_at;autoCreateTime"`
}

// SyncDeadLetter captures messages the discovery consumer could not apply:
// malformed envelopes and payloads that fail validation. Version-gate discards
// never land here; they are normal traffic.
type SyncDeadLetter struct {
	ID           uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Topic        string                 `gorm:"column:topic;not null"`
	Partition    int32                  `gorm:"column:partition;not null"`
	Offset       int64                  `gorm:"column:kafka_offset;not null"`
	RawMessage   []byte                 `gorm:"column:raw_message;not null"`
	Reason       enums.DeadLetterReason `gorm:"column:reason;type:dead_letter_reason;not null"`
	ErrorMessage *string                `gorm:"column:error_message"`
	FailedAt     time.Time              `gorm:"column:failed_at;autoCreateTime"`
}
