package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tariqnasser/airwave-backend/pkg/enums"
)

// Metadata carries optional diagnostic context alongside an envelope.
type Metadata struct {
	UserID        string `json:"userId,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
	// PublisherContext holds the owning publisher id for program events.
	PublisherContext string `json:"publisherContext,omitempty"`
	// ProgramContext holds the parent program id for episode events.
	ProgramContext string `json:"programContext,omitempty"`
}

// Envelope is the versioned event record shared by the CMS producer and the
// discovery consumer. Version is strictly increasing per (entityType,
// entityId); the consumer never applies an envelope whose version is at or
// below the stored one.
type Envelope struct {
	EventID    uuid.UUID         `json:"eventId"`
	EventType  enums.EventType   `json:"eventType"`
	EntityType enums.EntityType  `json:"entityType"`
	EntityID   uuid.UUID         `json:"entityId"`
	Version    int64             `json:"version"`
	Timestamp  time.Time         `json:"timestamp"`
	Source     enums.EventSource `json:"source"`
	// Data is nil when there is nothing to sync (entity not yet public).
	Data     json.RawMessage `json:"data"`
	Metadata *Metadata       `json:"metadata,omitempty"`
}

// Tombstone is the minimal payload emitted for deleted/unpublished entities.
type Tombstone struct {
	ID      uuid.UUID `json:"id"`
	Deleted bool      `json:"deleted"`
}

// IsTombstone reports whether the envelope data carries a deletion marker
// rather than a full projection.
func (e *Envelope) IsTombstone() bool {
	if len(e.Data) == 0 {
		return false
	}
	var t Tombstone
	if err := json.Unmarshal(e.Data, &t); err != nil {
		return false
	}
	return t.Deleted
}

// HasData reports whether the envelope carries a syncable payload.
func (e *Envelope) HasData() bool {
	return len(e.Data) > 0 && string(e.Data) != "null"
}

// Validate checks the fields the consumer depends on before dispatch.
func (e *Envelope) Validate() error {
	if e.EventID == uuid.Nil {
		return fmt.Errorf("envelope missing event id")
	}
	if !e.EventType.IsValid() {
		return fmt.Errorf("invalid event type %q", e.EventType)
	}
	if !e.EntityType.IsValid() {
		return fmt.Errorf("invalid entity type %q", e.EntityType)
	}
	if e.EntityID == uuid.Nil {
		return fmt.Errorf("envelope missing entity id")
	}
	if e.Version <= 0 {
		return fmt.Errorf("invalid version %d", e.Version)
	}
	if !e.Source.IsValid() {
		return fmt.Errorf("invalid source %q", e.Source)
	}
	return nil
}

// Decode parses a wire payload into an Envelope and validates it.
func Decode(raw []byte) (*Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if err := envelope.Validate(); err != nil {
		return nil, err
	}
	return &envelope, nil
}
