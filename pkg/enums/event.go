package enums

import "fmt"

// EventType maps to the domain transitions carried on the sync topics.
type EventType string

const (
	EventCreated     EventType = "created"
	EventUpdated     EventType = "updated"
	EventPublished   EventType = "published"
	EventUnpublished EventType = "unpublished"
	EventDeleted     EventType = "deleted"
)

var validEventTypes = []EventType{
	EventCreated,
	EventUpdated,
	EventPublished,
	EventUnpublished,
	EventDeleted,
}

// IsValid reports whether the value matches a known event type.
func (e EventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// IsRemoval reports whether the event signals removal from the read model.
func (e EventType) IsRemoval() bool {
	return e == EventUnpublished || e == EventDeleted
}

// ParseEventType converts raw input into EventType.
func ParseEventType(value string) (EventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// EntityType identifies the aggregate kind an envelope carries.
type EntityType string

const (
	EntityProgram   EntityType = "program"
	EntityEpisode   EntityType = "episode"
	EntityPublisher EntityType = "publisher"
	EntityMedia     EntityType = "media"
)

var validEntityTypes = []EntityType{
	EntityProgram,
	EntityEpisode,
	EntityPublisher,
	EntityMedia,
}

// IsValid reports whether the value matches a known entity type.
func (e EntityType) IsValid() bool {
	for _, candidate := range validEntityTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEntityType converts raw input into EntityType.
func ParseEntityType(value string) (EntityType, error) {
	for _, candidate := range validEntityTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid entity type %q", value)
}

// EventSource tags which service produced an envelope.
type EventSource string

const (
	SourceCMS       EventSource = "cms"
	SourceDiscovery EventSource = "discovery"
)

// IsValid reports whether the value matches a known source.
func (s EventSource) IsValid() bool {
	return s == SourceCMS || s == SourceDiscovery
}
