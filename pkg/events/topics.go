package events

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/tariqnasser/airwave-backend/pkg/enums"
	"github.com/tariqnasser/airwave-backend/pkg/kafka"
)

// Topic names shared by the CMS producer and the discovery consumer.
const (
	TopicPrograms = "airwave.cms.programs"
	TopicEpisodes = "airwave.cms.episodes"
	TopicMedia    = "airwave.cms.media"
)

// Message header keys, redundant with the envelope body so consumers can
// filter without a full decode.
const (
	HeaderEventType  = "eventType"
	HeaderEntityType = "entityType"
	HeaderSource     = "source"
	HeaderVersion    = "version"
)

// Topics lists every topic the pipeline declares at startup.
func Topics() []kafka.TopicSpec {
	return []kafka.TopicSpec{
		{Name: TopicPrograms, Partitions: 3, ReplicationFactor: 2},
		{Name: TopicEpisodes, Partitions: 6, ReplicationFactor: 2},
		{Name: TopicMedia, Partitions: 2, ReplicationFactor: 2},
	}
}

// TopicFor returns the topic carrying events for the given entity type.
func TopicFor(entityType enums.EntityType) (string, error) {
	switch entityType {
	case enums.EntityProgram, enums.EntityPublisher:
		return TopicPrograms, nil
	case enums.EntityEpisode:
		return TopicEpisodes, nil
	case enums.EntityMedia:
		return TopicMedia, nil
	default:
		return "", fmt.Errorf("no topic for entity type %q", entityType)
	}
}

// ProgramPartitionKey routes program events by program id.
func ProgramPartitionKey(programID uuid.UUID) string {
	return programID.String()
}

// EpisodePartitionKey routes episode events by the PARENT PROGRAM id, not the
// episode id. Every event for a program and all of its episodes therefore
// lands on the same partition and is consumed as a single ordered stream.
// Changing this key silently breaks ordering between a program and its
// episodes.
func EpisodePartitionKey(programID uuid.UUID) string {
	return programID.String()
}
