package enums

import "fmt"

// ContentStatus maps to the content_status enum shared by programs and episodes.
type ContentStatus string

const (
	ContentDraft     ContentStatus = "draft"
	ContentPublished ContentStatus = "published"
	ContentArchived  ContentStatus = "archived"
)

var validContentStatuses = []ContentStatus{
	ContentDraft,
	ContentPublished,
	ContentArchived,
}

// IsValid reports whether the value matches the canonical content_status enum.
func (s ContentStatus) IsValid() bool {
	for _, candidate := range validContentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseContentStatus converts raw input into ContentStatus.
func ParseContentStatus(value string) (ContentStatus, error) {
	for _, candidate := range validContentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid content status %q", value)
}

// ProgramType maps to the program_type enum in Postgres.
type ProgramType string

const (
	ProgramPodcast     ProgramType = "podcast"
	ProgramDocumentary ProgramType = "documentary"
	ProgramSeries      ProgramType = "series"
	ProgramMovie       ProgramType = "movie"
)

var validProgramTypes = []ProgramType{
	ProgramPodcast,
	ProgramDocumentary,
	ProgramSeries,
	ProgramMovie,
}

// IsValid reports whether the value matches the canonical program_type enum.
func (t ProgramType) IsValid() bool {
	for _, candidate := range validProgramTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseProgramType converts raw input into ProgramType.
func ParseProgramType(value string) (ProgramType, error) {
	for _, candidate := range validProgramTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid program type %q", value)
}
