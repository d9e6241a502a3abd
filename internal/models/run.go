package models

import "time"

type ArtifactKind string

const (
	ArtifactKindTranscript ArtifactKind = "transcript"
	ArtifactKindEvaluation ArtifactKind = "ai"
)

type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// GenerationRun records one attempt to generate an artifact.
type GenerationRun struct {
	ID           int64         `json:"id" db:"id"`
	Kind         ArtifactKind  `json:"kind" db:"kind"`
	ArtifactKey  string        `json:"artifactKey" db:"artifact_key"`
	Status       RunStatus     `json:"status" db:"status"`
	ErrorMessage string        `json:"errorMessage,omitempty" db:"error_message"`
	ItemCount    int           `json:"itemCount" db:"item_count"`
	Duration     time.Duration `json:"duration" db:"duration_ns"`
	Created      time.Time     `json:"created" db:"created"`
}
