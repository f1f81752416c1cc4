package models

import "time"

// PipelineResult contains the outcome of one pipeline run, persisted as
// result.json in the work directory.
type PipelineResult struct {
	Revision         string        `json:"revision"`
	RevisionSpec     string        `json:"revision_spec"`
	Substituted      bool          `json:"substituted,omitempty"`
	ManifestStrategy string        `json:"manifest_strategy,omitempty"`
	BuildStrategy    string        `json:"build_strategy,omitempty"`
	PackageStrategy  string        `json:"package_strategy,omitempty"`
	Patches          PatchSummary  `json:"patches"`
	ArchivePath      string        `json:"archive_path,omitempty"`
	ChecksumPath     string        `json:"checksum_path,omitempty"`
	Error            *StageRecord  `json:"error,omitempty"`
	Stages           []StageTiming `json:"stages"`
	StartedAt        time.Time     `json:"started_at"`
	EndedAt          time.Time     `json:"ended_at"`
	TotalDurationSec float64       `json:"total_duration_sec"`
}

// StageRecord is the serialized form of a StageError.
type StageRecord struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
}

// StageTiming records when a stage ran and how long it took.
type StageTiming struct {
	Name        string    `json:"name"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
	DurationSec float64   `json:"duration_sec"`
}
