// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Stage names a progress event emitted by the pipeline.
type Stage string

const (
	StageRunStarted       Stage = "run_started"
	StageSectionCompleted Stage = "section_completed"
	StageSectionAudited   Stage = "section_audited"
	StageRunFinished      Stage = "run_finished"
	StageRunFailed        Stage = "run_failed"
)

// ProgressEvent is the outward progress contract consumed by presentation layers.
type ProgressEvent struct {
	Stage   Stage `json:"stage"`
	Payload any   `json:"payload,omitempty"`
}

// RunStartedPayload is carried by run_started.
type RunStartedPayload struct {
	RunID  string `json:"run_id"`
	Target string `json:"target"`
	Total  int    `json:"total"`
	Mode   string `json:"mode"`
}

// SectionPayload is carried by section_completed and section_audited.
type SectionPayload struct {
	Index            int       `json:"index"`
	Total            int       `json:"total"`
	SectionID        SectionID `json:"section_id"`
	Title            string    `json:"title"`
	SearchFailed     bool      `json:"search_failed"`
	GenerationFailed bool      `json:"generation_failed"`
	AuditError       string    `json:"audit_error,omitempty"`
}

// RunFinishedPayload is carried by run_finished.
type RunFinishedPayload struct {
	RunID         string `json:"run_id"`
	Sections      int    `json:"sections"`
	URLs          int    `json:"urls"`
	Unsourced     int    `json:"unsourced"`
	DocumentBytes int    `json:"document_bytes"`
	DocumentPath  string `json:"document_path,omitempty"`
}

// RunFailedPayload is carried by run_failed.
type RunFailedPayload struct {
	RunID string `json:"run_id"`
	Error string `json:"error"`
}
