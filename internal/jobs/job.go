// Package jobs runs per-project background analysis jobs: page enumeration,
// bounded-concurrency dispatch to the page analyzer, progress streaming and
// pause/resume/cancel. Job state lives in memory for the lifetime of the
// process; per-page analysis results are persisted through the store.
package jobs

import (
	"errors"
	"time"
)

// Status represents the current state of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusPaused     Status = "paused"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status is final. Terminal states are never
// re-entered by the same job instance.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// JobTypePageAnalysis is the single-pass vision comprehension pipeline.
const JobTypePageAnalysis = "page_analysis"

// Sentinel errors for the jobs package.
var (
	// ErrJobConflict is returned when a project already has a
	// non-terminal job.
	ErrJobConflict = errors.New("project already has an active job")

	// ErrJobNotFound is returned for unknown job ids.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidTransition is returned when pause/resume is requested
	// from the wrong state.
	ErrInvalidTransition = errors.New("invalid job state transition")
)

// Job is a snapshot of one processing job. Invariants: ProcessedPages <=
// TotalPages; CompletedAt is set iff Status is terminal.
type Job struct {
	ID              string     `json:"id"`
	ProjectID       string     `json:"project_id"`
	JobType         string     `json:"job_type"`
	Status          Status     `json:"status"`
	TotalPages      int        `json:"total_pages"`
	ProcessedPages  int        `json:"processed_pages"`
	FailedPages     int        `json:"failed_pages"`
	CurrentPageID   string     `json:"current_page_id,omitempty"`
	CurrentPageName string     `json:"current_page_name,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
}

// Progress is one event on a job's progress stream. The final event of a
// job always has Complete set, regardless of success or failure; failure
// detail is read from job state, not the stream.
type Progress struct {
	Processed       int    `json:"processed"`
	Total           int    `json:"total"`
	CurrentPageName string `json:"current_page_name,omitempty"`
	Complete        bool   `json:"complete"`
}
