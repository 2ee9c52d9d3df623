package model

import "time"

// RunStatus is the lifecycle state of a processing run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning     RunStatus = "running"
	RunStatusCompleted   RunStatus = "completed"
	RunStatusInterrupted RunStatus = "interrupted"
	RunStatusFailed      RunStatus = "failed"
)

// ProcessingRun tracks one batch run through the pipeline. A run left
// in "running" state by a crashed process is flagged "interrupted" at
// the next startup, never silently merged.
type ProcessingRun struct {
	StartedAt  time.Time
	FinishedAt *time.Time
	ID         string
	Status     RunStatus
	Processed  int
	Flagged    int
	Duplicates int
}
