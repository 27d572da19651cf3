package model

import "time"

// RunStatus represents the state of a retro report run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// ReportRun records one execution of the retro-months computation:
// the reporting window it covered and how many RFBs produced a result.
type ReportRun struct {
	ID          string     `json:"id"`
	WindowStart time.Time  `json:"window_start"`
	WindowEnd   time.Time  `json:"window_end"`
	Status      RunStatus  `json:"status"`
	EntityCount int        `json:"entity_count"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
