package store

import (
	"context"
	"time"

	"github.com/sells-group/eob-report/internal/model"
)

// ClaimFilter specifies criteria for listing claims.
type ClaimFilter struct {
	Carrier  string     `json:"carrier,omitempty"`
	Snapshot *time.Time `json:"snapshot,omitempty"`
	Limit    int        `json:"limit,omitempty"`
	Offset   int        `json:"offset,omitempty"`
}

// Store defines the persistence interface for the reporting pipeline.
type Store interface {
	// EOB history
	UpsertEOBHistory(ctx context.Context, rows []model.EOBHistoryRow) (int64, error)
	ListEOBHistory(ctx context.Context) ([]model.EOBHistoryRow, error)

	// Claims worksheet rows
	InsertClaims(ctx context.Context, claims []model.Claim) (int64, error)
	ListClaims(ctx context.Context, filter ClaimFilter) ([]model.Claim, error)

	// Report runs and computed retro results
	CreateRun(ctx context.Context, windowStart, windowEnd time.Time) (*model.ReportRun, error)
	CompleteRun(ctx context.Context, runID string, entityCount int) error
	FailRun(ctx context.Context, runID string) error
	SaveResults(ctx context.Context, runID string, results []model.RetroResult) error
	ListResults(ctx context.Context, runID string) ([]model.RetroResult, error)
	ListRuns(ctx context.Context, limit int) ([]model.ReportRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
