// Package store persists the report run ledger so batch runs can be audited
// after the fact.
package store

import (
	"context"

	"github.com/clearpeak-lending/report-cli/internal/model"
)

// RunFilter specifies criteria for listing ledger entries.
type RunFilter struct {
	Status       model.RunStatus `json:"status,omitempty"`
	ReportNumber int             `json:"report_number,omitempty"`
	Limit        int             `json:"limit,omitempty"`
	Offset       int             `json:"offset,omitempty"`
}

// Store defines the run ledger interface.
type Store interface {
	CreateRun(ctx context.Context, reportNumber int) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, result *model.RunResult) error
	FailRun(ctx context.Context, runID string, runErr error) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}
