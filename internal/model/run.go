package model

import "time"

// RunStatus tracks a report run through its lifecycle.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one entry in the report run ledger.
type Run struct {
	ID           string     `json:"id"`
	ReportNumber int        `json:"report_number"`
	Status       RunStatus  `json:"status"`
	Result       *RunResult `json:"result,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// RunResult summarizes a finished run.
type RunResult struct {
	OutputPath   string `json:"output_path,omitempty"`
	LoanCount    int    `json:"loan_count"`
	WarningCount int    `json:"warning_count"`
	Error        string `json:"error,omitempty"`
}
