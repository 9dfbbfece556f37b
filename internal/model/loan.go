package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the Active/Closed state derived from a loan's folder name.
// Empty means the folder matched neither label.
type Status string

const (
	StatusActive Status = "Active"
	StatusClosed Status = "Closed"
)

// Category is a canonical product category derived from free-text product type.
type Category string

const (
	CategoryFHA          Category = "FHA"
	CategoryVA           Category = "VA"
	CategoryNonQM        Category = "Non-QM"
	CategoryConventional Category = "Conventional"
	CategoryOther        Category = "Other"
)

// RawLoan is one element of the source ledger JSON: identity plus an opaque
// field-code map straight from the origination API field reader.
type RawLoan struct {
	LoanID string         `json:"loanId"`
	Folder string         `json:"folder"`
	Fields map[string]any `json:"fields"`
}

// FlatRow is a RawLoan with every field lifted to a top-level column keyed by
// its original field code. Unknown codes pass through untouched.
type FlatRow struct {
	LoanID string
	Folder string
	Fields map[string]any
}

// LoanRecord is the canonical tabular form of one loan. Built once per run,
// immutable afterwards.
type LoanRecord struct {
	LoanID string
	Folder string
	Status Status

	// LoanAmount is nil when the source value was absent or failed to parse.
	// Such rows are excluded from volume aggregates but kept for counts.
	LoanAmount *decimal.Decimal

	ProductType     *string
	ProductCategory Category

	Channel      string
	State        string
	Branch       string // blank source values canonicalized to "Unassigned"
	TitleCompany string

	LoanOfficer     string // whitespace-collapsed raw name, may be empty
	Underwriter     string // blank canonicalized to "Unassigned"
	BranchProcessor string // blank canonicalized to "Unassigned"

	SubmittalDate    *time.Time
	ClearToCloseDate *time.Time
	SentToBranchDate *time.Time
	FundingDate      *time.Time
}

// HasAmount reports whether the loan carries a parseable amount.
func (r LoanRecord) HasAmount() bool { return r.LoanAmount != nil }

// Amount returns the loan amount, zero when missing.
func (r LoanRecord) Amount() decimal.Decimal {
	if r.LoanAmount == nil {
		return decimal.Zero
	}
	return *r.LoanAmount
}

// CreditPullRecord is one (officer, scenario) cell of the credit-bureau
// export after melting the wide sheet to long form.
type CreditPullRecord struct {
	OfficerRaw string
	Scenario   string
	Pulls      int
}

// OfficerMetrics is the per-officer rollup produced by the reconciler.
// Identity is the normalized "first last" join key; rate fields are nil when
// the officer has zero credit pulls (undefined, rendered as "-").
type OfficerMetrics struct {
	Identity        string
	DisplayName     string
	CreditPulls     int
	ClosedLoans     int
	CloseRatePct    *float64
	LoansPerPull    *float64
	DominantBranch  string
	TotalLoanAmount decimal.Decimal
}

// ReportContext is the flat placeholder map handed to the rendering
// collaborator. Write-once per report invocation.
type ReportContext map[string]any

// ImageRef is a rendered chart image plus its resolved layout width.
type ImageRef struct {
	Path        string
	WidthInches float64
}
