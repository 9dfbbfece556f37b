package pipeline

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// ErrMalformedRecord marks a source record missing loanId or folder. The
// record is dropped and the run continues.
var ErrMalformedRecord = eris.New("pipeline: record missing loanId or folder")

// AmountParseError marks a loan amount that did not survive currency
// parsing. Field-level: the row stays, its volume is excluded.
type AmountParseError struct {
	LoanID string
	Raw    string
}

func (e *AmountParseError) Error() string {
	return fmt.Sprintf("pipeline: loan %s: unparseable amount %q", e.LoanID, e.Raw)
}

// DateParseError marks a non-empty date value that failed to parse. The
// "//" and empty placeholders are not errors; they mean "no date".
type DateParseError struct {
	LoanID string
	Field  string
	Raw    string
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("pipeline: loan %s: unparseable %s date %q", e.LoanID, e.Field, e.Raw)
}
