package pipeline

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/clearpeak-lending/report-cli/internal/model"
)

// Canonical field codes from the origination system's field reader.
const (
	FieldLoanAmount      = "2"
	FieldState           = "14"
	FieldLoanOfficer     = "317"
	FieldTitleCompany    = "411"
	FieldProductType     = "1401"
	FieldFundingDate     = "1997"
	FieldChannel         = "2626"
	FieldBranch          = "ORGID"
	FieldUnderwriter     = "LoanTeamMember.Name.Underwriter"
	FieldBranchProcessor = "LoanTeamMember.Name.Branch Processor"
	FieldSubmittalDate   = "Log.MS.Date.Submittal"
	FieldClearToClose    = "Log.MS.Date.Clear to Close"
	FieldSentToBranch    = "Log.MS.Date.Sent to Branch LP"
)

// Unassigned is the canonical value for blank org/team identity fields.
const Unassigned = "Unassigned"

var statusRe = regexp.MustCompile(`(Active|Closed)`)

// ParseAmount strips currency formatting and parses a decimal amount.
// Empty input means "no amount" (nil, nil). A non-numeric or negative
// remainder is an AmountParseError.
func ParseAmount(loanID, raw string) (*decimal.Decimal, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return nil, nil
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil || d.IsNegative() {
		return nil, &AmountParseError{LoanID: loanID, Raw: raw}
	}
	return &d, nil
}

// noDatePlaceholders are source values that mean "no date", as opposed to a
// value that failed to parse.
var noDatePlaceholders = map[string]bool{"": true, "//": true, "...": true}

// ParseDate parses MM/DD/YYYY, discarding any trailing time component.
// Placeholder values return (nil, nil); anything else unparseable is a
// DateParseError, surfaced as a missing date for aggregate purposes.
func ParseDate(loanID, field, raw string) (*time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if noDatePlaceholders[trimmed] {
		return nil, nil
	}

	// "06/15/2025 10:30" keeps only the date part.
	datePart := trimmed
	if idx := strings.IndexByte(datePart, ' '); idx > 0 {
		datePart = datePart[:idx]
	}

	t, err := time.Parse("01/02/2006", datePart)
	if err != nil {
		return nil, &DateParseError{LoanID: loanID, Field: field, Raw: raw}
	}
	return &t, nil
}

// ExtractStatus pulls Active/Closed out of a folder label. Empty status when
// the folder matches neither.
func ExtractStatus(folder string) model.Status {
	return model.Status(statusRe.FindString(folder))
}

// CollapseSpaces trims and collapses internal whitespace runs to single
// spaces. Applied to officer names so the join key is stable.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func orUnassigned(s string) string {
	if strings.TrimSpace(s) == "" {
		return Unassigned
	}
	return strings.TrimSpace(s)
}

// fieldString renders a raw field value as a string. JSON decoding hands the
// flattener strings, numbers, bools, or nil.
func fieldString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return decimal.NewFromFloat(val).String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

// CoerceRow maps one flat row to a canonical LoanRecord, collecting (not
// failing on) field-level parse errors.
func CoerceRow(row model.FlatRow) (model.LoanRecord, []error) {
	var errs []error

	rec := model.LoanRecord{
		LoanID: row.LoanID,
		Folder: row.Folder,
		Status: ExtractStatus(row.Folder),

		Channel:      strings.TrimSpace(fieldString(row.Fields[FieldChannel])),
		State:        strings.TrimSpace(fieldString(row.Fields[FieldState])),
		TitleCompany: strings.TrimSpace(fieldString(row.Fields[FieldTitleCompany])),

		Branch:          orUnassigned(fieldString(row.Fields[FieldBranch])),
		Underwriter:     orUnassigned(fieldString(row.Fields[FieldUnderwriter])),
		BranchProcessor: orUnassigned(fieldString(row.Fields[FieldBranchProcessor])),

		LoanOfficer: CollapseSpaces(fieldString(row.Fields[FieldLoanOfficer])),
	}

	if raw := fieldString(row.Fields[FieldProductType]); strings.TrimSpace(raw) != "" {
		pt := strings.TrimSpace(raw)
		rec.ProductType = &pt
	}
	rec.ProductCategory = Classify(rec.ProductType)

	amount, err := ParseAmount(row.LoanID, fieldString(row.Fields[FieldLoanAmount]))
	if err != nil {
		errs = append(errs, err)
	}
	rec.LoanAmount = amount

	dates := []struct {
		code string
		dst  **time.Time
	}{
		{FieldSubmittalDate, &rec.SubmittalDate},
		{FieldClearToClose, &rec.ClearToCloseDate},
		{FieldSentToBranch, &rec.SentToBranchDate},
		{FieldFundingDate, &rec.FundingDate},
	}
	for _, d := range dates {
		t, err := ParseDate(row.LoanID, d.code, fieldString(row.Fields[d.code]))
		if err != nil {
			errs = append(errs, err)
		}
		*d.dst = t
	}

	return rec, errs
}

// Coerce maps all flat rows to LoanRecords. Field-level errors are logged
// and the affected field left missing; rows are always retained. Category
// counts are logged so classifier drift is visible to operators.
func Coerce(rows []model.FlatRow) []model.LoanRecord {
	records := make([]model.LoanRecord, 0, len(rows))
	var amountErrs, dateErrs int
	categoryCounts := make(map[model.Category]int)

	for _, row := range rows {
		rec, errs := CoerceRow(row)
		for _, err := range errs {
			var ae *AmountParseError
			var de *DateParseError
			switch {
			case errors.As(err, &ae):
				amountErrs++
				zap.L().Warn("coerce: amount parse failure",
					zap.String("loan_id", ae.LoanID),
					zap.String("raw", ae.Raw),
				)
			case errors.As(err, &de):
				dateErrs++
				zap.L().Warn("coerce: date parse failure",
					zap.String("loan_id", de.LoanID),
					zap.String("field", de.Field),
					zap.String("raw", de.Raw),
				)
			}
		}
		categoryCounts[rec.ProductCategory]++
		records = append(records, rec)
	}

	zap.L().Info("coerce: summary",
		zap.Int("rows", len(records)),
		zap.Int("amount_errors", amountErrs),
		zap.Int("date_errors", dateErrs),
		zap.Any("category_counts", categoryCounts),
	)

	return records
}

// FilterStatus returns the subset of records with the given status.
func FilterStatus(records []model.LoanRecord, status model.Status) []model.LoanRecord {
	var out []model.LoanRecord
	for _, r := range records {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

// FilterFolder returns the subset of records from the given source folder.
func FilterFolder(records []model.LoanRecord, folder string) []model.LoanRecord {
	var out []model.LoanRecord
	for _, r := range records {
		if r.Folder == folder {
			out = append(out, r)
		}
	}
	return out
}
