package pipeline

import (
	"go.uber.org/zap"

	"github.com/clearpeak-lending/report-cli/internal/model"
)

// FlattenRecord lifts a raw loan's field map to top-level columns keyed by
// field code. Returns ErrMalformedRecord when loanId or folder is absent.
func FlattenRecord(raw model.RawLoan) (model.FlatRow, error) {
	if raw.LoanID == "" || raw.Folder == "" {
		return model.FlatRow{}, ErrMalformedRecord
	}

	fields := make(map[string]any, len(raw.Fields))
	for code, v := range raw.Fields {
		fields[code] = v
	}

	return model.FlatRow{
		LoanID: raw.LoanID,
		Folder: raw.Folder,
		Fields: fields,
	}, nil
}

// Flatten converts the full source snapshot to flat rows. Malformed records
// are dropped with a warning; everything else passes through, unknown field
// codes included.
func Flatten(raws []model.RawLoan) []model.FlatRow {
	rows := make([]model.FlatRow, 0, len(raws))
	var dropped int

	for _, raw := range raws {
		row, err := FlattenRecord(raw)
		if err != nil {
			dropped++
			zap.L().Warn("flatten: dropping malformed record",
				zap.String("loan_id", raw.LoanID),
				zap.String("folder", raw.Folder),
			)
			continue
		}
		rows = append(rows, row)
	}

	if dropped > 0 {
		zap.L().Warn("flatten: summary",
			zap.Int("records_in", len(raws)),
			zap.Int("records_dropped", dropped),
		)
	}

	return rows
}
