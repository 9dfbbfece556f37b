package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearpeak-lending/report-cli/internal/config"
	"github.com/clearpeak-lending/report-cli/internal/model"
)

var testNow = time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

func TestResolveLabels_Default(t *testing.T) {
	// 30 days before July 1 lands in June.
	l := ResolveLabels("", "", testNow)
	assert.Equal(t, "June", l.Month)
	assert.Equal(t, "2025", l.Year)
	assert.Equal(t, "June 2025", l.TimeLabel())
}

func TestResolveLabels_Overrides(t *testing.T) {
	l := ResolveLabels("March", "2024", testNow)
	assert.Equal(t, "March", l.Month)
	assert.Equal(t, "2024", l.Year)
}

func TestResolveLabels_YearBoundary(t *testing.T) {
	l := ResolveLabels("", "", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "December", l.Month)
	assert.Equal(t, "2024", l.Year)
}

func TestFormatTitle(t *testing.T) {
	labels := Labels{Month: "June", Year: "2025"}
	got := FormatTitle("{time_label} {status_label} Pipeline", labels, "Active")
	assert.Equal(t, "June 2025 Active Pipeline", got)
}

func TestVolumeContext(t *testing.T) {
	variant := config.VariantConfig{Number: 1, Version: "1.0"}
	records := []model.LoanRecord{{LoanID: "a"}, {LoanID: "b"}}

	ctx := VolumeContext(variant, Labels{Month: "June", Year: "2025"}, records, true, testNow)

	assert.Equal(t, 2, ctx["cl_qtd"])
	assert.Equal(t, 1, ctx["cl_report_num"])
	assert.Equal(t, "July", ctx["cl_report_m"])
	assert.Equal(t, "1", ctx["cl_report_d"])
	assert.Equal(t, "2025", ctx["cl_report_yr"])
	assert.Equal(t, "June", ctx["cl_fund_m"])
	assert.Equal(t, "2025", ctx["cl_fund_yr"])
	assert.Equal(t, "true", ctx["show_appendix"])
}

func ratePtr(f float64) *float64 { return &f }

func TestEfficiencyContext(t *testing.T) {
	variant := config.VariantConfig{Number: 3, Version: "1.0"}
	d1 := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	closed := []model.LoanRecord{
		{LoanID: "a", ClearToCloseDate: &d1, SentToBranchDate: &d1},
		{LoanID: "b", ClearToCloseDate: &d1},
		{LoanID: "c"},
	}
	metrics := []model.OfficerMetrics{
		{Identity: "ann ames", DisplayName: "Ann Ames", CreditPulls: 10, ClosedLoans: 2, CloseRatePct: ratePtr(20.0)},
		{Identity: "bob burr", DisplayName: "Bob Burr", CreditPulls: 4, ClosedLoans: 3, CloseRatePct: ratePtr(75.0)},
		{Identity: "cy cole", DisplayName: "Cy Cole", CreditPulls: 0, ClosedLoans: 1},
	}

	ctx := EfficiencyContext(variant, Labels{Month: "June", Year: "2025"}, metrics, closed, false, testNow)

	assert.Equal(t, 3, ctx["cl_qtd"])
	assert.Equal(t, 2, ctx["cl_cleared_qtd"])
	assert.Equal(t, 1, ctx["cl_sent_branch_qtd"])
	assert.Equal(t, 14, ctx["cl_cred_pulls_qtd"])
	assert.Equal(t, "Ann Ames", ctx["cl_pulltoc_name_min"])
	assert.Equal(t, 20.0, ctx["cl_pulltoc_ratio_min"])
	assert.Equal(t, "Bob Burr", ctx["cl_pulltoc_name_max"])
	assert.Equal(t, 75.0, ctx["cl_pulltoc_ratio_max"])
	assert.Equal(t, "false", ctx["show_appendix"])
}

func TestEfficiencyContext_NoDefinedRates(t *testing.T) {
	variant := config.VariantConfig{Number: 3}
	metrics := []model.OfficerMetrics{{Identity: "cy cole", ClosedLoans: 1}}

	ctx := EfficiencyContext(variant, Labels{}, metrics, nil, false, testNow)

	assert.Nil(t, ctx["cl_pulltoc_name_min"])
	assert.Nil(t, ctx["cl_pulltoc_ratio_max"])
}

func TestTurnTimeContext_Underwriters(t *testing.T) {
	variant := config.VariantConfig{Number: 4}
	sub := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	ctc := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	closed := []model.LoanRecord{
		{LoanID: "a", Underwriter: "Dana Reed", SubmittalDate: &sub, ClearToCloseDate: &ctc},
		{LoanID: "b", Underwriter: "Dana Reed"},
		{LoanID: "c", Underwriter: "Unassigned"},
		{LoanID: "d", Underwriter: "Eli Frost", SubmittalDate: &sub, ClearToCloseDate: &ctc},
	}

	ctx := TurnTimeContext(variant, Labels{}, closed, false, testNow)

	assert.Equal(t, 4, ctx["cl_qtd"])
	assert.Equal(t, 2, ctx["cl_underw_qtd"])
	assert.Equal(t, 1, ctx["cl_unnamed_underw_qtd"])
	assert.Equal(t, 25.0, ctx["cl_unnamed_underw_per"])
	assert.Equal(t, 1, ctx["cl_nosubdate_qtd"])
	assert.Equal(t, 25.0, ctx["cl_nosubdate_per"])
	assert.Equal(t, 9.0, ctx["cl_avg_sub_days"])
}

func TestTurnTimeContext_BranchProcessors(t *testing.T) {
	variant := config.VariantConfig{Number: 5}
	closed := []model.LoanRecord{
		{LoanID: "a", BranchProcessor: "Gia Holt"},
		{LoanID: "b", BranchProcessor: "Unassigned"},
	}

	ctx := TurnTimeContext(variant, Labels{}, closed, false, testNow)

	assert.Equal(t, 1, ctx["cl_branch_procs_qtd"])
	assert.Equal(t, 1, ctx["cl_unnamed_branch_procs_qtd"])
	assert.Equal(t, 50.0, ctx["cl_unnamed_branch_procs_per"])
	require.Contains(t, ctx, "cl_avg_sub_days")
	assert.Nil(t, ctx["cl_avg_sub_days"])
}

func TestTurnTimeContext_EmptyPopulation(t *testing.T) {
	ctx := TurnTimeContext(config.VariantConfig{Number: 4}, Labels{}, nil, false, testNow)

	assert.Equal(t, 0, ctx["cl_qtd"])
	assert.Nil(t, ctx["cl_nosubdate_per"])
	assert.Nil(t, ctx["cl_unnamed_underw_per"])
	assert.Nil(t, ctx["cl_avg_sub_days"])
}

func TestFormatUSD(t *testing.T) {
	assert.Equal(t, "$1,234,568", FormatUSD(decimal.RequireFromString("1234567.89")))
	assert.Equal(t, "$0", FormatUSD(decimal.Zero))
}
