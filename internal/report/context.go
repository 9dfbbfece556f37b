package report

import (
	"math"
	"strconv"
	"time"

	"github.com/clearpeak-lending/report-cli/internal/config"
	"github.com/clearpeak-lending/report-cli/internal/model"
	"github.com/clearpeak-lending/report-cli/internal/pipeline"
)

// baseContext fills the placeholders shared by every report variant: report
// identity, generation date, and the reporting-period labels.
func baseContext(variant config.VariantConfig, labels Labels, showAppendix bool, now time.Time) model.ReportContext {
	return model.ReportContext{
		"cl_report_num": variant.Number,
		"cl_report_v":   variant.Version,
		"cl_report_m":   now.Format("January"),
		"cl_report_d":   "1",
		"cl_report_yr":  now.Format("2006"),
		"cl_qtd":        0,
		"cl_yr":         labels.Year,
		"cl_fund_m":     labels.Month,
		"cl_fund_yr":    labels.Year,
		"show_appendix": strconv.FormatBool(showAppendix),
		"appendix_sd":   nil,
	}
}

// VolumeContext builds the placeholder map for the volume reports (1 and 2).
// The record slice must already be filtered to the variant's status.
func VolumeContext(variant config.VariantConfig, labels Labels, records []model.LoanRecord, showAppendix bool, now time.Time) model.ReportContext {
	ctx := baseContext(variant, labels, showAppendix, now)
	ctx["cl_qtd"] = len(records)
	return ctx
}

// EfficiencyContext builds the placeholder map for the officer efficiency
// report (3). closed must be the closed-folder population and metrics the
// reconciled per-officer rollup.
func EfficiencyContext(variant config.VariantConfig, labels Labels, metrics []model.OfficerMetrics, closed []model.LoanRecord, showAppendix bool, now time.Time) model.ReportContext {
	ctx := baseContext(variant, labels, showAppendix, now)
	ctx["cl_qtd"] = len(closed)

	var cleared, sentToBranch int
	for _, loan := range closed {
		if loan.ClearToCloseDate != nil {
			cleared++
		}
		if loan.SentToBranchDate != nil {
			sentToBranch++
		}
	}
	ctx["cl_cleared_qtd"] = cleared
	ctx["cl_sent_branch_qtd"] = sentToBranch

	var totalPulls int
	for _, m := range metrics {
		totalPulls += m.CreditPulls
	}
	ctx["cl_cred_pulls_qtd"] = totalPulls

	// Extremes over officers with a defined, positive close rate. First
	// occurrence wins ties, matching the stable metric order.
	var minM, maxM *model.OfficerMetrics
	for i := range metrics {
		m := &metrics[i]
		if m.CloseRatePct == nil || *m.CloseRatePct <= 0 {
			continue
		}
		if minM == nil || *m.CloseRatePct < *minM.CloseRatePct {
			minM = m
		}
		if maxM == nil || *m.CloseRatePct > *maxM.CloseRatePct {
			maxM = m
		}
	}
	if minM != nil {
		ctx["cl_pulltoc_name_min"] = minM.DisplayName
		ctx["cl_pulltoc_ratio_min"] = *minM.CloseRatePct
	} else {
		ctx["cl_pulltoc_name_min"] = nil
		ctx["cl_pulltoc_ratio_min"] = nil
	}
	if maxM != nil {
		ctx["cl_pulltoc_name_max"] = maxM.DisplayName
		ctx["cl_pulltoc_ratio_max"] = *maxM.CloseRatePct
	} else {
		ctx["cl_pulltoc_name_max"] = nil
		ctx["cl_pulltoc_ratio_max"] = nil
	}

	return ctx
}

// TurnTimeContext builds the placeholder map shared by the underwriting (4)
// and branch processing (5) turn-time reports. The role selector picks which
// team member column drives the named/unnamed counts.
func TurnTimeContext(variant config.VariantConfig, labels Labels, closed []model.LoanRecord, showAppendix bool, now time.Time) model.ReportContext {
	ctx := baseContext(variant, labels, showAppendix, now)
	ctx["cl_qtd"] = len(closed)

	noSubCount, noSubPct := pipeline.MissingFieldRate(closed, func(r model.LoanRecord) bool {
		return r.SubmittalDate == nil
	})
	ctx["cl_nosubdate_qtd"] = noSubCount
	ctx["cl_nosubdate_per"] = floatOrNil(noSubPct)

	ctx["cl_avg_sub_days"] = floatOrNil(pipeline.MeanElapsedDays(closed,
		func(r model.LoanRecord) *time.Time { return r.SubmittalDate },
		func(r model.LoanRecord) *time.Time { return r.ClearToCloseDate },
	))

	role := func(r model.LoanRecord) string { return r.Underwriter }
	if variant.Number == 5 {
		role = func(r model.LoanRecord) string { return r.BranchProcessor }
	}

	named := 0
	distinct := make(map[string]bool)
	for _, loan := range closed {
		name := role(loan)
		if name == pipeline.Unassigned {
			continue
		}
		named++
		distinct[name] = true
	}
	unnamed := len(closed) - named
	var unnamedPct *float64
	if len(closed) > 0 {
		p := round1(float64(unnamed) / float64(len(closed)) * 100)
		unnamedPct = &p
	}

	switch variant.Number {
	case 5:
		ctx["cl_branch_procs_qtd"] = len(distinct)
		ctx["cl_unnamed_branch_procs_qtd"] = unnamed
		ctx["cl_unnamed_branch_procs_per"] = floatOrNil(unnamedPct)
	default:
		ctx["cl_underw_qtd"] = len(distinct)
		ctx["cl_unnamed_underw_qtd"] = unnamed
		ctx["cl_unnamed_underw_per"] = floatOrNil(unnamedPct)
	}

	return ctx
}

// floatOrNil converts a nil pointer to an untyped nil so templates see a
// missing value rather than a typed nil pointer.
func floatOrNil(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func round1(f float64) float64 { return math.Round(f*10) / 10 }
