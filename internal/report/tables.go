package report

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/clearpeak-lending/report-cli/internal/model"
)

var usdPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatUSD renders a dollar amount with thousands separators and no cents.
func FormatUSD(d decimal.Decimal) string {
	f, _ := d.Round(0).Float64()
	return usdPrinter.Sprintf("$%.0f", f)
}

// EfficiencyRow is one line of the officer efficiency table.
type EfficiencyRow struct {
	Branch       string
	Officer      string
	ClosedLoans  int
	CreditPulls  int
	LoanAmount   string
	LoansPerPull float64
}

// EfficiencyTable ranks officers with at least one credit pull by loans per
// pull and keeps the top 30. Officers without a dominant branch show "-".
func EfficiencyTable(metrics []model.OfficerMetrics) []EfficiencyRow {
	var eligible []model.OfficerMetrics
	for _, m := range metrics {
		if m.CreditPulls > 0 {
			eligible = append(eligible, m)
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return deref(eligible[i].LoansPerPull) > deref(eligible[j].LoansPerPull)
	})
	if len(eligible) > 30 {
		eligible = eligible[:30]
	}

	rows := make([]EfficiencyRow, 0, len(eligible))
	for _, m := range eligible {
		branch := m.DominantBranch
		if branch == "" {
			branch = "-"
		}
		rows = append(rows, EfficiencyRow{
			Branch:       branch,
			Officer:      m.DisplayName,
			ClosedLoans:  m.ClosedLoans,
			CreditPulls:  m.CreditPulls,
			LoanAmount:   FormatUSD(m.TotalLoanAmount),
			LoansPerPull: deref(m.LoansPerPull),
		})
	}
	return rows
}

// ClosedPullsTable returns the top 30 officers by closed-loan count.
func ClosedPullsTable(metrics []model.OfficerMetrics) []model.OfficerMetrics {
	ranked := make([]model.OfficerMetrics, len(metrics))
	copy(ranked, metrics)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ClosedLoans > ranked[j].ClosedLoans
	})
	if len(ranked) > 30 {
		ranked = ranked[:30]
	}
	return ranked
}

// BranchRow is one line of the per-branch closings and pulls rollup.
type BranchRow struct {
	Branch       string
	ClosedLoans  int
	CreditPulls  int
	LoansPerPull *float64
}

// BranchRollup sums closed loans and credit pulls per dominant branch and
// ranks by closings. The per-pull ratio is undefined for a branch with zero
// pulls and stays nil rather than dividing by zero.
func BranchRollup(metrics []model.OfficerMetrics) []BranchRow {
	index := make(map[string]int)
	var rows []BranchRow

	for _, m := range metrics {
		branch := m.DominantBranch
		if branch == "" {
			branch = "-"
		}
		i, ok := index[branch]
		if !ok {
			i = len(rows)
			index[branch] = i
			rows = append(rows, BranchRow{Branch: branch})
		}
		rows[i].ClosedLoans += m.ClosedLoans
		rows[i].CreditPulls += m.CreditPulls
	}

	for i := range rows {
		if rows[i].CreditPulls > 0 {
			ratio := math.Round(float64(rows[i].ClosedLoans)/float64(rows[i].CreditPulls)*100) / 100
			rows[i].LoansPerPull = &ratio
		}
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ClosedLoans > rows[j].ClosedLoans })
	return rows
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
