package pipeline

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/clearpeak-lending/report-cli/internal/model"
)

var titleCaser = cases.Title(language.English)

// NormalizeOfficer reduces a raw officer name to its canonical join key:
// lowercase first and last token. Single-token names are kept as-is. This is
// the identity rule joining credit pulls to closed loans and must stay in
// sync on both sides.
func NormalizeOfficer(name string) string {
	parts := strings.Fields(strings.ToLower(strings.TrimSpace(name)))
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return parts[0] + " " + parts[len(parts)-1]
	}
}

// MeltCreditSheet converts the wide credit-bureau export (officer column
// followed by one column per scenario) to long-form CreditPullRecords.
// Blank and non-numeric cells are skipped, matching a dropna over the melt.
func MeltCreditSheet(rows [][]string) []model.CreditPullRecord {
	if len(rows) < 2 {
		return nil
	}

	header := rows[0]
	var records []model.CreditPullRecord

	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		officer := strings.TrimSpace(row[0])
		if officer == "" {
			continue
		}

		for col := 1; col < len(row) && col < len(header); col++ {
			cell := strings.TrimSpace(row[col])
			if cell == "" {
				continue
			}
			f, err := strconv.ParseFloat(cell, 64)
			if err != nil || f < 0 {
				continue
			}
			records = append(records, model.CreditPullRecord{
				OfficerRaw: officer,
				Scenario:   strings.TrimSpace(header[col]),
				Pulls:      int(f),
			})
		}
	}

	return records
}

// branchTally tracks branch frequency in first-encountered order so mode
// ties break deterministically.
type branchTally struct {
	order  []string
	counts map[string]int
}

func (t *branchTally) add(branch string) {
	if t.counts == nil {
		t.counts = make(map[string]int)
	}
	if _, seen := t.counts[branch]; !seen {
		t.order = append(t.order, branch)
	}
	t.counts[branch]++
}

func (t *branchTally) mode() string {
	best := ""
	bestN := 0
	for _, b := range t.order {
		if t.counts[b] > bestN {
			best, bestN = b, t.counts[b]
		}
	}
	return best
}

// Reconcile outer-joins credit-pull totals against closed-loan counts on
// normalized officer identity and computes per-officer efficiency metrics.
// Officers present on only one side still appear, with the missing side
// defaulted to zero. Rate fields stay nil when pulls are zero.
//
// Two raw spellings collapsing to one identity are merged on purpose (it
// absorbs nickname and middle-name variance) but logged, since the same
// mechanism can falsely merge two real people.
func Reconcile(pulls []model.CreditPullRecord, closed []model.LoanRecord) []model.OfficerMetrics {
	pullTotals := make(map[string]int)
	closedCounts := make(map[string]int)
	spellings := make(map[string]map[string]bool)

	note := func(identity, raw string) {
		if spellings[identity] == nil {
			spellings[identity] = make(map[string]bool)
		}
		spellings[identity][strings.ToLower(CollapseSpaces(raw))] = true
	}

	for _, p := range pulls {
		identity := NormalizeOfficer(p.OfficerRaw)
		if identity == "" {
			continue
		}
		pullTotals[identity] += p.Pulls
		note(identity, p.OfficerRaw)
	}

	branches := make(map[string]*branchTally)
	amounts := make(map[string]decimal.Decimal)

	for _, loan := range closed {
		if loan.LoanOfficer == "" {
			continue
		}
		identity := NormalizeOfficer(loan.LoanOfficer)
		closedCounts[identity]++
		note(identity, loan.LoanOfficer)

		// Dominant branch and volume use only loans with a real branch and
		// a parseable amount.
		if loan.Branch == Unassigned || !loan.HasAmount() {
			continue
		}
		if branches[identity] == nil {
			branches[identity] = &branchTally{}
		}
		branches[identity].add(loan.Branch)
		amounts[identity] = amounts[identity].Add(loan.Amount())
	}

	identities := make(map[string]bool)
	for id := range pullTotals {
		identities[id] = true
	}
	for id := range closedCounts {
		identities[id] = true
	}

	var collisions int
	metrics := make([]model.OfficerMetrics, 0, len(identities))
	for identity := range identities {
		if len(spellings[identity]) > 1 {
			collisions++
			raws := make([]string, 0, len(spellings[identity]))
			for s := range spellings[identity] {
				raws = append(raws, s)
			}
			sort.Strings(raws)
			zap.L().Warn("reconcile: officer identity collision",
				zap.String("identity", identity),
				zap.Strings("raw_spellings", raws),
			)
		}

		m := model.OfficerMetrics{
			Identity:       identity,
			DisplayName:    titleCaser.String(identity),
			CreditPulls:    pullTotals[identity],
			ClosedLoans:    closedCounts[identity],
			DominantBranch: "",
		}
		if t := branches[identity]; t != nil {
			m.DominantBranch = t.mode()
		}
		m.TotalLoanAmount = amounts[identity]

		if m.CreditPulls > 0 {
			rate := round1(float64(m.ClosedLoans) / float64(m.CreditPulls) * 100)
			perPull := round2(float64(m.ClosedLoans) / float64(m.CreditPulls))
			m.CloseRatePct = &rate
			m.LoansPerPull = &perPull
		}

		metrics = append(metrics, m)
	}

	sort.Slice(metrics, func(i, j int) bool { return metrics[i].Identity < metrics[j].Identity })

	if collisions > 0 {
		zap.L().Warn("reconcile: summary",
			zap.Int("officers", len(metrics)),
			zap.Int("identity_collisions", collisions),
		)
	}

	return metrics
}

func round1(f float64) float64 { return math.Round(f*10) / 10 }
func round2(f float64) float64 { return math.Round(f*100) / 100 }
