package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/wcharczuk/go-chart/v2"
	"go.uber.org/zap"

	"github.com/clearpeak-lending/report-cli/internal/config"
	"github.com/clearpeak-lending/report-cli/internal/model"
	"github.com/clearpeak-lending/report-cli/internal/pipeline"
)

// UnknownLayoutKeyError reports a rendered image whose key appears in none of
// the variant's layout width rules.
type UnknownLayoutKeyError struct {
	Key string
}

func (e *UnknownLayoutKeyError) Error() string {
	return fmt.Sprintf("report: image %s has no layout width rule", e.Key)
}

// ChartSet renders the PNG charts for one report into a working directory.
type ChartSet struct {
	dir string
}

// NewChartSet creates a chart renderer writing into dir.
func NewChartSet(dir string) *ChartSet {
	return &ChartSet{dir: dir}
}

// renderBar writes one bar chart PNG. A chart with no bars is skipped with a
// warning; the corresponding template placeholder simply stays absent.
func (c *ChartSet) renderBar(name, title string, values []chart.Value) error {
	if len(values) == 0 {
		zap.L().Warn("chart skipped, no data", zap.String("chart", name))
		return nil
	}

	bc := chart.BarChart{
		Title:      title,
		Background: chart.Style{Padding: chart.Box{Top: 40}},
		Width:      900,
		Height:     540,
		BarWidth:   48,
		Bars:       values,
	}

	path := filepath.Join(c.dir, name+".png")
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "chart: create %s", path)
	}
	defer f.Close()

	if err := bc.Render(chart.PNG, f); err != nil {
		return eris.Wrapf(err, "chart: render %s", name)
	}
	return nil
}

func groupBars(stats []pipeline.GroupStat) []chart.Value {
	values := make([]chart.Value, 0, len(stats))
	for _, s := range stats {
		volume, _ := s.Volume.Float64()
		values = append(values, chart.Value{
			Label: s.Key,
			Value: volume / 1_000_000,
		})
	}
	return values
}

// channelSlug normalizes a channel name for use in an image file name.
func channelSlug(channel string) string {
	s := strings.ReplaceAll(strings.ToLower(channel), " ", "_")
	return strings.ReplaceAll(s, "_-_", "_")
}

// VolumeCharts renders the standard volume breakdown charts for the Active
// and Closed reports: by state, by branch, officer top 30, and per-channel
// product mix.
func (c *ChartSet) VolumeCharts(records []model.LoanRecord, titlePrefix, suffix string) error {
	byState := pipeline.GroupSumCount(records, func(r model.LoanRecord) string { return r.State })
	if err := c.renderBar("volume_by_state_"+suffix, titlePrefix+" Loan Volume by State ($M)", groupBars(byState)); err != nil {
		return err
	}

	byBranch := pipeline.GroupSumCount(records, func(r model.LoanRecord) string { return r.Branch })
	if err := c.renderBar("volume_by_branch_"+suffix, titlePrefix+" Loan Volume by Branch ($M)", groupBars(byBranch)); err != nil {
		return err
	}

	byOfficer := pipeline.GroupSumCount(records, func(r model.LoanRecord) string {
		if r.LoanOfficer == "" {
			return pipeline.Unassigned
		}
		return r.LoanOfficer
	})
	top30 := pipeline.TopN(byOfficer, 30)
	if err := c.renderBar("pareto_loan_officer_"+suffix, titlePrefix+" Loan Volume by Loan Officer, Top 30 ($M)", groupBars(top30)); err != nil {
		return err
	}

	return c.channelProductCharts(records, titlePrefix, suffix)
}

// channelProductCharts renders, for every channel present, a product-mix
// volume chart and a product-mix count chart.
func (c *ChartSet) channelProductCharts(records []model.LoanRecord, titlePrefix, suffix string) error {
	byChannel := make(map[string][]model.LoanRecord)
	var channels []string
	for _, r := range records {
		if _, seen := byChannel[r.Channel]; !seen {
			channels = append(channels, r.Channel)
		}
		byChannel[r.Channel] = append(byChannel[r.Channel], r)
	}
	sort.Strings(channels)

	for _, ch := range channels {
		subset := byChannel[ch]
		byCategory := pipeline.GroupSumCount(subset, func(r model.LoanRecord) string {
			return string(r.ProductCategory)
		})
		slug := channelSlug(ch)

		title := fmt.Sprintf("%s Loan Volume by Product Type, Channel %s ($M)", titlePrefix, strings.ToUpper(ch))
		if err := c.renderBar(fmt.Sprintf("final_chart_%s_%s", suffix, slug), title, groupBars(byCategory)); err != nil {
			return err
		}

		counts := make([]chart.Value, 0, len(byCategory))
		for _, s := range byCategory {
			counts = append(counts, chart.Value{Label: s.Key, Value: float64(s.Count)})
		}
		title = fmt.Sprintf("%s Loan Count by Product Type, Channel %s", titlePrefix, strings.ToUpper(ch))
		if err := c.renderBar(fmt.Sprintf("final_table_%s_%s", suffix, slug), title, counts); err != nil {
			return err
		}
	}
	return nil
}

// ProjectedClosings renders the weekly projected-closings chart from the
// clear-to-close dates of the active pipeline.
func (c *ChartSet) ProjectedClosings(records []model.LoanRecord, suffix string) error {
	buckets, _ := pipeline.WeekBuckets(records, func(r model.LoanRecord) *time.Time {
		return r.ClearToCloseDate
	})

	values := make([]chart.Value, 0, len(buckets))
	for _, b := range buckets {
		volume, _ := b.Volume.Float64()
		values = append(values, chart.Value{
			Label: b.Week.Format("01/02"),
			Value: volume / 1_000_000,
		})
	}
	return c.renderBar("projected_closings_"+suffix, "Estimated Loan Closings by Week ($M)", values)
}

// EfficiencyCharts renders the three officer-efficiency charts for report 3.
func (c *ChartSet) EfficiencyCharts(metrics []model.OfficerMetrics) error {
	effRows := EfficiencyTable(metrics)
	effValues := make([]chart.Value, 0, len(effRows))
	for _, row := range effRows {
		effValues = append(effValues, chart.Value{Label: row.Officer, Value: row.LoansPerPull})
	}
	if err := c.renderBar("loan_officer_by_efficiency", "Loan Officers by Loans per Pull, Top 30", effValues); err != nil {
		return err
	}

	closedRows := ClosedPullsTable(metrics)
	closedValues := make([]chart.Value, 0, len(closedRows))
	for _, m := range closedRows {
		closedValues = append(closedValues, chart.Value{Label: m.DisplayName, Value: float64(m.ClosedLoans)})
	}
	if err := c.renderBar("closed_pulls_top30", "Closed Loans by Loan Officer, Top 30", closedValues); err != nil {
		return err
	}

	branchRows := BranchRollup(metrics)
	branchValues := make([]chart.Value, 0, len(branchRows))
	for _, row := range branchRows {
		branchValues = append(branchValues, chart.Value{Label: row.Branch, Value: float64(row.ClosedLoans)})
	}
	return c.renderBar("closed_pulls_by_branch", "Closed Loans by Branch", branchValues)
}

// TurnTimeCharts renders the volume and mean-days-to-close charts for the
// turn-time reports, grouped by the given team-member role.
func (c *ChartSet) TurnTimeCharts(closed []model.LoanRecord, role func(model.LoanRecord) string, volumeName, daysName string) error {
	byRole := pipeline.GroupSumCount(closed, role)
	if err := c.renderBar(volumeName, "Closed Loan Volume ($M)", groupBars(byRole)); err != nil {
		return err
	}

	var daysValues []chart.Value
	for _, stat := range byRole {
		var subset []model.LoanRecord
		for _, r := range closed {
			if role(r) == stat.Key {
				subset = append(subset, r)
			}
		}
		mean := pipeline.MeanElapsedDays(subset,
			func(r model.LoanRecord) *time.Time { return r.SubmittalDate },
			func(r model.LoanRecord) *time.Time { return r.ClearToCloseDate },
		)
		if mean == nil {
			continue
		}
		daysValues = append(daysValues, chart.Value{Label: stat.Key, Value: *mean})
	}
	return c.renderBar(daysName, "Mean Days Submittal to Clear to Close", daysValues)
}

// Clear removes every PNG in the working directory. Charts are scratch
// artifacts; the rendered report is the deliverable.
func (c *ChartSet) Clear() error {
	paths, err := filepath.Glob(filepath.Join(c.dir, "*.png"))
	if err != nil {
		return eris.Wrap(err, "chart: glob images")
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil {
			return eris.Wrapf(err, "chart: remove %s", p)
		}
	}
	return nil
}

// ResolveImages maps every rendered PNG to its template key and layout width.
// A PNG whose key matches no width rule is a hard error so layout drift fails
// the run instead of producing a silently misformatted document.
func ResolveImages(imagesDir string, variant config.VariantConfig, fullInches, halfInches float64) (map[string]model.ImageRef, error) {
	paths, err := filepath.Glob(filepath.Join(imagesDir, "*.png"))
	if err != nil {
		return nil, eris.Wrap(err, "report: glob images")
	}

	full := make(map[string]bool, len(variant.Layout.FullWidth))
	for _, k := range variant.Layout.FullWidth {
		full[k] = true
	}
	half := make(map[string]bool, len(variant.Layout.HalfWidth))
	for _, k := range variant.Layout.HalfWidth {
		half[k] = true
	}

	refs := make(map[string]model.ImageRef, len(paths))
	for _, p := range paths {
		stem := strings.TrimSuffix(filepath.Base(p), ".png")
		key := stem + "_img"

		var width float64
		switch {
		case full[key]:
			width = fullInches
		case half[key]:
			width = halfInches
		default:
			custom, ok := variant.Layout.CustomInches[key]
			if !ok {
				return nil, &UnknownLayoutKeyError{Key: key}
			}
			width = custom
		}

		refs[key] = model.ImageRef{Path: p, WidthInches: width}
	}
	return refs, nil
}
