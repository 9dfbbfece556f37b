// Package report orchestrates loan report generation: it feeds the loan
// ledger through the normalization pipeline, renders charts and placeholder
// contexts per report variant, and fills the output templates.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/clearpeak-lending/report-cli/internal/config"
	"github.com/clearpeak-lending/report-cli/internal/fetcher"
	"github.com/clearpeak-lending/report-cli/internal/model"
	"github.com/clearpeak-lending/report-cli/internal/pipeline"
	"github.com/clearpeak-lending/report-cli/internal/store"
)

// ErrCreditFileMissing marks a report 3 run that cannot proceed because the
// credit-bureau export is absent. Batch runs treat it as a skip, not a
// failure.
var ErrCreditFileMissing = eris.New("report: credit pull export not found")

// Options are per-invocation report settings.
type Options struct {
	MonthLabel   string
	YearLabel    string
	ShowAppendix bool
}

// Runner generates reports. The ledger is optional; a nil store disables run
// tracking.
type Runner struct {
	cfg    *config.Config
	ledger store.Store
	now    func() time.Time
}

// NewRunner creates a report runner.
func NewRunner(cfg *config.Config, ledger store.Store) *Runner {
	return &Runner{cfg: cfg, ledger: ledger, now: time.Now}
}

// Run generates the numbered report variant and returns the output path.
func (r *Runner) Run(ctx context.Context, number int, opts Options) (string, error) {
	name, variant, ok := r.cfg.Variant(number)
	if !ok {
		return "", eris.Errorf("report: no variant configured for number %d", number)
	}

	var run *model.Run
	if r.ledger != nil {
		var err error
		run, err = r.ledger.CreateRun(ctx, number)
		if err != nil {
			return "", err
		}
	}

	outPath, loanCount, err := r.generate(ctx, name, variant, opts)

	if run != nil {
		if err != nil {
			if ferr := r.ledger.FailRun(ctx, run.ID, err); ferr != nil {
				zap.L().Error("ledger update failed", zap.String("run_id", run.ID), zap.Error(ferr))
			}
		} else {
			result := &model.RunResult{OutputPath: outPath, LoanCount: loanCount}
			if cerr := r.ledger.CompleteRun(ctx, run.ID, result); cerr != nil {
				zap.L().Error("ledger update failed", zap.String("run_id", run.ID), zap.Error(cerr))
			}
		}
	}

	return outPath, err
}

func (r *Runner) generate(ctx context.Context, name string, variant config.VariantConfig, opts Options) (string, int, error) {
	raws, err := fetcher.ReadLoanLedger(ctx, r.cfg.Paths.LoanJSON)
	if err != nil {
		return "", 0, err
	}
	records := pipeline.Coerce(pipeline.Flatten(raws))
	labels := ResolveLabels(opts.MonthLabel, opts.YearLabel, r.now())

	// Per-variant image directory so batch runs do not clobber each other.
	imagesDir := filepath.Join(r.cfg.Paths.Images, name)
	if err := os.MkdirAll(imagesDir, 0o755); err != nil {
		return "", 0, eris.Wrapf(err, "report: create images dir %s", imagesDir)
	}
	charts := NewChartSet(imagesDir)

	var tplCtx model.ReportContext
	switch variant.Number {
	case 1:
		active := pipeline.FilterStatus(records, model.StatusActive)
		title := FormatTitle(variant.Title, labels, variant.StatusLabel)
		if err := charts.VolumeCharts(active, title, "active"); err != nil {
			return "", 0, err
		}
		if err := charts.ProjectedClosings(active, "active"); err != nil {
			return "", 0, err
		}
		tplCtx = VolumeContext(variant, labels, active, opts.ShowAppendix, r.now())

	case 2:
		closed := pipeline.FilterStatus(records, model.StatusClosed)
		title := FormatTitle(variant.Title, labels, variant.StatusLabel)
		if err := charts.VolumeCharts(closed, title, "closed"); err != nil {
			return "", 0, err
		}
		tplCtx = VolumeContext(variant, labels, closed, opts.ShowAppendix, r.now())

	case 3:
		if _, err := os.Stat(r.cfg.Paths.CreditXLSX); err != nil {
			return "", 0, ErrCreditFileMissing
		}
		rows, err := fetcher.ReadXLSX(r.cfg.Paths.CreditXLSX, fetcher.XLSXOptions{SheetName: r.cfg.Credit.SheetName})
		if err != nil {
			return "", 0, err
		}
		pulls := pipeline.MeltCreditSheet(rows)
		closed := pipeline.FilterFolder(records, variant.Folder)
		metrics := pipeline.Reconcile(pulls, closed)
		if err := charts.EfficiencyCharts(metrics); err != nil {
			return "", 0, err
		}
		tplCtx = EfficiencyContext(variant, labels, metrics, closed, opts.ShowAppendix, r.now())

	case 4:
		closed := pipeline.FilterFolder(records, variant.Folder)
		err := charts.TurnTimeCharts(closed,
			func(rec model.LoanRecord) string { return rec.Underwriter },
			"volume_by_underwriter", "days_to_close_by_underwriter")
		if err != nil {
			return "", 0, err
		}
		tplCtx = TurnTimeContext(variant, labels, closed, opts.ShowAppendix, r.now())

	case 5:
		closed := pipeline.FilterFolder(records, variant.Folder)
		err := charts.TurnTimeCharts(closed,
			func(rec model.LoanRecord) string { return rec.BranchProcessor },
			"volume_by_processor", "days_to_close_by_processor")
		if err != nil {
			return "", 0, err
		}
		tplCtx = TurnTimeContext(variant, labels, closed, opts.ShowAppendix, r.now())

	default:
		return "", 0, eris.Errorf("report: unsupported variant number %d", variant.Number)
	}

	refs, err := ResolveImages(imagesDir, variant, r.cfg.Report.FullWidthInches, r.cfg.Report.HalfWidthInches)
	if err != nil {
		return "", 0, err
	}
	for key, ref := range refs {
		tplCtx[key] = ref
	}

	if err := os.MkdirAll(r.cfg.Paths.Output, 0o755); err != nil {
		return "", 0, eris.Wrapf(err, "report: create output dir %s", r.cfg.Paths.Output)
	}
	outPath := filepath.Join(r.cfg.Paths.Output,
		fmt.Sprintf("%s_%s_%s.txt", name, labels.Month, labels.Year))

	renderer := NewRenderer(r.cfg.Paths.Templates)
	if err := renderer.Render(variant.Template, tplCtx, outPath); err != nil {
		return "", 0, err
	}

	if err := charts.Clear(); err != nil {
		zap.L().Warn("image cleanup failed", zap.String("dir", imagesDir), zap.Error(err))
	}

	zap.L().Info("report generated",
		zap.Int("number", variant.Number),
		zap.String("output", outPath),
		zap.Int("loans", len(records)),
	)
	return outPath, len(records), nil
}

// Outcome is the result of one variant within a batch run.
type Outcome struct {
	Number     int
	OutputPath string
	Err        error
}

// RunAll generates every configured variant concurrently. A variant failure
// is recorded and logged but never aborts the rest of the batch; a missing
// credit export downgrades report 3 to a skip.
func (r *Runner) RunAll(ctx context.Context, opts Options) []Outcome {
	numbers := make([]int, 0, len(r.cfg.Report.Variants))
	for _, v := range r.cfg.Report.Variants {
		numbers = append(numbers, v.Number)
	}
	sort.Ints(numbers)

	outcomes := make([]Outcome, len(numbers))
	var g errgroup.Group
	for i, number := range numbers {
		g.Go(func() error {
			path, err := r.Run(ctx, number, opts)
			outcomes[i] = Outcome{Number: number, OutputPath: path, Err: err}

			switch {
			case eris.Is(err, ErrCreditFileMissing):
				zap.L().Warn("report skipped", zap.Int("number", number), zap.Error(err))
			case err != nil:
				zap.L().Error("report failed", zap.Int("number", number), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}
