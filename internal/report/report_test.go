package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/clearpeak-lending/report-cli/internal/config"
	"github.com/clearpeak-lending/report-cli/internal/model"
	"github.com/clearpeak-lending/report-cli/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := &config.Config{
		Paths: config.PathsConfig{
			Templates:  filepath.Join(base, "templates"),
			Images:     filepath.Join(base, "images"),
			Output:     filepath.Join(base, "output"),
			LoanJSON:   filepath.Join(base, "loan_data.json"),
			CreditXLSX: filepath.Join(base, "credit_pulls.xlsx"),
		},
		Credit: config.CreditConfig{SheetName: "Sheet0"},
		Report: config.ReportConfig{
			FullWidthInches: 6.5,
			HalfWidthInches: 3.2,
			Variants:        config.DefaultVariants(),
		},
	}
	require.NoError(t, os.MkdirAll(cfg.Paths.Templates, 0o755))
	require.NoError(t, os.MkdirAll(cfg.Paths.Images, 0o755))
	return cfg
}

func writeLoanJSON(t *testing.T, path string, loans []model.RawLoan) {
	t.Helper()
	data, err := json.Marshal(loans)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func writeTemplate(t *testing.T, cfg *config.Config, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Paths.Templates, name), []byte(body), 0o644))
}

func writeCreditXLSX(t *testing.T, path string, rows [][]string) {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet0")
	require.NoError(t, err)
	for _, row := range rows {
		r := sheet.AddRow()
		for _, cell := range row {
			r.AddCell().SetString(cell)
		}
	}
	require.NoError(t, f.Save(path))
}

func sampleLoans() []model.RawLoan {
	return []model.RawLoan{
		{LoanID: "g1", Folder: "Active Pipeline", Fields: map[string]any{
			"2": "400000", "14": "NV", "317": "Ann Ames", "1401": "FHA 30yr",
			"2626": "Retail", "ORGID": "Reno",
			"Log.MS.Date.Clear to Close": "07/07/2025",
			"Log.MS.Date.Submittal":      "06/01/2025",
		}},
		{LoanID: "g2", Folder: "Closed 2025", Fields: map[string]any{
			"2": "250000", "14": "ID", "317": "Bob Burr", "1401": "CONV",
			"2626": "Retail", "ORGID": "Boise", "1997": "06/15/2025",
			"LoanTeamMember.Name.Underwriter":      "Dana Reed",
			"LoanTeamMember.Name.Branch Processor": "Gia Holt",
			"Log.MS.Date.Submittal":                "06/01/2025",
			"Log.MS.Date.Clear to Close":           "06/10/2025",
			"Log.MS.Date.Sent to Branch LP":        "06/03/2025",
		}},
	}
}

func fixedRunner(cfg *config.Config, ledger store.Store) *Runner {
	r := NewRunner(cfg, ledger)
	r.now = func() time.Time { return time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC) }
	return r
}

func TestRun_Report4(t *testing.T) {
	cfg := testConfig(t)
	writeLoanJSON(t, cfg.Paths.LoanJSON, sampleLoans())
	writeTemplate(t, cfg, "report_4.tmpl",
		"loans={{.cl_qtd}} underwriters={{.cl_underw_qtd}} avg={{dash .cl_avg_sub_days}}\n")

	out, err := fixedRunner(cfg, nil).Run(context.Background(), 4, Options{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.Paths.Output, "report_4_June_2025.txt"), out)

	body, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(body), "loans=1")
	assert.Contains(t, string(body), "underwriters=1")
	assert.Contains(t, string(body), "avg=9")
}

func TestRun_Report1_IncludesImages(t *testing.T) {
	cfg := testConfig(t)
	writeLoanJSON(t, cfg.Paths.LoanJSON, sampleLoans())
	writeTemplate(t, cfg, "report_1.tmpl",
		"qtd={{.cl_qtd}} state_chart={{img .volume_by_state_active_img}}\n")

	out, err := fixedRunner(cfg, nil).Run(context.Background(), 1, Options{MonthLabel: "June", YearLabel: "2025"})
	require.NoError(t, err)

	body, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(body), "qtd=1")
	assert.Contains(t, string(body), "volume_by_state_active.png width=6.50in")

	// Scratch images are removed after the render.
	left, err := filepath.Glob(filepath.Join(cfg.Paths.Images, "report_1", "*.png"))
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestRun_Report3(t *testing.T) {
	cfg := testConfig(t)
	writeLoanJSON(t, cfg.Paths.LoanJSON, sampleLoans())
	writeCreditXLSX(t, cfg.Paths.CreditXLSX, [][]string{
		{"Officer", "Purchase", "Refi"},
		{"Bob Burr", "3", "1"},
	})
	writeTemplate(t, cfg, "report_3.tmpl",
		"closed={{.cl_qtd}} pulls={{.cl_cred_pulls_qtd}} max={{dash .cl_pulltoc_name_max}}\n")

	out, err := fixedRunner(cfg, nil).Run(context.Background(), 3, Options{})
	require.NoError(t, err)

	body, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(body), "closed=1")
	assert.Contains(t, string(body), "pulls=4")
	assert.Contains(t, string(body), "max=Bob Burr")
}

func TestRun_Report3_MissingCreditFile(t *testing.T) {
	cfg := testConfig(t)
	writeLoanJSON(t, cfg.Paths.LoanJSON, sampleLoans())

	_, err := fixedRunner(cfg, nil).Run(context.Background(), 3, Options{})
	require.ErrorIs(t, err, ErrCreditFileMissing)
}

func TestRun_RecordsLedgerEntry(t *testing.T) {
	cfg := testConfig(t)
	writeLoanJSON(t, cfg.Paths.LoanJSON, sampleLoans())
	writeTemplate(t, cfg, "report_5.tmpl", "procs={{.cl_branch_procs_qtd}}\n")

	ledger, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer ledger.Close()
	require.NoError(t, ledger.Migrate(context.Background()))

	out, err := fixedRunner(cfg, ledger).Run(context.Background(), 5, Options{})
	require.NoError(t, err)

	runs, err := ledger.ListRuns(context.Background(), store.RunFilter{ReportNumber: 5})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)
	require.NotNil(t, runs[0].Result)
	assert.Equal(t, out, runs[0].Result.OutputPath)
}

func TestRunAll_ProceedsPastFailures(t *testing.T) {
	cfg := testConfig(t)
	writeLoanJSON(t, cfg.Paths.LoanJSON, sampleLoans())

	// Only two variants get templates; the rest fail. No credit export, so
	// report 3 is a skip.
	writeTemplate(t, cfg, "report_1.tmpl", "qtd={{.cl_qtd}}\n")
	writeTemplate(t, cfg, "report_4.tmpl", "qtd={{.cl_qtd}}\n")

	outcomes := fixedRunner(cfg, nil).RunAll(context.Background(), Options{})

	require.Len(t, outcomes, 5)
	byNumber := make(map[int]Outcome, len(outcomes))
	for _, o := range outcomes {
		byNumber[o.Number] = o
	}

	assert.NoError(t, byNumber[1].Err)
	assert.NotEmpty(t, byNumber[1].OutputPath)
	assert.Error(t, byNumber[2].Err)
	assert.ErrorIs(t, byNumber[3].Err, ErrCreditFileMissing)
	assert.NoError(t, byNumber[4].Err)
	assert.Error(t, byNumber[5].Err)
}
