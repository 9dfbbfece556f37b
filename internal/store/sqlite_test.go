package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearpeak-lending/report-cli/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestCreateAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, 4)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, 4, got.ReportNumber)
	assert.Nil(t, got.Result)
}

func TestCompleteRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, 1)
	require.NoError(t, err)

	result := &model.RunResult{OutputPath: "out/report_1.txt", LoanCount: 42, WarningCount: 3}
	require.NoError(t, s.CompleteRun(ctx, run.ID, result))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, 42, got.Result.LoanCount)
	assert.Equal(t, "out/report_1.txt", got.Result.OutputPath)
}

func TestFailRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, 3)
	require.NoError(t, err)
	require.NoError(t, s.FailRun(ctx, run.ID, eris.New("credit export missing")))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	require.NotNil(t, got.Result)
	assert.Contains(t, got.Result.Error, "credit export missing")
}

func TestCompleteRun_NotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.CompleteRun(context.Background(), "missing-id", &model.RunResult{})
	require.Error(t, err)
}

func TestListRuns_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r1, err := s.CreateRun(ctx, 1)
	require.NoError(t, err)
	_, err = s.CreateRun(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, s.CompleteRun(ctx, r1.ID, &model.RunResult{LoanCount: 7}))

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	done, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, r1.ID, done[0].ID)

	byNum, err := s.ListRuns(ctx, RunFilter{ReportNumber: 2})
	require.NoError(t, err)
	require.Len(t, byNum, 1)
	assert.Equal(t, 2, byNum[0].ReportNumber)
}
