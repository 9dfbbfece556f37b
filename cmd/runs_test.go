package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/clearpeak-lending/report-cli/internal/model"
)

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "12345678", truncateID("12345678-abcd-efgh"))
	assert.Equal(t, "short", truncateID("short"))
}

func TestFormatRunsList(t *testing.T) {
	created := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:           "aaaabbbb-1111-2222",
			ReportNumber: 4,
			Status:       model.RunStatusComplete,
			Result:       &model.RunResult{LoanCount: 42},
			CreatedAt:    created,
			UpdatedAt:    created.Add(3 * time.Second),
		},
		{
			ID:           "ccccdddd-3333-4444",
			ReportNumber: 3,
			Status:       model.RunStatusFailed,
			CreatedAt:    created,
			UpdatedAt:    created,
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)
	out := buf.String()

	assert.Contains(t, out, "aaaabbbb")
	assert.Contains(t, out, "complete")
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "failed")
	assert.NotContains(t, out, "ccccdddd-3333-4444")
}
