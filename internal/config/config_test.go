package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Report: ReportConfig{
			FullWidthInches: 6.5,
			HalfWidthInches: 3.2,
			Variants:        DefaultVariants(),
		},
	}
}

func TestValidate_Defaults(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_RejectsBadNumber(t *testing.T) {
	cfg := validConfig()
	cfg.Report.Variants = map[string]VariantConfig{
		"report_9": {Number: 9, Template: "x.tmpl"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestValidate_RejectsDuplicateNumber(t *testing.T) {
	cfg := validConfig()
	cfg.Report.Variants = map[string]VariantConfig{
		"a": {Number: 1, Template: "a.tmpl"},
		"b": {Number: 1, Template: "b.tmpl"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "share number")
}

func TestValidate_RejectsMissingTemplate(t *testing.T) {
	cfg := validConfig()
	cfg.Report.Variants = map[string]VariantConfig{
		"a": {Number: 1},
	}
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsNonPositiveCustomWidth(t *testing.T) {
	cfg := validConfig()
	cfg.Report.Variants = map[string]VariantConfig{
		"a": {Number: 1, Template: "a.tmpl", Layout: Layout{
			CustomInches: map[string]float64{"chart_img": 0},
		}},
	}
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsBadMetrics(t *testing.T) {
	cfg := validConfig()
	cfg.Report.FullWidthInches = 0
	require.Error(t, cfg.Validate())
}

func TestVariantLookup(t *testing.T) {
	cfg := validConfig()

	name, variant, ok := cfg.Variant(3)
	require.True(t, ok)
	assert.Equal(t, "report_3", name)
	assert.Equal(t, "Closed 2025", variant.Folder)

	_, _, ok = cfg.Variant(7)
	assert.False(t, ok)
}

func TestDefaultVariants_CoverAllNumbers(t *testing.T) {
	variants := DefaultVariants()
	require.Len(t, variants, 5)

	seen := map[int]bool{}
	for _, v := range variants {
		seen[v.Number] = true
		assert.NotEmpty(t, v.Template)
	}
	for n := 1; n <= 5; n++ {
		assert.True(t, seen[n], "missing variant %d", n)
	}
}
