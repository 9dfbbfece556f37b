package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clearpeak-lending/report-cli/internal/model"
)

func strPtr(s string) *string { return &s }

func TestClassify(t *testing.T) {
	tests := []struct {
		in   *string
		want model.Category
	}{
		{strPtr("FHA 30 Year Fixed"), model.CategoryFHA},
		{strPtr("fha streamline"), model.CategoryFHA},
		{strPtr("VA IRRRL"), model.CategoryVA},
		{strPtr("NON QM JUMBO"), model.CategoryNonQM},
		{strPtr("Non-QM Bank Statement"), model.CategoryNonQM},
		{strPtr("CONV 15 YEAR"), model.CategoryConventional},
		{strPtr("Conventional High Balance"), model.CategoryConventional},
		{strPtr("HELOC"), model.CategoryOther},
		{strPtr(""), model.CategoryOther},
		{nil, model.CategoryOther},
	}

	for _, tt := range tests {
		got := Classify(tt.in)
		if tt.in != nil {
			assert.Equal(t, tt.want, got, "input %q", *tt.in)
		} else {
			assert.Equal(t, tt.want, got, "nil input")
		}
	}
}

// Rule order is the contract: FHA and VA win even when the text also
// mentions a later keyword.
func TestClassify_FirstMatchWins(t *testing.T) {
	assert.Equal(t, model.CategoryFHA, Classify(strPtr("FHA CONV")))
	assert.Equal(t, model.CategoryFHA, Classify(strPtr("conventional-style FHA")))
	assert.Equal(t, model.CategoryVA, Classify(strPtr("VA Conventional Hybrid")))
	// "NON QM" contains no "VA" but "NOn qM conv" must still be Non-QM.
	assert.Equal(t, model.CategoryNonQM, Classify(strPtr("NOn qM conv")))
}

// Known false-positive surface of the substring heuristic, preserved on
// purpose: any text containing "VA" classifies as VA.
func TestClassify_SubstringFalsePositives(t *testing.T) {
	assert.Equal(t, model.CategoryVA, Classify(strPtr("NEVADA HOUSING PROGRAM")))
}
