package pipeline

import (
	"strings"

	"github.com/clearpeak-lending/report-cli/internal/model"
)

// categoryRule matches when any of its substrings appears in the uppercased
// product type.
type categoryRule struct {
	category model.Category
	contains []string
}

// categoryRules is ordered and first-match-wins. The order is a product
// decision: an FHA loan whose free text also mentions "conventional" still
// classifies as FHA.
var categoryRules = []categoryRule{
	{model.CategoryFHA, []string{"FHA"}},
	{model.CategoryVA, []string{"VA"}},
	{model.CategoryNonQM, []string{"NON QM", "NON-QM"}},
	{model.CategoryConventional, []string{"CONV", "CONVENTIONAL"}},
}

// Classify maps raw product-type text to a canonical category. A nil product
// type becomes the literal "NONE", which matches no rule and falls through
// to Other.
func Classify(productType *string) model.Category {
	val := "NONE"
	if productType != nil {
		val = strings.ToUpper(*productType)
	}

	for _, rule := range categoryRules {
		for _, sub := range rule.contains {
			if strings.Contains(val, sub) {
				return rule.category
			}
		}
	}
	return model.CategoryOther
}
