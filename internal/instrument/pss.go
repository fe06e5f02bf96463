// Package instrument holds the fixed scoring tables for the clinical
// screening instruments served by this platform: the Perceived Stress
// Scale (PSS) and the Self-Reporting Questionnaire (SRQ-29). Everything
// here is pure computation; persistence lives in the services layer.
package instrument

import "fmt"

// PSS severity categories, ordered by band.
const (
	PssCategoryMild     = "Stres Ringan"
	PssCategoryModerate = "Stres Sedang"
	PssCategorySevere   = "Stres Berat"
)

const (
	PssItemCount = 10
	PssMinValue  = 0
	PssMaxValue  = 4
	PssMaxScore  = PssItemCount * PssMaxValue
)

// pssReversedItems are the published reverse-scored item numbers (1-indexed).
var pssReversedItems = map[int]bool{4: true, 5: true, 7: true, 8: true}

// PssCategory maps a total PSS score to its severity band:
// 1-13 mild, 14-26 moderate, 27-40 severe. A total of 0 is not bucketed
// by the published instructions; it folds into the mild band so every
// accepted total resolves to a category.
func PssCategory(total int) (string, error) {
	switch {
	case total < 0 || total > PssMaxScore:
		return "", fmt.Errorf("pss score %d out of range 0..%d", total, PssMaxScore)
	case total <= 13:
		return PssCategoryMild, nil
	case total <= 26:
		return PssCategoryModerate, nil
	default:
		return PssCategorySevere, nil
	}
}

// PssItemReversed reports whether the 1-indexed item is reverse-scored.
func PssItemReversed(item int) bool {
	return pssReversedItems[item]
}

// PssScore recomputes the total from raw 0-4 Likert values ordered by item
// number, applying the reversal (value' = 4 - value) to items 4, 5, 7 and 8.
// Callers pass raw responses as the candidate entered them; the reversal is
// applied here, server-side.
func PssScore(values []int) (int, error) {
	if len(values) != PssItemCount {
		return 0, fmt.Errorf("pss expects %d item values, got %d", PssItemCount, len(values))
	}
	total := 0
	for i, v := range values {
		if v < PssMinValue || v > PssMaxValue {
			return 0, fmt.Errorf("pss item %d value %d out of range %d..%d", i+1, v, PssMinValue, PssMaxValue)
		}
		if PssItemReversed(i + 1) {
			v = PssMaxValue - v
		}
		total += v
	}
	return total, nil
}
