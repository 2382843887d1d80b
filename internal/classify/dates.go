package classify

import (
	"regexp"
	"strconv"
	"strings"
)

var frenchMonths = map[string]int{
	"janvier": 1, "février": 2, "fevrier": 2, "mars": 3, "avril": 4, "mai": 5, "juin": 6,
	"juillet": 7, "août": 8, "aout": 8, "septembre": 9, "octobre": 10, "novembre": 11,
	"décembre": 12, "decembre": 12,
}

// DefaultDateRules returns the numeric D/M/Y rule followed by the French month-name rule.
func DefaultDateRules() []DateRule {
	return []DateRule{NumericDMY(), FrenchLongDate()}
}

// NumericDMY matches 15/03/2025, 1-3-25 or 15.03.2025. Two-digit years land in the 2000s.
func NumericDMY() DateRule {
	return DateRule{
		Name:    "numeric-dmy",
		Pattern: regexp.MustCompile(`\b(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{4}|\d{2})\b`),
		Parse: func(m []string) (int, int, int, bool) {
			day, _ := strconv.Atoi(m[1])
			month, _ := strconv.Atoi(m[2])
			return expandYear(m[3]), month, day, true
		},
	}
}

// FrenchLongDate matches "15 mars 2025" and "1er août 25".
func FrenchLongDate() DateRule {
	return DateRule{
		Name:    "french-long",
		Pattern: regexp.MustCompile(`(?i)\b(\d{1,2})(?:er)?\s+(janvier|février|fevrier|mars|avril|mai|juin|juillet|août|aout|septembre|octobre|novembre|décembre|decembre)\s+(\d{4}|\d{2})\b`),
		Parse: func(m []string) (int, int, int, bool) {
			month, ok := frenchMonths[strings.ToLower(m[2])]
			if !ok {
				return 0, 0, 0, false
			}
			day, _ := strconv.Atoi(m[1])
			return expandYear(m[3]), month, day, true
		},
	}
}

func expandYear(raw string) int {
	year, _ := strconv.Atoi(raw)
	if len(raw) == 2 {
		year += 2000
	}
	return year
}
