package compress

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tract-dev/tract/internal/types"
)

// checkRetention reports whether summary satisfies every pattern of every
// criteria set, per each criteria's own MatchMode (spec.md §4.9 step 6,
// §9 Open Question #3: regex is Go's RE2-based regexp package). The first
// unmatched pattern's diagnosis is returned for the retry prompt.
func checkRetention(summary string, criteria []types.RetentionCriteria) (ok bool, diagnosis string) {
	for _, rc := range criteria {
		for _, pattern := range rc.MatchPatterns {
			matched, err := matchPattern(summary, pattern, rc.MatchMode)
			if err != nil {
				return false, fmt.Sprintf("retention pattern %q is not a valid regex: %v", pattern, err)
			}
			if !matched {
				return false, fmt.Sprintf("summary is missing required content matching %q", pattern)
			}
		}
	}
	return true, ""
}

func matchPattern(summary, pattern string, mode types.MatchMode) (bool, error) {
	switch mode {
	case types.MatchRegex:
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, err
		}
		return re.MatchString(summary), nil
	default: // substring, including the zero value
		return strings.Contains(summary, pattern), nil
	}
}
