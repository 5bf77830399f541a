package etl

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// fold returns the case-folded form of s for caseless substring tests.
func fold(s string) string {
	return cases.Fold().String(s)
}

// containsFold reports whether substr occurs in s, ignoring case.
func containsFold(s, substr string) bool {
	return strings.Contains(fold(s), fold(substr))
}

// cellText renders a cell value as text. Missing cells render as "".
func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

// isBlank reports whether a cell is missing or holds only whitespace.
func isBlank(v any) bool {
	return strings.TrimSpace(cellText(v)) == ""
}
