package ingest

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "01/02/2006"

// parseDate parses the MM/DD/YYYY dates used by US statement exports.
func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(s))
}

// parseAmount parses a statement amount, tolerating comma thousands
// separators and surrounding quotes. The sign is preserved.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.Trim(strings.TrimSpace(s), `"`)
	s = strings.ReplaceAll(s, ",", "")
	return decimal.NewFromString(s)
}

// cleanField trims whitespace and stray quotes from a CSV field.
func cleanField(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"`)
}

// rawLine rebuilds the source row for content hashing, preserving column
// order. Two rows that differ anywhere (reference numbers included) hash
// differently, which keeps legitimate repeated charges distinct.
func rawLine(record []string) string {
	return strings.Join(record, ",")
}

// headerMatches compares a header row against the expected column set.
func headerMatches(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if strings.TrimSpace(got[i]) != want[i] {
			return false
		}
	}
	return true
}
