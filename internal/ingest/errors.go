package ingest

import "fmt"

// FormatError indicates a statement export whose header does not match the
// institution's expected layout. The whole file is rejected; no partial
// results are returned.
type FormatError struct {
	Institution string
	Expected    []string
	Got         []string
}

func (e *FormatError) Error() string {
	if len(e.Got) == 0 {
		return fmt.Sprintf("%s: statement header not found (expected %v)", e.Institution, e.Expected)
	}
	return fmt.Sprintf("%s: statement header mismatch: expected %v, got %v", e.Institution, e.Expected, e.Got)
}
