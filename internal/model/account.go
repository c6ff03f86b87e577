package model

// Account represents a financial account whose exports can be ingested.
// Type selects the statement parser (e.g. "chase", "bofa", "ofx").
type Account struct {
	Name        string
	Type        string
	Description string
	ID          int64
}
