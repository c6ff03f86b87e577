package model

// Suggestion is an advisory category/merchant suggestion for one transaction.
// A nil CategoryID means the suggester declined to pick a category.
type Suggestion struct {
	TransactionID string
	MerchantName  string
	CategoryID    *int64
	Confidence    float64
}
