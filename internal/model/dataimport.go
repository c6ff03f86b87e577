package model

import "time"

// DataImport records one ingestion event for provenance. Transactions keep a
// reference to it, but identity is carried by their content hash alone.
type DataImport struct {
	CreatedAt time.Time
	Filename  string
	ID        int64
	AccountID int64
}
