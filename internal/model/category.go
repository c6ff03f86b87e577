package model

// Category represents a user-defined transaction category. Categories form a
// tree via ParentID; cycle prevention is enforced at the storage layer.
type Category struct {
	Name        string
	Description string
	ID          int64
	ParentID    *int64
}

// UncategorizedID is the sentinel bucket for expenses with no category.
const UncategorizedID int64 = 0
