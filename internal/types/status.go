package types

// Status is the record status of a row in the database, independent of the
// business lifecycle status of the entity it stores.
type Status string

const (
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)
