package domain

import "strings"

// Category is one of the independent status channels
type Category string

const (
	CategoryMessage  Category = "message"
	CategoryRunning  Category = "running"  // replication
	CategoryCritical Category = "critical" // reserved, nothing populates it yet
)

// Categories lists every category in a stable order
var Categories = []Category{CategoryMessage, CategoryRunning, CategoryCritical}

// ParseCategory resolves a category name case-insensitively
func ParseCategory(name string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(name)))
	switch c {
	case CategoryMessage, CategoryRunning, CategoryCritical:
		return c, true
	}
	return "", false
}

// Field names one slot of a status record
type Field string

const (
	FieldID        Field = "id"        // internal status code
	FieldDataset   Field = "dataset"   // e.g. tank1
	FieldSummary   Field = "summary"   // short label, good for titles
	FieldMessage   Field = "message"   // full text
	FieldTimestamp Field = "timestamp" // full date/time
	FieldTime      Field = "time"      // time only
)

// AllFields lists every field in a stable order
var AllFields = []Field{FieldID, FieldDataset, FieldSummary, FieldMessage, FieldTimestamp, FieldTime}

// ParseField resolves a field name case-insensitively
func ParseField(name string) (Field, bool) {
	f := Field(strings.ToLower(strings.TrimSpace(name)))
	switch f {
	case FieldID, FieldDataset, FieldSummary, FieldMessage, FieldTimestamp, FieldTime:
		return f, true
	}
	return "", false
}

// Fields holds the values written by one event. Absent keys are left untouched
// in the store.
type Fields map[Field]string

// Status IDs
const (
	StatusSnapshotCreated     = "SNAPCREATED"
	StatusReplicationStarted  = "REPSTARTED"
	StatusReplicationFinished = "REPFINISHED"
	StatusReplicationError    = "REPERROR"
)

// StatusEvent is a parsed status update for one category
type StatusEvent struct {
	Category Category
	Fields   Fields
}
