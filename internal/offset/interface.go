package offset

import (
	"context"

	"github.com/SteelMorgan/lpreserver-watcher/internal/domain"
)

// SourcePrimary is the key prefix of the daemon log offset
const SourcePrimary = "primary"

// OffsetStore stores and retrieves file read offsets
type OffsetStore interface {
	// Get retrieves the offset for a given file
	// Returns 0 if no offset is stored
	Get(ctx context.Context, sourceType, filePath string) (uint64, error)

	// Set stores the offset for a given file
	Set(ctx context.Context, sourceType, filePath string, offset uint64) error

	// Delete removes the offset for a given file
	Delete(ctx context.Context, sourceType, filePath string) error

	// List returns all stored offsets
	List(ctx context.Context) (map[string]uint64, error)

	// Close closes the offset store
	Close() error
}

// StateStore extends OffsetStore with the watcher state needed to resume
// after a restart: the latest status per category and the progress file of
// the replication that was running.
type StateStore interface {
	OffsetStore

	// LoadStatus returns the persisted status records
	LoadStatus(ctx context.Context) (map[domain.Category]domain.Fields, error)

	// SaveStatus replaces the persisted status records
	SaveStatus(ctx context.Context, records map[domain.Category]domain.Fields) error

	// ActiveProgress returns the progress file being watched, "" if none
	ActiveProgress(ctx context.Context) (string, error)

	// SetActiveProgress records the progress file being watched, "" clears it
	SetActiveProgress(ctx context.Context, path string) error
}
