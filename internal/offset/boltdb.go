package offset

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"go.etcd.io/bbolt"

	"github.com/SteelMorgan/lpreserver-watcher/internal/domain"
)

const (
	offsetsBucket = "offsets"
	statusBucket  = "status"
	watchBucket   = "watch"

	activeProgressKey = "active_progress"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BoltDBStore implements StateStore using BoltDB
type BoltDBStore struct {
	db *bbolt.DB
}

// NewBoltDBStore creates a new BoltDB state store
func NewBoltDBStore(dbPath string) (*BoltDBStore, error) {
	// Try to open with short timeout
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		// A locked file means another watcher instance holds it
		return nil, fmt.Errorf("failed to open boltdb (file may be locked by another process): %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{offsetsBucket, statusBucket, watchBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	log.Info().
		Str("db_path", dbPath).
		Msg("BoltDB state store initialized")

	return &BoltDBStore{db: db}, nil
}

// Get retrieves the offset for a given file
func (s *BoltDBStore) Get(ctx context.Context, sourceType, filePath string) (uint64, error) {
	var offset uint64

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(offsetsBucket))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		val := b.Get([]byte(makeKey(sourceType, filePath)))
		if val == nil {
			offset = 0
			return nil
		}

		if len(val) < 8 {
			return fmt.Errorf("invalid offset value")
		}

		offset = binary.BigEndian.Uint64(val)
		return nil
	})

	if err != nil {
		return 0, fmt.Errorf("failed to get offset: %w", err)
	}

	return offset, nil
}

// Set stores the offset for a given file
func (s *BoltDBStore) Set(ctx context.Context, sourceType, filePath string, offset uint64) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(offsetsBucket))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		val := make([]byte, 8)
		binary.BigEndian.PutUint64(val, offset)

		return b.Put([]byte(makeKey(sourceType, filePath)), val)
	})

	if err != nil {
		return fmt.Errorf("failed to set offset: %w", err)
	}

	log.Debug().
		Str("source_type", sourceType).
		Str("file_path", filePath).
		Uint64("offset", offset).
		Msg("Offset updated")

	return nil
}

// Delete removes the offset for a given file
func (s *BoltDBStore) Delete(ctx context.Context, sourceType, filePath string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(offsetsBucket))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Delete([]byte(makeKey(sourceType, filePath)))
	})

	if err != nil {
		return fmt.Errorf("failed to delete offset: %w", err)
	}

	return nil
}

// List returns all stored offsets
func (s *BoltDBStore) List(ctx context.Context) (map[string]uint64, error) {
	result := make(map[string]uint64)

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(offsetsBucket))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		return b.ForEach(func(k, v []byte) error {
			if len(v) >= 8 {
				result[string(k)] = binary.BigEndian.Uint64(v)
			}
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list offsets: %w", err)
	}

	return result, nil
}

// LoadStatus returns the persisted status records
func (s *BoltDBStore) LoadStatus(ctx context.Context) (map[domain.Category]domain.Fields, error) {
	result := make(map[domain.Category]domain.Fields)

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(statusBucket))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		return b.ForEach(func(k, v []byte) error {
			category, ok := domain.ParseCategory(string(k))
			if !ok {
				log.Warn().Str("category", string(k)).Msg("Skipping unknown persisted category")
				return nil
			}
			var fields domain.Fields
			if err := json.Unmarshal(v, &fields); err != nil {
				return fmt.Errorf("failed to decode %s: %w", category, err)
			}
			result[category] = fields
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to load status: %w", err)
	}

	return result, nil
}

// SaveStatus replaces the persisted status records in one transaction
func (s *BoltDBStore) SaveStatus(ctx context.Context, records map[domain.Category]domain.Fields) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(statusBucket))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		for category, fields := range records {
			data, err := json.Marshal(fields)
			if err != nil {
				return fmt.Errorf("failed to encode %s: %w", category, err)
			}
			if err := b.Put([]byte(category), data); err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return fmt.Errorf("failed to save status: %w", err)
	}

	return nil
}

// ActiveProgress returns the progress file being watched, "" if none
func (s *BoltDBStore) ActiveProgress(ctx context.Context) (string, error) {
	var path string

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(watchBucket))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		path = string(b.Get([]byte(activeProgressKey)))
		return nil
	})

	if err != nil {
		return "", fmt.Errorf("failed to get active progress: %w", err)
	}

	return path, nil
}

// SetActiveProgress records the progress file being watched, "" clears it
func (s *BoltDBStore) SetActiveProgress(ctx context.Context, path string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(watchBucket))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		if path == "" {
			return b.Delete([]byte(activeProgressKey))
		}
		return b.Put([]byte(activeProgressKey), []byte(path))
	})

	if err != nil {
		return fmt.Errorf("failed to set active progress: %w", err)
	}

	return nil
}

// Close closes the BoltDB database
func (s *BoltDBStore) Close() error {
	log.Info().Msg("Closing BoltDB state store")
	return s.db.Close()
}

// makeKey creates a composite key from source type and file path
func makeKey(sourceType, filePath string) string {
	return fmt.Sprintf("%s:%s", sourceType, filePath)
}
