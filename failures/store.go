// Package failures keeps a diagnostic journal of failed conversions so an
// operator can inspect the options and ffmpeg output of a request after the
// client has already received its error.
package failures

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	pebble "github.com/cockroachdb/pebble"

	"wifski/models"
)

// MaxStderrBytes caps the stderr kept per record. ffmpeg prints the cause of
// a failure last, so the tail is kept.
const MaxStderrBytes = 8 << 10

// FailureRecord represents a failed conversion
type FailureRecord struct {
	RequestID string                   `json:"request_id"`
	Timestamp time.Time                `json:"timestamp"`
	Kind      string                   `json:"kind"`
	Error     string                   `json:"error"`
	Stderr    string                   `json:"stderr,omitempty"`
	Options   models.ConversionOptions `json:"options"`
}

var db *pebble.DB

// Init opens the failure store
func Init(dbPath string) error {
	var err error
	db, err = pebble.Open(dbPath, &pebble.Options{})
	if err != nil {
		return fmt.Errorf("failed to open failure store: %w", err)
	}
	return nil
}

// Close closes the failure store
func Close() error {
	if db == nil {
		return nil
	}
	err := db.Close()
	db = nil
	return err
}

// Enabled reports whether Init has opened a store.
func Enabled() bool {
	return db != nil
}

// NewRecord builds a record for a failed request, classifying err and
// truncating stderr.
func NewRecord(requestID string, err error, stderr string, opts models.ConversionOptions) FailureRecord {
	if len(stderr) > MaxStderrBytes {
		stderr = stderr[len(stderr)-MaxStderrBytes:]
	}
	return FailureRecord{
		RequestID: requestID,
		Timestamp: time.Now(),
		Kind:      models.KindOf(err),
		Error:     err.Error(),
		Stderr:    stderr,
		Options:   opts,
	}
}

// StoreFailure writes record keyed by its request id
func StoreFailure(record FailureRecord) error {
	if db == nil {
		return fmt.Errorf("failure store not initialized")
	}
	if record.RequestID == "" {
		return fmt.Errorf("failure record has no request id")
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal failure record: %w", err)
	}
	return db.Set([]byte(record.RequestID), data, pebble.Sync)
}

// GetFailure retrieves a failure record by request id. A missing record is
// reported as (nil, nil).
func GetFailure(requestID string) (*FailureRecord, error) {
	if db == nil {
		return nil, fmt.Errorf("failure store not initialized")
	}

	data, closer, err := db.Get([]byte(requestID))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get failure: %w", err)
	}
	defer closer.Close()

	var record FailureRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal failure record: %w", err)
	}
	return &record, nil
}

// DeleteFailure removes a failure record
func DeleteFailure(requestID string) error {
	if db == nil {
		return fmt.Errorf("failure store not initialized")
	}
	return db.Delete([]byte(requestID), pebble.Sync)
}

// ListFailures returns all failure records, newest first
func ListFailures() ([]FailureRecord, error) {
	if db == nil {
		return nil, fmt.Errorf("failure store not initialized")
	}

	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	var records []FailureRecord
	for iter.First(); iter.Valid(); iter.Next() {
		var record FailureRecord
		if err := json.Unmarshal(iter.Value(), &record); err != nil {
			continue // Skip invalid records
		}
		records = append(records, record)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iteration error: %w", err)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	return records, nil
}

// CleanupOldRecords deletes records older than maxAge and returns how many
// were removed.
func CleanupOldRecords(maxAge time.Duration) (int, error) {
	if db == nil {
		return 0, fmt.Errorf("failure store not initialized")
	}

	cutoff := time.Now().Add(-maxAge)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, err
	}

	batch := db.NewBatch()
	defer batch.Close()

	removed := 0
	for iter.First(); iter.Valid(); iter.Next() {
		var record FailureRecord
		if err := json.Unmarshal(iter.Value(), &record); err != nil {
			continue
		}
		if record.Timestamp.Before(cutoff) {
			// batch.Delete copies the key
			if err := batch.Delete(iter.Key(), nil); err != nil {
				iter.Close()
				return 0, fmt.Errorf("failed to queue deletion: %w", err)
			}
			removed++
		}
	}
	if err := iter.Close(); err != nil {
		return 0, fmt.Errorf("iteration error: %w", err)
	}

	if removed == 0 {
		return 0, nil
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, fmt.Errorf("failed to delete old failure records: %w", err)
	}
	return removed, nil
}

// CheckHealth performs a basic health check on the failure database
func CheckHealth() error {
	if db == nil {
		return fmt.Errorf("failure database not initialized")
	}

	_, closer, err := db.Get([]byte("__health_check__"))
	if err != nil && !errors.Is(err, pebble.ErrNotFound) {
		return fmt.Errorf("database health check failed: %w", err)
	}
	if closer != nil {
		closer.Close()
	}
	return nil
}
