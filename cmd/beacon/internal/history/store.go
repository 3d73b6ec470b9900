// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history persists health check results and computes trends over
// them. One check run is one record; the store is append-only with
// retention-based expiry.
package history

import (
	"encoding/json"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// checkKeyPrefix namespaces check records in the keyspace. Keys embed an
// RFC 3339 timestamp so lexical order is chronological order.
const checkKeyPrefix = "check:"

// ServiceSample is one service's outcome within a check run.
type ServiceSample struct {
	Name      string `json:"name"`
	Healthy   bool   `json:"healthy"`
	Critical  bool   `json:"critical"`
	LatencyMs int64  `json:"latency_ms"`
	Message   string `json:"message,omitempty"`
}

// CheckRecord is one complete check run.
type CheckRecord struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`

	// Timestamp is when the run completed.
	Timestamp time.Time `json:"timestamp"`

	// Healthy is the overall verdict: all critical services passed.
	Healthy bool `json:"healthy"`

	// Services holds the per-service outcomes.
	Services []ServiceSample `json:"services"`
}

// Store persists check records in a Badger database.
//
// # Description
//
// Records are written with a TTL matching the retention period, so
// expiry happens inside Badger without a sweep process. Reads iterate
// the timestamp-ordered keyspace.
//
// # Assumptions
//
//   - A single process owns the database directory at a time. Badger
//     takes a directory lock.
type Store struct {
	db        *badger.DB
	retention time.Duration
}

// Open opens or creates the store in dir.
func Open(dir string, retentionDays int) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening history store at %s: %w", dir, err)
	}
	return newStore(db, retentionDays), nil
}

// OpenInMemory opens an ephemeral store. Used by tests and dry runs.
func OpenInMemory(retentionDays int) (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening in-memory history store: %w", err)
	}
	return newStore(db, retentionDays), nil
}

func newStore(db *badger.DB, retentionDays int) *Store {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &Store{
		db:        db,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
	}
}

// Close releases the database. The store is unusable afterwards.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append writes one check record. A missing RunID or Timestamp is
// filled in.
func (s *Store) Append(record CheckRecord) error {
	if record.RunID == "" {
		record.RunID = uuid.New().String()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding check record: %w", err)
	}
	key := checkKey(record.Timestamp, record.RunID)

	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, value).WithTTL(s.retention)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("writing check record: %w", err)
	}
	return nil
}

// List returns up to limit records, newest first. limit <= 0 returns
// everything.
func (s *Store) List(limit int) ([]CheckRecord, error) {
	var records []CheckRecord

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(checkKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration needs a seek past the prefix range.
		seek := append([]byte(checkKeyPrefix), 0xFF)
		for it.Seek(seek); it.ValidForPrefix([]byte(checkKeyPrefix)); it.Next() {
			if limit > 0 && len(records) >= limit {
				break
			}
			var record CheckRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
			if err != nil {
				return fmt.Errorf("decoding record %s: %w", it.Item().Key(), err)
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Since returns all records at or after the cutoff, oldest first.
func (s *Store) Since(cutoff time.Time) ([]CheckRecord, error) {
	var records []CheckRecord

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(checkKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := checkKey(cutoff, "")
		for it.Seek(seek); it.ValidForPrefix([]byte(checkKeyPrefix)); it.Next() {
			var record CheckRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
			if err != nil {
				return fmt.Errorf("decoding record %s: %w", it.Item().Key(), err)
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Count returns the number of stored records.
func (s *Store) Count() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(checkKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix([]byte(checkKeyPrefix)); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Prune deletes records older than the cutoff and returns how many were
// removed. TTL expiry normally handles this; Prune exists for explicit
// cleanup after shortening the retention period.
func (s *Store) Prune(cutoff time.Time) (int, error) {
	var keys [][]byte

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(checkKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		boundary := checkKey(cutoff, "")
		for it.Rewind(); it.ValidForPrefix([]byte(checkKeyPrefix)); it.Next() {
			key := it.Item().KeyCopy(nil)
			if string(key) >= string(boundary) {
				break
			}
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("pruning history: %w", err)
	}
	return len(keys), nil
}

// keyTimeLayout is fixed-width so lexical order matches time order.
// RFC3339Nano trims trailing zeros and would break that.
const keyTimeLayout = "2006-01-02T15:04:05.000000000Z"

// checkKey builds the sortable record key.
func checkKey(ts time.Time, runID string) []byte {
	return []byte(checkKeyPrefix + ts.UTC().Format(keyTimeLayout) + ":" + runID)
}
