package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	historyBucket = []byte("history")
	prefsBucket   = []byte("prefs")
)

// ErrNotFound is returned when a history entry or preference is missing.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *bolt.DB
}

// NewStore opens the database with a one second lock timeout.
func NewStore(dbPath string) (*Store, error) {
	return NewStoreWithTimeout(dbPath, 1*time.Second)
}

// NewStoreWithTimeout opens the database, waiting at most timeout for the
// file lock held by another chatlens process.
func NewStoreWithTimeout(dbPath string, timeout time.Duration) (*Store, error) {
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{historyBucket, prefsBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return nil
	})

	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// AddHistory records entry as the most recently opened file. An existing
// entry for the same path is replaced, and the oldest entries beyond
// MaxHistory are dropped. A zero LastOpened is set to now.
func (s *Store) AddHistory(entry *HistoryEntry) error {
	if entry.Path == "" {
		return fmt.Errorf("history entry has no path")
	}
	if entry.LastOpened.IsZero() {
		entry.LastOpened = time.Now()
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(historyBucket)
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(entry.Path), data); err != nil {
			return err
		}

		entries, err := readHistory(b)
		if err != nil {
			return err
		}
		for _, old := range entries[min(len(entries), MaxHistory):] {
			if err := b.Delete([]byte(old.Path)); err != nil {
				return err
			}
		}
		return nil
	})
}

// History returns the recent files, newest first.
func (s *Store) History() ([]*HistoryEntry, error) {
	var entries []*HistoryEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		var readErr error
		entries, readErr = readHistory(tx.Bucket(historyBucket))
		return readErr
	})
	return entries, err
}

func readHistory(b *bolt.Bucket) ([]*HistoryEntry, error) {
	var entries []*HistoryEntry
	err := b.ForEach(func(_ []byte, v []byte) error {
		var entry HistoryEntry
		if err := json.Unmarshal(v, &entry); err != nil {
			// Skip corrupt rows rather than losing the whole list
			return nil
		}
		entries = append(entries, &entry)
		return nil
	})
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].LastOpened.After(entries[j].LastOpened)
	})
	return entries, err
}

// GetHistory returns the entry for path.
func (s *Store) GetHistory(path string) (*HistoryEntry, error) {
	var entry HistoryEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(historyBucket).Get([]byte(path))
		if data == nil {
			return fmt.Errorf("history entry %q: %w", path, ErrNotFound)
		}
		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// RemoveHistory deletes the entry for path. Removing a missing path is not
// an error.
func (s *Store) RemoveHistory(path string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(historyBucket).Delete([]byte(path))
	})
}

// ClearHistory removes every recent file.
func (s *Store) ClearHistory() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(historyBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(historyBucket)
		return err
	})
}

// SetPref stores a preference value.
func (s *Store) SetPref(key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(prefsBucket).Put([]byte(key), []byte(value))
	})
}

// Pref returns a stored preference, or ErrNotFound.
func (s *Store) Pref(key string) (string, error) {
	var value string
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(prefsBucket).Get([]byte(key))
		if data == nil {
			return fmt.Errorf("preference %q: %w", key, ErrNotFound)
		}
		value = string(data)
		return nil
	})
	return value, err
}

// PrefOr returns the stored preference or fallback when it is unset or
// unreadable.
func (s *Store) PrefOr(key, fallback string) string {
	value, err := s.Pref(key)
	if err != nil {
		return fallback
	}
	return value
}
