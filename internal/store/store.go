// Package store implements the persistent vector store on top of
// go.etcd.io/bbolt, an embedded ordered key-value store. Two buckets hold
// the main table (unique_id -> encoded Entry) and the label index
// (label -> unique_id); every public method opens exactly one transaction.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/rahulunair/vekta/internal/record"
	"github.com/rahulunair/vekta/internal/vektaerr"
)

var (
	mainBucket  = []byte("main")
	labelBucket = []byte("labels")
	fileName    = "vekta.db"
	filePerm    os.FileMode = 0o600
	dirPerm     os.FileMode = 0o755
)

// Store is the persistent, single-writer content-addressed vector store.
type Store struct {
	db        *bolt.DB
	labelSize int
}

// Open opens (creating if necessary) the store directory at path. labelSize
// bounds every stored label in bytes.
func Open(path string, labelSize int) (*Store, error) {
	if err := os.MkdirAll(path, dirPerm); err != nil {
		return nil, vektaerr.Wrap("store.Open", fmt.Errorf("%w: %v", vektaerr.ErrStore, err))
	}

	db, err := bolt.Open(filepath.Join(path, fileName), filePerm, nil)
	if err != nil {
		return nil, vektaerr.Wrap("store.Open", fmt.Errorf("%w: %v", vektaerr.ErrStore, err))
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(mainBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(labelBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, vektaerr.Wrap("store.Open", fmt.Errorf("%w: %v", vektaerr.ErrStore, err))
	}

	return &Store{db: db, labelSize: labelSize}, nil
}

// Close closes the underlying database file.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return vektaerr.Wrap("store.Close", fmt.Errorf("%w: %v", vektaerr.ErrStore, err))
	}
	return nil
}

// Add stores entry, enforcing label uniqueness, content-identity dedup, and
// label index consistency. Returns the label the entry was actually stored
// under (which may be a mangled variant of entry.Label).
func (s *Store) Add(entry record.Entry) (string, error) {
	contentHash, err := record.ContentHashFor(entry.Vector, entry.Metadata)
	if err != nil {
		return "", err
	}

	var finalLabel string
	err = s.db.Update(func(tx *bolt.Tx) error {
		main := tx.Bucket(mainBucket)
		labels := tx.Bucket(labelBucket)

		candidate := entry.Label
		for attempt := 0; ; attempt++ {
			if attempt > 0 {
				candidate = fmt.Sprintf("%s_%d", entry.Label, attempt)
			}

			existingID := labels.Get([]byte(candidate))
			if existingID == nil {
				finalLabel = candidate
				break
			}

			existingBytes := main.Get(existingID)
			if existingBytes == nil {
				finalLabel = candidate
				break
			}
			existing, decodeErr := record.Decode(existingBytes)
			if decodeErr != nil {
				return decodeErr
			}
			existingHash, hashErr := record.ContentHashFor(existing.Vector, existing.Metadata)
			if hashErr != nil {
				return hashErr
			}
			if existingHash == contentHash {
				// Identical resubmit under the same label: silent no-op.
				finalLabel = candidate
				return nil
			}
			// Label collision with different content: mangle and retry.
		}

		if len(finalLabel) > s.labelSize {
			return fmt.Errorf("%w: %q exceeds %d bytes", vektaerr.ErrLabelTooLong, finalLabel, s.labelSize)
		}

		stored := entry
		stored.Label = finalLabel
		uniqueID, idErr := record.UniqueIDFor(finalLabel, stored.Vector, stored.Metadata)
		if idErr != nil {
			return idErr
		}
		stored.UniqueID = uniqueID

		encoded, encErr := record.Encode(stored)
		if encErr != nil {
			return encErr
		}

		if err := main.Put([]byte(uniqueID), encoded); err != nil {
			return err
		}
		return labels.Put([]byte(finalLabel), []byte(uniqueID))
	})
	if err != nil {
		return "", vektaerr.Wrap("store.Add", err)
	}
	return finalLabel, nil
}

// GetByUniqueID looks up an entry by its content address.
func (s *Store) GetByUniqueID(id string) (record.Entry, bool, error) {
	var entry record.Entry
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(mainBucket).Get([]byte(id))
		if data == nil {
			return nil
		}
		var err error
		entry, err = record.Decode(data)
		found = err == nil
		return err
	})
	if err != nil {
		return record.Entry{}, false, vektaerr.Wrap("store.GetByUniqueID", err)
	}
	return entry, found, nil
}

// GetByLabel looks up an entry via the label index, then the main table.
func (s *Store) GetByLabel(label string) (record.Entry, bool, error) {
	var entry record.Entry
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(labelBucket).Get([]byte(label))
		if id == nil {
			return nil
		}
		data := tx.Bucket(mainBucket).Get(id)
		if data == nil {
			return nil
		}
		var err error
		entry, err = record.Decode(data)
		found = err == nil
		return err
	})
	if err != nil {
		return record.Entry{}, false, vektaerr.Wrap("store.GetByLabel", err)
	}
	return entry, found, nil
}

// GetByIndex looks up an entry by its position in the store's native key
// order (lexicographic over unique_id). Used only internally to build the
// ANN index and to drive exact scans; callers must not rely on the mapping
// from i to a particular record.
func (s *Store) GetByIndex(i int) (record.Entry, bool, error) {
	var entry record.Entry
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(mainBucket).Cursor()
		idx := 0
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if idx == i {
				var err error
				entry, err = record.Decode(v)
				found = err == nil
				return err
			}
			idx++
		}
		return nil
	})
	if err != nil {
		return record.Entry{}, false, vektaerr.Wrap("store.GetByIndex", err)
	}
	return entry, found, nil
}

// LabelExists reports whether label is currently present in the label index.
func (s *Store) LabelExists(label string) (bool, error) {
	var exists bool
	err := s.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(labelBucket).Get([]byte(label)) != nil
		return nil
	})
	if err != nil {
		return false, vektaerr.Wrap("store.LabelExists", err)
	}
	return exists, nil
}

// Count returns the number of records in the main table.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(mainBucket).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, vektaerr.Wrap("store.Count", err)
	}
	return n, nil
}

// IterLabels returns every stored label in store iteration (label-index
// key) order.
func (s *Store) IterLabels() ([]string, error) {
	var labels []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(labelBucket).ForEach(func(k, _ []byte) error {
			labels = append(labels, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, vektaerr.Wrap("store.IterLabels", err)
	}
	return labels, nil
}
