package storage

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	ConfigBucket    = []byte("config")    // version, timestamps, store ID, password check
	IndexBucket     = []byte("index")     // Public key list for ls/status
	EnvelopesBucket = []byte("envelopes") // Wrapped key envelopes
)

// Config keys
var (
	ConfigVersion  = []byte("version")
	ConfigCreated  = []byte("created")
	ConfigModified = []byte("modified")
	ConfigStoreID  = []byte("store_id")
	ConfigCheck    = []byte("check")
)

var (
	ErrNotFound = errors.New("not found")
	ErrExists   = errors.New("already exists")
)

// Storage provides BBolt-based storage for ledgerkey
type Storage struct {
	db *bolt.DB
}

// Open opens or creates a ledgerkey database
func Open(path string) (*Storage, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Storage) Path() string {
	return s.db.Path()
}

// Initialize creates the bucket structure for a new store
func (s *Storage) Initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, IndexBucket, EnvelopesBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if err := config.Put(ConfigVersion, []byte("1")); err != nil {
			return err
		}

		created, _ := time.Now().MarshalBinary()
		if err := config.Put(ConfigCreated, created); err != nil {
			return err
		}
		return config.Put(ConfigModified, created)
	})
}

// IsInitialized checks if the database has been initialized
func (s *Storage) IsInitialized() (bool, error) {
	var initialized bool
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config != nil && config.Get(ConfigVersion) != nil {
			initialized = true
		}
		return nil
	})
	return initialized, err
}

// SetCheck stores the password check envelope
func (s *Storage) SetCheck(envelope []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(ConfigBucket).Put(ConfigCheck, envelope)
	})
}

// GetCheck retrieves the password check envelope
func (s *Storage) GetCheck() ([]byte, error) {
	var check []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		check = config.Get(ConfigCheck)
		if check == nil {
			return fmt.Errorf("password check %w", ErrNotFound)
		}
		// Make a copy since the slice is only valid during the transaction
		check = append([]byte(nil), check...)
		return nil
	})
	return check, err
}

// GetModified retrieves the last modified timestamp
func (s *Storage) GetModified() (time.Time, error) {
	var modified time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		data := config.Get(ConfigModified)
		if data == nil {
			return fmt.Errorf("modified time %w", ErrNotFound)
		}
		return modified.UnmarshalBinary(data)
	})
	return modified, err
}

// GetStoreID retrieves the store ID from config bucket
func (s *Storage) GetStoreID() (string, error) {
	var storeID string
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		data := config.Get(ConfigStoreID)
		if data == nil {
			return fmt.Errorf("store_id %w", ErrNotFound)
		}
		storeID = string(data)
		return nil
	})
	return storeID, err
}

// GetOrCreateStoreID retrieves existing store ID or generates a new one
func (s *Storage) GetOrCreateStoreID() (string, error) {
	storeID, err := s.GetStoreID()
	if err == nil {
		return storeID, nil
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate store ID: %w", err)
	}
	storeID = hex.EncodeToString(b)

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(ConfigBucket).Put(ConfigStoreID, []byte(storeID))
	})
	if err != nil {
		return "", err
	}

	return storeID, nil
}

// PutKey stores an envelope and its index entry in one transaction.
// With overwrite unset an existing name fails with ErrExists.
func (s *Storage) PutKey(entry KeyEntry, envelope []byte, overwrite bool) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		index := tx.Bucket(IndexBucket)
		name := []byte(entry.Name)
		if !overwrite && index.Get(name) != nil {
			return fmt.Errorf("key %q %w", entry.Name, ErrExists)
		}
		if err := index.Put(name, data); err != nil {
			return err
		}
		if err := tx.Bucket(EnvelopesBucket).Put(name, envelope); err != nil {
			return err
		}
		return touch(tx)
	})
}

// GetEnvelope retrieves the envelope JSON for a key
func (s *Storage) GetEnvelope(name string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		envelopes := tx.Bucket(EnvelopesBucket)
		if envelopes == nil {
			return fmt.Errorf("envelopes bucket not found")
		}
		data = envelopes.Get([]byte(name))
		if data == nil {
			return fmt.Errorf("key %q %w", name, ErrNotFound)
		}
		data = append([]byte(nil), data...)
		return nil
	})
	return data, err
}

// GetEntry returns a single index entry, or nil if the key is unknown
func (s *Storage) GetEntry(name string) (*KeyEntry, error) {
	var entry *KeyEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		index := tx.Bucket(IndexBucket)
		if index == nil {
			return fmt.Errorf("index bucket not found")
		}
		data := index.Get([]byte(name))
		if data == nil {
			return nil
		}
		entry = &KeyEntry{}
		return json.Unmarshal(data, entry)
	})
	return entry, err
}

// ListEntries returns all index entries ordered by name
func (s *Storage) ListEntries() ([]KeyEntry, error) {
	var entries []KeyEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		index := tx.Bucket(IndexBucket)
		if index == nil {
			return fmt.Errorf("index bucket not found")
		}
		return index.ForEach(func(k, v []byte) error {
			var entry KeyEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			entries = append(entries, entry)
			return nil
		})
	})
	return entries, err
}

// ListRecords returns every index entry with its envelope
func (s *Storage) ListRecords() ([]Record, error) {
	var records []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		envelopes := tx.Bucket(EnvelopesBucket)
		return tx.Bucket(IndexBucket).ForEach(func(k, v []byte) error {
			var entry KeyEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			env := envelopes.Get(k)
			if env == nil {
				return fmt.Errorf("envelope for %q %w", k, ErrNotFound)
			}
			records = append(records, Record{Entry: entry, Envelope: append([]byte(nil), env...)})
			return nil
		})
	})
	return records, err
}

// ReplaceAll rewrites the password check and every given record in a
// single transaction, so a failed password change leaves the store intact.
func (s *Storage) ReplaceAll(check []byte, records []Record) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(ConfigBucket).Put(ConfigCheck, check); err != nil {
			return err
		}
		index := tx.Bucket(IndexBucket)
		envelopes := tx.Bucket(EnvelopesBucket)
		for _, r := range records {
			data, err := json.Marshal(r.Entry)
			if err != nil {
				return err
			}
			if err := index.Put([]byte(r.Entry.Name), data); err != nil {
				return err
			}
			if err := envelopes.Put([]byte(r.Entry.Name), r.Envelope); err != nil {
				return err
			}
		}
		return touch(tx)
	})
}

// RemoveKey removes a key's envelope and index entry
func (s *Storage) RemoveKey(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		index := tx.Bucket(IndexBucket)
		if index.Get([]byte(name)) == nil {
			return fmt.Errorf("key %q %w", name, ErrNotFound)
		}
		if err := index.Delete([]byte(name)); err != nil {
			return err
		}
		if err := tx.Bucket(EnvelopesBucket).Delete([]byte(name)); err != nil {
			return err
		}
		return touch(tx)
	})
}

func touch(tx *bolt.Tx) error {
	modified, _ := time.Now().MarshalBinary()
	return tx.Bucket(ConfigBucket).Put(ConfigModified, modified)
}

// Compact creates a compacted copy of the database, removing unused space.
// This is useful after deleting keys to reclaim disk space.
func (s *Storage) Compact() error {
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	dst, err := bolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	// Copy all buckets
	err = s.db.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			return srcTx.ForEach(func(name []byte, srcBucket *bolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				return srcBucket.ForEach(func(k, v []byte) error {
					return dstBucket.Put(k, v)
				})
			})
		})
	})

	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	// Atomic replace
	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup original: %w", err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return fmt.Errorf("failed to replace database: %w", err)
	}
	os.Remove(backupPath)

	s.db, err = bolt.Open(srcPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}

	return nil
}
