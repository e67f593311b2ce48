package invoice

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	sessionBucketName = "session"
	recordsKey        = "records"
)

// DB persists the session's record collection so a restart does not lose a
// half-reviewed batch.
type DB interface {
	// SaveRecords stores a snapshot of the whole collection
	SaveRecords(records []Record) error

	// LoadRecords returns the last saved snapshot, empty when none exists
	LoadRecords() ([]Record, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(sessionBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveRecords stores a snapshot of the whole collection
func (b *BoltDB) SaveRecords(records []Record) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(sessionBucketName))
		data, err := json.Marshal(records)
		if err != nil {
			return fmt.Errorf("marshaling records: %w", err)
		}
		return bucket.Put([]byte(recordsKey), data)
	})
}

// LoadRecords returns the last saved snapshot, empty when none exists
func (b *BoltDB) LoadRecords() ([]Record, error) {
	records := make([]Record, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(sessionBucketName))
		data := bucket.Get([]byte(recordsKey))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("unmarshaling records: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
