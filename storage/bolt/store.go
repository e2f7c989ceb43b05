package boltstore

import (
	"time"

	bolt "github.com/boltdb/bolt"
)

// catalogBucket and statsBucket are the two fixed top-level buckets
// every database carries regardless of table count; table rows and
// index entries each get their own bucket, named per table/index
// (see rowsBucketName/indexBucketName).
var (
	catalogBucket = []byte("catalog")
	statsBucket   = []byte("stats")
)

// Store wraps a single boltdb file — talon's concrete backing for the
// sql.Transaction contract (spec §4.6, §6). One Store serves many
// sequential transactions; bolt itself serializes writers.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if absent) the bolt file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(catalogBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(statsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Begin starts a new Transaction; writable transactions hold bolt's
// single-writer lock until Commit or Rollback (spec §5: "transactions
// define the ordering contract").
func (s *Store) Begin(writable bool) (*Transaction, error) {
	tx, err := s.db.Begin(writable)
	if err != nil {
		return nil, err
	}
	return &Transaction{tx: tx, schemas: map[string]*cachedSchema{}}, nil
}
