package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/zombor/spesen-tracker/internal/expense"
)

const bucketName = "extractions"

// Fingerprint is the content hash of a receipt file, the sole identity
// used for caching and deduplication. Filenames and mtimes never
// participate.
type Fingerprint string

// Compute returns the SHA-256 fingerprint of raw file bytes.
func Compute(data []byte) Fingerprint {
	sum := sha256.Sum256(data)
	return Fingerprint(hex.EncodeToString(sum[:]))
}

// entry is the persisted cache value. An entry is only trusted when its
// version matches the running extractor version.
type entry struct {
	Record      *expense.Record `json:"record"`
	ExtractedAt time.Time       `json:"extracted_at"`
	Version     string          `json:"version"`
}

// Cache is a durable fingerprint → record mapping backed by bbolt. With
// Bypass set, Lookup always misses but Store still writes, so forced
// reprocessing refreshes stale entries.
type Cache struct {
	db     *bbolt.DB
	Bypass bool
}

// Open opens (or creates) the cache database at path.
func Open(path string) (*Cache, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache bucket: %w", err)
	}

	return &Cache{db: db}, nil
}

// Lookup returns the cached record for a fingerprint. Entries written
// under a different extractor version report a miss, which forces
// re-extraction after a prompt or classification-rule change.
func (c *Cache) Lookup(fp Fingerprint, version string) (*expense.Record, bool, error) {
	if c.Bypass {
		return nil, false, nil
	}

	var e entry
	found := false
	err := c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(fp))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &e); err != nil {
			return fmt.Errorf("unmarshaling cache entry: %w", err)
		}
		found = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if !found || e.Version != version || e.Record == nil {
		return nil, false, nil
	}
	return e.Record, true, nil
}

// Store writes a record under a fingerprint, last writer wins.
func (c *Cache) Store(fp Fingerprint, record *expense.Record, version string) error {
	data, err := json.Marshal(entry{
		Record:      record,
		ExtractedAt: time.Now().UTC(),
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}

	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(fp), data)
	})
}

// Len returns the number of cached extractions.
func (c *Cache) Len() (int, error) {
	var n int
	err := c.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(bucketName)).Stats().KeyN
		return nil
	})
	return n, err
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}
