package expense

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const abrechnungBucketName = "abrechnungen"

// Abrechnung is an expense-report grouping: the finalized records of one
// person for one reporting month. Records are appended, never replaced,
// so repeated batch runs add new receipts without losing earlier ones.
type Abrechnung struct {
	Name      string    `json:"name"`
	Monat     string    `json:"monat"`
	Records   []*Record `json:"records"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Key identifies an Abrechnung by name and month.
func (a *Abrechnung) Key() string {
	return abrechnungKey(a.Name, a.Monat)
}

func abrechnungKey(name, monat string) string {
	return name + "|" + monat
}

// DB defines the interface for expense-report persistence.
type DB interface {
	// AppendRecords adds finalized records to the Abrechnung for
	// name+monat, creating it if needed, and returns the updated grouping.
	AppendRecords(name, monat string, records []*Record) (*Abrechnung, error)

	// GetAbrechnung retrieves a grouping by name and month.
	GetAbrechnung(name, monat string) (*Abrechnung, error)

	// ListAbrechnungen returns all groupings.
	ListAbrechnungen() ([]*Abrechnung, error)

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
		_, err := tx.CreateBucketIfNotExists([]byte(abrechnungBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// AppendRecords adds records to an Abrechnung inside a single update
// transaction, so concurrent batch and web writers cannot lose entries.
func (b *BoltDB) AppendRecords(name, monat string, records []*Record) (*Abrechnung, error) {
	var result *Abrechnung
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(abrechnungBucketName))
		key := []byte(abrechnungKey(name, monat))
		now := time.Now().UTC()

		abrechnung := &Abrechnung{Name: name, Monat: monat, CreatedAt: now}
		if data := bucket.Get(key); data != nil {
			if err := json.Unmarshal(data, abrechnung); err != nil {
				return fmt.Errorf("unmarshaling abrechnung: %w", err)
			}
		}

		abrechnung.Records = append(abrechnung.Records, records...)
		abrechnung.UpdatedAt = now

		data, err := json.Marshal(abrechnung)
		if err != nil {
			return fmt.Errorf("marshaling abrechnung: %w", err)
		}
		if err := bucket.Put(key, data); err != nil {
			return err
		}
		result = abrechnung
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetAbrechnung retrieves a grouping by name and month.
func (b *BoltDB) GetAbrechnung(name, monat string) (*Abrechnung, error) {
	var abrechnung *Abrechnung
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(abrechnungBucketName)).Get([]byte(abrechnungKey(name, monat)))
		if data == nil {
			return fmt.Errorf("abrechnung not found: %s %s", name, monat)
		}
		return json.Unmarshal(data, &abrechnung)
	})
	if err != nil {
		return nil, err
	}
	return abrechnung, nil
}

// ListAbrechnungen returns all groupings.
func (b *BoltDB) ListAbrechnungen() ([]*Abrechnung, error) {
	abrechnungen := make([]*Abrechnung, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(abrechnungBucketName)).ForEach(func(k, v []byte) error {
			var a Abrechnung
			if err := json.Unmarshal(v, &a); err != nil {
				return fmt.Errorf("unmarshaling abrechnung: %w", err)
			}
			abrechnungen = append(abrechnungen, &a)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return abrechnungen, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
