package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	ledgerBucketName = "ledgers"
	scanBucketName   = "scans"
)

// DB defines the interface for database operations
type DB interface {
	// SaveLedger saves a daily ledger to the database
	SaveLedger(ledger *DailyLedger) error

	// GetLedger retrieves a daily ledger by ID
	GetLedger(id string) (*DailyLedger, error)

	// FindLedger retrieves the ledger for a date and employee, if any
	FindLedger(date, employeeName string) (*DailyLedger, error)

	// ListLedgers returns all daily ledgers
	ListLedgers() ([]*DailyLedger, error)

	// SaveScan saves a scan record to the database
	SaveScan(record *ScanRecord) error

	// GetScan retrieves a scan record by ID
	GetScan(id string) (*ScanRecord, error)

	// ListScans returns all scan records
	ListScans() ([]*ScanRecord, error)

	// DeleteScan removes a scan record from the database
	DeleteScan(id string) error

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
		if _, err := tx.CreateBucketIfNotExists([]byte(ledgerBucketName)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(scanBucketName)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveLedger saves a daily ledger to the database
func (b *BoltDB) SaveLedger(ledger *DailyLedger) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(ledgerBucketName))
		data, err := json.Marshal(ledger)
		if err != nil {
			return fmt.Errorf("marshaling ledger: %w", err)
		}
		return bucket.Put([]byte(ledger.ID), data)
	})
}

// GetLedger retrieves a daily ledger by ID
func (b *BoltDB) GetLedger(id string) (*DailyLedger, error) {
	var ledger *DailyLedger
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(ledgerBucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("ledger not found: %s", id)
		}
		return json.Unmarshal(data, &ledger)
	})
	if err != nil {
		return nil, err
	}
	return ledger, nil
}

// FindLedger retrieves the ledger for a date and employee. Returns
// (nil, nil) when no such ledger exists yet.
func (b *BoltDB) FindLedger(date, employeeName string) (*DailyLedger, error) {
	var found *DailyLedger
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(ledgerBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var ledger DailyLedger
			if err := json.Unmarshal(v, &ledger); err != nil {
				return fmt.Errorf("unmarshaling ledger: %w", err)
			}
			if ledger.Date == date && ledger.EmployeeName == employeeName {
				found = &ledger
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// ListLedgers returns all daily ledgers
func (b *BoltDB) ListLedgers() ([]*DailyLedger, error) {
	ledgers := make([]*DailyLedger, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(ledgerBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var ledger DailyLedger
			if err := json.Unmarshal(v, &ledger); err != nil {
				return fmt.Errorf("unmarshaling ledger: %w", err)
			}
			ledgers = append(ledgers, &ledger)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return ledgers, nil
}

// SaveScan saves a scan record to the database
func (b *BoltDB) SaveScan(record *ScanRecord) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(scanBucketName))
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshaling scan record: %w", err)
		}
		return bucket.Put([]byte(record.ID), data)
	})
}

// GetScan retrieves a scan record by ID
func (b *BoltDB) GetScan(id string) (*ScanRecord, error) {
	var record *ScanRecord
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(scanBucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("scan record not found: %s", id)
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListScans returns all scan records
func (b *BoltDB) ListScans() ([]*ScanRecord, error) {
	records := make([]*ScanRecord, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(scanBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var record ScanRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("unmarshaling scan record: %w", err)
			}
			records = append(records, &record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteScan removes a scan record from the database
func (b *BoltDB) DeleteScan(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(scanBucketName))
		return bucket.Delete([]byte(id))
	})
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
