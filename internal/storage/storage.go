// Package storage provides persistent prediction history for the car price predictor.
// It uses BoltDB as the underlying storage engine and keeps one record per
// served prediction, keyed by time for efficient range queries.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	predictionsBucket = "predictions" // Bucket name for storing prediction records

	// DBFileName is the database file created inside the data path.
	DBFileName = "carprice-data.db"

	// timestamps are zero padded so lexical order matches time order
	tsKeyWidth = 20
)

// Prediction is one served price estimate together with the inputs used.
type Prediction struct {
	Timestamp           time.Time `json:"timestamp"`
	Transmission        int       `json:"transmission"`
	MaxPower            float64   `json:"max_power"`
	Price               float64   `json:"price"`
	ImputedTransmission bool      `json:"imputed_transmission"`
	ImputedMaxPower     bool      `json:"imputed_max_power"`
}

// Store provides persistent storage for prediction history using BoltDB.
type Store struct {
	db *bbolt.DB // BoltDB database instance
}

// New creates a new storage instance with the specified data path.
// It initializes the BoltDB database and creates the predictions bucket.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, DBFileName)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(predictionsBucket)); err != nil {
			return fmt.Errorf("create predictions bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection. Closing twice is a no-op.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// StorePrediction appends a prediction record. Records sharing a timestamp
// are kept apart by the bucket sequence number.
func (s *Store) StorePrediction(p Prediction) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(predictionsBucket))

		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal prediction: %w", err)
		}

		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}

		return b.Put(recordKey(p.Timestamp, seq), data)
	})
}

// GetPredictions retrieves predictions within a time range, oldest first.
// The range is inclusive of both start and end times.
func (s *Store) GetPredictions(start, end time.Time) ([]Prediction, error) {
	var records []Prediction

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(predictionsBucket)).Cursor()

		startKey := tsPrefix(start)
		endKey := tsPrefix(end)

		for k, v := c.Seek(startKey); k != nil && bytes.Compare(k[:tsKeyWidth], endKey) <= 0; k, v = c.Next() {
			var p Prediction
			if err := json.Unmarshal(v, &p); err != nil {
				continue // Skip malformed records
			}
			records = append(records, p)
		}
		return nil
	})

	return records, err
}

// Recent returns up to limit of the newest predictions, newest first.
func (s *Store) Recent(limit int) ([]Prediction, error) {
	if limit <= 0 {
		return []Prediction{}, nil
	}

	records := make([]Prediction, 0, limit)
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(predictionsBucket)).Cursor()

		for k, v := c.Last(); k != nil && len(records) < limit; k, v = c.Prev() {
			var p Prediction
			if err := json.Unmarshal(v, &p); err != nil {
				continue
			}
			records = append(records, p)
		}
		return nil
	})

	return records, err
}

// Count returns the number of stored predictions.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(predictionsBucket)).Stats().KeyN
		return nil
	})
	return n, err
}

func tsPrefix(ts time.Time) []byte {
	return []byte(fmt.Sprintf("%0*d", tsKeyWidth, ts.UnixNano()))
}

func recordKey(ts time.Time, seq uint64) []byte {
	return []byte(fmt.Sprintf("%0*d_%020d", tsKeyWidth, ts.UnixNano(), seq))
}
