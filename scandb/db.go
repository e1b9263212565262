// Deepstrings
// Copyright (c) 2026, DCSO GmbH

// Package scandb persists scan reports so previously analyzed samples
// are not rescanned before the rescan timeframe has passed.
package scandb

import (
	"encoding/json"
	"errors"
	"path/filepath"

	"github.com/DCSO/deepstrings/report"

	bolt "github.com/etcd-io/bbolt"
	log "github.com/sirupsen/logrus"
)

const (
	bucketName = "SCANS"

	// DatabaseName is the file name of the database file.
	DatabaseName = "scans.db"
)

var scansDB *bolt.DB

// InitDB is used to initialize the bolt database on startup.
func InitDB(dataPath string) error {
	var err error
	// Try to open the database file. If not present it will be created.
	scansDB, err = bolt.Open(filepath.Join(dataPath, DatabaseName), 0600, nil)
	if err != nil {
		return err
	}
	log.Debug("Database initialized:", scansDB.Path())
	return nil
}

// CloseDB should be called before the program terminates.
func CloseDB() error {
	return scansDB.Close()
}

// CreateScanEntry stores the report for a scanned sample, keyed by its
// sha512.
func CreateScanEntry(rep *report.ScanReport) error {
	encoded, err := json.Marshal(rep)
	if err != nil {
		return err
	}

	err = scansDB.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(rep.Hashes.Sha512), encoded)
	})
	if err == nil {
		log.Debug("Stored scan entry in database:", rep.Hashes.Sha512)
	}
	return err
}

// GetScanEntry queries the database for a given sha512 hash to see if
// there is already a report for it.
func GetScanEntry(hash string) (report.ScanReport, error) {
	var data []byte
	rep := report.ScanReport{}

	err := scansDB.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return errors.New("missing bucket")
		}
		data = bucket.Get([]byte(hash))
		return nil
	})
	if err != nil || len(data) == 0 {
		return rep, err
	}

	err = json.Unmarshal(data, &rep)
	return rep, err
}
