// Deepstrings
// Copyright (c) 2026, DCSO GmbH

// Package artifacts implements the content-addressed scratch store that
// all scan pipelines write extracted payloads into. Content is addressed
// by SHA-256; identical bytes discovered by different pipelines yield
// exactly one stored file.
package artifacts

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	bolt "github.com/etcd-io/bbolt"
	log "github.com/sirupsen/logrus"
)

const (
	bucketName = "ARTIFACTS"

	// IndexName is the file name of the artifact index database.
	IndexName = "artifacts.db"
)

// Record describes one stored artifact.
type Record struct {
	// SHA256 is the content address, hex encoded.
	SHA256 string
	// Name is the human-readable artifact name, e.g.
	// "1a2b3c4d5e_b64_decoded".
	Name string
	// Path is the absolute location of the stored file.
	Path string
	// Description is the provenance message for the report.
	Description string
	// Size of the stored content in bytes.
	Size int64
}

// Store is a scratch-directory artifact store with a bbolt record
// index. The write path is serialized; the first writer of a given hash
// wins and later writers of the same content are no-ops.
type Store struct {
	// Dir is the scratch directory holding stored files, laid out as
	// <dir>/<sha256[:2]>/<sha256>.
	Dir string

	db    *bolt.DB
	mutex sync.Mutex
}

// NewStore opens (and creates if needed) an artifact store in the given
// directory.
func NewStore(dir string) (*Store, error) {
	err := os.MkdirAll(dir, os.ModePerm)
	if err != nil {
		return nil, err
	}
	db, err := bolt.Open(filepath.Join(dir, IndexName), 0600, nil)
	if err != nil {
		return nil, err
	}
	log.Debug("artifact store initialized: ", dir)
	return &Store{Dir: dir, db: db}, nil
}

// Close closes the record index. Stored files remain; ownership passes
// to the caller.
func (s *Store) Close() error {
	return s.db.Close()
}

// HashPrefix returns the short hash prefix used in artifact names.
func HashPrefix(sha string) string {
	if len(sha) < 10 {
		return sha
	}
	return sha[:10]
}

// Put stores data under its content hash. The name suffix and
// description are recorded for reporting. It returns the record and
// true if the content was newly stored, or the existing record and
// false if the hash was already present.
func (s *Store) Put(data []byte, nameSuffix string, description string) (Record, bool, error) {
	sum := sha256.Sum256(data)
	hashString := fmt.Sprintf("%x", sum)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if rec, err := s.Get(hashString); err == nil {
		return rec, false, nil
	}

	subPath := filepath.Join(s.Dir, hashString[:2])
	err := os.MkdirAll(subPath, os.ModePerm)
	if err != nil {
		return Record{}, false, err
	}
	filename := filepath.Join(subPath, hashString)
	err = os.WriteFile(filename, data, 0644)
	if err != nil {
		return Record{}, false, err
	}

	rec := Record{
		SHA256:      hashString,
		Name:        fmt.Sprintf("%s_%s", HashPrefix(hashString), nameSuffix),
		Path:        filename,
		Description: description,
		Size:        int64(len(data)),
	}
	err = s.putRecord(rec)
	if err != nil {
		return Record{}, false, err
	}
	log.Debug("stored artifact: ", filename)
	return rec, true, nil
}

func (s *Store) putRecord(rec Record) error {
	encoded, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(rec.SHA256), encoded)
	})
}

// Get looks up the record for a content hash.
func (s *Store) Get(hash string) (Record, error) {
	var data []byte
	rec := Record{}

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return errors.New("missing bucket")
		}
		data = bucket.Get([]byte(hash))
		return nil
	})
	if err != nil {
		return rec, err
	}
	if len(data) == 0 {
		return rec, errors.New("not found")
	}
	err = json.Unmarshal(data, &rec)
	return rec, err
}
