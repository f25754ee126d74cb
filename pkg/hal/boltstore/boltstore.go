// Package boltstore implements the storage HAL on top of a bolt database
// file. All records live in a single bucket; each Save overwrites the whole
// record, matching the HAL's total-overwrite contract.
package boltstore

import (
	"bytes"
	"time"

	bolt "go.etcd.io/bbolt"

	"src.oopis.sh/pkg/hal"
	"src.oopis.sh/pkg/logutil"
	"src.oopis.sh/pkg/oserr"
)

var logger = logutil.GetLogger("[boltstore] ")

var bucketState = []byte("state")

// Store is a bolt-backed hal.Store.
type Store struct {
	db *bolt.DB
}

var _ hal.Store = (*Store)(nil)

// Open opens the database file, creating it if absent.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0644, &bolt.Options{
		Timeout: time.Second,
	})
	if err != nil {
		logger.Printf("failed to open %v: %v", path, err)
		return nil, oserr.Newf(oserr.StorageUnavailable, "cannot open state file %v: %v", path, err)
	}
	return &Store{db}, nil
}

func (s *Store) Init() error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketState)
		return err
	})
	if err != nil {
		return oserr.Newf(oserr.StorageUnavailable, "cannot initialize state bucket: %v", err)
	}
	return nil
}

func (s *Store) Load(key string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketState)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, oserr.Newf(oserr.StorageUnavailable, "cannot load %v: %v", key, err)
	}
	return data, nil
}

func (s *Store) Save(key string, data []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketState).Put([]byte(key), data)
	})
	if err != nil {
		return oserr.Newf(oserr.StorageUnavailable, "cannot save %v: %v", key, err)
	}
	return nil
}

func (s *Store) Delete(key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketState).Delete([]byte(key))
	})
	if err != nil {
		return oserr.Newf(oserr.StorageUnavailable, "cannot delete %v: %v", key, err)
	}
	return nil
}

func (s *Store) Keys(prefix string) ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketState)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, oserr.Newf(oserr.StorageUnavailable, "cannot list keys: %v", err)
	}
	return keys, nil
}

func (s *Store) Clear() error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketState); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket(bucketState)
		return err
	})
	if err != nil {
		return oserr.Newf(oserr.StorageUnavailable, "cannot clear state: %v", err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }
