package storage

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var bucketArtifacts = []byte("artifacts")

// boltBackend keeps each artifact as one key of a bbolt bucket
type boltBackend struct {
	db *bbolt.DB
}

// NewBoltStore creates a store backed by a single bbolt file at path
func NewBoltStore(path string, opts ...Option) (Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketArtifacts)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return newBlobStore(&boltBackend{db: db}, applyOptions(opts)), nil
}

func (b *boltBackend) get(ctx context.Context, name string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var out []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketArtifacts).Get([]byte(name))
		if data != nil {
			// bbolt memory is only valid inside the transaction
			out = append([]byte(nil), data...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

func (b *boltBackend) put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketArtifacts).Put([]byte(name), data)
	})
}

func (b *boltBackend) delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketArtifacts).Delete([]byte(name))
	})
}

func (b *boltBackend) close() error {
	return b.db.Close()
}
