// Package bolt stores verdoc snapshots in a bucket of a bbolt database.
package bolt

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.etcd.io/bbolt"
)

// DefaultBucket is the bbolt bucket used when none is given.
const DefaultBucket = "verdoc-snapshots"

// ErrNotFound is returned by Load for names that were never stored.
var ErrNotFound = errors.New("snapshot not found")

// Persist implements verdoc.Persist with one key per snapshot in a single
// bbolt bucket.
type Persist struct {
	bdb    *bbolt.DB
	bucket []byte
}

// Open opens or creates the bbolt database at path.
func Open(path string, mode os.FileMode, opts *bbolt.Options) (*Persist, error) {
	bdb, err := bbolt.Open(path, mode, opts)
	if err != nil {
		return nil, err
	}
	p, err := New(bdb, DefaultBucket)
	if err != nil {
		bdb.Close()
		return nil, err
	}
	return p, nil
}

// New uses bucket of an already open database, creating the bucket if
// needed.
func New(bdb *bbolt.DB, bucket string) (*Persist, error) {
	p := &Persist{bdb: bdb, bucket: []byte(bucket)}
	err := bdb.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(p.bucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	return p, nil
}

// Load returns a copy of the snapshot stored under name.
func (p *Persist) Load(ctx context.Context, name string) ([]byte, error) {
	var out []byte
	err := p.bdb.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(p.bucket)
		if b == nil {
			return bbolt.ErrBucketNotFound
		}
		v := b.Get([]byte(name))
		if v == nil {
			return fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		// v is only valid inside the transaction
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Store saves the snapshot under name unless the name is taken already.
func (p *Persist) Store(ctx context.Context, name string, value []byte) error {
	if name == "" {
		return bbolt.ErrKeyRequired
	}
	return p.bdb.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(p.bucket)
		if b == nil {
			return bbolt.ErrBucketNotFound
		}
		if b.Get([]byte(name)) != nil {
			return nil
		}
		return b.Put([]byte(name), value)
	})
}

// Close closes the underlying database.
func (p *Persist) Close() error {
	return p.bdb.Close()
}
