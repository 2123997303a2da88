package assetstore

import (
	"context"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

// BoltStore keeps blobs inside a single bbolt database file, one bucket
// per category. Useful for single-binary deployments with no separate
// asset volume.
type BoltStore struct {
	db *bolt.DB
}

var _ Store = (*BoltStore)(nil)

func NewBoltStore(file string) (*BoltStore, error) {
	db, err := bolt.Open(file, 0o600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "assetstore: open bolt db")
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Put(ctx context.Context, category, originalName string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ref := NewReference(category, originalName)
	_, key, _ := splitRef(ref)
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(category))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
	if err != nil {
		return "", errors.Wrap(err, "assetstore: write blob")
	}
	return ref, nil
}

func (s *BoltStore) Read(ctx context.Context, ref string) ([]byte, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	category, key, ok := splitRef(ref)
	if !ok {
		return nil, 0, ErrNotFound
	}
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(category))
		if b == nil {
			return ErrNotFound
		}
		v := b.Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return data, int64(len(data)), nil
}

func (s *BoltStore) Remove(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	category, key, ok := splitRef(ref)
	if !ok {
		return ErrNotFound
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(category))
		if b == nil || b.Get([]byte(key)) == nil {
			return ErrNotFound
		}
		return b.Delete([]byte(key))
	})
}

func (s *BoltStore) List(ctx context.Context, category string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var refs []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(category))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			refs = append(refs, category+"/"+string(k))
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "assetstore: list category")
	}
	return refs, nil
}

func (s *BoltStore) Close() error { return s.db.Close() }
