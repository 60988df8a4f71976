package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var boltBucket = []byte("blobs")

type boltEnvelope struct {
	Body        []byte `json:"body"`
	ContentType string `json:"content_type"`
	ModifiedMs  int64  `json:"modified_ms"`
}

// BoltStore keeps objects in a single bbolt bucket; each value is a JSON envelope.
type BoltStore struct {
	db  *bolt.DB
	now func() time.Time
}

var _ Store = &BoltStore{}

func NewBoltStore(path string) (*BoltStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("bolt blobstore: empty path")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "bolt blobstore: create dir")
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "bolt blobstore: open")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "bolt blobstore: create bucket")
	}
	return &BoltStore{db: db, now: time.Now}, nil
}

func (s *BoltStore) Get(_ context.Context, key string) ([]byte, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("bolt blobstore: db is nil")
	}
	var env *boltEnvelope
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(boltBucket).Get([]byte(key))
		if raw == nil {
			return nil
		}
		env = &boltEnvelope{}
		return json.Unmarshal(raw, env)
	})
	if err != nil {
		return nil, errors.Wrap(err, "bolt blobstore: get")
	}
	if env == nil {
		return nil, errors.Wrapf(ErrNotFound, "bolt blobstore: %s", key)
	}
	return env.Body, nil
}

func (s *BoltStore) Put(_ context.Context, key string, body []byte, contentType string) error {
	if s == nil || s.db == nil {
		return errors.New("bolt blobstore: db is nil")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("bolt blobstore: empty key")
	}
	raw, err := json.Marshal(boltEnvelope{Body: body, ContentType: contentType, ModifiedMs: s.now().UnixMilli()})
	if err != nil {
		return errors.Wrap(err, "bolt blobstore: marshal envelope")
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put([]byte(key), raw)
	})
	return errors.Wrap(err, "bolt blobstore: put")
}

func (s *BoltStore) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("bolt blobstore: db is nil")
	}
	out := []ObjectInfo{}
	p := []byte(prefix)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(boltBucket).Cursor()
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			var env boltEnvelope
			if err := json.Unmarshal(v, &env); err != nil {
				return errors.Wrapf(err, "decode %s", k)
			}
			out = append(out, ObjectInfo{
				Key:          string(k),
				Size:         int64(len(env.Body)),
				LastModified: time.UnixMilli(env.ModifiedMs),
			})
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "bolt blobstore: list")
	}
	return out, nil
}

func (s *BoltStore) Delete(_ context.Context, key string) error {
	if s == nil || s.db == nil {
		return errors.New("bolt blobstore: db is nil")
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Delete([]byte(key))
	})
	return errors.Wrap(err, "bolt blobstore: delete")
}

func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
