package blobstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrNotFound is returned (possibly wrapped) by Get when no object exists for a key.
var ErrNotFound = errors.New("blobstore: object not found")

// ObjectInfo describes a stored object as returned by List.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Store is a flat key/value object store scoped to a single bucket or namespace.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, body []byte, contentType string) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// IsNotFound reports whether err signals a missing object.
func IsNotFound(err error) bool {
	return err != nil && errors.Is(err, ErrNotFound)
}
