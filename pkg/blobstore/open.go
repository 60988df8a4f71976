package blobstore

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	BackendS3     = "s3"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// Backends lists the accepted values of Options.Backend.
var Backends = []string{BackendS3, BackendRedis, BackendSQLite, BackendBolt, BackendMemory}

type Options struct {
	Backend    string
	S3         S3Options
	Redis      RedisOptions
	SQLitePath string
	BoltPath   string
}

// Open builds the store selected by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	backend := strings.ToLower(strings.TrimSpace(opts.Backend))
	if backend == "" {
		backend = BackendS3
	}
	var (
		st  Store
		err error
	)
	switch backend {
	case BackendS3:
		st, err = NewS3Store(ctx, opts.S3)
	case BackendRedis:
		st, err = NewRedisStore(opts.Redis)
	case BackendSQLite:
		st, err = NewSQLiteStore(opts.SQLitePath)
	case BackendBolt:
		st, err = NewBoltStore(opts.BoltPath)
	case BackendMemory:
		st = NewMemoryStore()
	default:
		return nil, errors.Errorf("unknown blob store backend %q (expected one of %s)", opts.Backend, strings.Join(Backends, ", "))
	}
	if err != nil {
		return nil, err
	}
	log.Info().Str("backend", backend).Msg("opened blob store")
	return st, nil
}
