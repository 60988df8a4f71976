package blobstore

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	redisFieldBody        = "body"
	redisFieldContentType = "content_type"
	redisFieldModified    = "modified_ms"
)

// RedisStore keeps each object as a hash holding the body, its content type and
// the modification time in unix milliseconds.
type RedisStore struct {
	client    redis.UniversalClient
	namespace string
	ownClient bool
	now       func() time.Time
}

var _ Store = &RedisStore{}

type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	Namespace string
}

func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	if strings.TrimSpace(opts.Addr) == "" {
		return nil, errors.New("redis blobstore: empty addr")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	s := NewRedisStoreFromClient(client, opts.Namespace)
	s.ownClient = true
	return s, nil
}

// NewRedisStoreFromClient wraps an existing client; Close leaves the client open.
func NewRedisStoreFromClient(client redis.UniversalClient, namespace string) *RedisStore {
	return &RedisStore{client: client, namespace: namespace, now: time.Now}
}

func (s *RedisStore) redisKey(key string) string {
	if s.namespace == "" {
		return key
	}
	return s.namespace + ":" + key
}

func (s *RedisStore) objectKey(redisKey string) string {
	if s.namespace == "" {
		return redisKey
	}
	return strings.TrimPrefix(redisKey, s.namespace+":")
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s == nil || s.client == nil {
		return nil, errors.New("redis blobstore: client is nil")
	}
	body, err := s.client.HGet(ctx, s.redisKey(key), redisFieldBody).Bytes()
	if err == redis.Nil {
		return nil, errors.Wrapf(ErrNotFound, "redis blobstore: %s", key)
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis blobstore: hget")
	}
	return body, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	if s == nil || s.client == nil {
		return errors.New("redis blobstore: client is nil")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("redis blobstore: empty key")
	}
	err := s.client.HSet(ctx, s.redisKey(key),
		redisFieldBody, body,
		redisFieldContentType, contentType,
		redisFieldModified, strconv.FormatInt(s.now().UnixMilli(), 10),
	).Err()
	if err != nil {
		return errors.Wrap(err, "redis blobstore: hset")
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if s == nil || s.client == nil {
		return nil, errors.New("redis blobstore: client is nil")
	}
	out := []ObjectInfo{}
	iter := s.client.Scan(ctx, 0, s.redisKey(prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		rk := iter.Val()
		vals, err := s.client.HMGet(ctx, rk, redisFieldModified, redisFieldBody).Result()
		if err != nil {
			return nil, errors.Wrapf(err, "redis blobstore: hmget %s", rk)
		}
		info := ObjectInfo{Key: s.objectKey(rk)}
		if v, ok := vals[0].(string); ok {
			if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
				info.LastModified = time.UnixMilli(ms)
			}
		}
		if v, ok := vals[1].(string); ok {
			info.Size = int64(len(v))
		}
		out = append(out, info)
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, "redis blobstore: scan")
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if s == nil || s.client == nil {
		return errors.New("redis blobstore: client is nil")
	}
	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return errors.Wrap(err, "redis blobstore: del")
	}
	return nil
}

func (s *RedisStore) Close() error {
	if s == nil || s.client == nil || !s.ownClient {
		return nil
	}
	return s.client.Close()
}
