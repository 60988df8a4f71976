package chat

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/faqchat/pkg/checkpoint"
)

const (
	DefaultCacheSize = 1024
	DefaultCacheTTL  = time.Hour
)

// CheckpointStore is the persistence the chat service needs.
type CheckpointStore interface {
	Get(ctx context.Context, sessionID string) (*checkpoint.Record, error)
	Put(ctx context.Context, sessionID string, state checkpoint.State, metadata checkpoint.Metadata, versions map[string]any) error
}

// SessionCache holds working copies of session transcripts, seeded lazily from the
// checkpoint store. It is bounded: least recently used sessions are dropped once
// size is exceeded, and idle sessions expire after ttl. A dropped session is
// reloaded from storage on its next use.
type SessionCache struct {
	store   CheckpointStore
	entries *expirable.LRU[string, []checkpoint.Message]
}

// NewSessionCache builds a cache; size <= 0 uses DefaultCacheSize and ttl <= 0
// disables idle expiry.
func NewSessionCache(store CheckpointStore, size int, ttl time.Duration) *SessionCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl < 0 {
		ttl = 0
	}
	onEvict := func(sessionID string, msgs []checkpoint.Message) {
		log.Debug().Str("session_id", sessionID).Int("messages", len(msgs)).Msg("evicted session from cache")
	}
	return &SessionCache{
		store:   store,
		entries: expirable.NewLRU[string, []checkpoint.Message](size, onEvict, ttl),
	}
}

// GetOrCreate returns the cached transcript, loading it from storage on a miss.
// Storage failures are logged and treated as an empty history.
func (c *SessionCache) GetOrCreate(ctx context.Context, sessionID string) []checkpoint.Message {
	if msgs, ok := c.entries.Get(sessionID); ok {
		return msgs
	}

	msgs := []checkpoint.Message{}
	rec, err := c.store.Get(ctx, sessionID)
	switch {
	case err != nil:
		log.Warn().Err(err).Str("session_id", sessionID).Msg("could not load checkpoint, starting empty")
	case rec == nil || rec.State.Messages == nil:
		log.Info().Str("session_id", sessionID).Msg("no existing checkpoint found")
	default:
		msgs = rec.State.Messages
		log.Info().Str("session_id", sessionID).Int("messages", len(msgs)).Msg("loaded messages from checkpoint")
	}
	c.entries.Add(sessionID, msgs)
	return msgs
}

// Set replaces the working copy of a session.
func (c *SessionCache) Set(sessionID string, msgs []checkpoint.Message) {
	c.entries.Add(sessionID, msgs)
}

// Peek returns the cached transcript without loading or refreshing recency.
func (c *SessionCache) Peek(sessionID string) ([]checkpoint.Message, bool) {
	return c.entries.Peek(sessionID)
}

func (c *SessionCache) Len() int {
	return c.entries.Len()
}
