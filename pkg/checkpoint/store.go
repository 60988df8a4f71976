package checkpoint

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/faqchat/pkg/blobstore"
)

const (
	// KeyPrefix is the folder holding one object per session.
	KeyPrefix   = "chat_histories/"
	keySuffix   = ".json"
	contentType = "application/json"
)

// StorageError reports a failed backend call or an undecodable record.
type StorageError struct {
	Op        string
	SessionID string
	Err       error
}

func (e *StorageError) Error() string {
	if e.SessionID == "" {
		return fmt.Sprintf("checkpoint %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("checkpoint %s %s: %v", e.Op, e.SessionID, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Store persists one Record per session id in a blob store, under KeyPrefix.
// Writes replace the whole object; there is no concurrency check.
type Store struct {
	blobs blobstore.Store
	now   func() time.Time
}

func NewStore(blobs blobstore.Store) *Store {
	return &Store{blobs: blobs, now: time.Now}
}

// SetClock overrides the clock used for last_updated and expiry, mostly for tests.
func (s *Store) SetClock(now func() time.Time) {
	if s == nil || now == nil {
		return
	}
	s.now = now
}

// Key returns the object key for a session id.
func Key(sessionID string) string {
	return KeyPrefix + sessionID + keySuffix
}

// Get returns the stored record, or nil when none exists.
func (s *Store) Get(ctx context.Context, sessionID string) (*Record, error) {
	if s == nil || s.blobs == nil {
		return nil, &StorageError{Op: "get", SessionID: sessionID, Err: errors.New("store is not initialized")}
	}
	body, err := s.blobs.Get(ctx, Key(sessionID))
	if err != nil {
		if blobstore.IsNotFound(err) {
			log.Info().Str("session_id", sessionID).Msg("no chat history found for session")
			return nil, nil
		}
		log.Error().Err(err).Str("session_id", sessionID).Msg("error retrieving chat history")
		return nil, &StorageError{Op: "get", SessionID: sessionID, Err: err}
	}
	r, err := DecodeRecord(body)
	if err != nil {
		return nil, &StorageError{Op: "decode", SessionID: sessionID, Err: err}
	}
	return r, nil
}

// Put serializes state, metadata and version info with a fresh last_updated and
// overwrites the session's object.
func (s *Store) Put(ctx context.Context, sessionID string, state State, metadata Metadata, versions map[string]any) error {
	if s == nil || s.blobs == nil {
		return &StorageError{Op: "put", SessionID: sessionID, Err: errors.New("store is not initialized")}
	}
	if strings.TrimSpace(sessionID) == "" {
		return &StorageError{Op: "put", Err: errors.New("empty session id")}
	}
	body, err := EncodeRecord(&Record{
		State:       state,
		Metadata:    metadata,
		NewVersions: versions,
		LastUpdated: NewTimestamp(s.now()),
	})
	if err != nil {
		return &StorageError{Op: "encode", SessionID: sessionID, Err: err}
	}
	if err := s.blobs.Put(ctx, Key(sessionID), body, contentType); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("error saving chat history")
		return &StorageError{Op: "put", SessionID: sessionID, Err: err}
	}
	log.Info().Str("session_id", sessionID).Int("messages", len(state.Messages)).Msg("saved chat history")
	return nil
}

// DeleteExpired removes session objects whose age in whole days exceeds maxAgeDays.
// It stops at the first failed delete; objects already removed stay removed.
func (s *Store) DeleteExpired(ctx context.Context, maxAgeDays int) (int, error) {
	if s == nil || s.blobs == nil {
		return 0, &StorageError{Op: "cleanup", Err: errors.New("store is not initialized")}
	}
	infos, err := s.blobs.List(ctx, KeyPrefix)
	if err != nil {
		log.Error().Err(err).Msg("error listing chat histories for cleanup")
		return 0, &StorageError{Op: "cleanup", Err: err}
	}
	now := s.now()
	deleted := 0
	for _, info := range infos {
		if !strings.HasSuffix(info.Key, keySuffix) {
			continue
		}
		if ageInDays(now, info.LastModified) <= maxAgeDays {
			continue
		}
		if err := s.blobs.Delete(ctx, info.Key); err != nil {
			log.Error().Err(err).Str("key", info.Key).Msg("error deleting old chat history")
			return deleted, &StorageError{Op: "cleanup", Err: err}
		}
		deleted++
		log.Info().Str("key", info.Key).Msg("deleted old chat history")
	}
	log.Info().Int("deleted", deleted).Int("max_age_days", maxAgeDays).Msg("completed cleanup of old chat histories")
	return deleted, nil
}

func ageInDays(now, modified time.Time) int {
	if modified.IsZero() {
		return 0
	}
	return int(now.Sub(modified) / (24 * time.Hour))
}
