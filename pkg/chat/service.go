package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/faqchat/pkg/checkpoint"
	"github.com/go-go-golems/faqchat/pkg/events"
)

// Request is one inbound chat message.
type Request struct {
	Message  string
	Language string
	ThreadID string
}

// Response is the formatted reply to a Request.
type Response struct {
	Response  string
	Language  string
	Timestamp time.Time
	ThreadID  string
}

// ProcessingError wraps any failure of the chat pipeline.
type ProcessingError struct {
	ThreadID string
	Err      error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("process chat %s: %v", e.ThreadID, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// Notifier receives checkpoint events; failures are logged and ignored.
type Notifier interface {
	NotifyCheckpointSaved(ctx context.Context, ev events.CheckpointSaved) error
}

type Options struct {
	Store     CheckpointStore
	Responder Responder
	Notifier  Notifier
	CacheSize int
	CacheTTL  time.Duration
	Now       func() time.Time
}

// Service runs the conversation pipeline: load history, append the human message,
// pick a reply, persist the transcript and format the answer.
//
// Requests for the same session are serialized inside one process. Separate
// processes sharing a store still race and the last write wins.
type Service struct {
	store     CheckpointStore
	responder Responder
	notifier  Notifier
	cache     *SessionCache
	locks     *sessionLocks
	now       func() time.Time
}

func NewService(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("chat service: checkpoint store is required")
	}
	if opts.Responder == nil {
		return nil, errors.New("chat service: responder is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:     opts.Store,
		responder: opts.Responder,
		notifier:  opts.Notifier,
		cache:     NewSessionCache(opts.Store, opts.CacheSize, opts.CacheTTL),
		locks:     newSessionLocks(),
		now:       now,
	}, nil
}

func (s *Service) Cache() *SessionCache { return s.cache }

// Process answers one message. On a persistence failure the cache keeps the new
// messages while the store does not.
func (s *Service) Process(ctx context.Context, req Request) (Response, error) {
	language := NormalizeLanguage(req.Language)
	threadID := strings.TrimSpace(req.ThreadID)
	if threadID == "" {
		threadID = GenerateSessionID(s.now(), req.Message)
	}
	logger := log.With().Str("thread_id", threadID).Logger()
	logger.Info().Str("language", language).Msg("processing chat message")

	unlock := s.locks.Lock(threadID)
	defer unlock()

	cached := s.cache.GetOrCreate(ctx, threadID)
	history := make([]checkpoint.Message, 0, len(cached)+2)
	history = append(history, cached...)
	history = append(history, checkpoint.NewHumanMessage(req.Message))
	s.cache.Set(threadID, history)

	reply, err := s.responder.Respond(ctx, history)
	if err != nil {
		logger.Error().Err(err).Msg("error generating reply")
		return Response{}, &ProcessingError{ThreadID: threadID, Err: err}
	}
	history = append(history, checkpoint.NewAssistantMessage(reply.Content))
	s.cache.Set(threadID, history)

	now := s.now()
	err = s.store.Put(ctx, threadID,
		checkpoint.State{Messages: history, Language: language},
		checkpoint.Metadata{Timestamp: checkpoint.NewTimestamp(now), Language: language},
		map[string]any{"messages": len(history)},
	)
	if err != nil {
		logger.Error().Err(err).Msg("error saving checkpoint")
		return Response{}, &ProcessingError{ThreadID: threadID, Err: err}
	}

	if s.notifier != nil {
		ev := events.CheckpointSaved{
			ThreadID: threadID,
			Messages: len(history),
			Language: language,
			Source:   string(reply.Source),
			SavedAt:  now,
		}
		if err := s.notifier.NotifyCheckpointSaved(ctx, ev); err != nil {
			logger.Warn().Err(err).Msg("could not publish checkpoint event")
		}
	}

	return Response{
		Response:  FormatResponse(reply.Content),
		Language:  language,
		Timestamp: now,
		ThreadID:  threadID,
	}, nil
}
