package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/faqchat/pkg/redisstream"
)

// TopicCheckpoints carries one message per successful checkpoint write.
const TopicCheckpoints = "faqchat.checkpoints"

// CheckpointSaved is published after a session record has been written.
type CheckpointSaved struct {
	ThreadID string    `json:"thread_id"`
	Messages int       `json:"messages"`
	Language string    `json:"language"`
	Source   string    `json:"source,omitempty"`
	SavedAt  time.Time `json:"saved_at"`
}

// Bus publishes checkpoint events and tails them into the log.
type Bus struct {
	pub     message.Publisher
	sub     message.Subscriber
	closers []func() error
}

// NewInProcessBus delivers events over an in-memory channel.
func NewInProcessBus() *Bus {
	gc := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, NewWatermillLogger(log.Logger))
	return &Bus{pub: gc, sub: gc, closers: []func() error{gc.Close}}
}

// NewRedisBus delivers events over a Redis stream so other processes can consume them.
// The consumer group starts at the stream tail so a new deployment does not replay
// old events.
func NewRedisBus(ctx context.Context, s redisstream.Settings) (*Bus, error) {
	if s.Group == "" {
		s.Group = redisstream.DefaultGroup
	}
	t, err := redisstream.Open(s, NewWatermillLogger(log.Logger))
	if err != nil {
		return nil, errors.Wrap(err, "events: redis transport")
	}
	if err := redisstream.EnsureGroupAtTail(ctx, t.Client, TopicCheckpoints, s.Group); err != nil {
		_ = t.Close()
		return nil, errors.Wrap(err, "events: redis consumer group")
	}
	return &Bus{pub: t.Publisher, sub: t.Subscriber, closers: []func() error{t.Close}}, nil
}

// NewBus wraps an existing publisher/subscriber pair.
func NewBus(pub message.Publisher, sub message.Subscriber) *Bus {
	return &Bus{pub: pub, sub: sub}
}

func (b *Bus) NotifyCheckpointSaved(_ context.Context, ev CheckpointSaved) error {
	if b == nil || b.pub == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "events: marshal checkpoint event")
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("thread_id", ev.ThreadID)
	if err := b.pub.Publish(TopicCheckpoints, msg); err != nil {
		return errors.Wrap(err, "events: publish")
	}
	return nil
}

// Subscribe returns the raw checkpoint event channel.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	if b == nil || b.sub == nil {
		return nil, errors.New("events: bus has no subscriber")
	}
	return b.sub.Subscribe(ctx, TopicCheckpoints)
}

// RunLogger logs every checkpoint event until ctx is done or the channel closes.
func (b *Bus) RunLogger(ctx context.Context, logger zerolog.Logger) error {
	ch, err := b.Subscribe(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev CheckpointSaved
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				logger.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("dropping undecodable checkpoint event")
				msg.Ack()
				continue
			}
			logger.Info().
				Str("thread_id", ev.ThreadID).
				Int("messages", ev.Messages).
				Str("language", ev.Language).
				Str("source", ev.Source).
				Time("saved_at", ev.SavedAt).
				Msg("checkpoint saved")
			msg.Ack()
		}
	}
}

func (b *Bus) Close() error {
	if b == nil {
		return nil
	}
	var first error
	for _, c := range b.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
