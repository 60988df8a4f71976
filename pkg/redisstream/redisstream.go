package redisstream

import (
	"context"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	rstream "github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	DefaultGroup          = "faqchat"
	DefaultConsumerPrefix = "faqchat-"
)

// Settings holds Redis Streams transport configuration for Watermill.
type Settings struct {
	Addr     string
	Password string
	DB       int
	Group    string
	Consumer string
}

// Transport is a publisher/subscriber pair sharing one Redis client.
type Transport struct {
	Client     redis.UniversalClient
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Open builds a Redis Streams publisher and a consumer-group subscriber.
func Open(s Settings, logger watermill.LoggerAdapter) (*Transport, error) {
	if strings.TrimSpace(s.Addr) == "" {
		return nil, errors.New("redisstream: addr is required")
	}
	client := redis.NewClient(&redis.Options{Addr: s.Addr, Password: s.Password, DB: s.DB})
	t, err := OpenWithClient(client, s, logger)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return t, nil
}

// OpenWithClient is Open for an existing client. Close still closes the client.
func OpenWithClient(client redis.UniversalClient, s Settings, logger watermill.LoggerAdapter) (*Transport, error) {
	if s.Group == "" {
		s.Group = DefaultGroup
	}
	if s.Consumer == "" {
		s.Consumer = DefaultConsumerPrefix + watermill.NewShortUUID()
	}
	marshaler := rstream.DefaultMarshallerUnmarshaller{}

	pub, err := rstream.NewPublisher(rstream.PublisherConfig{
		Client:     client,
		Marshaller: marshaler,
	}, logger)
	if err != nil {
		return nil, errors.Wrap(err, "redisstream: publisher")
	}

	sub, err := rstream.NewSubscriber(rstream.SubscriberConfig{
		Client:        client,
		Unmarshaller:  marshaler,
		ConsumerGroup: s.Group,
		Consumer:      s.Consumer,
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, errors.Wrap(err, "redisstream: subscriber")
	}
	return &Transport{Client: client, Publisher: pub, Subscriber: sub}, nil
}

func (t *Transport) Close() error {
	if t == nil {
		return nil
	}
	// the watermill side may already have closed the shared client
	var first error
	for _, c := range []func() error{t.Subscriber.Close, t.Publisher.Close, t.Client.Close} {
		if err := c(); err != nil && !errors.Is(err, redis.ErrClosed) && first == nil {
			first = err
		}
	}
	return first
}

// EnsureGroupAtTail creates the consumer group for a stream at the tail ($) if it doesn't exist.
// This prevents full historical replay on first subscribe.
func EnsureGroupAtTail(ctx context.Context, client redis.UniversalClient, stream, group string) error {
	err := client.XGroupCreateMkStream(ctx, stream, group, "$").Err()
	if err != nil {
		// BUSYGROUP: the group already exists
		if strings.Contains(err.Error(), "BUSYGROUP") {
			return nil
		}
		return errors.Wrapf(err, "redisstream: create group %s on %s", group, stream)
	}
	log.Info().Str("stream", stream).Str("group", group).Msg("created redis consumer group at $ (tail)")
	return nil
}
