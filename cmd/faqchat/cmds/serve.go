package cmds

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/faqchat/pkg/blobstore"
	"github.com/go-go-golems/faqchat/pkg/chat"
	"github.com/go-go-golems/faqchat/pkg/checkpoint"
	"github.com/go-go-golems/faqchat/pkg/events"
	"github.com/go-go-golems/faqchat/pkg/kb"
	"github.com/go-go-golems/faqchat/pkg/llm"
	"github.com/go-go-golems/faqchat/pkg/server"
	"github.com/go-go-golems/faqchat/pkg/settings"
)

func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), s)
		},
	}
	settings.AddStoreFlags(cmd.Flags())
	settings.AddServeFlags(cmd.Flags())
	return cmd
}

func runServe(ctx context.Context, s settings.Settings) error {
	pairs, err := kb.LoadFile(s.KnowledgeBase)
	if err != nil {
		return err
	}
	log.Info().Str("path", s.KnowledgeBase).Int("pairs", len(pairs)).Msg("loaded knowledge base")

	blobs, err := blobstore.Open(ctx, s.Store)
	if err != nil {
		return errors.Wrap(err, "open checkpoint storage")
	}
	defer func() {
		if err := blobs.Close(); err != nil {
			log.Error().Err(err).Msg("blob store close error")
		}
	}()
	store := checkpoint.NewStore(blobs)

	var generator llm.Generator
	if s.LLM.APIKey != "" {
		gov := llm.NewGovernor(s.LLM.RateCalls, s.LLM.RatePeriod)
		generator, err = llm.NewOpenAIGenerator(ctx, gov, s.LLM.Settings)
		if err != nil {
			return err
		}
	}
	if s.LLM.Fallback {
		log.Info().Str("model", s.LLM.Model).Msg("llm fallback enabled")
	}

	bus, err := newBus(ctx, s)
	if err != nil {
		return err
	}
	defer func() {
		if err := bus.Close(); err != nil {
			log.Error().Err(err).Msg("event bus close error")
		}
	}()

	svc, err := chat.NewService(chat.Options{
		Store:     store,
		Responder: chat.NewKnowledgeBaseResponder(kb.NewMatcher(pairs, nil), generator, s.LLM.Fallback),
		Notifier:  bus,
		CacheSize: s.CacheSize,
		CacheTTL:  s.CacheTTL,
	})
	if err != nil {
		return err
	}

	srv, err := server.New(server.Options{
		Addr:    s.Addr,
		Chat:    svc,
		Janitor: server.NewJanitor(store, s.CleanupInterval, s.MaxAgeDays),
		Events:  bus,
	})
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

func newBus(ctx context.Context, s settings.Settings) (*events.Bus, error) {
	if !s.RedisEvents {
		return events.NewInProcessBus(), nil
	}
	return events.NewRedisBus(ctx, s.Events)
}
