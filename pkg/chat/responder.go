package chat

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/faqchat/pkg/checkpoint"
	"github.com/go-go-golems/faqchat/pkg/kb"
	"github.com/go-go-golems/faqchat/pkg/llm"
)

// SourceGenerated marks replies produced by the LLM generator.
const SourceGenerated kb.Source = "generated"

// Reply is the next assistant message chosen for a transcript.
type Reply struct {
	Content string
	Source  kb.Source
}

// Responder is the single step run over a transcript ending in a human message.
type Responder interface {
	Respond(ctx context.Context, history []checkpoint.Message) (Reply, error)
}

// KnowledgeBaseResponder answers from the rule matcher. When a generator is set and
// llmFallback is on, refusals are replaced by a generated answer.
type KnowledgeBaseResponder struct {
	matcher     *kb.Matcher
	generator   llm.Generator
	llmFallback bool
}

var _ Responder = &KnowledgeBaseResponder{}

func NewKnowledgeBaseResponder(matcher *kb.Matcher, generator llm.Generator, llmFallback bool) *KnowledgeBaseResponder {
	return &KnowledgeBaseResponder{matcher: matcher, generator: generator, llmFallback: llmFallback}
}

func (r *KnowledgeBaseResponder) Respond(ctx context.Context, history []checkpoint.Message) (Reply, error) {
	if r == nil || r.matcher == nil {
		return Reply{}, errors.New("responder: matcher is not configured")
	}
	if len(history) == 0 {
		return Reply{}, errors.New("responder: empty history")
	}
	last := history[len(history)-1]
	log.Debug().Int("messages", len(history)).Msg("running knowledge base responder")

	m := r.matcher.Match(last.Content)
	if m.Source != kb.SourceFallback || !r.llmFallback || r.generator == nil {
		return Reply{Content: m.Answer, Source: m.Source}, nil
	}

	text, err := r.generator.Generate(ctx, history)
	if err != nil {
		log.Warn().Err(err).Msg("llm fallback failed, keeping refusal")
		return Reply{Content: m.Answer, Source: m.Source}, nil
	}
	return Reply{Content: text, Source: SourceGenerated}, nil
}
