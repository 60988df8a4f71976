package llm

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/go-go-golems/faqchat/pkg/checkpoint"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama3-8b-8192"
)

// SystemPrompt scopes generated answers to the knowledge-base topics.
const SystemPrompt = `You are a helpful assistant that answers questions based strictly on our knowledge base.
For any question, first determine if it relates to these topics:
- Business hours
- Password reset
- Payment methods
- Customer support contacts
- Refund policies

If the question relates to these topics but isn't an exact match, try to provide a helpful answer based on similar knowledge.
For completely unrelated questions, respond: "I can only answer questions about our business operations."`

// Generator produces the next assistant reply for a transcript.
type Generator interface {
	Generate(ctx context.Context, history []checkpoint.Message) (string, error)
}

// ChatCompletionClient is the part of the go-openai client used here.
type ChatCompletionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Settings struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAIGenerator talks to any OpenAI-compatible chat completion endpoint.
type OpenAIGenerator struct {
	client       ChatCompletionClient
	model        string
	systemPrompt string
}

var _ Generator = &OpenAIGenerator{}

// NewOpenAIGenerator builds a client after the governor grants a construction slot.
func NewOpenAIGenerator(ctx context.Context, gov *Governor, s Settings) (*OpenAIGenerator, error) {
	if strings.TrimSpace(s.APIKey) == "" {
		return nil, errors.New("llm: api key is required")
	}
	if err := gov.Wait(ctx); err != nil {
		return nil, err
	}
	cfg := openai.DefaultConfig(s.APIKey)
	cfg.BaseURL = DefaultBaseURL
	if s.BaseURL != "" {
		cfg.BaseURL = s.BaseURL
	}
	model := s.Model
	if model == "" {
		model = DefaultModel
	}
	log.Info().Str("base_url", cfg.BaseURL).Str("model", model).Msg("created llm client")
	return NewOpenAIGeneratorFromClient(openai.NewClientWithConfig(cfg), model), nil
}

func NewOpenAIGeneratorFromClient(client ChatCompletionClient, model string) *OpenAIGenerator {
	return &OpenAIGenerator{client: client, model: model, systemPrompt: SystemPrompt}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, history []checkpoint.Message) (string, error) {
	if g == nil || g.client == nil {
		return "", errors.New("llm: generator is not initialized")
	}
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: g.systemPrompt})
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.IsAssistant() {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: msgs,
	})
	if err != nil {
		return "", errors.Wrap(err, "llm: chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm: empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}
