package llm

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/faqchat/pkg/checkpoint"
)

type recordingClient struct {
	req  openai.ChatCompletionRequest
	resp openai.ChatCompletionResponse
	err  error
}

func (c *recordingClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.req = req
	return c.resp, c.err
}

func TestOpenAIGenerator_MapsRoles(t *testing.T) {
	client := &recordingClient{resp: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "generated"}}},
	}}
	g := NewOpenAIGeneratorFromClient(client, "m1")

	out, err := g.Generate(context.Background(), []checkpoint.Message{
		checkpoint.NewHumanMessage("q1"),
		checkpoint.NewAssistantMessage("a1"),
		checkpoint.NewHumanMessage("q2"),
	})
	require.NoError(t, err)
	require.Equal(t, "generated", out)
	require.Equal(t, "m1", client.req.Model)
	require.Len(t, client.req.Messages, 4)
	require.Equal(t, openai.ChatMessageRoleSystem, client.req.Messages[0].Role)
	require.Equal(t, openai.ChatMessageRoleUser, client.req.Messages[1].Role)
	require.Equal(t, openai.ChatMessageRoleAssistant, client.req.Messages[2].Role)
	require.Equal(t, "q2", client.req.Messages[3].Content)
}

func TestOpenAIGenerator_Errors(t *testing.T) {
	g := NewOpenAIGeneratorFromClient(&recordingClient{err: errors.New("429")}, "m")
	_, err := g.Generate(context.Background(), nil)
	require.ErrorContains(t, err, "429")

	g = NewOpenAIGeneratorFromClient(&recordingClient{}, "m")
	_, err = g.Generate(context.Background(), nil)
	require.ErrorContains(t, err, "empty completion")
}

func TestNewOpenAIGenerator_RequiresKey(t *testing.T) {
	_, err := NewOpenAIGenerator(context.Background(), NewGovernor(1, time.Minute), Settings{})
	require.ErrorContains(t, err, "api key is required")
}

func TestNewOpenAIGenerator_Defaults(t *testing.T) {
	g, err := NewOpenAIGenerator(context.Background(), nil, Settings{APIKey: "k"})
	require.NoError(t, err)
	require.Equal(t, DefaultModel, g.model)
}

func TestGovernor_BlocksWhenExhausted(t *testing.T) {
	g := NewGovernor(2, time.Hour)
	require.True(t, g.Allow())
	require.True(t, g.Allow())
	require.False(t, g.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, g.Wait(ctx))
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestGovernor_FixedWindowDoesNotRefillEarly(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	g := NewGovernor(2, 400*time.Millisecond)
	g.now = clock.now

	require.True(t, g.Allow())
	require.True(t, g.Allow())
	clock.t = clock.t.Add(200 * time.Millisecond)
	require.False(t, g.Allow())
	clock.t = clock.t.Add(199 * time.Millisecond)
	require.False(t, g.Allow())

	clock.t = clock.t.Add(time.Millisecond)
	require.True(t, g.Allow())
	require.True(t, g.Allow())
	require.False(t, g.Allow())
}

func TestGovernor_CallsPerWindowNeverExceedBudget(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: start}
	period := 60 * time.Second
	g := NewGovernor(50, period)
	g.now = clock.now

	perWindow := map[int64]int{}
	for i := 0; i < 1000; i++ {
		if g.Allow() {
			perWindow[int64(clock.t.Sub(start)/period)]++
		}
		clock.t = clock.t.Add(300 * time.Millisecond)
	}
	require.Len(t, perWindow, 5)
	for w, n := range perWindow {
		require.Equal(t, 50, n, "window %d", w)
	}
}

func TestGovernor_WaitBlocksUntilWindowCloses(t *testing.T) {
	g := NewGovernor(1, 50*time.Millisecond)
	require.NoError(t, g.Wait(context.Background()))

	begin := time.Now()
	require.NoError(t, g.Wait(context.Background()))
	require.GreaterOrEqual(t, time.Since(begin), 40*time.Millisecond)
}

func TestGovernor_Unlimited(t *testing.T) {
	g := NewGovernor(0, 0)
	for i := 0; i < 100; i++ {
		require.True(t, g.Allow())
	}
	var nilGov *Governor
	require.NoError(t, nilGov.Wait(context.Background()))
}
