package chat

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/faqchat/pkg/blobstore"
	"github.com/go-go-golems/faqchat/pkg/checkpoint"
)

func TestHistory_UnknownThreadIsEmptyEnglish(t *testing.T) {
	svc, _ := newTestService(t)
	tr := svc.History(context.Background(), "never-seen")
	require.Equal(t, "never-seen", tr.ThreadID)
	require.NotNil(t, tr.Messages)
	require.Empty(t, tr.Messages)
	require.Equal(t, "English", tr.Language)
}

func TestHistory_StorageErrorIsSwallowed(t *testing.T) {
	svc, store := newTestService(t)
	store.getErr = errors.New("denied")
	tr := svc.History(context.Background(), "t")
	require.Empty(t, tr.Messages)
	require.Equal(t, "English", tr.Language)
}

func TestHistory_MalformedRecordIsEmpty(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	require.NoError(t, blobs.Put(ctx, checkpoint.Key("t"), []byte(`{"state": {"messages": [{"_type": "Weird"}]}}`), "application/json"))
	svc, err := NewService(Options{Store: checkpoint.NewStore(blobs), Responder: NewKnowledgeBaseResponder(nil, nil, false)})
	require.NoError(t, err)

	tr := svc.History(ctx, "t")
	require.Empty(t, tr.Messages)
	require.Equal(t, "English", tr.Language)
}

func TestHistory_WalksPairsAndSkipsNonHumanSlots(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	fixed := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	require.NoError(t, store.inner.Put(ctx, "t", checkpoint.State{Messages: []checkpoint.Message{
		checkpoint.NewHumanMessage("q1"),
		checkpoint.NewAssistantMessage("a1"),
		checkpoint.NewAssistantMessage("stray"), // even slot, not human: pair skipped
		checkpoint.NewAssistantMessage("ignored"),
		checkpoint.NewHumanMessage("q3"),
	}, Language: "Portuguese"}, checkpoint.Metadata{}, nil))

	tr := svc.History(ctx, "t")
	require.Equal(t, []TranscriptMessage{
		{Content: "q1", Role: RoleHuman, Timestamp: fixed},
		{Content: "a1", Role: RoleAssistant, Timestamp: fixed},
		{Content: "q3", Role: RoleHuman, Timestamp: fixed},
	}, tr.Messages)
	require.Equal(t, "Portuguese", tr.Language)
}

func TestHistory_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	fixed := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	_, err := svc.Process(ctx, Request{Message: "What time do you open?", ThreadID: "t"})
	require.NoError(t, err)

	first := svc.History(ctx, "t")
	second := svc.History(ctx, "t")
	require.Equal(t, first, second)
	require.Len(t, first.Messages, 2)
}
