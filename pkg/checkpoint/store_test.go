package checkpoint

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/faqchat/pkg/blobstore"
)

// failingBlobs fails every call with err.
type failingBlobs struct {
	err error
}

func (f failingBlobs) Get(context.Context, string) ([]byte, error) { return nil, f.err }
func (f failingBlobs) Put(context.Context, string, []byte, string) error {
	return f.err
}
func (f failingBlobs) List(context.Context, string) ([]blobstore.ObjectInfo, error) {
	return nil, f.err
}
func (f failingBlobs) Delete(context.Context, string) error { return f.err }
func (f failingBlobs) Close() error                         { return nil }

func TestKey(t *testing.T) {
	require.Equal(t, "chat_histories/abc.json", Key("abc"))
}

func TestStore_GetAbsentReturnsNil(t *testing.T) {
	s := NewStore(blobstore.NewMemoryStore())
	r, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	require.Nil(t, r)
}

func TestStore_PutThenGet(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	s := NewStore(blobs)
	fixed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.Local)
	s.SetClock(func() time.Time { return fixed })

	msgs := []Message{NewHumanMessage("hello"), NewAssistantMessage("hi there")}
	err := s.Put(ctx, "t1", State{Messages: msgs, Language: "French"},
		Metadata{Timestamp: NewTimestamp(fixed), Language: "French"},
		map[string]any{"messages": len(msgs)})
	require.NoError(t, err)

	r, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, r)
	require.Len(t, r.State.Messages, 2)
	require.Equal(t, msgs[0].Kind, r.State.Messages[0].Kind)
	require.Equal(t, msgs[0].Content, r.State.Messages[0].Content)
	require.Equal(t, msgs[1].Kind, r.State.Messages[1].Kind)
	require.Equal(t, msgs[1].Content, r.State.Messages[1].Content)
	require.Equal(t, "French", r.Language("English"))
	require.Equal(t, float64(2), r.NewVersions["messages"])
	require.True(t, fixed.Equal(r.LastUpdated.Time))

	raw, err := blobs.Get(ctx, "chat_histories/t1.json")
	require.NoError(t, err)
	require.Contains(t, string(raw), `"last_updated":"2024-03-01T10:00:00.000000"`)
}

func TestStore_PutOverwritesWholeRecord(t *testing.T) {
	ctx := context.Background()
	s := NewStore(blobstore.NewMemoryStore())

	require.NoError(t, s.Put(ctx, "t1", State{Messages: []Message{NewHumanMessage("a"), NewAssistantMessage("b")}}, Metadata{Language: "German"}, nil))
	require.NoError(t, s.Put(ctx, "t1", State{Messages: []Message{NewHumanMessage("c")}}, Metadata{}, nil))

	r, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, r.State.Messages, 1)
	require.Equal(t, "c", r.State.Messages[0].Content)
	require.Equal(t, "English", r.Language("English"))
}

func TestStore_GetDecodesExistingPythonRecord(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	doc := `{"state": {"messages": [` +
		`{"_type": "HumanMessage", "content": "Hello", "additional_kwargs": {}, "type": "human"}, ` +
		`{"_type": "AIMessage", "content": "I can only answer questions about our business operations.", "additional_kwargs": {}, "type": "ai"}` +
		`], "language": "English"}, ` +
		`"metadata": {"timestamp": "2024-05-06T07:08:09.123456", "language": "Spanish"}, ` +
		`"new_versions": {"messages": 2}, "last_updated": "2024-05-06T07:08:09.654321"}`
	require.NoError(t, blobs.Put(ctx, Key("py"), []byte(doc), "application/json"))

	r, err := NewStore(blobs).Get(ctx, "py")
	require.NoError(t, err)
	require.Len(t, r.State.Messages, 2)
	require.True(t, r.State.Messages[0].IsHuman())
	require.True(t, r.State.Messages[1].IsAssistant())
	require.Equal(t, "Spanish", r.Language("English"))
	require.Equal(t, 123456000, r.Metadata.Timestamp.Nanosecond())
}

func TestStore_GetLegacyStateOnlyDocument(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	doc := `{"messages": [{"_type": "HumanMessage", "content": "Hi", "additional_kwargs": {}, "type": "human"}], "language": "Italian"}`
	require.NoError(t, blobs.Put(ctx, Key("legacy"), []byte(doc), "application/json"))

	r, err := NewStore(blobs).Get(ctx, "legacy")
	require.NoError(t, err)
	require.Len(t, r.State.Messages, 1)
	require.Equal(t, "Italian", r.Language("English"))
}

func TestStore_GetUnknownTagIsStorageError(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	doc := `{"state": {"messages": [{"_type": "ToolMessage", "content": "x"}]}}`
	require.NoError(t, blobs.Put(ctx, Key("bad"), []byte(doc), "application/json"))

	_, err := NewStore(blobs).Get(ctx, "bad")
	require.Error(t, err)
	var se *StorageError
	require.True(t, stderrors.As(err, &se))
	require.Equal(t, "decode", se.Op)
	require.True(t, errors.Is(err, ErrUnknownMessageType))
}

func TestStore_BackendFailuresAreStorageErrors(t *testing.T) {
	ctx := context.Background()
	s := NewStore(failingBlobs{err: errors.New("connection reset")})

	_, err := s.Get(ctx, "t")
	var se *StorageError
	require.True(t, stderrors.As(err, &se))
	require.Equal(t, "get", se.Op)

	err = s.Put(ctx, "t", State{}, Metadata{}, nil)
	require.True(t, stderrors.As(err, &se))
	require.Equal(t, "put", se.Op)
	require.ErrorContains(t, err, "connection reset")

	_, err = s.DeleteExpired(ctx, 30)
	require.True(t, stderrors.As(err, &se))
	require.Equal(t, "cleanup", se.Op)
}

func TestStore_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	s := NewStore(blobs)

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	put := func(key string, at time.Time) {
		blobs.SetClock(func() time.Time { return at })
		require.NoError(t, blobs.Put(ctx, key, []byte(`{}`), "application/json"))
	}
	put(Key("ancient"), base.Add(-40*24*time.Hour))
	put(Key("edge"), base.Add(-30*24*time.Hour-time.Hour))   // 30 whole days: kept
	put(Key("almost"), base.Add(-31*24*time.Hour+time.Hour)) // 30 whole days: kept
	put(Key("fresh"), base.Add(-time.Hour))
	put("chat_histories/notes.txt", base.Add(-90*24*time.Hour))
	put("elsewhere/old.json", base.Add(-90*24*time.Hour))

	s.SetClock(func() time.Time { return base })
	n, err := s.DeleteExpired(ctx, 30)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	infos, err := blobs.List(ctx, "")
	require.NoError(t, err)
	keys := []string{}
	for _, info := range infos {
		keys = append(keys, info.Key)
	}
	require.ElementsMatch(t, []string{
		"chat_histories/almost.json",
		"chat_histories/edge.json",
		"chat_histories/fresh.json",
		"chat_histories/notes.txt",
		"elsewhere/old.json",
	}, keys)
}
