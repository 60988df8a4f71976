package checkpoint

import (
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestMessage_MarshalUsesTaggedLayout(t *testing.T) {
	b, err := json.Marshal(NewHumanMessage("hi"))
	require.NoError(t, err)
	require.Equal(t, `{"_type":"HumanMessage","content":"hi","additional_kwargs":{},"type":"human"}`, string(b))

	b, err = json.Marshal(Message{Kind: KindAssistant, Content: "yo", AdditionalKwargs: map[string]any{"k": "v"}})
	require.NoError(t, err)
	require.Equal(t, `{"_type":"AIMessage","content":"yo","additional_kwargs":{"k":"v"},"type":"ai"}`, string(b))
}

func TestMessage_MarshalRejectsUnknownKind(t *testing.T) {
	_, err := json.Marshal(Message{Content: "x"})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnknownMessageType))
}

func TestMessage_RoundTrip(t *testing.T) {
	in := []Message{
		NewHumanMessage("What time do you open?"),
		{Kind: KindAssistant, Content: "9 to 5", AdditionalKwargs: map[string]any{"source": "kb"}},
	}
	b, err := json.Marshal(in)
	require.NoError(t, err)

	var out []Message
	require.NoError(t, json.Unmarshal(b, &out))
	require.Len(t, out, 2)
	require.True(t, out[0].IsHuman())
	require.Equal(t, "What time do you open?", out[0].Content)
	require.True(t, out[1].IsAssistant())
	require.Equal(t, "9 to 5", out[1].Content)
	require.Equal(t, "kb", out[1].AdditionalKwargs["source"])
}

func TestMessage_UnmarshalDispatchesOnTypeTag(t *testing.T) {
	// the "type" field is informational; "_type" decides the variant
	var m Message
	require.NoError(t, json.Unmarshal([]byte(`{"_type":"AIMessage","content":"a","additional_kwargs":{},"type":"human"}`), &m))
	require.Equal(t, KindAssistant, m.Kind)
}

func TestMessage_UnmarshalErrors(t *testing.T) {
	cases := map[string]struct {
		in   string
		want error
	}{
		"unknown tag":      {in: `{"_type":"SystemMessage","content":"x"}`, want: ErrUnknownMessageType},
		"missing tag":      {in: `{"content":"x"}`, want: ErrMalformedMessage},
		"non-string tag":   {in: `{"_type":3}`, want: ErrMalformedMessage},
		"non-string body":  {in: `{"_type":"HumanMessage","content":["a"]}`, want: ErrMalformedMessage},
		"not an object":    {in: `"HumanMessage"`, want: ErrMalformedMessage},
		"bad kwargs shape": {in: `{"_type":"HumanMessage","content":"a","additional_kwargs":[1]}`, want: ErrMalformedMessage},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var m Message
			err := json.Unmarshal([]byte(tc.in), &m)
			require.Error(t, err)
			require.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestKind_Strings(t *testing.T) {
	require.Equal(t, "human", KindHuman.String())
	require.Equal(t, "assistant", KindAssistant.String())
	require.Equal(t, "unknown", Kind(0).String())
}

func TestEncodeDecodeMessage(t *testing.T) {
	data, err := EncodeMessage(NewAssistantMessage("hi"))
	require.NoError(t, err)
	require.JSONEq(t, `{"_type":"AIMessage","content":"hi","additional_kwargs":{},"type":"ai"}`, string(data))

	m, err := DecodeMessage(data)
	require.NoError(t, err)
	require.True(t, m.IsAssistant())
	require.Equal(t, "hi", m.Content)

	_, err = DecodeMessage([]byte(`{"_type":"SystemMessage","content":"x"}`))
	require.ErrorIs(t, err, ErrUnknownMessageType)
}
