package checkpoint

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Kind discriminates the two message variants a transcript may hold.
type Kind int

const (
	KindHuman Kind = iota + 1
	KindAssistant
)

// Wire tags of the tagged-union encoding.
const (
	TypeTagHuman     = "HumanMessage"
	TypeTagAssistant = "AIMessage"

	roleTagHuman     = "human"
	roleTagAssistant = "ai"
)

var (
	ErrUnknownMessageType = errors.New("checkpoint: unknown message type")
	ErrMalformedMessage   = errors.New("checkpoint: malformed message")
)

func (k Kind) String() string {
	switch k {
	case KindHuman:
		return "human"
	case KindAssistant:
		return "assistant"
	default:
		return "unknown"
	}
}

// TypeTag is the value written to the "_type" field.
func (k Kind) TypeTag() string {
	switch k {
	case KindHuman:
		return TypeTagHuman
	case KindAssistant:
		return TypeTagAssistant
	default:
		return ""
	}
}

// RoleTag is the value written to the "type" field.
func (k Kind) RoleTag() string {
	switch k {
	case KindHuman:
		return roleTagHuman
	case KindAssistant:
		return roleTagAssistant
	default:
		return ""
	}
}

// Message is one transcript entry. It is treated as immutable once appended.
type Message struct {
	Kind             Kind
	Content          string
	AdditionalKwargs map[string]any
}

func NewHumanMessage(content string) Message {
	return Message{Kind: KindHuman, Content: content}
}

func NewAssistantMessage(content string) Message {
	return Message{Kind: KindAssistant, Content: content}
}

func (m Message) IsHuman() bool     { return m.Kind == KindHuman }
func (m Message) IsAssistant() bool { return m.Kind == KindAssistant }

// wireMessage fixes the field order of the stored encoding.
type wireMessage struct {
	Type             string         `json:"_type"`
	Content          string         `json:"content"`
	AdditionalKwargs map[string]any `json:"additional_kwargs"`
	Role             string         `json:"type"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	tag := m.Kind.TypeTag()
	if tag == "" {
		return nil, errors.Wrapf(ErrUnknownMessageType, "kind %d", int(m.Kind))
	}
	kw := m.AdditionalKwargs
	if kw == nil {
		kw = map[string]any{}
	}
	return json.Marshal(wireMessage{
		Type:             tag,
		Content:          m.Content,
		AdditionalKwargs: kw,
		Role:             m.Kind.RoleTag(),
	})
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(ErrMalformedMessage, err.Error())
	}
	rawTag, ok := raw["_type"]
	if !ok {
		return errors.Wrap(ErrMalformedMessage, "missing _type")
	}
	var tag string
	if err := json.Unmarshal(rawTag, &tag); err != nil {
		return errors.Wrap(ErrMalformedMessage, "_type is not a string")
	}

	var kind Kind
	switch tag {
	case TypeTagHuman:
		kind = KindHuman
	case TypeTagAssistant:
		kind = KindAssistant
	default:
		return errors.Wrapf(ErrUnknownMessageType, "%q", tag)
	}

	var content string
	if rc, ok := raw["content"]; ok {
		if err := json.Unmarshal(rc, &content); err != nil {
			return errors.Wrap(ErrMalformedMessage, "content is not a string")
		}
	}
	var kw map[string]any
	if rk, ok := raw["additional_kwargs"]; ok {
		if err := json.Unmarshal(rk, &kw); err != nil {
			return errors.Wrap(ErrMalformedMessage, "additional_kwargs is not an object")
		}
	}
	*m = Message{Kind: kind, Content: content, AdditionalKwargs: kw}
	return nil
}

// EncodeMessage writes one message in the tagged-union layout.
func EncodeMessage(m Message) ([]byte, error) {
	return m.MarshalJSON()
}

// DecodeMessage reads one tagged-union message; unknown tags are an error.
func DecodeMessage(data []byte) (Message, error) {
	var m Message
	if err := m.UnmarshalJSON(data); err != nil {
		return Message{}, err
	}
	return m, nil
}
