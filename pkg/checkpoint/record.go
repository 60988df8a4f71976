package checkpoint

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// TimestampLayout is the naive local ISO-8601 layout of timestamps in stored records.
const TimestampLayout = "2006-01-02T15:04:05.000000"

var acceptedTimestampLayouts = []string{
	TimestampLayout,
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
}

// Timestamp marshals as a naive local ISO-8601 string with microseconds.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp { return Timestamp{Time: t} }

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Local().Format(TimestampLayout))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Wrap(err, "timestamp is not a string")
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = Timestamp{Time: parsed}
	return nil
}

// ParseTimestamp accepts the stored layout with or without microseconds, and RFC 3339.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range acceptedTimestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("unrecognized timestamp %q", s)
}

// State is the conversational payload of a checkpoint.
type State struct {
	Messages []Message `json:"messages"`
	Language string    `json:"language,omitempty"`
}

// Metadata accompanies the state of a checkpoint.
type Metadata struct {
	Timestamp Timestamp `json:"timestamp"`
	Language  string    `json:"language,omitempty"`
}

// Record is the persisted unit, one per session, replaced wholesale on every write.
type Record struct {
	State       State          `json:"state"`
	Metadata    Metadata       `json:"metadata"`
	NewVersions map[string]any `json:"new_versions"`
	LastUpdated Timestamp      `json:"last_updated"`
}

// Language returns the metadata language, then the state language, then fallback.
func (r *Record) Language(fallback string) string {
	if r == nil {
		return fallback
	}
	if l := strings.TrimSpace(r.Metadata.Language); l != "" {
		return l
	}
	if l := strings.TrimSpace(r.State.Language); l != "" {
		return l
	}
	return fallback
}

// EncodeRecord serializes a record in the stored layout.
func EncodeRecord(r *Record) ([]byte, error) {
	if r == nil {
		return nil, errors.New("checkpoint: nil record")
	}
	out := *r
	if out.NewVersions == nil {
		out.NewVersions = map[string]any{}
	}
	if out.State.Messages == nil {
		out.State.Messages = []Message{}
	}
	return json.Marshal(out)
}

// DecodeRecord parses a stored record. Documents without a "state" key are legacy
// state-only payloads and are wrapped into an otherwise empty record.
func DecodeRecord(data []byte) (*Record, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, errors.Wrap(err, "checkpoint: decode record")
	}
	if _, ok := probe["state"]; !ok {
		var st State
		if err := json.Unmarshal(data, &st); err != nil {
			return nil, errors.Wrap(err, "checkpoint: decode legacy state")
		}
		return &Record{State: st}, nil
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(err, "checkpoint: decode record")
	}
	return &r, nil
}
