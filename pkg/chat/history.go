package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	RoleHuman     = "human"
	RoleAssistant = "assistant"
)

// TranscriptMessage is a transcript entry prepared for display.
type TranscriptMessage struct {
	Content   string    `json:"content"`
	Role      string    `json:"role"`
	Timestamp time.Time `json:"timestamp"`
}

type Transcript struct {
	ThreadID string              `json:"thread_id"`
	Messages []TranscriptMessage `json:"messages"`
	Language string              `json:"language"`
}

// History rebuilds a session transcript straight from the checkpoint store.
// Missing or unreadable records give an empty transcript in DefaultLanguage.
//
// Stored messages carry no send time, so every human/assistant pair is stamped
// with the time it was rebuilt.
func (s *Service) History(ctx context.Context, threadID string) Transcript {
	out := Transcript{ThreadID: threadID, Messages: []TranscriptMessage{}, Language: DefaultLanguage}

	rec, err := s.store.Get(ctx, threadID)
	if err != nil {
		log.Error().Err(err).Str("thread_id", threadID).Msg("error retrieving chat history")
		return out
	}
	if rec == nil || rec.State.Messages == nil {
		log.Info().Str("thread_id", threadID).Msg("no chat history found for thread")
		return out
	}

	msgs := rec.State.Messages
	for i := 0; i < len(msgs); i += 2 {
		human := msgs[i]
		if !human.IsHuman() {
			continue
		}
		stamp := s.now()
		out.Messages = append(out.Messages, TranscriptMessage{Content: human.Content, Role: RoleHuman, Timestamp: stamp})
		if i+1 < len(msgs) {
			out.Messages = append(out.Messages, TranscriptMessage{Content: msgs[i+1].Content, Role: RoleAssistant, Timestamp: stamp})
		}
	}
	out.Language = rec.Language(DefaultLanguage)
	return out
}
