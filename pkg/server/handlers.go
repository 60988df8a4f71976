package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/faqchat/pkg/chat"
	"github.com/go-go-golems/faqchat/pkg/checkpoint"
)

// ChatService is the chat surface used by the HTTP handlers.
type ChatService interface {
	Process(ctx context.Context, req chat.Request) (chat.Response, error)
	History(ctx context.Context, threadID string) chat.Transcript
}

var _ ChatService = &chat.Service{}

const maxBodyBytes = 1 << 20

type chatRequest struct {
	Message  *string        `json:"message"`
	Language optionalString `json:"language"`
	ThreadID *string        `json:"thread_id"`
}

// optionalString is a string that remembers whether it was sent and whether it was null.
type optionalString struct {
	Set   bool
	Null  bool
	Value string
}

func (f *optionalString) UnmarshalJSON(data []byte) error {
	f.Set = true
	if string(data) == "null" {
		f.Null = true
		return nil
	}
	return json.Unmarshal(data, &f.Value)
}

type chatResponse struct {
	Response  string               `json:"response"`
	Language  string               `json:"language"`
	Timestamp checkpoint.Timestamp `json:"timestamp"`
	ThreadID  string               `json:"thread_id"`
}

type historyMessage struct {
	Content   string               `json:"content"`
	Role      string               `json:"role"`
	Timestamp checkpoint.Timestamp `json:"timestamp"`
}

type historyResponse struct {
	ThreadID string           `json:"thread_id"`
	Messages []historyMessage `json:"messages"`
	Language string           `json:"language"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// NewHandler mounts the chat API on a fresh mux and wraps it with the request id,
// access log and CORS middlewares.
func NewHandler(svc ChatService) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", NewChatHTTPHandler(svc))
	mux.HandleFunc("GET /chat/history/{thread_id}", NewHistoryHTTPHandler(svc))
	mux.HandleFunc("GET /health", HealthHandler)
	return RequestID(AccessLog(CORS(mux)))
}

func NewChatHTTPHandler(svc ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if svc == nil {
			writeDetail(w, http.StatusServiceUnavailable, "chat service not initialized")
			return
		}
		in, err := decodeChatRequest(req.Body)
		if err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		r := chat.Request{Message: *in.Message}
		if in.Language.Set {
			r.Language = in.Language.Value
		}
		if in.ThreadID != nil {
			r.ThreadID = *in.ThreadID
		}
		resp, err := svc.Process(req.Context(), r)
		if err != nil {
			log.Error().Err(err).Str("request_id", RequestIDFrom(req.Context())).Msg("chat request failed")
			writeDetail(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, chatResponse{
			Response:  resp.Response,
			Language:  resp.Language,
			Timestamp: checkpoint.NewTimestamp(resp.Timestamp),
			ThreadID:  resp.ThreadID,
		})
	}
}

func decodeChatRequest(body io.Reader) (chatRequest, error) {
	var in chatRequest
	dec := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	if err := dec.Decode(&in); err != nil {
		var typeErr *json.UnmarshalTypeError
		if stderrors.As(err, &typeErr) {
			return in, errors.Errorf("%s: expected a string", typeErr.Field)
		}
		return in, errors.Errorf("invalid JSON body: %v", err)
	}
	if in.Message == nil {
		return in, errors.New("message: field required")
	}
	if in.Language.Null {
		return in, errors.New("language: expected a string")
	}
	return in, nil
}

func NewHistoryHTTPHandler(svc ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if svc == nil {
			writeDetail(w, http.StatusServiceUnavailable, "chat service not initialized")
			return
		}
		threadID := strings.TrimSpace(req.PathValue("thread_id"))
		tr := svc.History(req.Context(), threadID)
		if len(tr.Messages) == 0 {
			writeDetail(w, http.StatusNotFound, fmt.Sprintf("No chat history found for thread %s", threadID))
			return
		}
		out := historyResponse{
			ThreadID: tr.ThreadID,
			Messages: make([]historyMessage, 0, len(tr.Messages)),
			Language: tr.Language,
		}
		for _, m := range tr.Messages {
			out.Messages = append(out.Messages, historyMessage{
				Content:   m.Content,
				Role:      m.Role,
				Timestamp: checkpoint.NewTimestamp(m.Timestamp),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("response write failed")
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
