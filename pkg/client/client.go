package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/go-go-golems/faqchat/pkg/checkpoint"
)

const DefaultBaseURL = "http://localhost:8000"

// Client talks to a running faqchat server.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

type ChatRequest struct {
	Message  string `json:"message"`
	Language string `json:"language,omitempty"`
	ThreadID string `json:"thread_id,omitempty"`
}

type ChatReply struct {
	Response  string               `json:"response"`
	Language  string               `json:"language"`
	Timestamp checkpoint.Timestamp `json:"timestamp"`
	ThreadID  string               `json:"thread_id"`
}

type HistoryMessage struct {
	Content   string               `json:"content"`
	Role      string               `json:"role"`
	Timestamp checkpoint.Timestamp `json:"timestamp"`
}

type History struct {
	ThreadID string           `json:"thread_id"`
	Messages []HistoryMessage `json:"messages"`
	Language string           `json:"language"`
}

// APIError is a non-2xx answer carrying the server's detail message.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("faqchat: %d %s: %s", e.Status, http.StatusText(e.Status), e.Detail)
}

func (c *Client) Chat(ctx context.Context, req ChatRequest) (ChatReply, error) {
	var out ChatReply
	body, err := json.Marshal(req)
	if err != nil {
		return out, errors.Wrap(err, "encode chat request")
	}
	err = c.do(ctx, http.MethodPost, "/chat", bytes.NewReader(body), &out)
	return out, err
}

func (c *Client) History(ctx context.Context, threadID string) (History, error) {
	var out History
	err := c.do(ctx, http.MethodGet, "/chat/history/"+url.PathEscape(threadID), nil, &out)
	return out, err
}

func (c *Client) Health(ctx context.Context) error {
	var out map[string]string
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return err
	}
	if out["status"] != "healthy" {
		return errors.Errorf("faqchat: unexpected health status %q", out["status"])
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return errors.Wrap(err, "read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Detail: strings.TrimSpace(string(data))}
		var detail struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(data, &detail) == nil && detail.Detail != "" {
			apiErr.Detail = detail.Detail
		}
		return apiErr
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}
