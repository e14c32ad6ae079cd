package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	DefaultHost      = "https://prod-1-data.ke.pinecone.io"
	DefaultAssistant = "tds-virtual-assistant"

	apiVersion = "2025-01"
	defaultUA  = "tds-relay/1.0"
)

// Pinecone talks to the native assistant chat endpoint.
type Pinecone struct {
	apiKey    string
	assistant string
	host      string
	model     string
	ua        string
	http      *http.Client
}

// Option configures a Pinecone client.
type Option func(*Pinecone)

// WithHost overrides the data plane host (useful for testing).
func WithHost(host string) Option {
	return func(p *Pinecone) { p.host = strings.TrimRight(host, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(p *Pinecone) { p.http = h }
}

// WithModel asks the assistant to answer with a specific model instead of its own default.
func WithModel(model string) Option {
	return func(p *Pinecone) { p.model = model }
}

func WithUserAgent(ua string) Option {
	return func(p *Pinecone) { p.ua = ua }
}

// NewPinecone returns a client for the named assistant. The underlying http.Client has no timeout,
// a hung call holds the request open until the caller's context is done.
func NewPinecone(apiKey string, assistantName string, opts ...Option) *Pinecone {
	p := &Pinecone{
		apiKey:    apiKey,
		assistant: assistantName,
		host:      DefaultHost,
		ua:        defaultUA,
		http:      &http.Client{},
	}
	if p.assistant == "" {
		p.assistant = DefaultAssistant
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

type chatRequest struct {
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Model    string    `json:"model,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Message *struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
	Model        string `json:"model"`
	FinishReason string `json:"finish_reason"`
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

// Chat sends a single message conversation and returns the reply as it was received.
func (p *Pinecone) Chat(ctx context.Context, msg Message) (*Reply, error) {
	if p.apiKey == "" {
		return nil, &ServiceError{Err: errors.New("api key is empty")}
	}

	body, err := json.Marshal(chatRequest{
		Messages: []Message{msg},
		Model:    p.model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/assistant/chat/%s", p.host, url.PathEscape(p.assistant))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &ServiceError{Err: err}
	}
	req.Header.Set("Api-Key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Pinecone-API-Version", apiVersion)
	req.Header.Set("User-Agent", p.ua)

	res, err := p.http.Do(req)
	if err != nil {
		return nil, &ServiceError{Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
		return nil, &ServiceError{StatusCode: res.StatusCode, Err: errors.New(errorMessage(b))}
	}

	var decoded chatResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, &ServiceError{StatusCode: res.StatusCode, Err: fmt.Errorf("failed to decode chat response: %w", err)}
	}
	if decoded.Message == nil {
		return nil, &ServiceError{StatusCode: res.StatusCode, Err: errors.New("chat response has no message")}
	}

	content, err := contentFromJSON(decoded.Message.Content)
	if err != nil {
		return nil, &ServiceError{StatusCode: res.StatusCode, Err: err}
	}

	return &Reply{
		Content:      content,
		Model:        decoded.Model,
		FinishReason: decoded.FinishReason,
	}, nil
}

func errorMessage(body []byte) string {
	var e apiError
	if err := json.Unmarshal(body, &e); err == nil {
		switch {
		case e.Error.Message != "" && e.Error.Code != "":
			return fmt.Sprintf("%s: %s", e.Error.Code, e.Error.Message)
		case e.Error.Message != "":
			return e.Error.Message
		case e.Message != "":
			return e.Message
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return "empty error response"
}
