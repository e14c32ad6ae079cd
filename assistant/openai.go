package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sashabaranov/go-openai"

	"tds-relay/meta"
)

const defaultModel = "gpt-4o"

// OpenAIConfig describes an OpenAI compatible chat completions endpoint.
type OpenAIConfig struct {
	APIKey string
	// BaseURL is the prefix that /chat/completions is appended to.
	BaseURL      string
	Model        string
	SystemPrompt string
	HTTPClient   *http.Client
}

// CompatibleBaseURL is the OpenAI compatible prefix the assistant service exposes for an assistant.
func CompatibleBaseURL(host string, assistantName string) string {
	if host == "" {
		host = DefaultHost
	}
	if assistantName == "" {
		assistantName = DefaultAssistant
	}
	return fmt.Sprintf("%s/assistant/chat/%s", strings.TrimRight(host, "/"), url.PathEscape(assistantName))
}

// OpenAI sends questions through the chat completions API.
type OpenAI struct {
	client       *openai.Client
	model        string
	systemPrompt string
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	httpClient := &http.Client{}
	if cfg.HTTPClient != nil {
		c := *cfg.HTTPClient
		httpClient = &c
	}
	httpClient.Transport = &apiKeyTransport{apiKey: cfg.APIKey, next: httpClient.Transport}
	clientConfig.HTTPClient = httpClient

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	return &OpenAI{
		client:       openai.NewClientWithConfig(clientConfig),
		model:        model,
		systemPrompt: cfg.SystemPrompt,
	}
}

func (o *OpenAI) Chat(ctx context.Context, msg Message) (*Reply, error) {
	var image string
	if msg.Image != nil {
		image = msg.Image.Data
	}

	chatResponse, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: meta.CreateConversation(o.systemPrompt, msg.Content, image),
	})
	if err != nil {
		return nil, &ServiceError{StatusCode: statusOf(err), Err: err}
	}
	if len(chatResponse.Choices) == 0 {
		return nil, &ServiceError{Err: errors.New("chat completion returned no choices")}
	}

	return &Reply{
		Content:      TextContent(chatResponse.Choices[0].Message.Content),
		Model:        chatResponse.Model,
		FinishReason: string(chatResponse.Choices[0].FinishReason),
	}, nil
}

func statusOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// apiKeyTransport adds the Api-Key header the assistant service authenticates with, next to the
// bearer token go-openai always sends.
type apiKeyTransport struct {
	apiKey string
	next   http.RoundTripper
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	req = req.Clone(req.Context())
	req.Header.Set("Api-Key", t.apiKey)
	return next.RoundTrip(req)
}
