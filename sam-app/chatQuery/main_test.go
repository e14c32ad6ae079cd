package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"tds-relay/assistant"
	"tds-relay/service/query"
)

type fakeAssistant struct {
	content assistant.Content
	err     error
	calls   int
}

func (f *fakeAssistant) Chat(_ context.Context, _ assistant.Message) (*assistant.Reply, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &assistant.Reply{Content: f.content}, nil
}

func newHandler(fake *fakeAssistant, frontend bool) *lambdaHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &lambdaHandler{
		relay:         query.NewRelay(fake, logger),
		logger:        logger,
		serveFrontend: frontend,
	}
}

func TestHandlerQuery(t *testing.T) {
	fake := &fakeAssistant{content: assistant.TextContent(`{"answer": "hi there", "links": [{"url": "https://example.com"}]}`)}
	h := newHandler(fake, true)

	resp, err := h.handler(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/api/",
		Body:       `{"question":"hello","image":null}`,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body = %s", resp.StatusCode, resp.Body)
	}
	if resp.Body != `{"answer":"hi there","links":[{"url":"https://example.com"}]}` {
		t.Fatalf("unexpected body %s", resp.Body)
	}
	if resp.Headers["Access-Control-Allow-Origin"] != "*" {
		t.Fatalf("missing cors headers %v", resp.Headers)
	}
}

func TestHandlerBase64Body(t *testing.T) {
	fake := &fakeAssistant{content: assistant.TextContent(`{"answer":"a","links":[]}`)}
	h := newHandler(fake, true)

	resp, _ := h.handler(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:      http.MethodPost,
		Path:            "/api/",
		Body:            base64.StdEncoding.EncodeToString([]byte(`{"question":"hello"}`)),
		IsBase64Encoded: true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body = %s", resp.StatusCode, resp.Body)
	}
}

func TestHandlerFailures(t *testing.T) {
	cases := []struct {
		name   string
		fake   *fakeAssistant
		path   string
		body   string
		status int
		detail string
		calls  int
	}{
		{
			name:   "missing question",
			fake:   &fakeAssistant{},
			body:   `{}`,
			status: http.StatusUnprocessableEntity,
			detail: "question",
		},
		{
			name:   "service error",
			fake:   &fakeAssistant{err: &assistant.ServiceError{Err: errors.New("connection reset by peer")}},
			body:   `{"question":"hello"}`,
			status: http.StatusInternalServerError,
			detail: "connection reset by peer",
			calls:  1,
		},
		{
			name:   "malformed reply",
			fake:   &fakeAssistant{content: assistant.TextContent(`{"answer":"hi"}`)},
			body:   `{"question":"hello"}`,
			status: http.StatusInternalServerError,
			detail: "missing links",
			calls:  1,
		},
		{
			name:   "post to liveness path",
			fake:   &fakeAssistant{content: assistant.TextContent(`{"answer":"a","links":[]}`)},
			path:   "/api/test",
			body:   `{"question":"hello"}`,
			status: http.StatusNotFound,
			detail: "Not Found",
		},
		{
			name:   "post to unknown path",
			fake:   &fakeAssistant{content: assistant.TextContent(`{"answer":"a","links":[]}`)},
			path:   "/anything",
			body:   `{"question":"hello"}`,
			status: http.StatusNotFound,
			detail: "Not Found",
		},
		{
			name:   "post to root",
			fake:   &fakeAssistant{content: assistant.TextContent(`{"answer":"a","links":[]}`)},
			path:   "/",
			body:   `{"question":"hello"}`,
			status: http.StatusNotFound,
			detail: "Not Found",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := tc.path
			if path == "" {
				path = "/api/"
			}
			h := newHandler(tc.fake, true)
			resp, err := h.handler(context.Background(), events.APIGatewayProxyRequest{
				HTTPMethod: http.MethodPost,
				Path:       path,
				Body:       tc.body,
			})
			if err != nil {
				t.Fatalf("errors are reported in the body, got %v", err)
			}
			if resp.StatusCode != tc.status {
				t.Fatalf("status = %d body = %s", resp.StatusCode, resp.Body)
			}
			var failure query.ErrorBody
			if err := json.Unmarshal([]byte(resp.Body), &failure); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !strings.Contains(failure.Detail, tc.detail) {
				t.Fatalf("detail %q does not mention %q", failure.Detail, tc.detail)
			}
			if tc.fake.calls != tc.calls {
				t.Fatalf("calls = %d want %d", tc.fake.calls, tc.calls)
			}
		})
	}
}

func TestHandlerGetRoutes(t *testing.T) {
	h := newHandler(&fakeAssistant{}, true)

	resp, _ := h.handler(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet, Path: "/api/test"})
	if resp.StatusCode != http.StatusOK || resp.Body != `{"response":"Test Done"}` {
		t.Fatalf("unexpected liveness response %d %s", resp.StatusCode, resp.Body)
	}

	resp, _ = h.handler(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet, Path: "/"})
	if !strings.HasPrefix(resp.Headers["Content-Type"], "text/html") {
		t.Fatalf("expected the chat page, got %v", resp.Headers)
	}

	h.serveFrontend = false
	resp, _ = h.handler(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet, Path: "/"})
	if resp.Headers["Content-Type"] != "application/json" {
		t.Fatalf("expected JSON, got %v", resp.Headers)
	}

	resp, _ = h.handler(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodOptions, Path: "/api/"})
	if resp.StatusCode != http.StatusNoContent || resp.Headers["Access-Control-Allow-Headers"] != "*" {
		t.Fatalf("unexpected preflight response %d %v", resp.StatusCode, resp.Headers)
	}

	unknown := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/nope"},
		{http.MethodGet, "/api/"},
		{http.MethodGet, "/api/test/extra"},
		{http.MethodDelete, "/api/"},
	}
	h.serveFrontend = true
	for _, tc := range unknown {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			resp, _ := h.handler(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: tc.method, Path: tc.path})
			if resp.StatusCode != http.StatusNotFound {
				t.Fatalf("status = %d body = %s", resp.StatusCode, resp.Body)
			}
			if resp.Headers["Content-Type"] != "application/json" || resp.Body != `{"detail":"Not Found"}` {
				t.Fatalf("unexpected not found response %v %s", resp.Headers, resp.Body)
			}
		})
	}
}

func TestHandlerQueryPathVariants(t *testing.T) {
	for _, path := range []string{"/api", "/api/"} {
		fake := &fakeAssistant{content: assistant.TextContent(`{"answer":"a","links":[]}`)}
		h := newHandler(fake, true)
		resp, _ := h.handler(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodPost, Path: path, Body: `{"question":"hello"}`})
		if resp.StatusCode != http.StatusOK || fake.calls != 1 {
			t.Fatalf("%s: status = %d calls = %d", path, resp.StatusCode, fake.calls)
		}
	}
}
