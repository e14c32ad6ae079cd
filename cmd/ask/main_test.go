package ask

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"
)

func runAsk(t *testing.T, out *bytes.Buffer, args ...string) error {
	t.Helper()
	app := &cli.App{
		Name:   "tds-relay",
		Writer: out,
		Commands: []*cli.Command{
			{Name: "ask", Flags: Flags(), Action: Ask},
		},
	}
	return app.Run(append([]string{"tds-relay", "ask"}, args...))
}

func TestAsk(t *testing.T) {
	var sent struct {
		Messages []map[string]any `json:"messages"`
		Stream   *bool            `json:"stream"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&sent); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"{\"answer\":\"hi there\",\"links\":[{\"url\":\"https://example.com\"}]}"}}`))
	}))
	defer srv.Close()

	imagePath := filepath.Join(t.TempDir(), "pic.png")
	if err := os.WriteFile(imagePath, []byte("png bytes"), 0644); err != nil {
		t.Fatalf("write image: %v", err)
	}

	var out bytes.Buffer
	err := runAsk(t, &out, "--api-key", "k", "--host", srv.URL, "--image", imagePath, "what", "is", "this?")
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}

	if sent.Stream == nil || *sent.Stream {
		t.Fatalf("stream should be sent as false, got %v", sent.Stream)
	}
	if len(sent.Messages) != 1 {
		t.Fatalf("expected one message, got %d", len(sent.Messages))
	}
	msg := sent.Messages[0]
	if msg["content"] != "what is this?" {
		t.Fatalf("unexpected question %v", msg["content"])
	}
	image, _ := msg["image"].(map[string]any)
	if image["data"] != base64.StdEncoding.EncodeToString([]byte("png bytes")) {
		t.Fatalf("unexpected image %v", msg["image"])
	}

	var printed map[string]any
	if err := json.Unmarshal(out.Bytes(), &printed); err != nil {
		t.Fatalf("output is not JSON: %s", out.String())
	}
	if printed["answer"] != "hi there" {
		t.Fatalf("unexpected output %s", out.String())
	}
}

func TestAskFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"plain words"}}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	err := runAsk(t, &out, "--api-key", "k", "--host", srv.URL, "hello")
	if err == nil || !strings.Contains(err.Error(), "malformed assistant reply") {
		t.Fatalf("expected a malformed reply error, got %v", err)
	}
}

func TestAskRequiresQuestion(t *testing.T) {
	var out bytes.Buffer
	if err := runAsk(t, &out, "--api-key", "k"); err == nil {
		t.Fatalf("expected an error without a question")
	}
}
