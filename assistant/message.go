package assistant

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const RoleUser = "user"

// Image carries a base64 encoded picture exactly as the caller supplied it.
type Image struct {
	Data string `json:"data"`
}

// Message is a single chat turn sent to the assistant service.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Image   *Image `json:"image,omitempty"`
}

// NewUserMessage builds the one message conversation sent for every question. An empty image is
// treated as absent.
func NewUserMessage(question string, image string) Message {
	msg := Message{
		Role:    RoleUser,
		Content: question,
	}
	if image != "" {
		msg.Image = &Image{Data: image}
	}
	return msg
}

// Content is the body of an assistant reply, which is either a JSON encoded string or an already
// structured JSON value.
type Content struct {
	text       string
	structured json.RawMessage
}

func TextContent(text string) Content {
	return Content{text: text}
}

func StructuredContent(raw json.RawMessage) Content {
	return Content{structured: raw}
}

// Structured returns the raw JSON value when the reply was not a string.
func (c Content) Structured() (json.RawMessage, bool) {
	return c.structured, c.structured != nil
}

func (c Content) Text() string {
	return c.text
}

func (c Content) String() string {
	if raw, ok := c.Structured(); ok {
		return string(raw)
	}
	return c.text
}

// contentFromJSON splits a reply body on its JSON type. Anything other than a string is kept as a
// structured value and left for the caller to validate, including null.
func contentFromJSON(raw json.RawMessage) (Content, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return StructuredContent(json.RawMessage("null")), nil
	}
	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return Content{}, fmt.Errorf("failed to decode reply content: %w", err)
		}
		return TextContent(text), nil
	}
	return StructuredContent(append(json.RawMessage(nil), trimmed...)), nil
}

// Reply is the raw answer of the assistant service, before any normalization.
type Reply struct {
	Content      Content
	Model        string
	FinishReason string
}
