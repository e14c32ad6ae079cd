package meta

import (
	"encoding/base64"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sashabaranov/go-openai"
)

const (
	// Enough base64 text to cover every signature mimetype knows about for images.
	sniffLength = 512

	fallbackImageType = "image/png"
)

// CreateConversation builds the chat completion messages for a single question. The base prompt is
// only added when one is configured, the assistant service normally carries its own instructions.
func CreateConversation(basePrompt string, userQuery string, image string) []openai.ChatCompletionMessage {
	var contextMessages []openai.ChatCompletionMessage
	if basePrompt != "" {
		contextMessages = append(contextMessages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: basePrompt,
		})
	}

	if image == "" {
		return append(contextMessages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: userQuery,
		})
	}

	return append(contextMessages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{
				Type: openai.ChatMessagePartTypeText,
				Text: userQuery,
			},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    ImageDataURL(image),
					Detail: openai.ImageURLDetailAuto,
				},
			},
		},
	})
}

// ImageDataURL wraps a base64 payload in a data URL. Only the leading bytes are decoded to guess the
// content type, the payload itself is passed through untouched.
func ImageDataURL(image string) string {
	return "data:" + sniffImageType(image) + ";base64," + image
}

func sniffImageType(image string) string {
	prefix := image
	if len(prefix) > sniffLength {
		prefix = prefix[:sniffLength]
	}
	prefix = prefix[:len(prefix)-len(prefix)%4]

	head, err := base64.StdEncoding.DecodeString(prefix)
	if err != nil || len(head) == 0 {
		return fallbackImageType
	}

	detected := mimetype.Detect(head).String()
	if !strings.HasPrefix(detected, "image/") {
		return fallbackImageType
	}
	return detected
}
