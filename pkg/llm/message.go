package llm

import (
	"encoding/base64"
	"strings"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Request is one chat completion call. Model falls back to the client default.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	// JSON asks the endpoint for a json_object response format.
	JSON bool
}

// Message is a chat message. Content is either a string or a []Part.
type Message struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

// Part is one element of a multimodal message.
type Part struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

// System builds a system message.
func System(text string) Message { return Message{Role: RoleSystem, Content: text} }

// User builds a plain text user message.
func User(text string) Message { return Message{Role: RoleUser, Content: text} }

// UserWithImage builds a user message carrying text and an inline image.
func UserWithImage(text, mimeType string, data []byte) Message {
	parts := []Part{}
	if strings.TrimSpace(text) != "" {
		parts = append(parts, Part{Type: "text", Text: text})
	}
	parts = append(parts, Part{Type: "image_url", ImageURL: &ImageURL{URL: DataURL(mimeType, data)}})
	return Message{Role: RoleUser, Content: parts}
}

// DataURL encodes data as a base64 data URL.
func DataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Messages prepends a system prompt when one is set.
func Messages(systemPrompt string, msgs ...Message) []Message {
	out := make([]Message, 0, len(msgs)+1)
	if strings.TrimSpace(systemPrompt) != "" {
		out = append(out, System(systemPrompt))
	}
	return append(out, msgs...)
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}
