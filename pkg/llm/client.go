// Package llm is a small client for OpenAI-compatible chat completion
// endpoints, shared by the relevance judge, the query extractor and the
// proof verifier.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
)

const (
	DefaultModel    = "gpt-4.1-mini"
	DefaultEndpoint = "https://api.openai.com/v1/chat/completions"

	defaultTimeout  = 45 * time.Second
	defaultRetryMax = 3
)

var (
	// ErrBlocked is returned when the provider refused to answer on
	// moderation grounds.
	ErrBlocked = errors.New("llm: response blocked by moderation")
	// ErrEmptyResponse is returned when the reply carries no content.
	ErrEmptyResponse = errors.New("llm: empty response")
)

// Logger is the subset of a leveled logger the client uses.
type Logger interface {
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}

// Config controls how the client talks to the endpoint.
type Config struct {
	APIKey   string
	Model    string
	Endpoint string

	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// HTTPClient replaces the transport client used under the retry layer.
	HTTPClient *http.Client
	Log        Logger
}

// Completer returns the assistant message for a chat request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Client is a Completer backed by an HTTP endpoint.
type Client struct {
	apiKey   string
	model    string
	endpoint string
	http     *retryablehttp.Client
	log      Logger
}

// New builds a client. An API key is required.
func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("llm client requires an API key (set llm.api_key in config or OPENAI_API_KEY)")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	retryClient := retryablehttp.NewClient()
	retryClient.Logger = log.New(io.Discard, "", 0)
	retryClient.RetryMax = defaultRetryMax
	if cfg.RetryMax > 0 {
		retryClient.RetryMax = cfg.RetryMax
	} else if cfg.RetryMax < 0 {
		retryClient.RetryMax = 0
	}
	if cfg.RetryWaitMin > 0 {
		retryClient.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		retryClient.RetryWaitMax = cfg.RetryWaitMax
	}
	// Hand the final response back so API error messages can be surfaced.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if cfg.HTTPClient != nil {
		retryClient.HTTPClient = cfg.HTTPClient
	}
	if retryClient.HTTPClient.Timeout == 0 {
		retryClient.HTTPClient.Timeout = timeout
	}

	var logger Logger = nopLogger{}
	if cfg.Log != nil {
		logger = cfg.Log
	}

	return &Client{
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
		http:     retryClient,
		log:      logger,
	}, nil
}

// Model returns the default model of the client.
func (c *Client) Model() string { return c.model }

// Complete sends req and returns the trimmed content of the first choice.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	body := chatRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
	}
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)

	c.log.Debugf("[llm] %s -> %s (model %s, %d messages)", requestID, c.endpoint, model, len(req.Messages))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode >= 300 {
		if msg := gjson.GetBytes(raw, "error.message").String(); msg != "" {
			return "", fmt.Errorf("llm: %s", msg)
		}
		return "", fmt.Errorf("llm request failed with HTTP %d", resp.StatusCode)
	}

	if !gjson.ValidBytes(raw) {
		return "", errors.New("llm: response is not valid JSON")
	}

	choice := gjson.GetBytes(raw, "choices.0")
	if choice.Get("finish_reason").String() == "blacklist" {
		return "", ErrBlocked
	}

	content := strings.TrimSpace(choice.Get("message.content").String())
	if content == "" {
		return "", ErrEmptyResponse
	}

	c.log.Debugf("[llm] %s <- %d bytes", requestID, len(content))
	return content, nil
}
