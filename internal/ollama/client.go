// Package ollama implements the chat client used for model-backed page
// classification and event extraction against a local Ollama endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	appLog "infracal/internal/log"
)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "qwen2.5:1.5b-instruct"
	DefaultTimeout = 120 * time.Second

	// DefaultMaxConcurrent bounds outbound calls to the model endpoint.
	// Local inference is resource-constrained; two in-flight requests is
	// already enough to keep it saturated.
	DefaultMaxConcurrent = 2
)

// Options tunes a single chat request. Temperature is pinned to 0 for
// deterministic extraction; NumPredict and TopP are optional.
type Options struct {
	NumPredict int
	TopP       float64
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Stream   bool           `json:"stream"`
	Messages []chatMessage  `json:"messages"`
	Options  map[string]any `json:"options"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

// Client is a long-lived chat client with a shared connection pool and a
// counting permit set bounding concurrent outbound calls. Construct once
// and Close at process shutdown.
type Client struct {
	baseURL string
	model   string
	hc      *http.Client
	permits chan struct{}
}

// NewClient constructs a Client. Empty arguments fall back to defaults;
// maxConcurrent <= 0 means DefaultMaxConcurrent.
func NewClient(baseURL, model string, timeout time.Duration, maxConcurrent int) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		hc:      &http.Client{Timeout: timeout},
		permits: make(chan struct{}, maxConcurrent),
	}
}

// Model returns the configured model id.
func (c *Client) Model() string {
	return c.model
}

// Chat sends a system+user message pair to the chat endpoint and returns
// the raw reply text, trimmed. A permit is acquired before the request
// and released unconditionally after the response is read; acquisition
// honors ctx cancellation.
func (c *Client) Chat(ctx context.Context, system, user string, opts Options) (string, error) {
	select {
	case c.permits <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-c.permits }()

	options := map[string]any{"temperature": 0}
	if opts.NumPredict > 0 {
		options["num_predict"] = opts.NumPredict
	}
	if opts.TopP > 0 {
		options["top_p"] = opts.TopP
	}

	payload := chatRequest{
		Model:  c.model,
		Stream: false,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Options: options,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	appLog.Debug("ollama chat start", "model", c.model, "user_len", len(user))

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ollama chat: unexpected status %s", resp.Status)
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("ollama chat: decode response: %w", err)
	}
	content := strings.TrimSpace(decoded.Message.Content)
	if content == "" {
		return "", errors.New("ollama chat: empty response content")
	}

	appLog.Debug("ollama chat done", "model", c.model, "content_len", len(content))
	return content, nil
}

// Close releases the client's idle connections. The permit channel needs
// no teardown; in-flight calls drain naturally.
func (c *Client) Close() {
	c.hc.CloseIdleConnections()
}
