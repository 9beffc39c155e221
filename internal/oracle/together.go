package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TogetherClient calls an OpenAI-compatible chat completions API.
type TogetherClient struct {
	apiKey      string
	endpoint    string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

// TogetherOptions tunes a TogetherClient. Zero values fall back to defaults.
type TogetherOptions struct {
	BaseURL     string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

func NewTogetherClient(apiKey string, opts TogetherOptions) *TogetherClient {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 8192
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	return &TogetherClient{
		apiKey:      apiKey,
		endpoint:    chatEndpoint(opts.BaseURL),
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
	}
}

func chatEndpoint(baseURL string) string {
	endpoint := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if endpoint == "" {
		endpoint = "https://api.together.xyz/v1"
	}
	if !strings.HasSuffix(endpoint, "/chat/completions") {
		endpoint += "/chat/completions"
	}
	return endpoint
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends the system and user prompts as a two-message chat.
func (c *TogetherClient) Generate(ctx context.Context, req Request) (string, error) {
	reqBody := chatRequest{
		Model: req.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("together api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if retryableStatus(resp.StatusCode) {
		return "", &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("together api status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var apiResp chatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("together error: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("empty response from together")
	}
	return apiResp.Choices[0].Message.Content, nil
}

// Close releases resources.
func (c *TogetherClient) Close() {
	c.httpClient.CloseIdleConnections()
}
