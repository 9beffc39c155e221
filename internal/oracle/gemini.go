package oracle

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// GeminiClient generates text with the Gemini API.
type GeminiClient struct {
	client      *genai.Client
	maxTokens   int32
	temperature float32
}

func NewGeminiClient(ctx context.Context, apiKey string, maxTokens int, temperature float64) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	return &GeminiClient{
		client:      client,
		maxTokens:   int32(maxTokens),
		temperature: float32(temperature),
	}, nil
}

// Page content is user-directed; the default filters reject too much of it.
var safetyOff = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
}

func (c *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.temperature),
		MaxOutputTokens: c.maxTokens,
		SafetySettings:  safetyOff,
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.User), cfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) && retryableStatus(apiErr.Code) {
			return "", &RetryableError{StatusCode: apiErr.Code, Message: apiErr.Message}
		}
		return "", fmt.Errorf("gemini api: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from gemini")
	}
	return text, nil
}
