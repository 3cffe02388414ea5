package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const openrouterURL = "https://openrouter.ai/api/v1/chat/completions"

// OpenRouterProvider implements the Provider interface for OpenRouter's API.
// OpenRouter uses the OpenAI chat completions format.
type OpenRouterProvider struct {
	apiKey string
	model  string
	url    string
	client *http.Client
}

// NewOpenRouterProvider creates a new OpenRouter provider instance.
func NewOpenRouterProvider(apiKey, model string) *OpenRouterProvider {
	return &OpenRouterProvider{
		apiKey: apiKey,
		model:  model,
		url:    openrouterURL,
		client: newHTTPClient(),
	}
}

func (or *OpenRouterProvider) Name() string { return "OpenRouter" }

func (or *OpenRouterProvider) Generate(ctx context.Context, prompt string) (string, error) {
	body, _ := json.Marshal(map[string]any{
		"model": or.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens": 8192,
	})

	req, err := http.NewRequestWithContext(ctx, "POST", or.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+or.apiKey)

	resp, err := or.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openrouter request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("openrouter read: %w", err)
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &response); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if response.Error != nil {
		return "", fmt.Errorf("openrouter: %s", response.Error.Message)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("empty response")
	}

	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}
