// Package groq implements colosseum.Provider on the Groq chat-completions
// REST API (OpenAI-compatible wire format).
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/meikuraledutech/colosseum"
)

const defaultBaseURL = "https://api.groq.com/openai/v1"

// Provider calls the Groq chat-completions endpoint. It makes a single
// attempt per call; retry policy lives in the gateway.
type Provider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New creates a Provider with the given API key.
func New(apiKey string) *Provider {
	return &Provider{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{},
	}
}

// WithBaseURL overrides the API base URL. Used by tests.
func (p *Provider) WithBaseURL(url string) *Provider {
	p.baseURL = url
	return p
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate sends one chat-completion request.
func (p *Provider) Generate(ctx context.Context, prompt colosseum.Prompt) (*colosseum.Result, error) {
	if prompt.System == "" && len(prompt.History) == 0 {
		return nil, colosseum.ErrEmptyPrompt
	}

	messages := make([]chatMessage, 0, len(prompt.History)+1)
	if prompt.System != "" {
		messages = append(messages, chatMessage{Role: colosseum.RoleSystem, Content: prompt.System})
	}
	for _, entry := range prompt.History {
		messages = append(messages, chatMessage{Role: entry.Role, Content: entry.Content})
	}

	body, err := json.Marshal(chatRequest{
		Model:       prompt.Model,
		Messages:    messages,
		Temperature: prompt.Temperature,
		MaxTokens:   prompt.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("colosseum: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("colosseum: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("colosseum: send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("colosseum: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", colosseum.ErrProviderFailed, resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("colosseum: parse response: %w", err)
	}

	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("%w: empty response from Groq", colosseum.ErrProviderFailed)
	}

	return &colosseum.Result{
		Content: parsed.Choices[0].Message.Content,
		Usage: colosseum.Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}, nil
}

// Ensure Provider implements colosseum.Provider at compile time.
var _ colosseum.Provider = (*Provider)(nil)
