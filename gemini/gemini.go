// Package gemini implements colosseum.Provider using the Gemini REST API.
// The judge persona runs on it by default.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/meikuraledutech/colosseum"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// Provider calls the Gemini generateContent API. One attempt per call; the
// gateway owns the retry policy.
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

// Generate sends one generateContent request.
func (p *Provider) Generate(ctx context.Context, prompt colosseum.Prompt) (*colosseum.Result, error) {
	if prompt.System == "" && len(prompt.History) == 0 {
		return nil, colosseum.ErrEmptyPrompt
	}

	body, err := json.Marshal(buildRequest(prompt))
	if err != nil {
		return nil, fmt.Errorf("colosseum: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", p.baseURL, prompt.Model, p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("colosseum: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

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

	return parseResponse(respBody)
}

// buildRequest maps a Prompt onto the generateContent wire shape. Gemini
// contents carry only user/model roles, so assistant entries become "model"
// and everything else becomes "user".
func buildRequest(prompt colosseum.Prompt) map[string]any {
	contents := make([]map[string]any, 0, len(prompt.History))

	for _, entry := range prompt.History {
		role := "user"
		if entry.Role == colosseum.RoleAssistant {
			role = "model"
		}
		contents = append(contents, map[string]any{
			"role":  role,
			"parts": []map[string]any{{"text": entry.Content}},
		})
	}

	generationConfig := map[string]any{}
	if prompt.MaxTokens > 0 {
		generationConfig["maxOutputTokens"] = prompt.MaxTokens
	}
	if prompt.Temperature > 0 {
		generationConfig["temperature"] = prompt.Temperature
	}

	req := map[string]any{
		"contents":         contents,
		"generationConfig": generationConfig,
	}

	if prompt.System != "" {
		req["systemInstruction"] = map[string]any{
			"parts": []map[string]any{{"text": prompt.System}},
		}
	}

	return req
}

func parseResponse(body []byte) (*colosseum.Result, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("colosseum: parse response: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: empty response from Gemini", colosseum.ErrProviderFailed)
	}

	return &colosseum.Result{
		Content: resp.Candidates[0].Content.Parts[0].Text,
		Usage: colosseum.Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		},
	}, nil
}

// Gemini API response types.
type geminiResponse struct {
	Candidates    []geminiCandidate `json:"candidates"`
	UsageMetadata geminiUsage       `json:"usageMetadata"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// Ensure Provider implements colosseum.Provider at compile time.
var _ colosseum.Provider = (*Provider)(nil)
