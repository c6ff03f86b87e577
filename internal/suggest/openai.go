// Package suggest implements the advisory auto-categorization service.
//
// Suggestions are strictly advisory: they land in dedicated columns and never
// touch a user-assigned category. Callers must treat any failure here as
// "zero suggestions".
package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mkellner/basis/internal/model"
)

// Config holds the settings for the OpenAI-backed suggester.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

type openAISuggester struct {
	httpClient  *http.Client
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	maxTokens   int
}

func newOpenAISuggester(cfg Config) (*openAISuggester, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2000
	}

	return &openAISuggester{
		apiKey:      cfg.APIKey,
		model:       model,
		baseURL:     baseURL,
		temperature: temperature,
		maxTokens:   maxTokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// Suggest proposes a merchant name and category for each transaction, using
// the user's category list and recent categorized history as context.
func (s *openAISuggester) Suggest(ctx context.Context, transactions []model.Transaction, categories []model.Category, history []model.Transaction) ([]model.Suggestion, error) {
	if len(transactions) == 0 {
		return nil, nil
	}

	prompt := buildPrompt(transactions, categories, history)

	requestBody := map[string]any{
		"model": s.model,
		"messages": []map[string]string{
			{
				"role":    "system",
				"content": "You are a financial transaction classifier. You MUST respond with ONLY a valid JSON object. Do not include any explanatory text, markdown formatting, or commentary before or after the JSON. Start your response directly with { and end with }.",
			},
			{
				"role":    "user",
				"content": prompt,
			},
		},
		"temperature": s.temperature,
		"max_tokens":  s.maxTokens,
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", strings.NewReader(string(jsonBody)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAI API error (status %d): %s", resp.StatusCode, string(body))
	}

	var response chatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no completion choices returned")
	}

	return parseSuggestions(response.Choices[0].Message.Content, transactions, categories)
}

// chatResponse represents the chat completions API response structure.
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
		Index        int    `json:"index"`
	} `json:"choices"`
}

func buildPrompt(transactions []model.Transaction, categories []model.Category, history []model.Transaction) string {
	var b strings.Builder

	b.WriteString("Classify the following bank transactions. For each, propose a cleaned-up merchant name and pick the best-fitting category from the available list. If no category fits, omit the category for that transaction.\n\n")

	b.WriteString("Available categories:\n")
	for _, c := range categories {
		if c.Description != "" {
			fmt.Fprintf(&b, "- %s: %s\n", c.Name, c.Description)
		} else {
			fmt.Fprintf(&b, "- %s\n", c.Name)
		}
	}

	if len(history) > 0 {
		byID := make(map[int64]string, len(categories))
		for _, c := range categories {
			byID[c.ID] = c.Name
		}
		b.WriteString("\nRecent categorizations by this user:\n")
		for _, h := range history {
			if h.CategoryID == nil {
				continue
			}
			name, ok := byID[*h.CategoryID]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "- %q -> %s\n", h.Description, name)
		}
	}

	b.WriteString("\nTransactions to classify:\n")
	for _, t := range transactions {
		fmt.Fprintf(&b, "- id=%s description=%q amount=%s type=%s\n",
			t.ID, t.Description, t.Amount.String(), t.Type)
	}

	b.WriteString(`
Respond with JSON of this exact shape:
{
  "suggestions": [
    {"transactionId": "...", "merchantName": "...", "category": "...", "confidence": 0.95}
  ]
}
`)

	return b.String()
}

// parseSuggestions maps the model's category names back onto category IDs and
// drops anything referencing an unknown transaction or category.
func parseSuggestions(content string, transactions []model.Transaction, categories []model.Category) ([]model.Suggestion, error) {
	var jsonResp struct {
		Suggestions []struct {
			TransactionID string  `json:"transactionId"`
			MerchantName  string  `json:"merchantName"`
			Category      string  `json:"category"`
			Confidence    float64 `json:"confidence"`
		} `json:"suggestions"`
	}

	content = cleanMarkdownWrapper(content)

	if err := json.Unmarshal([]byte(content), &jsonResp); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	known := make(map[string]bool, len(transactions))
	for _, t := range transactions {
		known[t.ID] = true
	}
	categoryIDs := make(map[string]int64, len(categories))
	for _, c := range categories {
		categoryIDs[strings.ToLower(c.Name)] = c.ID
	}

	var suggestions []model.Suggestion
	for _, raw := range jsonResp.Suggestions {
		if !known[raw.TransactionID] {
			continue
		}
		sg := model.Suggestion{
			TransactionID: raw.TransactionID,
			MerchantName:  strings.TrimSpace(raw.MerchantName),
			Confidence:    raw.Confidence,
		}
		if id, ok := categoryIDs[strings.ToLower(strings.TrimSpace(raw.Category))]; ok {
			sg.CategoryID = &id
		}
		suggestions = append(suggestions, sg)
	}

	return suggestions, nil
}

// cleanMarkdownWrapper strips a ```json fence the model sometimes adds
// despite instructions.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx >= 0 {
			content = content[idx+1:]
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}
	return strings.TrimSpace(content)
}
