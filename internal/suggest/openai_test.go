package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkellner/basis/internal/model"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		cfg      Config
		wantNil  bool
		wantErr  bool
	}{
		{name: "disabled", provider: "", wantNil: true},
		{name: "openai", provider: "openai", cfg: Config{APIKey: "test-key"}},
		{name: "openai without key", provider: "openai", wantErr: true},
		{name: "unknown provider", provider: "carrier-pigeon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suggester, err := New(tt.provider, tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, suggester)
			} else {
				assert.NotNil(t, suggester)
			}
		})
	}
}

func TestSuggestParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		content := `{"suggestions": [
			{"transactionId": "txn-1", "merchantName": "Whole Foods", "category": "groceries", "confidence": 0.92},
			{"transactionId": "txn-1", "merchantName": "Ghost", "category": "Nonexistent", "confidence": 0.5},
			{"transactionId": "made-up", "merchantName": "Ignored", "category": "Groceries", "confidence": 0.9}
		]}`
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	suggester, err := newOpenAISuggester(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	transactions := []model.Transaction{{ID: "txn-1", Description: "WHOLEFDS PDX"}}
	categories := []model.Category{{ID: 7, Name: "Groceries"}}

	suggestions, err := suggester.Suggest(context.Background(), transactions, categories, nil)
	require.NoError(t, err)
	require.Len(t, suggestions, 2, "rows for unknown transactions are dropped")

	first := suggestions[0]
	assert.Equal(t, "txn-1", first.TransactionID)
	assert.Equal(t, "Whole Foods", first.MerchantName)
	require.NotNil(t, first.CategoryID, "category names match case-insensitively")
	assert.Equal(t, int64(7), *first.CategoryID)
	assert.InDelta(t, 0.92, first.Confidence, 0.001)

	assert.Nil(t, suggestions[1].CategoryID, "unknown category names yield merchant-only suggestions")
}

func TestSuggestEmptyInput(t *testing.T) {
	suggester, err := newOpenAISuggester(Config{APIKey: "test-key"})
	require.NoError(t, err)

	suggestions, err := suggester.Suggest(context.Background(), nil, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, suggestions)
}

func TestSuggestAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": "rate limited"}`)
	}))
	defer server.Close()

	suggester, err := newOpenAISuggester(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = suggester.Suggest(context.Background(),
		[]model.Transaction{{ID: "txn-1"}}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestCleanMarkdownWrapper(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain json", `{"a": 1}`, `{"a": 1}`},
		{"fenced json", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fence without language", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding whitespace", "  {\"a\": 1}  ", `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanMarkdownWrapper(tt.input))
		})
	}
}
