package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeOpenAI(t *testing.T, status int, content string, seen *map[string]any) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-test",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
			"usage": map[string]any{"prompt_tokens": 120, "completion_tokens": 80, "total_tokens": 200},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(Config{
		APIKey:    "test-key",
		BaseURL:   srv.URL + "/v1",
		Model:     "gpt-test",
		MaxTokens: 500,
		Timeout:   5 * time.Second,
	})
}

func TestAnalyzeCompany(t *testing.T) {
	var seen map[string]any
	srv := fakeOpenAI(t, http.StatusOK, `{
		"summary": "Acme builds agents for finance teams.",
		"what_they_do": ["Automates reconciliation", " ", "Closes books faster"],
		"keywords": ["agents", "finance", "automation", "llm", "accounting"],
		"signals": ["Hiring for AI roles"],
		"match_score": 87.6,
		"match_explanation": "Seed-stage AI infra, squarely in thesis."
	}`, &seen)

	analysis, err := newTestClient(srv).AnalyzeCompany(context.Background(), AnalysisRequest{
		CompanyName: "Acme AI",
		Website:     "https://acme.ai",
		PageText:    "Acme automates finance.",
		Thesis:      "Seed-stage AI infrastructure",
	})
	require.NoError(t, err)

	assert.Equal(t, "Acme builds agents for finance teams.", analysis.Summary)
	assert.Equal(t, []string{"Automates reconciliation", "Closes books faster"}, analysis.WhatTheyDo)
	assert.Len(t, analysis.Keywords, 5)
	assert.Equal(t, 88, analysis.MatchScore)

	assert.Equal(t, "gpt-test", seen["model"])
	format, ok := seen["response_format"].(map[string]any)
	require.True(t, ok, "request must ask for a JSON object")
	assert.Equal(t, "json_object", format["type"])

	messages := seen["messages"].([]any)
	user := messages[1].(map[string]any)["content"].(string)
	assert.Contains(t, user, "Seed-stage AI infrastructure")
	assert.Contains(t, user, "Acme automates finance.")
}

func TestAnalyzeCompanyProviderError(t *testing.T) {
	srv := fakeOpenAI(t, http.StatusTooManyRequests, "", nil)

	_, err := newTestClient(srv).AnalyzeCompany(context.Background(), AnalysisRequest{Website: "https://acme.ai", Thesis: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestAnalyzeCompanyMalformed(t *testing.T) {
	srv := fakeOpenAI(t, http.StatusOK, "Sorry, I cannot help with that.", nil)

	_, err := newTestClient(srv).AnalyzeCompany(context.Background(), AnalysisRequest{Website: "https://acme.ai", Thesis: "x"})
	assert.ErrorIs(t, err, ErrMalformedAnalysis)
}

func TestParseAnalysis(t *testing.T) {
	tests := []struct {
		name    string
		content string
		score   int
		wantErr bool
	}{
		{"plain", `{"summary":"s","match_score":42}`, 42, false},
		{"fenced", "```json\n{\"summary\":\"s\",\"match_score\":42}\n```", 42, false},
		{"string score", `{"summary":"s","match_score":"73%"}`, 73, false},
		{"clamped high", `{"summary":"s","match_score":140}`, 100, false},
		{"clamped low", `{"summary":"s","match_score":-3}`, 0, false},
		{"missing score", `{"summary":"s"}`, 0, false},
		{"missing summary", `{"match_score":50}`, 0, true},
		{"not json", `hello`, 0, true},
		{"empty", "  ", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAnalysis(tt.content)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedAnalysis)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.score, got.MatchScore)
			assert.NotNil(t, got.Keywords)
		})
	}
}
