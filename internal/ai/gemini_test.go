package ai

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-med/whitecard/internal/domain"
)

func textResponse(text string) string {
	raw, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
		},
	})
	return string(raw)
}

// geminiServer answers the analysis model with canned structured output
// and fails illustration calls, which the client must swallow.
func geminiServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.NotEmpty(t, r.Header.Get("x-goog-api-key"))

		if strings.Contains(r.URL.Path, "flash-image") {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error": {"message": "image model unavailable", "status": "NOT_FOUND"}}`)
			return
		}
		fmt.Fprint(w, textResponse(validPayload))
	}))
}

func TestGeminiAnalyze(t *testing.T) {
	srv := geminiServer(t)
	defer srv.Close()

	c := NewGeminiClient("test-key", srv.URL, "")
	analysis, err := c.Analyze(t.Context(), "aW1n", domain.ReportCT, domain.LanguageZH)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportCT, analysis.ReportType)
	require.Len(t, analysis.Dimensions, 1)
	// Illustration failure is swallowed, not propagated.
	assert.Empty(t, analysis.GeneratedIllustration)
}

func TestGeminiAnalyzeUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": {"message": "quota exhausted", "status": "RESOURCE_EXHAUSTED"}}`)
	}))
	defer srv.Close()

	c := NewGeminiClient("test-key", srv.URL, "")
	_, err := c.Analyze(t.Context(), "aW1n", domain.ReportCT, domain.LanguageZH)
	require.Error(t, err)
	// The upstream message is surfaced verbatim.
	assert.Contains(t, err.Error(), "quota exhausted")
}

func TestGeminiAnalyzeRejectsIncompleteOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, textResponse(`{"reportType": "CT", "summary": "S", "disclaimer": "D", "dimensions": []}`))
	}))
	defer srv.Close()

	c := NewGeminiClient("test-key", srv.URL, "")
	_, err := c.Analyze(t.Context(), "aW1n", domain.ReportCT, domain.LanguageZH)
	assert.ErrorIs(t, err, domain.ErrEmptyAnalysis)
}

func TestGeminiChat(t *testing.T) {
	var gotReq generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		fmt.Fprint(w, textResponse("【Key definition】 ..."))
	}))
	defer srv.Close()

	c := NewGeminiClient("test-key", srv.URL, "")
	analysis := &domain.MedicalAnalysis{ReportType: domain.ReportCT, Summary: "S", Disclaimer: "D"}
	history := []Turn{
		{Role: domain.RoleAssistant, Content: "seed"},
		{Role: domain.RoleUser, Content: "what does it mean?"},
	}

	reply, err := c.Chat(t.Context(), history, analysis, domain.LanguageZH)
	require.NoError(t, err)
	assert.Equal(t, "【Key definition】 ...", reply)

	// Assistant turns map onto the "model" role.
	require.Len(t, gotReq.Contents, 2)
	assert.Equal(t, "model", gotReq.Contents[0].Role)
	assert.Equal(t, "user", gotReq.Contents[1].Role)
	require.NotNil(t, gotReq.SystemInstruction)
	assert.Contains(t, gotReq.SystemInstruction.Parts[0].Text, "S")
}

func TestGeminiChatEmptyReplyFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, textResponse("  "))
	}))
	defer srv.Close()

	c := NewGeminiClient("test-key", srv.URL, "")
	reply, err := c.Chat(t.Context(), nil, &domain.MedicalAnalysis{}, domain.LanguageEN)
	require.NoError(t, err)
	assert.Equal(t, fallbackReply(domain.LanguageEN), reply)
}

func TestGeminiTestConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, textResponse("pong"))
	}))
	c := NewGeminiClient("test-key", srv.URL, "")
	assert.True(t, c.TestConnection(t.Context()))

	// Any failure reports false, never an error.
	srv.Close()
	assert.False(t, c.TestConnection(t.Context()))
}

func TestForConfig(t *testing.T) {
	creds := Credentials{GeminiAPIKey: "k"}

	c, err := ForConfig(domain.ModelConfig{Provider: domain.ProviderGemini}, creds)
	require.NoError(t, err)
	assert.IsType(t, &GeminiClient{}, c)

	_, err = ForConfig(domain.ModelConfig{Provider: domain.ProviderDify}, creds)
	assert.ErrorIs(t, err, domain.ErrProviderNotConfigured)

	c, err = ForConfig(domain.ModelConfig{
		Provider:  domain.ProviderDify,
		BaseURL:   "https://dify.example/v1",
		ModelName: "dify-pro",
	}, creds)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)
}
