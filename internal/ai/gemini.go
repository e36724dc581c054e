package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lumen-med/whitecard/internal/config"
	"github.com/lumen-med/whitecard/internal/domain"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

type GeminiClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewGeminiClient(apiKey, baseURL, model string) *GeminiClient {
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	if model == "" {
		model = domain.DefaultGeminiModel
	}
	return &GeminiClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: config.RequestTimeout},
	}
}

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	ResponseMIMEType string   `json:"responseMimeType,omitempty"`
	ResponseSchema   *schema  `json:"responseSchema,omitempty"`
}

type schema struct {
	Type       string             `json:"type"`
	Properties map[string]*schema `json:"properties,omitempty"`
	Items      *schema            `json:"items,omitempty"`
	Enum       []string           `json:"enum,omitempty"`
	Required   []string           `json:"required,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text       string      `json:"text"`
				InlineData *inlineData `json:"inlineData"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (c *GeminiClient) Analyze(ctx context.Context, imageBase64 string, reportType domain.ReportType, lang domain.Language) (*domain.MedicalAnalysis, error) {
	req := generateRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{InlineData: &inlineData{MimeType: "image/jpeg", Data: StripDataURL(imageBase64)}},
				{Text: analysisUserPrompt(lang)},
			},
		}},
		SystemInstruction: &content{Parts: []part{{Text: analysisSystemPrompt(lang)}}},
		GenerationConfig: &generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   analysisSchema(),
		},
	}

	resp, err := c.generate(ctx, c.model, req)
	if err != nil {
		return nil, err
	}
	text := firstText(resp)
	if text == "" {
		return nil, fmt.Errorf("gemini: empty structured response")
	}

	analysis, err := parseAnalysis([]byte(text), reportType)
	if err != nil {
		return nil, err
	}

	// The illustration is decoration: its failure never fails the upload.
	if illustration, err := c.illustrate(ctx, analysis.Summary); err != nil {
		slog.Warn("illustration generation failed", "error", err)
	} else {
		analysis.GeneratedIllustration = illustration
	}
	return analysis, nil
}

func (c *GeminiClient) Chat(ctx context.Context, history []Turn, analysis *domain.MedicalAnalysis, lang domain.Language) (string, error) {
	contents := make([]content, len(history))
	for i, turn := range history {
		role := "user"
		if turn.Role == domain.RoleAssistant {
			role = "model"
		}
		contents[i] = content{Role: role, Parts: []part{{Text: turn.Content}}}
	}

	temperature := 0.7
	req := generateRequest{
		Contents:          contents,
		SystemInstruction: &content{Parts: []part{{Text: chatSystemPrompt(analysis, lang)}}},
		GenerationConfig:  &generationConfig{Temperature: &temperature},
	}

	resp, err := c.generate(ctx, c.model, req)
	if err != nil {
		return "", err
	}
	text := firstText(resp)
	if strings.TrimSpace(text) == "" {
		return fallbackReply(lang), nil
	}
	return text, nil
}

func (c *GeminiClient) TestConnection(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, config.ConnectionTestTimeout)
	defer cancel()

	resp, err := c.generate(ctx, c.model, generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: "ping"}}}},
	})
	if err != nil {
		slog.Warn("connection test failed", "error", err)
		return false
	}
	return firstText(resp) != ""
}

// illustrate asks the image model for a concept illustration of the
// report summary and returns it as a data URL.
func (c *GeminiClient) illustrate(ctx context.Context, summary string) (string, error) {
	prompt := fmt.Sprintf("A futuristic, high-tech cyber-noir medical illustration showing: %s. Glowing neon lines, deep blues and reds, dark atmosphere, clinical but artistic, 16:9 aspect ratio.", summary)
	resp, err := c.generate(ctx, config.IllustrationModel, generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData != nil {
				return "data:image/png;base64," + p.InlineData.Data, nil
			}
		}
	}
	return "", fmt.Errorf("no image in response")
}

func (c *GeminiClient) generate(ctx context.Context, model string, genReq generateRequest) (*generateResponse, error) {
	payload, err := json.Marshal(genReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// Surface the upstream message when the body carries one.
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
				Status  string `json:"status"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("gemini (%d %s): %s", resp.StatusCode, apiErr.Error.Status, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("gemini: unexpected status %d", resp.StatusCode)
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &genResp, nil
}

func firstText(resp *generateResponse) string {
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if p.Text != "" {
				return p.Text
			}
		}
	}
	return ""
}

func analysisSchema() *schema {
	str := &schema{Type: "STRING"}
	return &schema{
		Type: "OBJECT",
		Properties: map[string]*schema{
			"reportType": str,
			"summary":    str,
			"dimensions": {
				Type: "ARRAY",
				Items: &schema{
					Type: "OBJECT",
					Properties: map[string]*schema{
						"title":      str,
						"conclusion": str,
						"highlights": {Type: "ARRAY", Items: str},
						"content":    str,
						"severity":   {Type: "STRING", Enum: []string{"low", "medium", "high", "info"}},
						"visualHint": str,
					},
					Required: []string{"title", "conclusion", "highlights", "content", "severity"},
				},
			},
			"disclaimer": str,
		},
		Required: []string{"reportType", "summary", "dimensions", "disclaimer"},
	}
}
