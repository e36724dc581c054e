// Package ai holds the clients for the external analysis/chat service.
// Two implementations exist: the Gemini REST client and an
// OpenAI-compatible client covering the remaining providers.
package ai

import (
	"context"
	"strings"

	"github.com/lumen-med/whitecard/internal/domain"
)

// Turn is one history entry sent to the chat call: role and text only,
// stripped of analyses and images.
type Turn struct {
	Role    domain.Role
	Content string
}

type Client interface {
	// Analyze turns a report image into a validated structured analysis.
	Analyze(ctx context.Context, imageBase64 string, reportType domain.ReportType, lang domain.Language) (*domain.MedicalAnalysis, error)
	// Chat produces a reply to the conversation, grounded on the
	// analysis being discussed. An empty reply is replaced by a fixed
	// fallback string, never returned as-is.
	Chat(ctx context.Context, history []Turn, analysis *domain.MedicalAnalysis, lang domain.Language) (string, error)
	// TestConnection is a lightweight liveness probe. Failures of any
	// kind report false, never an error.
	TestConnection(ctx context.Context) bool
}

// Credentials are the provider secrets sourced from the environment;
// they never live in ModelConfig or the local slot.
type Credentials struct {
	GeminiAPIKey  string
	GeminiBaseURL string
	OpenAIAPIKey  string
}

// ForConfig selects the client implementation for a model config.
func ForConfig(cfg domain.ModelConfig, creds Credentials) (Client, error) {
	switch cfg.Provider {
	case domain.ProviderGemini:
		base := cfg.BaseURL
		if base == "" {
			base = creds.GeminiBaseURL
		}
		return NewGeminiClient(creds.GeminiAPIKey, base, cfg.ModelName), nil
	case domain.ProviderFastGPT, domain.ProviderDify, domain.ProviderZhipu, domain.ProviderCustom:
		if cfg.BaseURL == "" || cfg.ModelName == "" {
			return nil, domain.ErrProviderNotConfigured
		}
		return NewOpenAIClient(cfg, creds.OpenAIAPIKey), nil
	default:
		return nil, domain.ErrProviderNotConfigured
	}
}

// EnsureDataURL makes a bare base64 payload self-describing.
func EnsureDataURL(imageBase64 string) string {
	if strings.HasPrefix(imageBase64, "data:") {
		return imageBase64
	}
	return "data:image/jpeg;base64," + imageBase64
}

// StripDataURL returns the raw base64 payload without the data: header.
func StripDataURL(image string) string {
	if !strings.HasPrefix(image, "data:") {
		return image
	}
	if i := strings.Index(image, ","); i >= 0 {
		return image[i+1:]
	}
	return image
}
