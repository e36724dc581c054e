package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/lumen-med/whitecard/internal/config"
	"github.com/lumen-med/whitecard/internal/domain"
)

// OpenAIClient serves the OpenAI-compatible providers (FastGPT, Dify,
// Zhipu, custom endpoints): same analysis contract, spoken over the
// chat-completions API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIClient(cfg domain.ModelConfig, apiKey string) *OpenAIClient {
	clientCfg := openai.DefaultConfig(apiKey)
	clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.ModelName,
	}
}

func (c *OpenAIClient) Analyze(ctx context.Context, imageBase64 string, reportType domain.ReportType, lang domain.Language) (*domain.MedicalAnalysis, error) {
	ctx, cancel := context.WithTimeout(ctx, config.RequestTimeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analysisSystemPrompt(lang)},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: EnsureDataURL(imageBase64)},
					},
					{Type: openai.ChatMessagePartTypeText, Text: analysisUserPrompt(lang)},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("analysis completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("analysis completion: no choices returned")
	}
	return parseAnalysis([]byte(resp.Choices[0].Message.Content), reportType)
}

func (c *OpenAIClient) Chat(ctx context.Context, history []Turn, analysis *domain.MedicalAnalysis, lang domain.Language) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, config.RequestTimeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: chatSystemPrompt(analysis, lang),
	})
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == domain.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return fallbackReply(lang), nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) TestConnection(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, config.ConnectionTestTimeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: 4,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "ping"},
		},
	})
	if err != nil {
		slog.Warn("connection test failed", "error", err)
		return false
	}
	return len(resp.Choices) > 0
}
