package audience

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
)

// openaiModelMap maps model tiers to actual OpenAI model names.
var openaiModelMap = map[ModelTier]string{
	ModelMini:     "gpt-4o-mini",
	ModelStandard: "gpt-4o",
}

func openaiModelName(tier ModelTier) string {
	if name, ok := openaiModelMap[tier]; ok {
		return name
	}
	return openaiModelMap[ModelStandard]
}

// NewOpenAIClient creates a LanguageClient backed by the OpenAI API.
func NewOpenAIClient(apiKey string, logger *slog.Logger) (*LanguageClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	client := openai.NewClient(apiKey)

	return &LanguageClient{
		Chat:     newOpenAIChatFn(client, logger),
		ChatJSON: newOpenAIChatJSONFn(client, logger),
	}, nil
}

// NewOpenAIClientWithConfig creates a LanguageClient from a preconfigured
// client, for OpenAI-compatible endpoints such as Azure deployments.
func NewOpenAIClientWithConfig(client *openai.Client, logger *slog.Logger) *LanguageClient {
	return &LanguageClient{
		Chat:     newOpenAIChatFn(client, logger),
		ChatJSON: newOpenAIChatJSONFn(client, logger),
	}
}

func newOpenAIChatFn(client *openai.Client, logger *slog.Logger) ChatFn {
	return func(ctx context.Context, systemPrompt, userMessage string, opts *ChatOptions) (string, error) {
		if opts == nil {
			defaultOpts := defaultChatOptions()
			opts = &defaultOpts
		}

		modelName := openaiModelName(opts.Model)

		logger.Debug("creating chat completion",
			slog.String("model", modelName),
			slog.Float64("temperature", float64(opts.Temperature)),
			slog.Int("user_message_len", len(userMessage)),
		)

		req := openai.ChatCompletionRequest{
			Model:       modelName,
			Messages:    openaiMessages(systemPrompt, userMessage),
			Temperature: opts.Temperature,
		}
		if opts.MaxTokens > 0 {
			req.MaxTokens = opts.MaxTokens
		}

		resp, err := client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", fmt.Errorf("OpenAI API error: %w", err)
		}

		content, err := firstChoice(resp)
		if err != nil {
			return "", err
		}

		logger.Debug("chat completion successful",
			slog.String("model", modelName),
			slog.Int("response_len", len(content)),
			slog.Int("prompt_tokens", resp.Usage.PromptTokens),
			slog.Int("completion_tokens", resp.Usage.CompletionTokens),
		)

		return content, nil
	}
}

func newOpenAIChatJSONFn(client *openai.Client, logger *slog.Logger) ChatJSONFn {
	return func(ctx context.Context, systemPrompt, userMessage string, opts *ChatJSONOptions, result any) error {
		if opts == nil {
			defaultOpts := defaultChatJSONOptions()
			opts = &defaultOpts
		}

		modelName := openaiModelName(opts.Model)

		logger.Debug("creating JSON chat completion",
			slog.String("model", modelName),
			slog.Float64("temperature", float64(opts.Temperature)),
			slog.Int("user_message_len", len(userMessage)),
		)

		req := openai.ChatCompletionRequest{
			Model:       modelName,
			Messages:    openaiMessages(systemPrompt, userMessage),
			Temperature: opts.Temperature,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		}
		if opts.MaxTokens > 0 {
			req.MaxTokens = opts.MaxTokens
		}

		resp, err := client.CreateChatCompletion(ctx, req)
		if err != nil {
			return fmt.Errorf("OpenAI API error: %w", err)
		}

		content, err := firstChoice(resp)
		if err != nil {
			return err
		}

		if err := json.Unmarshal([]byte(content), result); err != nil {
			return fmt.Errorf("failed to parse OpenAI JSON response: %w (content: %s)", err, content)
		}

		return nil
	}
}

func openaiMessages(systemPrompt, userMessage string) []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: userMessage,
		},
	}
}

func firstChoice(resp openai.ChatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", errors.New("empty response from OpenAI")
	}
	return content, nil
}
