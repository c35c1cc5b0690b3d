package audience

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicModelMap maps model tiers to Anthropic model names.
var anthropicModelMap = map[ModelTier]string{
	ModelMini:     "claude-3-5-haiku-latest",
	ModelStandard: "claude-sonnet-4-0",
}

const anthropicDefaultMaxTokens = 1024

// AnthropicConfig configures the Anthropic-backed language client.
type AnthropicConfig struct {
	APIKey  string
	BaseURL string
}

// NewAnthropicClient creates a LanguageClient backed by the Anthropic API.
func NewAnthropicClient(cfg AnthropicConfig, logger *slog.Logger) *LanguageClient {
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := anthropic.NewClient(opts...)

	return &LanguageClient{
		Chat:     newAnthropicChatFn(client, logger),
		ChatJSON: newAnthropicChatJSONFn(client, logger),
	}
}

func anthropicModelName(tier ModelTier) string {
	if name, ok := anthropicModelMap[tier]; ok {
		return name
	}
	return anthropicModelMap[ModelStandard]
}

func newAnthropicChatFn(client anthropic.Client, logger *slog.Logger) ChatFn {
	return func(ctx context.Context, systemPrompt, userMessage string, opts *ChatOptions) (string, error) {
		if opts == nil {
			defaultOpts := defaultChatOptions()
			opts = &defaultOpts
		}

		content, err := anthropicComplete(ctx, client, systemPrompt, userMessage,
			anthropicModelName(opts.Model), opts.MaxTokens, opts.Temperature)
		if err != nil {
			return "", err
		}

		logger.Debug("chat completion successful",
			slog.String("provider", "anthropic"),
			slog.Int("response_len", len(content)),
		)

		return content, nil
	}
}

func newAnthropicChatJSONFn(client anthropic.Client, logger *slog.Logger) ChatJSONFn {
	return func(ctx context.Context, systemPrompt, userMessage string, opts *ChatJSONOptions, result any) error {
		if opts == nil {
			defaultOpts := defaultChatJSONOptions()
			opts = &defaultOpts
		}

		// Anthropic has no JSON response mode; instruct and parse.
		system := systemPrompt + "\n\nRespond ONLY with a single valid JSON object. No prose, no code fences."

		content, err := anthropicComplete(ctx, client, system, userMessage,
			anthropicModelName(opts.Model), opts.MaxTokens, opts.Temperature)
		if err != nil {
			return err
		}

		content = stripJSONFences(content)
		if err := json.Unmarshal([]byte(content), result); err != nil {
			return fmt.Errorf("failed to parse Anthropic JSON response: %w (content: %s)", err, content)
		}

		logger.Debug("JSON chat completion successful",
			slog.String("provider", "anthropic"),
			slog.Int("response_len", len(content)),
		)

		return nil
	}
}

func anthropicComplete(ctx context.Context, client anthropic.Client, systemPrompt, userMessage, model string, maxTokens int, temperature float32) (string, error) {
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage)),
		},
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemPrompt},
		}
	}
	if temperature > 0 {
		params.Temperature = anthropic.Float(float64(temperature))
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	content := sb.String()
	if content == "" {
		return "", fmt.Errorf("empty response from Anthropic")
	}

	return content, nil
}

// stripJSONFences removes a markdown code fence wrapper if the model
// added one despite instructions.
func stripJSONFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
