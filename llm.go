package audience

import "context"

// ModelTier selects a quality/cost tier rather than a provider-specific
// model name; each provider maps tiers to its own models.
type ModelTier string

const (
	ModelMini     ModelTier = "mini"
	ModelStandard ModelTier = "standard"
)

// ChatOptions configures a free-text completion.
type ChatOptions struct {
	Model       ModelTier
	Temperature float32
	MaxTokens   int
}

// ChatJSONOptions configures a structured-extraction completion.
type ChatJSONOptions struct {
	Model       ModelTier
	Temperature float32
	MaxTokens   int
}

// ChatFn produces free text from a system prompt and user message.
type ChatFn func(ctx context.Context, systemPrompt, userMessage string, opts *ChatOptions) (string, error)

// ChatJSONFn produces a JSON object matching the shape of result and
// unmarshals into it.
type ChatJSONFn func(ctx context.Context, systemPrompt, userMessage string, opts *ChatJSONOptions, result any) error

// LanguageClient is the language service collaborator: free-text
// generation plus schema-guided structured extraction. The engine owns
// one client handle for its lifetime.
type LanguageClient struct {
	Chat     ChatFn
	ChatJSON ChatJSONFn
}

func defaultChatOptions() ChatOptions {
	return ChatOptions{
		Model:       ModelStandard,
		Temperature: 0.7,
	}
}

func defaultChatJSONOptions() ChatJSONOptions {
	return ChatJSONOptions{
		Model:       ModelStandard,
		Temperature: 0,
	}
}
