package audience

import (
	"log/slog"
	"time"

	"github.com/retailmedia-labs/audience-agent/catalog"
)

// Config configures the agent instance.
type Config struct {
	// LLM is the language service client used by the dialogue stages.
	// Required.
	LLM *LanguageClient

	// Catalog is the product lookup backend.
	// Required.
	Catalog catalog.Lookup

	// Sessions persists conversation state between turns.
	// Optional - defaults to in-memory storage.
	Sessions SessionStore

	// Locker serializes turns per session.
	// Optional - defaults to the Sessions store when it implements
	// SessionLocker, otherwise an in-process mutex map.
	Locker SessionLocker

	// Prompts are the system prompt templates for the dialogue stages.
	// Optional - defaults to DefaultPrompts().
	Prompts Prompts

	// Logger is the structured logger.
	// Optional - defaults to slog.Default().
	Logger *slog.Logger

	// SessionTTL is how long an untouched session survives.
	// Only used when Sessions is defaulted. Defaults to 1 hour.
	SessionTTL time.Duration

	// RequestTimeout is the maximum time for a chat turn.
	// Defaults to 60 seconds.
	RequestTimeout time.Duration

	// MaxMessageLength caps the length of a single user message.
	// Defaults to 4000 characters.
	MaxMessageLength int

	// MaxRequestBodySize caps the HTTP request body in bytes.
	// Defaults to 64 KiB.
	MaxRequestBodySize int64

	// AllowedOrigins for CORS in the HTTP handler.
	// Defaults to allowing all origins.
	AllowedOrigins []string
}

// withDefaults applies default values to the config.
func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = DefaultSessionTTL
	}
	if c.Sessions == nil {
		c.Sessions = NewMemorySessionStore(c.SessionTTL)
	}
	if c.Locker == nil {
		if locker, ok := c.Sessions.(SessionLocker); ok {
			c.Locker = locker
		} else {
			c.Locker = newMutexLocker()
		}
	}
	c.Prompts = c.Prompts.withDefaults()
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 60 * time.Second
	}
	if c.MaxMessageLength <= 0 {
		c.MaxMessageLength = 4000
	}
	if c.MaxRequestBodySize <= 0 {
		c.MaxRequestBodySize = 64 * 1024
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	return c
}

// validate checks that required config fields are set.
func (c Config) validate() error {
	if c.LLM == nil {
		return NewValidationError("LLM client is required", nil)
	}
	if c.LLM.Chat == nil || c.LLM.ChatJSON == nil {
		return NewValidationError("LLM client must provide Chat and ChatJSON", nil)
	}
	if c.Catalog == nil {
		return NewValidationError("Catalog lookup is required", nil)
	}
	return nil
}
