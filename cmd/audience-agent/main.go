package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"

	audience "github.com/retailmedia-labs/audience-agent"
	"github.com/retailmedia-labs/audience-agent/catalog"
	"github.com/retailmedia-labs/audience-agent/catalog/postgres"
	"github.com/retailmedia-labs/audience-agent/catalog/sqlite"
	sessionredis "github.com/retailmedia-labs/audience-agent/session/redis"
)

func main() {
	// Best effort, a missing .env file is fine.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(),
	}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	llm, err := buildLLMClient(logger)
	if err != nil {
		return err
	}

	lookup, cleanup, err := buildCatalog(ctx, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := audience.Config{
		LLM:     llm,
		Catalog: lookup,
		Logger:  logger,
	}

	if prompts := os.Getenv("PROMPTS_FILE"); prompts != "" {
		p, err := audience.LoadPromptsFile(prompts)
		if err != nil {
			return fmt.Errorf("failed to load prompts file: %w", err)
		}
		cfg.Prompts = p
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := goredis.ParseURL(redisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		store := sessionredis.NewFromClient(goredis.NewClient(opts))
		cfg.Sessions = store
		cfg.Locker = store
		logger.Info("using redis session store", "addr", opts.Addr)
	}

	agent, err := audience.New(cfg)
	if err != nil {
		return err
	}

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":3001"
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           agent.HTTPHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildLLMClient selects the language service provider from the
// environment. LLM_PROVIDER defaults to openai.
func buildLLMClient(logger *slog.Logger) (*audience.LanguageClient, error) {
	provider := os.Getenv("LLM_PROVIDER")
	if provider == "" {
		provider = "openai"
	}

	switch provider {
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, errors.New("OPENAI_API_KEY is required")
		}
		return audience.NewOpenAIClient(apiKey, logger)
	case "anthropic":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, errors.New("ANTHROPIC_API_KEY is required")
		}
		return audience.NewAnthropicClient(audience.AnthropicConfig{APIKey: apiKey}, logger), nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER: %q", provider)
	}
}

// buildCatalog selects the catalog backend. DATABASE_URL wins over
// CATALOG_DB_PATH; with neither set a small in-memory catalog is used.
func buildCatalog(ctx context.Context, logger *slog.Logger) (catalog.Lookup, func(), error) {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		logger.Info("using postgres catalog")
		return postgres.New(pool), pool.Close, nil
	}

	if path := os.Getenv("CATALOG_DB_PATH"); path != "" {
		db, err := sqlite.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open catalog database: %w", err)
		}
		logger.Info("using sqlite catalog", "path", path)
		return db, func() { _ = db.Close() }, nil
	}

	logger.Info("using in-memory catalog")
	return seededCatalog(), func() {}, nil
}

// seededCatalog returns a small demo catalog for local development.
func seededCatalog() *catalog.MemoryLookup {
	return catalog.NewMemoryLookup([]catalog.ProductRecord{
		{SKU: "SKU-1001", Name: "Trail Runner 5", BuyerCategory: "Outdoor Enthusiasts", ProductCategory: "Running Shoes"},
		{SKU: "SKU-1002", Name: "Trail Runner 5 GTX", BuyerCategory: "Outdoor Enthusiasts", ProductCategory: "Running Shoes"},
		{SKU: "SKU-2001", Name: "Espresso Master 900", BuyerCategory: "Home Baristas", ProductCategory: "Coffee Machines"},
		{SKU: "SKU-2002", Name: "Espresso Master Grinder", BuyerCategory: "Home Baristas", ProductCategory: "Coffee Grinders"},
		{SKU: "SKU-3001", Name: "Yoga Flow Mat", BuyerCategory: "Fitness Beginners", ProductCategory: "Yoga Equipment"},
	})
}

func logLevel() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
