package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mbarki/trendpilot/internal/api"
	"github.com/mbarki/trendpilot/internal/bot"
	"github.com/mbarki/trendpilot/internal/gemini"
	"github.com/mbarki/trendpilot/internal/genai"
	"github.com/mbarki/trendpilot/internal/health"
	"github.com/mbarki/trendpilot/internal/imaging"
	"github.com/mbarki/trendpilot/internal/linkedin"
	"github.com/mbarki/trendpilot/internal/perplexity"
	"github.com/mbarki/trendpilot/internal/pipeline"
	"github.com/mbarki/trendpilot/internal/ratelimit"
	"github.com/mbarki/trendpilot/internal/session"
	"github.com/mbarki/trendpilot/internal/store"
	"github.com/mbarki/trendpilot/internal/telegram"
	"github.com/mbarki/trendpilot/internal/trends"
	"github.com/mbarki/trendpilot/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for trendpilot state data
	DefaultStateDir = "/var/lib/trendpilot"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "trendpilot.db"
	// DefaultAPIAddr is the default operational API listen address
	DefaultAPIAddr = ":8080"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	if *flags.telegramToken == "" {
		slog.Error("TELEGRAM_BOT_TOKEN is required")
		os.Exit(1)
	}

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	archive := buildArchiveStore(flags)
	defer archive.Close()

	monitor := health.NewMonitor()
	recorder := health.NewRecorder(monitor, archive)

	service := buildBot(flags, archive, monitor, recorder)

	// Serve the operational API alongside the bot.
	apiServer := api.NewServer(monitor, recorder)
	go func() {
		if err := apiServer.ListenAndServe(*flags.apiAddr); err != nil {
			slog.Error("API server stopped", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping trendpilot", "api_addr", *flags.apiAddr)
	if err := service.Run(ctx); err != nil && err != context.Canceled {
		slog.Error("Trendpilot failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("Trendpilot exited successfully")
}

// Config holds environment configuration
type Config struct {
	TelegramToken  string
	GeminiKey      string
	OpenAIKey      string
	PerplexityKey  string
	LinkedInToken  string
	LinkedInURN    string
	DatabaseURL    string
	StateDir       string
	APIAddr        string
	RateLimitMax   int
	SessionTimeout int
}

// Flags holds command line flag values
type Flags struct {
	telegramToken *string
	geminiKey     *string
	openaiKey     *string
	perplexityKey *string
	linkedinToken *string
	linkedinURN   *string
	dbDSN         *string
	stateDir      *string
	apiAddr       *string
	rateLimitMax  *int
	sessionSecs   *int
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		TelegramToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		GeminiKey:      os.Getenv("GEMINI_API_KEY"),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		PerplexityKey:  os.Getenv("PERPLEXITY_API_KEY"),
		LinkedInToken:  os.Getenv("LINKEDIN_ACCESS_TOKEN"),
		LinkedInURN:    os.Getenv("LINKEDIN_URN"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		StateDir:       os.Getenv("TRENDPILOT_STATE_DIR"),
		APIAddr:        os.Getenv("API_ADDR"),
		RateLimitMax:   util.ParseIntEnv("RATE_LIMIT_MAX_REQUESTS", ratelimit.DefaultMaxRequests),
		SessionTimeout: util.ParseIntEnv("SESSION_TIMEOUT_SECONDS", int(session.DefaultTimeout.Seconds())),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No TRENDPILOT_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	if config.APIAddr == "" {
		config.APIAddr = DefaultAPIAddr
	}

	slog.Debug("environment variables loaded",
		"TELEGRAM_BOT_TOKEN_SET", config.TelegramToken != "",
		"GEMINI_API_KEY_SET", config.GeminiKey != "",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"PERPLEXITY_API_KEY_SET", config.PerplexityKey != "",
		"LINKEDIN_ACCESS_TOKEN_SET", config.LinkedInToken != "",
		"LINKEDIN_URN_SET", config.LinkedInURN != "",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"TRENDPILOT_STATE_DIR", config.StateDir,
		"API_ADDR", config.APIAddr,
		"RATE_LIMIT_MAX_REQUESTS", config.RateLimitMax,
		"SESSION_TIMEOUT_SECONDS", config.SessionTimeout)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		telegramToken: flag.String("telegram-token", config.TelegramToken, "Telegram bot token (overrides $TELEGRAM_BOT_TOKEN)"),
		geminiKey:     flag.String("gemini-api-key", config.GeminiKey, "Gemini API key (overrides $GEMINI_API_KEY)"),
		openaiKey:     flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		perplexityKey: flag.String("perplexity-api-key", config.PerplexityKey, "Perplexity API key (overrides $PERPLEXITY_API_KEY)"),
		linkedinToken: flag.String("linkedin-token", config.LinkedInToken, "LinkedIn access token (overrides $LINKEDIN_ACCESS_TOKEN)"),
		linkedinURN:   flag.String("linkedin-urn", config.LinkedInURN, "LinkedIn author URN (overrides $LINKEDIN_URN)"),
		dbDSN:         flag.String("db-dsn", config.DatabaseURL, "archive database DSN (overrides $DATABASE_URL)"),
		stateDir:      flag.String("state-dir", config.StateDir, "state directory for trendpilot data (overrides $TRENDPILOT_STATE_DIR)"),
		apiAddr:       flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		rateLimitMax:  flag.Int("rate-limit-max", config.RateLimitMax, "max requests per rate-limit window (overrides $RATE_LIMIT_MAX_REQUESTS)"),
		sessionSecs:   flag.Int("session-timeout", config.SessionTimeout, "session inactivity timeout in seconds (overrides $SESSION_TIMEOUT_SECONDS)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"telegramTokenSet", *flags.telegramToken != "",
		"geminiKeySet", *flags.geminiKey != "",
		"openaiKeySet", *flags.openaiKey != "",
		"perplexityKeySet", *flags.perplexityKey != "",
		"linkedinTokenSet", *flags.linkedinToken != "",
		"dbDSN_set", *flags.dbDSN != "",
		"stateDir", *flags.stateDir,
		"apiAddr", *flags.apiAddr,
		"rateLimitMax", *flags.rateLimitMax,
		"sessionSecs", *flags.sessionSecs)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// buildArchiveStore opens the archive backend matching the DSN. Archive
// storage is non-critical, so open failures degrade to the in-memory store.
func buildArchiveStore(flags Flags) store.Store {
	if *flags.dbDSN == "" {
		slog.Debug("No database DSN provided, using in-memory store")
		return store.NewInMemoryStore()
	}

	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		st, err := store.NewPostgresStore(store.WithPostgresDSN(*flags.dbDSN))
		if err != nil {
			slog.Error("Failed to open PostgreSQL store, falling back to in-memory", "error", err)
			return store.NewInMemoryStore()
		}
		return st
	}

	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
	st, err := store.NewSQLiteStore(store.WithSQLiteDSN(*flags.dbDSN))
	if err != nil {
		slog.Error("Failed to open SQLite store, falling back to in-memory", "error", err)
		return store.NewInMemoryStore()
	}
	return st
}

// buildBot assembles the provider chains and the dispatch loop.
func buildBot(flags Flags, archive store.Store, monitor *health.Monitor, recorder *health.Recorder) *bot.Bot {
	perplexityClient := perplexity.NewClient(perplexity.WithAPIKey(*flags.perplexityKey))
	geminiClient := gemini.NewClient(gemini.WithAPIKey(*flags.geminiKey))

	// Research runs gemini then openai; content adds perplexity as the final
	// tier. The chains are intentionally different.
	var research []pipeline.ResearchProvider
	var content []pipeline.ContentProvider
	if *flags.geminiKey != "" {
		research = append(research, geminiClient)
		content = append(content, geminiClient)
	}
	if *flags.openaiKey != "" {
		openaiClient, err := genai.NewClient(genai.WithAPIKey(*flags.openaiKey))
		if err != nil {
			slog.Error("Failed to create OpenAI client, skipping provider", "error", err)
		} else {
			research = append(research, openaiClient)
			content = append(content, openaiClient)
		}
	}
	if *flags.perplexityKey != "" {
		content = append(content, perplexityClient)
	}
	slog.Info("Provider chains assembled", "research_providers", len(research), "content_providers", len(content))

	contentPipeline := pipeline.New(
		pipeline.WithResearchChain(research...),
		pipeline.WithContentChain(content...),
		pipeline.WithTemplateRenderer(imaging.NewTemplateRenderer()),
	)

	publisher := linkedin.NewPublisher(
		linkedin.WithAccessToken(*flags.linkedinToken),
		linkedin.WithAuthorURN(*flags.linkedinURN),
	)

	return bot.New(
		bot.WithMessenger(telegram.NewClient(telegram.WithToken(*flags.telegramToken))),
		bot.WithSessions(session.NewStore(session.WithTimeout(time.Duration(*flags.sessionSecs)*time.Second))),
		bot.WithLimiter(ratelimit.NewLimiter(ratelimit.WithMaxRequests(*flags.rateLimitMax))),
		bot.WithMonitor(monitor),
		bot.WithRecorder(recorder),
		bot.WithTrendStage(trends.NewStage(perplexityClient)),
		bot.WithPipeline(contentPipeline),
		bot.WithPublisher(publisher),
		bot.WithArchive(archive),
	)
}
