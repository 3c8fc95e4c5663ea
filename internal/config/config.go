package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all configuration for the bot
type Config struct {
	// Outcome tokens for the tracked binary market
	TokenIDUp   string
	TokenIDDown string

	// Reference price feed
	ReferenceBaseURL string
	ReferenceWSURL   string // optional streaming feed, overrides polling when set
	ReferenceSymbol  string

	// Signal settings
	DriftThreshold decimal.Decimal // e.g. 0.0010 = 0.10% reference move

	// Position settings
	MaxPositionNotional decimal.Decimal // USD per trade
	ClampToTopOfBook    bool
	MaxHold             time.Duration
	Cooldown            time.Duration

	// Polling cadence
	ReferencePollInterval time.Duration
	MarketPollInterval    time.Duration

	// Mode
	DryRun bool
	Debug  bool

	// Polymarket CLOB
	CLOBBaseURL    string
	CLOBApiKey     string
	CLOBApiSecret  string
	CLOBPassphrase string

	// Wallet
	WalletPrivateKey string
	FunderAddress    string
	SignatureType    int // 0=EOA, 1=Magic/Email, 2=Proxy

	// Telegram (optional)
	TelegramToken  string
	TelegramChatID int64

	// Database
	DatabasePath string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		TokenIDUp:   os.Getenv("TOKEN_ID_UP"),
		TokenIDDown: os.Getenv("TOKEN_ID_DOWN"),

		ReferenceBaseURL: getEnv("REFERENCE_BASE_URL", "https://api.hyperliquid.xyz"),
		ReferenceWSURL:   os.Getenv("REFERENCE_WS_URL"),
		ReferenceSymbol:  getEnv("REFERENCE_SYMBOL", "BTC"),

		DriftThreshold: getEnvDecimal("DRIFT_THRESHOLD", decimal.NewFromFloat(0.0010)),

		MaxPositionNotional: getEnvDecimal("MAX_POSITION_NOTIONAL", decimal.NewFromInt(25)),
		ClampToTopOfBook:    getEnvBool("CLAMP_TO_TOP_OF_BOOK", true),
		MaxHold:             time.Duration(getEnvInt("MAX_HOLD_SECONDS", 30)) * time.Second,
		Cooldown:            time.Duration(getEnvInt("COOLDOWN_SECONDS", 5)) * time.Second,

		ReferencePollInterval: time.Duration(getEnvInt("REFERENCE_POLL_MS", 200)) * time.Millisecond,
		MarketPollInterval:    time.Duration(getEnvInt("MARKET_POLL_MS", 200)) * time.Millisecond,

		DryRun: getEnvBool("DRY_RUN", true),
		Debug:  getEnvBool("DEBUG", false),

		CLOBBaseURL:    getEnv("CLOB_BASE_URL", "https://clob.polymarket.com"),
		CLOBApiKey:     os.Getenv("CLOB_API_KEY"),
		CLOBApiSecret:  os.Getenv("CLOB_API_SECRET"),
		CLOBPassphrase: os.Getenv("CLOB_PASSPHRASE"),

		WalletPrivateKey: os.Getenv("WALLET_PRIVATE_KEY"),
		FunderAddress:    os.Getenv("FUNDER_ADDRESS"),
		SignatureType:    getEnvInt("SIGNATURE_TYPE", 0),

		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),

		DatabasePath: getEnv("DATABASE_PATH", "data/lagbot.db"),
	}

	// Parse chat ID
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}

	// Validate required fields
	if cfg.TokenIDUp == "" {
		return nil, fmt.Errorf("TOKEN_ID_UP is required")
	}
	if cfg.TokenIDDown == "" {
		return nil, fmt.Errorf("TOKEN_ID_DOWN is required")
	}
	if cfg.DriftThreshold.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("DRIFT_THRESHOLD must be positive")
	}

	return cfg, nil
}

// PollInterval is the loop cadence: the slower of the two feed intervals.
func (c *Config) PollInterval() time.Duration {
	if c.ReferencePollInterval > c.MarketPollInterval {
		return c.ReferencePollInterval
	}
	return c.MarketPollInterval
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
