package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Storage backends accepted by STORAGE_BACKEND.
const (
	BackendMongoDB = "mongodb"
	BackendMemory  = "memory"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Storage   StorageConfig
	MongoDB   MongoDBConfig
	Identity  IdentityConfig
	Redis     RedisConfig
	RabbitMQ  RabbitMQConfig
	WhatsApp  WhatsAppConfig
	Sheets    SheetsConfig
	Schedules ScheduleConfig
	History   HistoryConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// LogConfig controls the zap logger level.
type LogConfig struct {
	Level string
}

// StorageConfig selects the document store implementation.
type StorageConfig struct {
	Backend string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// IdentityConfig points at the email/password identity provider.
type IdentityConfig struct {
	APIKey  string
	BaseURL string
}

// RedisConfig enables the shared session store when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis server was configured.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// RabbitMQConfig enables the change feed publisher when URL is set.
type RabbitMQConfig struct {
	URL string
}

// Enabled reports whether a broker URL was configured.
func (c RabbitMQConfig) Enabled() bool { return c.URL != "" }

// WhatsAppConfig contains credentials for the Meta WhatsApp Cloud API used by
// low-stock alerts.
type WhatsAppConfig struct {
	AccessToken    string
	PhoneNumberID  string
	BaseURL        string
	APIVersion     string
	AlertRecipient string
}

// Enabled reports whether alerts can be delivered over WhatsApp.
func (c WhatsAppConfig) Enabled() bool {
	return c.AccessToken != "" && c.PhoneNumberID != "" && c.AlertRecipient != ""
}

// SheetsConfig contains configuration required to export the ledger to Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	HistoryRange    string
}

// Enabled reports whether ledger export to Sheets is configured.
func (c SheetsConfig) Enabled() bool {
	return c.CredentialsPath != "" && c.SpreadsheetID != ""
}

// ScheduleConfig holds cron expressions for background jobs.
type ScheduleConfig struct {
	LowStockDigest string
	SheetsSync     string
}

// HistoryConfig holds history table defaults.
type HistoryConfig struct {
	PageSize int
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// A missing .env is fine when everything comes from the environment.
		_ = godotenv.Load()
	}

	redisDB, err := getenvInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	pageSize, err := getenvInt("HISTORY_PAGE_SIZE", 10)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			Backend: getenvWithDefault("STORAGE_BACKEND", BackendMongoDB),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "fleetstock"),
		},
		Identity: IdentityConfig{
			APIKey:  os.Getenv("IDENTITY_API_KEY"),
			BaseURL: getenvWithDefault("IDENTITY_BASE_URL", "https://identitytoolkit.googleapis.com/v1"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		RabbitMQ: RabbitMQConfig{
			URL: os.Getenv("RABBITMQ_URL"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:    os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID:  os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			BaseURL:        getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:     getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			AlertRecipient: os.Getenv("ALERT_RECIPIENT"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_ID"),
			HistoryRange:    getenvWithDefault("SHEETS_HISTORY_RANGE", "History!A:L"),
		},
		Schedules: ScheduleConfig{
			LowStockDigest: getenvWithDefault("LOW_STOCK_CRON", "0 7 * * *"),
			SheetsSync:     getenvWithDefault("SHEETS_SYNC_CRON", "*/30 * * * *"),
		},
		History: HistoryConfig{
			PageSize: pageSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendMongoDB:
		switch {
		case c.MongoDB.URI == "":
			return errors.New("MONGODB_URI must be provided")
		case c.MongoDB.DBName == "":
			return errors.New("MONGODB_DB_NAME must be provided")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND %q is not supported", c.Storage.Backend)
	}

	if c.Identity.APIKey == "" {
		return errors.New("IDENTITY_API_KEY must be provided")
	}

	if c.Identity.BaseURL == "" {
		return errors.New("IDENTITY_BASE_URL must not be empty")
	}

	if c.Sheets.Enabled() && c.Sheets.HistoryRange == "" {
		return errors.New("SHEETS_HISTORY_RANGE must not be empty")
	}

	if c.Schedules.LowStockDigest == "" {
		return errors.New("LOW_STOCK_CRON must be provided")
	}

	if c.History.PageSize <= 0 {
		return errors.New("HISTORY_PAGE_SIZE must be positive")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
