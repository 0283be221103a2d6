package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// HTTP Server
	Host string `yaml:"host"`
	Port string `yaml:"port"`

	// Backend selection
	DataBackend string `yaml:"data_backend"`

	// Spreadsheet file
	LedgerFile  string `yaml:"ledger_file"`
	LedgerSheet string `yaml:"ledger_sheet"`

	// Database
	SQLiteDBPath string `yaml:"sqlite_db_path"`

	// AMQP, disabled when the URL is empty
	AMQPURL      string `yaml:"amqp_url"`
	AMQPExchange string `yaml:"amqp_exchange"`
	AMQPQueue    string `yaml:"amqp_queue"`

	// Google Sheets
	GoogleSpreadsheetID      string `yaml:"google_spreadsheet_id"`
	GoogleSheetName          string `yaml:"google_sheet_name"`
	GoogleServiceAccountFile string `yaml:"google_service_account_file"`
	GoogleServiceAccountJSON string `yaml:"google_service_account_json"`
	GoogleOAuthClientFile    string `yaml:"google_oauth_client_file"`
	GoogleOAuthTokenFile     string `yaml:"google_oauth_token_file"`

	// Worker
	MirrorBackend string        `yaml:"mirror_backend"`
	MirrorFile    string        `yaml:"mirror_file"`
	SyncInterval  time.Duration `yaml:"sync_interval"`

	// Auth
	AppUsername   string `yaml:"app_username"`
	AppPassword   string `yaml:"app_password"`
	SessionSecret string `yaml:"session_secret"`
	AuthDisabled  bool   `yaml:"auth_disabled"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Display
	Currency string `yaml:"currency"`
}

var (
	validBackends       = []string{"xlsx", "sqlite", "sheets", "memory"}
	validMirrorBackends = []string{"sheets", "xlsx"}
	validLogLevels      = []string{"debug", "info", "warn", "error"}
	validLogFormats     = []string{"text", "json"}
)

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:            "5000",
		DataBackend:     "xlsx",
		LedgerFile:      "expenses.xlsx",
		LedgerSheet:     "Sheet1",
		SQLiteDBPath:    "./data/expenses.db",
		AMQPExchange:    "expenses",
		AMQPQueue:       "ledger_changed",
		GoogleSheetName: "Expenses",
		MirrorBackend:   "sheets",
		MirrorFile:      "./data/mirror.xlsx",
		SyncInterval:    5 * time.Minute,
		AppUsername:     "admin",
		LogLevel:        "info",
		LogFormat:       "text",
		Currency:        "EUR",
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE, then the environment. Later sources win.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Host = getEnv("HOST", cfg.Host)
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.DataBackend = strings.ToLower(getEnv("DATA_BACKEND", cfg.DataBackend))
	cfg.LedgerFile = getEnv("LEDGER_FILE", cfg.LedgerFile)
	cfg.LedgerSheet = getEnv("LEDGER_SHEET", cfg.LedgerSheet)
	cfg.SQLiteDBPath = getEnv("SQLITE_DB_PATH", cfg.SQLiteDBPath)

	cfg.AMQPURL = getEnv("AMQP_URL", cfg.AMQPURL)
	cfg.AMQPExchange = getEnv("AMQP_EXCHANGE", cfg.AMQPExchange)
	cfg.AMQPQueue = getEnv("AMQP_QUEUE", cfg.AMQPQueue)

	cfg.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", cfg.GoogleSpreadsheetID)
	cfg.GoogleSheetName = getEnv("GOOGLE_SHEET_NAME", cfg.GoogleSheetName)
	cfg.GoogleServiceAccountFile = getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", cfg.GoogleServiceAccountFile)
	cfg.GoogleServiceAccountJSON = getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", cfg.GoogleServiceAccountJSON)
	cfg.GoogleOAuthClientFile = getEnv("GOOGLE_OAUTH_CLIENT_FILE", cfg.GoogleOAuthClientFile)
	cfg.GoogleOAuthTokenFile = getEnv("GOOGLE_OAUTH_TOKEN_FILE", cfg.GoogleOAuthTokenFile)

	cfg.MirrorBackend = strings.ToLower(getEnv("MIRROR_BACKEND", cfg.MirrorBackend))
	cfg.MirrorFile = getEnv("MIRROR_FILE", cfg.MirrorFile)
	cfg.SyncInterval = getEnvDuration("SYNC_INTERVAL", cfg.SyncInterval)

	cfg.AppUsername = getEnv("APP_USERNAME", cfg.AppUsername)
	cfg.AppPassword = getEnv("APP_PASSWORD", cfg.AppPassword)
	cfg.SessionSecret = getEnv("SESSION_SECRET", cfg.SessionSecret)
	cfg.AuthDisabled = getEnvBool("AUTH_DISABLED", cfg.AuthDisabled)

	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", cfg.LogFormat))
	cfg.Currency = strings.ToUpper(getEnv("CURRENCY", cfg.Currency))

	return &cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "xlsx":
		if c.LedgerFile == "" {
			errors = append(errors, "ledger file cannot be empty when using xlsx backend")
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if msg := ensureDir(c.SQLiteDBPath); msg != "" {
			errors = append(errors, msg)
		}
	case "sheets":
		errors = append(errors, c.validateSheets("sheets backend")...)
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if !slices.Contains(validMirrorBackends, c.MirrorBackend) {
		errors = append(errors, fmt.Sprintf("invalid mirror backend '%s': must be one of %v", c.MirrorBackend, validMirrorBackends))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if !c.AuthDisabled {
		if c.AppUsername == "" {
			errors = append(errors, "APP_USERNAME cannot be empty unless AUTH_DISABLED is set")
		}
		if c.AppPassword == "" {
			errors = append(errors, "APP_PASSWORD cannot be empty unless AUTH_DISABLED is set")
		}
	}

	if !slices.Contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}
	if !slices.Contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validLogFormats))
	}

	if len(c.Currency) != 3 {
		errors = append(errors, fmt.Sprintf("invalid currency '%s': must be a 3-letter ISO code", c.Currency))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateMirror checks the settings the mirror worker needs on top of Validate.
func (c *Config) ValidateMirror() error {
	var errors []string
	switch c.MirrorBackend {
	case "sheets":
		errors = c.validateSheets("sheets mirror")
	case "xlsx":
		if c.MirrorFile == "" {
			errors = append(errors, "MIRROR_FILE cannot be empty when mirroring to xlsx")
		}
	}
	if len(errors) > 0 {
		return fmt.Errorf("mirror configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) validateSheets(what string) []string {
	var errors []string
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, fmt.Sprintf("Google Spreadsheet ID is required when using %s", what))
	}
	if c.GoogleSheetName == "" {
		errors = append(errors, fmt.Sprintf("Google Sheet name is required when using %s", what))
	}

	hasServiceAccount := c.GoogleServiceAccountFile != "" || c.GoogleServiceAccountJSON != ""
	hasOAuth := c.GoogleOAuthClientFile != "" && c.GoogleOAuthTokenFile != ""
	if !hasServiceAccount && !hasOAuth {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE/GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_OAUTH_CLIENT_FILE with GOOGLE_OAUTH_TOKEN_FILE must be provided for "+what)
	}

	for _, f := range []struct{ name, path string }{
		{"Google service account file", c.GoogleServiceAccountFile},
		{"Google OAuth client file", c.GoogleOAuthClientFile},
		{"Google OAuth token file", c.GoogleOAuthTokenFile},
	} {
		if f.path == "" {
			continue
		}
		if _, err := os.Stat(f.path); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("%s does not exist: %s", f.name, f.path))
		}
	}
	return errors
}

func ensureDir(path string) string {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return ""
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err)
		}
	}
	return ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
