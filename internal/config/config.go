package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"subtrack/internal/core"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL            string
	AMQPExchange       string
	AMQPPaymentsQueue  string
	AMQPRemindersQueue string

	// Defaults
	DefaultCurrency string

	// Pending quick-add entries
	PendingTTL      time.Duration
	CleanupInterval time.Duration

	// Reminder worker
	ReminderInterval time.Duration

	// Google Sheets export
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/subtrack.db"),

		AMQPURL:            getEnv("AMQP_URL", ""),
		AMQPExchange:       getEnv("AMQP_EXCHANGE", "subtrack"),
		AMQPPaymentsQueue:  getEnv("AMQP_PAYMENTS_QUEUE", "payments_recorded"),
		AMQPRemindersQueue: getEnv("AMQP_REMINDERS_QUEUE", "charge_reminders"),

		DefaultCurrency: getEnv("DEFAULT_CURRENCY", string(core.DefaultCurrency)),

		PendingTTL:      getEnvDuration("PENDING_TTL", 60*time.Minute),
		CleanupInterval: getEnvDuration("CLEANUP_INTERVAL", 5*time.Minute),

		ReminderInterval: getEnvDuration("REMINDER_INTERVAL", time.Hour),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:       getEnv("GOOGLE_SHEET_NAME", "Payments"),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", ""),
	}
}

// Validate checks the configuration and returns one combined error
// listing everything that is wrong.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty")
	}

	if !core.Currency(c.DefaultCurrency).Valid() {
		errs = append(errs, fmt.Sprintf("unsupported default currency '%s'", c.DefaultCurrency))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPPaymentsQueue == "" {
			errs = append(errs, "AMQP payments queue name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRemindersQueue == "" {
			errs = append(errs, "AMQP reminders queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.PendingTTL < time.Minute || c.PendingTTL > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid pending TTL %v: must be between 1 minute and 24 hours", c.PendingTTL))
	}
	if c.CleanupInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid cleanup interval %v: must be at least 1 second", c.CleanupInterval))
	}
	if c.ReminderInterval < time.Minute || c.ReminderInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid reminder interval %v: must be between 1 minute and 24 hours", c.ReminderInterval))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// ValidateExport adds the checks the export worker needs on top of
// Validate: it cannot run without AMQP and Sheets credentials.
func (c *Config) ValidateExport() error {
	if err := c.Validate(); err != nil {
		return err
	}

	var errs []string
	if c.AMQPURL == "" {
		errs = append(errs, "AMQP URL is required for the export worker")
	}
	if c.GoogleSpreadsheetID == "" {
		errs = append(errs, "Google Spreadsheet ID is required for the export worker")
	}
	if c.GoogleCredentialsFile == "" && c.GoogleCredentialsJSON == "" {
		errs = append(errs, "either GOOGLE_CREDENTIALS_FILE or GOOGLE_CREDENTIALS_JSON must be provided")
	}
	if c.GoogleCredentialsFile != "" {
		if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
			errs = append(errs, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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
