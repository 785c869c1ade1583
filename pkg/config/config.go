package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	OTEL        OTELConfig
	Clinic      ClinicConfig
	WhatsApp    WhatsAppConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Roster sources understood by ClinicConfig.RosterSource.
const (
	RosterSourceSeed     = "seed"
	RosterSourcePostgres = "postgres"
)

// ClinicConfig holds queue engine settings
type ClinicConfig struct {
	// RosterSource selects where doctors are loaded from: "seed" or "postgres".
	RosterSource string
	// SeedDoctors is the number of synthetic doctors generated for the seed source.
	SeedDoctors int
	// SeedValue makes synthetic data reproducible.
	SeedValue int64
	// RespectDailyCapacity excludes doctors whose queue already holds their daily capacity.
	RespectDailyCapacity bool
	// NotifyBufferSize bounds the asynchronous notification queue.
	NotifyBufferSize int
	// RosterCacheTTLSeconds is how long a loaded roster stays in Redis.
	RosterCacheTTLSeconds int
}

// WhatsAppConfig holds WhatsApp Cloud API credentials
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string
	// AssignmentTemplate is an approved template taking the doctor ID and wait in
	// minutes. Plain text is sent when it is empty.
	AssignmentTemplate string
	TemplateLanguage   string
}

// Enabled reports whether both credentials are present.
func (c *WhatsAppConfig) Enabled() bool {
	return c.AccessToken != "" && c.PhoneNumberID != ""
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "clinic_queue"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "clinic-queue"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Clinic: ClinicConfig{
			RosterSource:          getEnv("CLINIC_ROSTER_SOURCE", RosterSourceSeed),
			SeedDoctors:           getEnvAsInt("CLINIC_SEED_DOCTORS", 50),
			SeedValue:             int64(getEnvAsInt("CLINIC_SEED", 1)),
			RespectDailyCapacity:  getEnvAsBool("CLINIC_RESPECT_DAILY_CAPACITY", false),
			NotifyBufferSize:      getEnvAsInt("CLINIC_NOTIFY_BUFFER", 256),
			RosterCacheTTLSeconds: getEnvAsInt("CLINIC_ROSTER_CACHE_TTL", 300),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:        getEnv("WHATSAPP_ACCESS_TOKEN", ""),
			PhoneNumberID:      getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
			BaseURL:            getEnv("WHATSAPP_BASE_URL", "https://graph.facebook.com/v18.0"),
			AssignmentTemplate: getEnv("WHATSAPP_ASSIGNMENT_TEMPLATE", ""),
			TemplateLanguage:   getEnv("WHATSAPP_TEMPLATE_LANGUAGE", "en_US"),
		},
	}

	switch cfg.Clinic.RosterSource {
	case RosterSourceSeed, RosterSourcePostgres:
	default:
		return nil, fmt.Errorf("unknown CLINIC_ROSTER_SOURCE %q", cfg.Clinic.RosterSource)
	}
	if cfg.Clinic.SeedDoctors < 0 {
		return nil, fmt.Errorf("CLINIC_SEED_DOCTORS must not be negative")
	}

	return cfg, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ServerAddr returns the listen address
func (c *ServerConfig) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
