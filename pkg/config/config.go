// pkg/config/config.go
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config represents the application configuration
type Config struct {
	Paths      PathsConfig
	Server     ServerConfig
	VirusTotal VirusTotalConfig

	// Optional cleaning audit store
	Audit *AuditDBConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// PathsConfig locates pipeline inputs and outputs
type PathsConfig struct {
	DataDir       string
	GlobalSource  string // First merger input
	DefenseSource string // Second merger input
	MergedCSV     string
	MergedJSON    string
	CleanedJSON   string // Durable artifact consumed by reporting
	StaticDir     string // Root served under /static; charts go to <StaticDir>/eda
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Addr            string
	BaseURL         string // Public URL used to build chart links
	CORSOrigins     []string
	ReportCacheSize int
	ShutdownTimeout time.Duration
}

// VirusTotalConfig holds URL-reputation lookup settings
type VirusTotalConfig struct {
	APIKey            string
	BaseURL           string
	PollInterval      time.Duration
	MaxWait           time.Duration
	HTTPTimeout       time.Duration
	RequestsPerMinute int
}

// LoadConfig loads configuration from environment variables and validates it
func LoadConfig() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load reads configuration from environment variables without validating it,
// for callers that apply their own overrides first
func Load() (*Config, error) {
	dataDir := getEnv("DATA_DIR", "data")

	cfg := &Config{
		Paths: PathsConfig{
			DataDir:       dataDir,
			GlobalSource:  getEnv("GLOBAL_SOURCE", filepath.Join(dataDir, "global.csv")),
			DefenseSource: getEnv("DEFENSE_SOURCE", filepath.Join(dataDir, "defense.csv")),
			MergedCSV:     getEnv("MERGED_CSV", filepath.Join(dataDir, "merged_cyberattacks.csv")),
			MergedJSON:    getEnv("MERGED_JSON", filepath.Join(dataDir, "merged_cyberattacks.json")),
			CleanedJSON:   getEnv("CLEANED_JSON", filepath.Join(dataDir, "cleaned_cyberattacks.json")),
			StaticDir:     getEnv("STATIC_DIR", "static"),
		},
		Server: ServerConfig{
			Addr:            getEnv("HTTP_ADDR", ":8000"),
			BaseURL:         strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:8000"), "/"),
			CORSOrigins:     getEnvAsStringSlice("CORS_ORIGINS", []string{"*"}),
			ReportCacheSize: getEnvAsInt("REPORT_CACHE_SIZE", 8),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT_SECONDS", 10, time.Second),
		},
		VirusTotal: VirusTotalConfig{
			APIKey:            os.Getenv("VT_API_KEY"),
			BaseURL:           strings.TrimRight(getEnv("VT_BASE_URL", "https://www.virustotal.com/api/v3"), "/"),
			PollInterval:      getEnvAsDuration("VT_POLL_INTERVAL_MS", 2000, time.Millisecond),
			MaxWait:           getEnvAsDuration("VT_MAX_WAIT_SECONDS", 30, time.Second),
			HTTPTimeout:       getEnvAsDuration("VT_HTTP_TIMEOUT_SECONDS", 15, time.Second),
			RequestsPerMinute: getEnvAsInt("VT_REQUESTS_PER_MINUTE", 4),
		},
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	auditCfg, err := LoadAuditDBConfig()
	if err != nil {
		return nil, errors.New("failed to load audit database configuration: " + err.Error())
	}
	cfg.Audit = auditCfg

	return cfg, nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	if c.Paths.GlobalSource == "" || c.Paths.DefenseSource == "" {
		return errors.New("both merge sources are required")
	}

	if c.Paths.MergedJSON == "" || c.Paths.MergedCSV == "" {
		return errors.New("merged output paths are required")
	}

	if c.Paths.CleanedJSON == "" {
		return errors.New("cleaned output path is required")
	}

	if filepath.Ext(c.Paths.MergedJSON) != ".json" || filepath.Ext(c.Paths.CleanedJSON) != ".json" {
		return errors.New("merged and cleaned datasets must be .json files")
	}

	if filepath.Ext(c.Paths.MergedCSV) != ".csv" {
		return errors.New("merged delimited output must be a .csv file")
	}

	if c.Server.ReportCacheSize <= 0 {
		return errors.New("report cache size must be positive")
	}

	if c.VirusTotal.PollInterval <= 0 || c.VirusTotal.MaxWait <= 0 {
		return errors.New("virustotal poll interval and max wait must be positive")
	}

	if c.VirusTotal.RequestsPerMinute <= 0 {
		return errors.New("virustotal request rate must be positive")
	}

	return nil
}

// ChartDir returns the directory EDA chart specs are published to
func (c *Config) ChartDir() string {
	return filepath.Join(c.Paths.StaticDir, "eda")
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue int, unit time.Duration) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultValue)) * unit
}

// Helper function to parse string slice from environment
func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}
