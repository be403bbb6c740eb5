// pkg/config/database.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Supported audit database drivers
const (
	AuditDriverPostgres = "pgx"
	AuditDriverSQLite   = "sqlite"
)

// AuditDBConfig holds connection parameters for the cleaning audit store
type AuditDBConfig struct {
	Driver string // "pgx" or "sqlite"
	DSN    string // Postgres connection string or sqlite file path

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	ConnectTimeout   time.Duration // Ping timeout
	StatementTimeout time.Duration // Server-side bound on each statement, postgres only
}

// LoadAuditDBConfig loads the audit store configuration from environment
// variables. It returns nil when no audit driver is configured.
func LoadAuditDBConfig() (*AuditDBConfig, error) {
	driver := os.Getenv("AUDIT_DB_DRIVER")
	if driver == "" {
		return nil, nil
	}

	if driver != AuditDriverPostgres && driver != AuditDriverSQLite {
		return nil, fmt.Errorf("unsupported AUDIT_DB_DRIVER %q (want %s or %s)",
			driver, AuditDriverPostgres, AuditDriverSQLite)
	}

	dsn := os.Getenv("AUDIT_DB_DSN")
	if dsn == "" {
		return nil, errors.New("AUDIT_DB_DSN environment variable is required when AUDIT_DB_DRIVER is set")
	}

	cfg := &AuditDBConfig{
		Driver: driver,
		DSN:    dsn,

		MaxOpenConns:    getEnvAsInt("AUDIT_DB_MAX_OPEN_CONNS", 5),
		MaxIdleConns:    getEnvAsInt("AUDIT_DB_MAX_IDLE_CONNS", 2),
		ConnMaxLifetime: time.Duration(getEnvAsInt("AUDIT_DB_CONN_MAX_LIFETIME_SECONDS", 1800)) * time.Second,
		ConnMaxIdleTime: time.Duration(getEnvAsInt("AUDIT_DB_CONN_MAX_IDLE_TIME_SECONDS", 600)) * time.Second,
		ConnectTimeout:  time.Duration(getEnvAsInt("AUDIT_DB_CONNECT_TIMEOUT_SECONDS", 5)) * time.Second,

		StatementTimeout: time.Duration(getEnvAsInt("AUDIT_DB_STATEMENT_TIMEOUT_SECONDS", 30)) * time.Second,
	}

	// sqlite allows a single writer
	if driver == AuditDriverSQLite {
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
	}

	return cfg, nil
}

// ConnectionString returns the DSN handed to database/sql
func (c *AuditDBConfig) ConnectionString() string {
	return c.DSN
}

// IsPostgres reports whether the audit store is PostgreSQL
func (c *AuditDBConfig) IsPostgres() bool {
	return c.Driver == AuditDriverPostgres
}
