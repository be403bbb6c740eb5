// pkg/connector/audit.go
package connector

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/David-Botos/cyberattack-ingress/pkg/config"
)

// AuditConnector is a connection to the cleaning audit store
type AuditConnector struct {
	db      *sqlx.DB
	logger  *zap.Logger
	cfg     *config.AuditDBConfig
	release func() // Drops driver-side registrations on Close
}

var _ Store = (*AuditConnector)(nil)

// OpenAuditDB opens the audit store described by cfg, applies the pool
// settings and verifies the connection
func OpenAuditDB(ctx context.Context, cfg *config.AuditDBConfig, logger *zap.Logger) (*AuditConnector, error) {
	if cfg == nil {
		return nil, fmt.Errorf("audit database configuration cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("audit-connector")

	logger.Info("Connecting to audit database", zap.String("driver", cfg.Driver))

	dsn := cfg.ConnectionString()
	release := func() {}
	switch cfg.Driver {
	case config.AuditDriverPostgres:
		registered, unregister, err := registerPostgres(dsn, cfg.StatementTimeout)
		if err != nil {
			return nil, err
		}
		dsn, release = registered, unregister
	case config.AuditDriverSQLite:
		dsn = sqliteDSN(dsn)
	}

	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		release()
		return nil, fmt.Errorf("failed to initialize %s connection: %w", cfg.Driver, err)
	}

	applyPoolSettings(
		db,
		cfg.MaxOpenConns,
		cfg.MaxIdleConns,
		cfg.ConnMaxLifetime,
		cfg.ConnMaxIdleTime,
	)

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	if err := pingWithTimeout(ctx, db, timeout); err != nil {
		db.Close()
		release()
		return nil, fmt.Errorf("failed to connect to audit database: %w", err)
	}

	LogConnectionStats(logger, cfg.Driver, db)
	return &AuditConnector{
		db:      db,
		logger:  logger,
		cfg:     cfg,
		release: release,
	}, nil
}

// DB returns the underlying database connection
func (c *AuditConnector) DB() *sqlx.DB {
	return c.db
}

// IsPostgres reports whether the store is PostgreSQL
func (c *AuditConnector) IsPostgres() bool {
	return c.cfg.IsPostgres()
}

// Validate verifies the connection and reports the server version
func (c *AuditConnector) Validate(ctx context.Context) (string, error) {
	query := "SELECT sqlite_version()"
	if c.cfg.IsPostgres() {
		query = "SELECT version()"
	}

	var version string
	if err := c.db.QueryRowxContext(ctx, query).Scan(&version); err != nil {
		return "", fmt.Errorf("failed to query %s version: %w", c.cfg.Driver, err)
	}
	c.logger.Info("Connected to audit database",
		zap.String("driver", c.cfg.Driver),
		zap.String("version", version))
	return version, nil
}

// Close closes the database connection
func (c *AuditConnector) Close() error {
	c.logger.Info("Closing audit database connection")
	LogConnectionStats(c.logger, c.cfg.Driver, c.db)
	err := c.db.Close()
	c.release()
	return err
}

// ExecWithTimeout executes a statement with a timeout
func (c *AuditConnector) ExecWithTimeout(
	ctx context.Context,
	query string,
	timeout time.Duration,
	args ...interface{},
) (sql.Result, error) {
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.ExecContext(queryCtx, c.db.Rebind(query), args...)
}

// SelectWithTimeout scans all rows of a query into dest within timeout
func (c *AuditConnector) SelectWithTimeout(
	ctx context.Context,
	dest interface{},
	query string,
	timeout time.Duration,
	args ...interface{},
) error {
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.SelectContext(queryCtx, dest, c.db.Rebind(query), args...)
}

// InTx runs fn inside a transaction bounded by timeout. The transaction is
// rolled back when fn or the commit fails.
func (c *AuditConnector) InTx(
	ctx context.Context,
	timeout time.Duration,
	fn func(ctx context.Context, tx *sqlx.Tx) error,
) (err error) {
	txCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tx, err := c.db.BeginTxx(txCtx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				c.logger.Error("Failed to rollback transaction",
					zap.Error(rbErr),
					zap.NamedError("cause", err))
			}
		}
	}()

	if err = fn(txCtx, tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
