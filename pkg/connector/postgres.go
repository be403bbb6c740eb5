// pkg/connector/postgres.go
package connector

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/stdlib"
)

// postgresConnConfig parses dsn and adds a statement_timeout runtime
// parameter, sent on every new connection of the pool
func postgresConnConfig(dsn string, statementTimeout time.Duration) (*pgx.ConnConfig, error) {
	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres DSN: %w", err)
	}
	if statementTimeout > 0 {
		connConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(statementTimeout.Milliseconds(), 10)
	}
	return connConfig, nil
}

// registerPostgres registers the connection config with the pgx stdlib
// driver and returns the name to open it by
func registerPostgres(dsn string, statementTimeout time.Duration) (string, func(), error) {
	connConfig, err := postgresConnConfig(dsn, statementTimeout)
	if err != nil {
		return "", nil, err
	}
	name := stdlib.RegisterConnConfig(connConfig)
	return name, func() { stdlib.UnregisterConnConfig(name) }, nil
}
