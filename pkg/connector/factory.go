// pkg/connector/factory.go
package connector

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/cyberattack-ingress/pkg/config"
)

// ConnectorFactory creates database connectors
type ConnectorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewConnectorFactory creates a new connector factory
func NewConnectorFactory(cfg *config.Config, logger *zap.Logger) *ConnectorFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnectorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// AuditEnabled reports whether an audit store is configured
func (f *ConnectorFactory) AuditEnabled() bool {
	return f.cfg != nil && f.cfg.Audit != nil
}

// CreateAuditConnector opens the configured audit store. It returns nil
// without error when auditing is disabled.
func (f *ConnectorFactory) CreateAuditConnector(ctx context.Context) (*AuditConnector, error) {
	if !f.AuditEnabled() {
		f.logger.Info("Cleaning audit disabled")
		return nil, nil
	}

	f.logger.Info("Creating audit connector", zap.String("driver", f.cfg.Audit.Driver))

	connector, err := OpenAuditDB(ctx, f.cfg.Audit, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit connector: %w", err)
	}

	if _, err := connector.Validate(ctx); err != nil {
		connector.Close()
		return nil, fmt.Errorf("failed to validate audit connector: %w", err)
	}

	return connector, nil
}
