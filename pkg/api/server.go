// pkg/api/server.go
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/David-Botos/cyberattack-ingress/pkg/config"
	"github.com/David-Botos/cyberattack-ingress/pkg/phishing"
	"github.com/David-Botos/cyberattack-ingress/pkg/report"
)

// URLChecker classifies a URL
type URLChecker interface {
	Check(ctx context.Context, url string) (*phishing.Verdict, error)
}

// Server exposes the EDA report and the phishing lookup over HTTP
type Server struct {
	cfg      *config.Config
	router   *gin.Engine
	analyzer *report.Analyzer
	checker  URLChecker
	reports  *lru.Cache[string, *edaResponse]
	registry *prometheus.Registry
	logger   *zap.Logger
}

// NewServer creates a new Server and registers its routes
func NewServer(cfg *config.Config, analyzer *report.Analyzer, checker URLChecker, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if analyzer == nil {
		analyzer = report.NewAnalyzer(logger)
	}

	reports, err := lru.New[string, *edaResponse](cfg.Server.ReportCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create report cache: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		router:   gin.New(),
		analyzer: analyzer,
		checker:  checker,
		reports:  reports,
		registry: prometheus.NewRegistry(),
		logger:   logger.Named("api"),
	}

	metrics, err := newHTTPMetrics(s.registry)
	if err != nil {
		return nil, err
	}

	s.router.Use(gin.Recovery())
	s.router.Use(requestLogger(s.logger))
	s.router.Use(metrics.middleware())
	s.router.Use(cors(cfg.Server.CORSOrigins))
	s.setupRoutes()

	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(metricsHandler(s.registry)))
	s.router.Static("/static", s.cfg.Paths.StaticDir)

	s.router.GET("/eda/data_accuracy", s.handleDataAccuracy)
	s.router.POST("/phishing/predict", s.handlePhishingPredict)
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled and then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.cfg.Server.Addr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
