// pkg/api/handlers.go
package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/David-Botos/cyberattack-ingress/pkg/report"
)

// edaResponse is the body of GET /eda/data_accuracy
type edaResponse struct {
	DataQuality    report.Quality                  `json:"data_quality"`
	Plots          map[string]string               `json:"plots"`
	Skipped        []string                        `json:"skipped"`
	NumericSummary map[string]report.ColumnSummary `json:"numeric_summary"`
}

type predictRequest struct {
	URL string `json:"url" binding:"required"`
}

type predictResponse struct {
	URL        string `json:"url"`
	Verdict    string `json:"verdict"`
	IsPhishing bool   `json:"is_phishing"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleDataAccuracy serves the quality metrics and chart links of the
// cleaned dataset. Reports are cached per dataset version.
func (s *Server) handleDataAccuracy(c *gin.Context) {
	path := s.cfg.Paths.CleanedJSON

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Cleaned dataset not found"})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}

	key := fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
	if cached, ok := s.reports.Get(key); ok {
		c.JSON(http.StatusOK, cached)
		return
	}

	rep, err := s.analyzer.LoadAndAnalyze(path)
	if errors.Is(err, report.ErrDatasetNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Cleaned dataset not found"})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}

	plots, err := report.Publish(rep, s.cfg.ChartDir(), s.cfg.Server.BaseURL)
	if err != nil {
		s.fail(c, err)
		return
	}

	resp := &edaResponse{
		DataQuality:    rep.Quality,
		Plots:          plots,
		Skipped:        rep.Skipped,
		NumericSummary: rep.NumericSummary,
	}
	if resp.Skipped == nil {
		resp.Skipped = []string{}
	}
	s.reports.Add(key, resp)
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handlePhishingPredict(c *gin.Context) {
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	if s.checker == nil {
		s.fail(c, errors.New("phishing lookup is not configured"))
		return
	}

	verdict, err := s.checker.Check(c.Request.Context(), req.URL)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, predictResponse{
		URL:        req.URL,
		Verdict:    verdict.Verdict,
		IsPhishing: verdict.IsPhishing,
	})
}

func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	s.logger.Error("Request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
}
