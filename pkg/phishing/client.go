// pkg/phishing/client.go
package phishing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/David-Botos/cyberattack-ingress/pkg/config"
)

var (
	// ErrMissingAPIKey is returned when no VirusTotal API key is configured
	ErrMissingAPIKey = errors.New("virustotal API key is not configured")
	// ErrAnalysisTimeout is returned when an analysis does not complete in time
	ErrAnalysisTimeout = errors.New("url analysis did not complete in time")
)

// UpstreamError is a non-200 answer from the lookup service
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("virustotal returned status %d: %s", e.StatusCode, e.Body)
}

// Client submits URLs to VirusTotal and classifies the analysis result
type Client struct {
	cfg        config.VirusTotalConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient creates a new Client. Outbound requests share one limiter sized
// by RequestsPerMinute.
func NewClient(cfg config.VirusTotalConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 4
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm),
		logger:  logger.Named("phishing"),
	}
}

// Check submits target for analysis, waits for the analysis to complete and
// returns its verdict
func (c *Client) Check(ctx context.Context, target string) (*Verdict, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	startTime := time.Now()

	analysisID, err := c.submit(ctx, target)
	if err != nil {
		return nil, err
	}

	stats, err := c.await(ctx, analysisID)
	if err != nil {
		return nil, err
	}

	verdict := classify(target, analysisID, stats)
	c.logger.Info("URL analysis completed",
		zap.String("url", target),
		zap.String("analysis_id", analysisID),
		zap.String("verdict", verdict.Verdict),
		zap.Duration("duration", time.Since(startTime)))
	return verdict, nil
}

// submit posts the URL and returns the analysis id
func (c *Client) submit(ctx context.Context, target string) (string, error) {
	form := url.Values{"url": {target}}
	body, err := c.do(ctx, http.MethodPost, c.cfg.BaseURL+"/urls", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}

	id := gjson.GetBytes(body, "data.id")
	if !id.Exists() || id.String() == "" {
		return "", errors.New("virustotal response has no analysis id")
	}
	return id.String(), nil
}

// await polls the analysis until it is completed or MaxWait elapses
func (c *Client) await(ctx context.Context, analysisID string) (gjson.Result, error) {
	pollCtx, cancel := context.WithTimeout(ctx, c.cfg.MaxWait)
	defer cancel()

	endpoint := c.cfg.BaseURL + "/analyses/" + url.PathEscape(analysisID)
	for attempt := 1; ; attempt++ {
		body, err := c.do(pollCtx, http.MethodGet, endpoint, nil)
		if err != nil {
			return gjson.Result{}, c.pollError(ctx, pollCtx, err)
		}

		attributes := gjson.GetBytes(body, "data.attributes")
		if attributes.Get("status").String() == "completed" {
			return attributes.Get("stats"), nil
		}
		c.logger.Debug("Analysis pending",
			zap.String("analysis_id", analysisID),
			zap.String("status", attributes.Get("status").String()),
			zap.Int("attempt", attempt))

		timer := time.NewTimer(c.cfg.PollInterval)
		select {
		case <-pollCtx.Done():
			timer.Stop()
			return gjson.Result{}, c.pollError(ctx, pollCtx, pollCtx.Err())
		case <-timer.C:
		}
	}
}

// pollError maps expiry of the polling deadline onto ErrAnalysisTimeout
func (c *Client) pollError(parent, pollCtx context.Context, err error) error {
	if parent.Err() == nil && pollCtx.Err() != nil {
		return ErrAnalysisTimeout
	}
	return err
}

// do sends one rate-limited request and returns the body of a 200 answer
func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("x-apikey", c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}
