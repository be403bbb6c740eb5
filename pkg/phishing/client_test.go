package phishing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/David-Botos/cyberattack-ingress/pkg/config"
)

// fakeVirusTotal answers submissions with a fixed analysis id and reports
// the analysis as queued for the first pending polls
type fakeVirusTotal struct {
	pending    int32
	stats      string
	polls      int32
	submitted  atomic.Value
	submitCode int
}

func (f *fakeVirusTotal) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/urls", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("x-apikey"))
		assert.NoError(t, r.ParseForm())
		f.submitted.Store(r.PostForm.Get("url"))

		if f.submitCode != 0 {
			w.WriteHeader(f.submitCode)
			fmt.Fprint(w, `{"error": {"code": "QuotaExceededError"}}`)
			return
		}
		fmt.Fprint(w, `{"data": {"type": "analysis", "id": "u-123"}}`)
	})
	mux.HandleFunc("/analyses/u-123", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		if atomic.AddInt32(&f.polls, 1) <= f.pending {
			fmt.Fprint(w, `{"data": {"attributes": {"status": "queued", "stats": {}}}}`)
			return
		}
		fmt.Fprintf(w, `{"data": {"attributes": {"status": "completed", "stats": %s}}}`, f.stats)
	})
	return mux
}

func newTestClient(t *testing.T, fake *fakeVirusTotal, maxWait time.Duration) *Client {
	t.Helper()
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	return NewClient(config.VirusTotalConfig{
		APIKey:            "test-key",
		BaseURL:           server.URL + "/",
		PollInterval:      5 * time.Millisecond,
		MaxWait:           maxWait,
		HTTPTimeout:       time.Second,
		RequestsPerMinute: 6000,
	}, zap.NewNop())
}

func TestCheckClassifies(t *testing.T) {
	tests := []struct {
		name       string
		stats      string
		verdict    string
		isPhishing bool
	}{
		{"malicious", `{"malicious": 3, "suspicious": 1, "harmless": 60}`, VerdictPhishing, true},
		{"suspicious", `{"malicious": 0, "suspicious": 2, "harmless": 60}`, VerdictSuspicious, true},
		{"clean", `{"malicious": 0, "suspicious": 0, "harmless": 70, "undetected": 10}`, VerdictLegitimate, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeVirusTotal{stats: tt.stats}
			client := newTestClient(t, fake, time.Second)

			v, err := client.Check(context.Background(), "http://example.com/login")
			require.NoError(t, err)
			assert.Equal(t, tt.verdict, v.Verdict)
			assert.Equal(t, tt.isPhishing, v.IsPhishing)
			assert.Equal(t, "u-123", v.AnalysisID)
			assert.Equal(t, "http://example.com/login", v.URL)
			assert.Equal(t, "http://example.com/login", fake.submitted.Load())
		})
	}
}

func TestCheckPollsUntilCompleted(t *testing.T) {
	fake := &fakeVirusTotal{pending: 2, stats: `{"malicious": 1}`}
	client := newTestClient(t, fake, 5*time.Second)

	v, err := client.Check(context.Background(), "http://phish.test")
	require.NoError(t, err)
	assert.Equal(t, VerdictPhishing, v.Verdict)
	assert.Equal(t, int32(3), atomic.LoadInt32(&fake.polls))
}

func TestCheckTimesOut(t *testing.T) {
	fake := &fakeVirusTotal{pending: 1 << 30}
	client := newTestClient(t, fake, 50*time.Millisecond)

	_, err := client.Check(context.Background(), "http://slow.test")
	assert.ErrorIs(t, err, ErrAnalysisTimeout)
}

func TestCheckUpstreamError(t *testing.T) {
	fake := &fakeVirusTotal{submitCode: http.StatusTooManyRequests}
	client := newTestClient(t, fake, time.Second)

	_, err := client.Check(context.Background(), "http://example.com")
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream), "got %v", err)
	assert.Equal(t, http.StatusTooManyRequests, upstream.StatusCode)
	assert.Contains(t, upstream.Body, "QuotaExceededError")
}

func TestCheckRequiresAPIKey(t *testing.T) {
	client := NewClient(config.VirusTotalConfig{BaseURL: "http://unused"}, nil)
	_, err := client.Check(context.Background(), "http://example.com")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
