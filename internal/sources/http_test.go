package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"monitoring-service/internal/models"
)

func TestHTTPProbeOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	probe := NewHTTPProbe("site", srv.URL, "acme", time.Second)
	snap := probe.Fetch(context.Background())
	assert.Equal(t, "site", snap.SourceID)
	assert.Equal(t, models.StatusOK, snap.Status)
	assert.GreaterOrEqual(t, snap.LatencyMs, int64(0))
}

func TestHTTPProbeDegradedOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	probe := NewHTTPProbe("site", srv.URL, "", time.Second)
	snap := probe.Fetch(context.Background())
	assert.Equal(t, models.StatusDegraded, snap.Status)
	assert.Contains(t, snap.Detail, "502")
}

func TestHTTPProbeDownOnConnectionFailure(t *testing.T) {
	// Nothing listens here; the probe must degrade to DOWN, never error.
	probe := NewHTTPProbe("site", "http://127.0.0.1:1", "", 200*time.Millisecond)
	snap := probe.Fetch(context.Background())
	assert.Equal(t, models.StatusDown, snap.Status)
	assert.Equal(t, int64(-1), snap.LatencyMs)
}

func TestHTTPProbeUnknownOnBadURL(t *testing.T) {
	probe := NewHTTPProbe("site", "://bad", "", time.Second)
	snap := probe.Fetch(context.Background())
	assert.Equal(t, models.StatusUnknown, snap.Status)
}
