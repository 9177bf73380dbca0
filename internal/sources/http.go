package sources

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"monitoring-service/internal/models"
)

// HTTPProbe checks a site with a bounded GET request. 2xx maps to OK, any
// other response to DEGRADED, and transport errors or timeouts to DOWN.
type HTTPProbe struct {
	name    string
	url     string
	label   string
	client  *http.Client
	timeout time.Duration
}

func NewHTTPProbe(name, url, label string, timeout time.Duration) *HTTPProbe {
	return &HTTPProbe{
		name:    name,
		url:     url,
		label:   label,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

func (p *HTTPProbe) ID() string {
	return p.name
}

func (p *HTTPProbe) Label() string {
	return p.label
}

func (p *HTTPProbe) Fetch(ctx context.Context) models.SourceSnapshot {
	snap := models.SourceSnapshot{
		SourceID:  p.name,
		Timestamp: time.Now(),
		LatencyMs: -1,
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, p.url, nil)
	if err != nil {
		snap.Status = models.StatusUnknown
		snap.Detail = fmt.Sprintf("bad probe url: %v", err)
		return snap
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		snap.Status = models.StatusDown
		snap.Detail = fmt.Sprintf("request failed: %v", err)
		return snap
	}
	defer resp.Body.Close()

	snap.LatencyMs = time.Since(start).Milliseconds()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		snap.Status = models.StatusOK
		snap.Detail = fmt.Sprintf("HTTP %d in %dms", resp.StatusCode, snap.LatencyMs)
	} else {
		snap.Status = models.StatusDegraded
		snap.Detail = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return snap
}
