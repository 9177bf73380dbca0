package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monitoring-service/internal/logging"
	"monitoring-service/internal/models"
)

type fakeAudit struct {
	records []models.AuditRecord
}

func (f *fakeAudit) AppendAudit(_ context.Context, rec models.AuditRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func newProtectedRouter(key string, audit AuditStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	grp := r.Group("/api/v1")
	grp.Use(APIKeyMiddleware(key, audit, logging.NewNop()))
	grp.GET("/health-states", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func TestAPIKeyMiddlewareRejectsAndAudits(t *testing.T) {
	audit := &fakeAudit{}
	r := newProtectedRouter("secret", audit)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health-states", nil)
	req.Header.Set("X-API-Key", "wrong")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.Len(t, audit.records, 1, "exactly one audit record per rejection")
	rec := audit.records[0]
	assert.Equal(t, models.AuditUnauthorized, rec.Kind)
	assert.Equal(t, "denied", rec.Outcome)
	assert.Contains(t, rec.Detail, "GET /api/v1/health-states")
}

func TestAPIKeyMiddlewareRejectsMissingKey(t *testing.T) {
	audit := &fakeAudit{}
	r := newProtectedRouter("secret", audit)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health-states", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Len(t, audit.records, 1)
}

func TestAPIKeyMiddlewareAllowsValidKey(t *testing.T) {
	audit := &fakeAudit{}
	r := newProtectedRouter("secret", audit)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health-states", nil)
	req.Header.Set("X-API-Key", "secret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, audit.records, "authorized requests leave no audit trail")
}

func TestAPIKeyMiddlewareEmptyKeyDisablesCheck(t *testing.T) {
	audit := &fakeAudit{}
	r := newProtectedRouter("", audit)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health-states", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, audit.records)
}
