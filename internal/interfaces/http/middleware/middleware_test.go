package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"plc-agent-api/internal/domain/entity"
	"plc-agent-api/internal/infrastructure/messaging"
	"plc-agent-api/pkg/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthEngine() *gin.Engine {
	r := gin.New()
	r.Use(Auth(AuthConfig{Secret: "s3cret", Issuer: "plc-agent", Enabled: true, SkipPaths: DefaultSkipPaths}))
	r.GET("/v1/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c), "tier": Tier(c)})
	})
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestAuth(t *testing.T) {
	jwt := utils.NewJWTManager("s3cret", "plc-agent")
	access, _ := jwt.GenerateToken("u-1", "pro", utils.TokenTypeAccess, time.Minute)
	refresh, _ := jwt.GenerateToken("u-1", "pro", utils.TokenTypeRefresh, time.Minute)
	expired, _ := jwt.GenerateToken("u-1", "pro", utils.TokenTypeAccess, -time.Minute)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"valid access token", "/v1/me", "Bearer " + access, http.StatusOK},
		{"missing header", "/v1/me", "", http.StatusUnauthorized},
		{"bad scheme", "/v1/me", "Token " + access, http.StatusUnauthorized},
		{"refresh token rejected", "/v1/me", "Bearer " + refresh, http.StatusUnauthorized},
		{"expired", "/v1/me", "Bearer " + expired, http.StatusUnauthorized},
		{"lowercase scheme", "/v1/me", "bearer " + access, http.StatusOK},
		{"skip path", "/health", "", http.StatusOK},
		{"skip is exact", "/healthz", "", http.StatusUnauthorized},
	}
	r := newAuthEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestTierDefaultsToFree(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if Tier(c) != entity.TierFree {
		t.Fatalf("tier = %s", Tier(c))
	}
	c.Set(ContextTier, "enterprise")
	if Tier(c) != entity.TierEnterprise {
		t.Fatalf("tier = %s", Tier(c))
	}
}

type countingLimiter struct {
	allowed int
	keys    []string
	err     error
}

func (l *countingLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	l.keys = append(l.keys, key)
	if l.err != nil {
		return false, l.err
	}
	l.allowed--
	return l.allowed >= 0, nil
}

func TestRateLimit(t *testing.T) {
	limiter := &countingLimiter{allowed: 1}
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(ContextUserID, "u-1") })
	r.Use(RateLimit(RateLimitConfig{Enabled: true, RequestsPerSecond: 1}, limiter))
	r.GET("/v1/usage", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/usage", nil))
		if w.Code != want {
			t.Fatalf("request %d status = %d, want %d", i, w.Code, want)
		}
		if w.Header().Get("X-RateLimit-Limit") != "1" {
			t.Fatalf("limit header = %q", w.Header().Get("X-RateLimit-Limit"))
		}
	}
	if limiter.keys[0] != "ratelimit:u-1:/v1/usage" {
		t.Fatalf("key = %q", limiter.keys[0])
	}

	limiter.err = errors.New("redis down")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/usage", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("limiter failure should pass through, got %d", w.Code)
	}
}

type recordingPublisher struct {
	logs []*messaging.AuditLogMessage
}

func (p *recordingPublisher) PublishAuditLog(_ context.Context, log *messaging.AuditLogMessage) (string, error) {
	p.logs = append(p.logs, log)
	return "1-0", nil
}

func TestAuditPublishesMutationsOnly(t *testing.T) {
	pub := &recordingPublisher{}
	r := gin.New()
	r.Use(AuditWithConfig(AuditConfig{Enabled: true, SkipPaths: DefaultAuditSkipPaths}, pub))
	r.Use(func(c *gin.Context) { c.Set(ContextUserID, "u-1") })
	r.GET("/v1/projects", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/v1/projects", func(c *gin.Context) { c.Status(http.StatusCreated) })

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(method, "/v1/projects", nil))
	}
	if len(pub.logs) != 1 {
		t.Fatalf("published %d logs, want 1", len(pub.logs))
	}
	got := pub.logs[0]
	if got.UserID != "u-1" || got.Action != http.MethodPost || got.Status != http.StatusCreated || got.ResourceType != "/v1/projects" {
		t.Fatalf("log = %+v", got)
	}
}
