package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func uploadRouter(limiter *RateLimiter, rule RateLimitRule, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set("userId", userID)
		}
		c.Next()
	})
	limit := UploadLimit(limiter, rule)
	r.POST("/api/v1/drivers/documents", limit, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/api/v1/drivers/:id/documents", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(method, path, nil))
	return resp
}

func TestUploadLimitOnlyThrottlesWrappedRoutes(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	r := uploadRouter(NewRateLimiter(func() time.Time { return now }), RateLimitRule{Rate: 1, Burst: 2}, "ops-1")

	for i := 0; i < 5; i++ {
		if resp := serve(r, http.MethodGet, "/api/v1/drivers/d1/documents"); resp.Code != http.StatusOK {
			t.Fatalf("read %d expected 200, got %d", i+1, resp.Code)
		}
	}
	for i := 0; i < 2; i++ {
		if resp := serve(r, http.MethodPost, "/api/v1/drivers/documents"); resp.Code != http.StatusOK {
			t.Fatalf("upload %d expected 200, got %d", i+1, resp.Code)
		}
	}
	if resp := serve(r, http.MethodPost, "/api/v1/drivers/documents"); resp.Code != http.StatusTooManyRequests {
		t.Fatalf("upload 3 expected 429, got %d", resp.Code)
	}
}

func TestUploadLimit429Envelope(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	r := uploadRouter(NewRateLimiter(func() time.Time { return now }), RateLimitRule{Rate: 0.5, Burst: 1}, "ops-1")

	if resp := serve(r, http.MethodPost, "/api/v1/drivers/documents"); resp.Code != http.StatusOK {
		t.Fatalf("expected first upload 200, got %d", resp.Code)
	}
	resp := serve(r, http.MethodPost, "/api/v1/drivers/documents")
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.Code)
	}
	if got := resp.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("expected Retry-After 2, got %q", got)
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["code"] != "rate_limited" || payload["success"] != false {
		t.Fatalf("unexpected envelope: %v", payload)
	}
	if payload["retryAfterMs"] != float64(2000) {
		t.Fatalf("expected retryAfterMs 2000, got %v", payload["retryAfterMs"])
	}
}

func TestUploadLimitFallsBackToClientIP(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })
	r := uploadRouter(limiter, RateLimitRule{Rate: 1, Burst: 1}, "")

	serve(r, http.MethodPost, "/api/v1/drivers/documents")
	if resp := serve(r, http.MethodPost, "/api/v1/drivers/documents"); resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected anonymous caller to be throttled, got %d", resp.Code)
	}
	if limiter.Len() != 1 {
		t.Fatalf("expected one bucket, got %d", limiter.Len())
	}
}

func TestRateLimiterRefillsOverTime(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })
	rule := RateLimitRule{Rate: 2, Burst: 1}

	if ok, _ := limiter.Allow("k", rule); !ok {
		t.Fatalf("expected first call allowed")
	}
	ok, retry := limiter.Allow("k", rule)
	if ok {
		t.Fatalf("expected second call throttled")
	}
	if retry != 500*time.Millisecond {
		t.Fatalf("expected 500ms retry, got %s", retry)
	}

	now = now.Add(500 * time.Millisecond)
	if ok, _ := limiter.Allow("k", rule); !ok {
		t.Fatalf("expected refill after 500ms")
	}
}

func TestRateLimiterDisabledRule(t *testing.T) {
	limiter := NewRateLimiter(nil)
	for i := 0; i < 10; i++ {
		if ok, _ := limiter.Allow("k", RateLimitRule{}); !ok {
			t.Fatal("zero rule should never throttle")
		}
	}
	if limiter.Len() != 0 {
		t.Fatalf("disabled rule should not allocate buckets, got %d", limiter.Len())
	}
}

func TestRateLimiterDropsIdleBuckets(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })
	rule := RateLimitRule{Rate: 1, Burst: 3}

	limiter.Allow("a", rule)
	limiter.Allow("b", rule)
	if limiter.Len() != 2 {
		t.Fatalf("expected 2 buckets, got %d", limiter.Len())
	}

	now = now.Add(idleBucketTTL + time.Second)
	limiter.Allow("c", rule)
	if limiter.Len() != 1 {
		t.Fatalf("expected idle buckets dropped, got %d", limiter.Len())
	}
}
