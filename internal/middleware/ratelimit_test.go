package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"donorflow/internal/config"

	"github.com/gin-gonic/gin"
)

func rateLimitRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimitMiddleware(cfg))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	cfg := &config.Config{
		Security: config.SecurityConfig{
			RateLimiting: config.RateLimitingConfig{
				Enabled: false,
			},
		},
	}
	router := rateLimitRouter(cfg)

	for i := 0; i < 100; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("request %d: expected status 200, got %d", i, w.Code)
		}
	}
}

func TestRateLimitMiddleware_BasicLimiting(t *testing.T) {
	cfg := &config.Config{
		Security: config.SecurityConfig{
			RateLimiting: config.RateLimitingConfig{
				Enabled:           true,
				RequestsPerMinute: 10,
				Burst:             5,
			},
		},
	}
	router := rateLimitRouter(cfg)

	allowed, limited := 0, 0
	for i := 0; i < 20; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		router.ServeHTTP(w, req)

		switch w.Code {
		case http.StatusOK:
			allowed++
		case http.StatusTooManyRequests:
			limited++
		default:
			t.Fatalf("unexpected status %d", w.Code)
		}
	}

	if allowed < 5 {
		t.Errorf("burst of 5 should admit at least 5 requests, got %d", allowed)
	}
	if limited == 0 {
		t.Error("expected some requests to be rate limited")
	}
}

func TestTokenBucket_Refill(t *testing.T) {
	b := newBucket(600, 1) // 10 tokens/sec, burst 1

	if !b.allow() {
		t.Fatal("first request should pass")
	}
	if b.allow() {
		t.Fatal("second immediate request should be limited")
	}

	time.Sleep(150 * time.Millisecond)
	if !b.allow() {
		t.Error("bucket should refill after waiting")
	}
}

func TestNewBucket_Defaults(t *testing.T) {
	b := newBucket(0, 0)
	if b.ratePerSec != 1 {
		t.Errorf("default rate = %v tokens/sec, want 1", b.ratePerSec)
	}
	if b.burst != 60 {
		t.Errorf("default burst = %v, want 60", b.burst)
	}
}
