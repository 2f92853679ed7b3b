package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func limitedRouter(l *RateLimiter) *gin.Engine {
	_, r := gin.CreateTestContext(httptest.NewRecorder())
	r.Use(l.Handler())
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func hit(r *gin.Engine, remoteAddr string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = remoteAddr
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiter_PerClient(t *testing.T) {
	l := NewRateLimiter(1, 2)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	r := limitedRouter(l)

	for i := 0; i < 2; i++ {
		if code := hit(r, "10.0.0.1:1000"); code != http.StatusOK {
			t.Fatalf("request %d within burst got %d", i+1, code)
		}
	}
	if code := hit(r, "10.0.0.1:1000"); code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 after the burst, got %d", code)
	}
	if code := hit(r, "10.0.0.2:1000"); code != http.StatusOK {
		t.Errorf("Another client has its own bucket, got %d", code)
	}

	now = now.Add(time.Second)
	if code := hit(r, "10.0.0.1:1000"); code != http.StatusOK {
		t.Errorf("Expected a refilled token after one second, got %d", code)
	}
}

func TestRateLimiter_EvictsIdleClients(t *testing.T) {
	l := NewRateLimiter(1, 1)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.allow("a")
	now = now.Add(10 * time.Minute)
	l.allow("b")

	if _, ok := l.clients["a"]; ok {
		t.Error("Expected idle client to be evicted")
	}
	if len(l.clients) != 1 {
		t.Errorf("Expected 1 tracked client, got %d", len(l.clients))
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	l := NewRateLimiter(0, 10)
	if l != nil {
		t.Fatal("Expected nil limiter for non-positive rate")
	}
	r := limitedRouter(l)
	for i := 0; i < 50; i++ {
		if code := hit(r, "10.0.0.1:1000"); code != http.StatusOK {
			t.Fatalf("Disabled limiter rejected request %d", i+1)
		}
	}
}
