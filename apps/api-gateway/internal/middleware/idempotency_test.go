package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func idempotentRouter(t *testing.T, status int) (*gin.Engine, *miniredis.Miniredis, *atomic.Int32) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var calls atomic.Int32
	_, r := gin.CreateTestContext(httptest.NewRecorder())
	r.POST("/roles", func(c *gin.Context) {
		c.Set(UserIDKey, "u-1")
	}, Idempotency(IdempotencyConfig{Store: client}), func(c *gin.Context) {
		n := calls.Add(1)
		c.JSON(status, gin.H{"call": n})
	})
	return r, mr, &calls
}

func post(r *gin.Engine, key, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/roles", strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotency_ReplaysCompletedResponse(t *testing.T) {
	r, mr, calls := idempotentRouter(t, http.StatusCreated)

	first := post(r, "k1", `{"name":"hr"}`)
	second := post(r, "k1", `{"name":"hr"}`)

	if calls.Load() != 1 {
		t.Fatalf("Expected handler to run once, ran %d times", calls.Load())
	}
	if second.Code != http.StatusCreated || second.Body.String() != first.Body.String() {
		t.Errorf("Expected replay of %d %s, got %d %s", first.Code, first.Body, second.Code, second.Body)
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Error("Expected replay marker header")
	}
	if !mr.Exists("idempotency:u-1:k1") {
		t.Error("Expected record scoped to the caller")
	}
}

func TestIdempotency_KeyReuseWithDifferentBody(t *testing.T) {
	r, _, calls := idempotentRouter(t, http.StatusCreated)

	post(r, "k1", `{"name":"hr"}`)
	w := post(r, "k1", `{"name":"finance"}`)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d", w.Code)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected handler to run once, ran %d times", calls.Load())
	}
}

func TestIdempotency_InProgress(t *testing.T) {
	r, mr, calls := idempotentRouter(t, http.StatusCreated)

	body := `{"name":"hr"}`
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/roles", nil)
	hash := requestHash(c, []byte(body))
	mr.Set("idempotency:u-1:k1", `{"state":"processing","request_hash":"`+hash+`"}`)

	w = post(r, "k1", body)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 while the first request runs, got %d", w.Code)
	}
	if calls.Load() != 0 {
		t.Error("Handler must not run for an in-flight key")
	}
}

func TestIdempotency_ServerErrorReleasesKey(t *testing.T) {
	r, mr, calls := idempotentRouter(t, http.StatusInternalServerError)

	post(r, "k1", `{}`)
	if mr.Exists("idempotency:u-1:k1") {
		t.Error("Expected key to be released after a server error")
	}
	post(r, "k1", `{}`)
	if calls.Load() != 2 {
		t.Errorf("Expected retry to reach the handler, calls=%d", calls.Load())
	}
}

func TestIdempotency_PassThrough(t *testing.T) {
	r, _, calls := idempotentRouter(t, http.StatusCreated)

	post(r, "", `{}`)
	post(r, "", `{}`)
	if calls.Load() != 2 {
		t.Errorf("Requests without a key are not deduplicated, calls=%d", calls.Load())
	}

	if w := post(r, strings.Repeat("k", 200), `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an oversized key, got %d", w.Code)
	}
}

func TestIdempotency_StoreDownFailsOpen(t *testing.T) {
	r, mr, calls := idempotentRouter(t, http.StatusCreated)
	mr.SetError("LOADING Redis is loading the dataset in memory")

	if w := post(r, "k1", `{}`); w.Code != http.StatusCreated {
		t.Errorf("Expected request to pass when the store is down, got %d", w.Code)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected handler to run, calls=%d", calls.Load())
	}
}
