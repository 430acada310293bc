package middlewares_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/coter/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

func limitedRouter(l middlewares.Limiter, limited *int) *gin.Engine {
	r := gin.New()
	r.POST("/login", middlewares.RateLimit(l, middlewares.KeyByIP, func(string) { *limited++ }), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
	return r
}

func TestRateLimit_InMemory(t *testing.T) {
	limited := 0
	r := limitedRouter(middlewares.NewRateLimiter(2, time.Minute), &limited)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("{}"))
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)

		if w.Code == http.StatusTooManyRequests && w.Header().Get("Retry-After") == "" {
			t.Fatal("expected Retry-After header on 429")
		}
	}

	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("request %d: expected %d, got %d", i, want[i], codes[i])
		}
	}
	if limited != 1 {
		t.Fatalf("expected onLimited once, got %d", limited)
	}

	// a different client has its own window
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("{}"))
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected other client to pass, got %d", w.Code)
	}
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (bool, time.Duration, error) {
	return false, 0, errors.New("redis: connection refused")
}

func TestRateLimit_FailsOpen(t *testing.T) {
	limited := 0
	r := limitedRouter(brokenLimiter{}, &limited)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("{}")))

	if w.Code != http.StatusOK {
		t.Fatalf("expected request through when limiter is down, got %d", w.Code)
	}
}

func TestRequireJSON(t *testing.T) {
	r := gin.New()
	r.Use(middlewares.RequireJSON())
	r.POST("/x", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "ok"}) })

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestMaxBodyBytes_DeclaredLength(t *testing.T) {
	r := gin.New()
	r.Use(middlewares.MaxBodyBytes(8))
	r.POST("/x", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "ok"}) })

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"much":"too long"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
}

func TestRecovery_ReturnsJSON(t *testing.T) {
	r := gin.New()
	r.Use(middlewares.RequestID(), middlewares.Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if decode(t, w).Error.Code != "internal_error" {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}
