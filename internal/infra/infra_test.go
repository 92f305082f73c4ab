package infra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// ── Cache ──

func TestCacheSetGet(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("key", "value")

	got, ok := c.Get("key")
	if !ok || got != "value" {
		t.Errorf("Get = %v, %v; want value, true", got, ok)
	}
}

func TestCacheMiss(t *testing.T) {
	c := NewCache(time.Minute)
	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for absent key")
	}
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(time.Minute)
	c.SetWithTTL("key", "value", -time.Second) // already expired
	if _, ok := c.Get("key"); ok {
		t.Error("expired entry should not be returned")
	}
}

func TestCacheInvalidate(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("key", "value")
	c.Invalidate("key")
	if _, ok := c.Get("key"); ok {
		t.Error("invalidated entry should not be returned")
	}
}

func TestCacheFlush(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Flush()
	if _, ok := c.Get("a"); ok {
		t.Error("flushed cache still has entries")
	}
}

// ── DoGet ──

func TestDoGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "custom-agent" {
			t.Errorf("User-Agent = %q, want custom-agent", ua)
		}
		fmt.Fprint(w, "hello")
	}))
	defer srv.Close()

	body, status, err := DoGet(context.Background(), srv.URL, map[string]string{"User-Agent": "custom-agent"})
	if err != nil {
		t.Fatalf("DoGet: %v", err)
	}
	defer body.Close()

	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
	data, _ := io.ReadAll(body)
	if string(data) != "hello" {
		t.Errorf("body = %q, want hello", data)
	}
}

func TestDoGetDefaultUserAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != DefaultUserAgent {
			t.Errorf("User-Agent = %q, want default", ua)
		}
	}))
	defer srv.Close()

	body, _, err := DoGet(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("DoGet: %v", err)
	}
	body.Close()
}

func TestDoGetErrHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not here", http.StatusNotFound)
	}))
	defer srv.Close()

	_, status, err := DoGet(context.Background(), srv.URL, nil)
	if err == nil {
		t.Fatal("expected error on 404")
	}
	if status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", status)
	}

	var httpErr *ErrHTTP
	if !errors.As(err, &httpErr) {
		t.Fatalf("error type = %T, want *ErrHTTP", err)
	}
	if httpErr.StatusCode != http.StatusNotFound {
		t.Errorf("ErrHTTP.StatusCode = %d, want 404", httpErr.StatusCode)
	}
}

// ── RateLimiter ──

func TestRateLimiterAllowsUpToBurst(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}
}

func TestRateLimiterRespectsContextCancel(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	ctx := context.Background()

	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("first Wait: %v", err)
	}

	cancelled, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := rl.Wait(cancelled); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait on drained limiter = %v, want deadline exceeded", err)
	}
}
