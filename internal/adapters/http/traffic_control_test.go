package httpadapter

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/config"
)

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	f := newRouterFixture(config.Config{
		APIRateLimitRPS:   1,
		APIRateLimitBurst: 1,
	}, nil)

	res1 := doJSON(t, f.handler, http.MethodGet, "/v1/documents", nil)
	if res1.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", res1.Code)
	}

	res2 := doJSON(t, f.handler, http.MethodGet, "/v1/documents", nil)
	if res2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", res2.Code)
	}
	if res2.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header for 429 response")
	}

	res3 := doJSON(t, f.handler, http.MethodGet, "/healthz", nil)
	if res3.Code != http.StatusOK {
		t.Fatalf("health probe must bypass the limiter, got %d", res3.Code)
	}
}

func TestBackpressureMiddlewareReturns503WhenSaturated(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan int, 1)
	var rejected []string

	base := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		w.WriteHeader(http.StatusNoContent)
	})
	handler := backpressureMiddleware(base, 1, 20*time.Millisecond, func(reason string) {
		rejected = append(rejected, reason)
	})

	go func() {
		req := httptest.NewRequest(http.MethodGet, "/v1/documents", nil)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		done <- res.Code
	}()

	<-started

	req2 := httptest.NewRequest(http.MethodGet, "/v1/documents", nil)
	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, req2)
	if res2.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for saturated backpressure gate, got %d", res2.Code)
	}

	var resp map[string]any
	if err := json.NewDecoder(res2.Body).Decode(&resp); err != nil {
		t.Fatalf("decode overload response: %v", err)
	}
	if resp["error"] == "" {
		t.Fatalf("expected overload error message in response")
	}
	if len(rejected) != 1 || rejected[0] != "backpressure" {
		t.Fatalf("unexpected rejections %v", rejected)
	}

	close(release)

	select {
	case code := <-done:
		if code != http.StatusNoContent {
			t.Fatalf("expected first request to finish with 204, got %d", code)
		}
	case <-time.After(time.Second):
		t.Fatalf("first request did not finish")
	}
}

func TestTrafficControlDisabledByZeroLimits(t *testing.T) {
	calls := 0
	base := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusNoContent)
	})
	handler := newRateLimiter(0, 0).middleware(backpressureMiddleware(base, 0, time.Millisecond, nil), nil)

	for i := 0; i < 5; i++ {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/documents", nil))
		if res.Code != http.StatusNoContent {
			t.Fatalf("request %d: expected 204, got %d", i, res.Code)
		}
	}
	if calls != 5 {
		t.Fatalf("expected 5 calls, got %d", calls)
	}
}
