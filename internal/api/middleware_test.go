package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mohamedkhairy/flip-finder/pkg/logger"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORSMiddleware(t *testing.T) {
	handler := CORSMiddleware()(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS header to be set")
	}
}

func TestCORSMiddleware_OPTIONS(t *testing.T) {
	called := false
	handler := CORSMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest("OPTIONS", "/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d for OPTIONS, got %d", http.StatusOK, w.Code)
	}
	if called {
		t.Error("Preflight requests should not reach the handler")
	}
}

func TestLoggingMiddleware(t *testing.T) {
	handler := LoggingMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusTeapot {
		t.Errorf("Expected status %d, got %d", http.StatusTeapot, w.Code)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestID(r.Context())
	}))

	// generated
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
	if seen == "" {
		t.Fatal("Expected a generated request ID in the context")
	}
	if w.Header().Get(RequestIDHeader) != seen {
		t.Errorf("Expected response header %q, got %q", seen, w.Header().Get(RequestIDHeader))
	}

	// propagated
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if seen != "abc-123" {
		t.Errorf("Expected client request ID to be kept, got %q", seen)
	}
}

func TestErrorHandlingMiddleware(t *testing.T) {
	panics := []interface{}{"test panic", errors.New("boom"), 42}

	for _, p := range panics {
		handler := ErrorHandlingMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic(p)
		}))

		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("panic(%v): expected status %d, got %d", p, http.StatusInternalServerError, w.Code)
		}
		if !strings.Contains(w.Body.String(), "Internal server error") {
			t.Errorf("panic(%v): expected JSON error body, got %s", p, w.Body.String())
		}
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	handler := RateLimitMiddleware(0.001, 2)(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "127.0.0.1:12345"

	// The burst is served
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("request %d: expected status %d, got %d", i+1, http.StatusOK, w.Code)
		}
	}

	// Third request should be rate limited
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected status %d, got %d", http.StatusTooManyRequests, w.Code)
	}

	// Other clients have their own bucket
	other := httptest.NewRequest("GET", "/test", nil)
	other.RemoteAddr = "10.0.0.9:5555"
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, other)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d for a different client, got %d", http.StatusOK, w.Code)
	}
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	handler := RateLimitMiddleware(0, 0)(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	for i := 0; i < 50; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected status %d, got %d", i+1, http.StatusOK, w.Code)
		}
	}
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "192.168.1.5:40000"
	if ip := getClientIP(req); ip != "192.168.1.5" {
		t.Errorf("Expected port to be stripped, got %q", ip)
	}

	req.Header.Set("X-Real-IP", "10.1.1.1")
	if ip := getClientIP(req); ip != "10.1.1.1" {
		t.Errorf("Expected X-Real-IP, got %q", ip)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	if ip := getClientIP(req); ip != "203.0.113.7" {
		t.Errorf("Expected X-Forwarded-For to win, got %q", ip)
	}
}

func TestChainMiddleware(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := ChainMiddleware(
		CORSMiddleware(),
		tag("first"),
		tag("second"),
	)(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS header to be set")
	}
	if strings.Join(order, ",") != "first,second" {
		t.Errorf("Expected middleware to run in order, got %v", order)
	}
}
