package middleware

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnprr/SnapDish/internal/auth"
	"github.com/vnprr/SnapDish/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeResolver struct {
	users map[string]*models.User
	err   error
}

func (f *fakeResolver) Resolve(_ context.Context, token string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if user, ok := f.users[token]; ok {
		return user, nil
	}
	return nil, auth.ErrInvalidToken
}

func whoAmI(w http.ResponseWriter, r *http.Request) {
	_, _ = io.WriteString(w, GetUserID(r.Context())+"|"+GetEmail(r.Context()))
}

func TestRequireAuth(t *testing.T) {
	resolver := &fakeResolver{users: map[string]*models.User{
		"good-token": {ID: "u1", Email: "a@x.io"},
	}}
	handler := RequireAuth(resolver, discardLogger())(http.HandlerFunc(whoAmI))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid token", "Bearer good-token", http.StatusOK, "u1|a@x.io"},
		{"lowercase scheme", "bearer good-token", http.StatusOK, "u1|a@x.io"},
		{"missing header", "", http.StatusUnauthorized, "Not authenticated"},
		{"wrong scheme", "Basic Zm9vOmJhcg==", http.StatusUnauthorized, "Not authenticated"},
		{"unknown token", "Bearer bad-token", http.StatusUnauthorized, "Invalid authentication credentials"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/meals", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}

	t.Run("backend failure is a server error", func(t *testing.T) {
		failing := RequireAuth(&fakeResolver{err: errors.New("db down")}, discardLogger())(http.HandlerFunc(whoAmI))
		req := httptest.NewRequest(http.MethodGet, "/meals", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()
		failing.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

type memoryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (m *memoryCounter) IncrWithExpire(_ context.Context, key string, _ time.Duration) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key], nil
}

func TestRateLimit(t *testing.T) {
	counter := &memoryCounter{counts: make(map[string]int64)}
	cfg := RateLimitConfig{RequestsPerMinute: 2, BurstSize: 1}
	handler := RateLimit(counter, cfg, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/meals", nil)
		req.RemoteAddr = ip + ":4321"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, send("10.0.0.1").Code)
	}
	rec := send("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate_limited")

	assert.Equal(t, http.StatusNoContent, send("10.0.0.2").Code, "other clients are unaffected")

	t.Run("rotating bearer tokens share the IP bucket", func(t *testing.T) {
		counter := &memoryCounter{counts: make(map[string]int64)}
		limited := RateLimit(counter, cfg, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		blocked := 0
		for i := 0; i < 10; i++ {
			req := httptest.NewRequest(http.MethodPost, "/token", nil)
			req.RemoteAddr = "10.0.0.9:4321"
			req.Header.Set("Authorization", fmt.Sprintf("Bearer junk-%d", i))
			rec := httptest.NewRecorder()
			limited.ServeHTTP(rec, req)
			if rec.Code == http.StatusTooManyRequests {
				blocked++
			}
		}
		assert.Equal(t, 7, blocked)
	})

	t.Run("authenticated callers are keyed by user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/meals", nil)
		req.RemoteAddr = "10.0.0.1:4321"
		req.Header.Set("Authorization", "Bearer whatever")
		assert.Equal(t, "ip:10.0.0.1", getClientID(req))

		req = req.WithContext(WithUser(req.Context(), &models.User{ID: "u1"}))
		assert.Equal(t, "user:u1", getClientID(req))
	})

	t.Run("backend failure fails open", func(t *testing.T) {
		broken := RateLimit(&memoryCounter{err: errors.New("redis down")}, cfg, discardLogger())(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))
		rec := httptest.NewRecorder()
		broken.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestGetRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", getRealIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", getRealIP(req))
}

func TestLogging_IncludesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(Logging(logger))
	r.Get("/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set("X-Request-Id", "req-123")
	r.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	assert.Contains(t, line, "status=404")
	assert.Contains(t, line, "request_id=req-123")
	assert.True(t, strings.Contains(line, "level=WARN"))
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics())
	r.Get("/meals/{meal_id}/ingredients", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/meals/abc-123/ingredients", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `path="/meals/{meal_id}/ingredients"`)
	assert.NotContains(t, body, "abc-123")
}
