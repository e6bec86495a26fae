package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// memoryStore реализует CounterStore в памяти для тестов
type memoryStore struct {
	mu       sync.Mutex
	counters map[string]int64
	values   map[string]string
	ttls     map[string]time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		counters: make(map[string]int64),
		values:   make(map[string]string),
		ttls:     make(map[string]time.Duration),
	}
}

func (m *memoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key]++
	if m.counters[key] == 1 {
		m.ttls[key] = window
	}
	return m.counters[key], nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *memoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	delete(m.counters, key)
	delete(m.ttls, key)
	return nil
}

func (m *memoryStore) TTL(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ttls[key], nil
}

func performRequest(router *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func TestRateLimitAllowsWithinLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newMemoryStore()

	router := gin.New()
	router.POST("/checkout", RateLimit(store, "checkout", 3, time.Minute), okHandler)

	for i := 0; i < 3; i++ {
		w := performRequest(router, "POST", "/checkout", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimitBlocksOverLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newMemoryStore()

	router := gin.New()
	router.POST("/checkout", RateLimit(store, "checkout", 2, time.Minute), okHandler)

	performRequest(router, "POST", "/checkout", nil)
	performRequest(router, "POST", "/checkout", nil)
	w := performRequest(router, "POST", "/checkout", nil)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimitSeparatesClients(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newMemoryStore()

	router := gin.New()
	router.POST("/checkout", RateLimit(store, "checkout", 1, time.Minute), okHandler)

	performRequest(router, "POST", "/checkout", map[string]string{"X-Forwarded-For": "10.0.0.1"})
	w := performRequest(router, "POST", "/checkout", map[string]string{"X-Forwarded-For": "10.0.0.2"})

	// другой клиент лимит не делит
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitFailsOpenWithoutStore(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.POST("/checkout", RateLimit(nil, "checkout", 1, time.Minute), okHandler)

	performRequest(router, "POST", "/checkout", nil)
	w := performRequest(router, "POST", "/checkout", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBruteForceBlocksAfterRepeatedFailures(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newMemoryStore()

	router := gin.New()
	router.Use(BruteForceProtection(store, []string{"/api/signup"}))
	router.POST("/api/signup", func(c *gin.Context) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
	})

	for i := 0; i < maxFailedAttempts; i++ {
		w := performRequest(router, "POST", "/api/signup", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}

	// после серии неудач адрес заблокирован целиком
	w := performRequest(router, "POST", "/api/signup", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBruteForceIgnoresSuccessfulRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newMemoryStore()

	router := gin.New()
	router.Use(BruteForceProtection(store, []string{"/api/signup"}))
	router.POST("/api/signup", okHandler)

	for i := 0; i < maxFailedAttempts+2; i++ {
		w := performRequest(router, "POST", "/api/signup", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestBruteForceIgnoresUnprotectedPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newMemoryStore()

	router := gin.New()
	router.Use(BruteForceProtection(store, []string{"/api/signup"}))
	router.POST("/api/other", func(c *gin.Context) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "nope"})
	})

	for i := 0; i < maxFailedAttempts+2; i++ {
		w := performRequest(router, "POST", "/api/other", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
}

func TestRequestFilterBlocksSQLInjection(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestFilter())
	router.GET("/api/properties", okHandler)

	w := performRequest(router, "GET", "/api/properties?q=1%27%20UNION%20SELECT%20*%20FROM%20users", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequestFilterBlocksXSS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestFilter())
	router.GET("/api/properties", okHandler)

	w := performRequest(router, "GET", "/api/properties?q=%3Cscript%3Ealert(1)%3C/script%3E", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequestFilterBlocksScannerUserAgent(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestFilter())
	router.GET("/api/properties", okHandler)

	w := performRequest(router, "GET", "/api/properties", map[string]string{
		"User-Agent": "sqlmap/1.7",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequestFilterBlocksSQLInjectionInForm(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestFilter())
	router.POST("/api/checkout/1", okHandler)

	body := strings.NewReader("guest_name=x%27+UNION+SELECT+*+FROM+users&guests=2")
	req := httptest.NewRequest("POST", "/api/checkout/1", body)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequestFilterAllowsNormalForm(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestFilter())
	router.POST("/api/checkout/1", okHandler)

	body := strings.NewReader("guest_name=Jordan+Smith&guest_email=jordan%40example.com&guests=2")
	req := httptest.NewRequest("POST", "/api/checkout/1", body)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestFilterAllowsNormalTraffic(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestFilter())
	router.GET("/api/properties", okHandler)

	w := performRequest(router, "GET", "/api/properties?q=garden+flat&guests=2", map[string]string{
		"User-Agent": "Mozilla/5.0",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSecurityHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(SecurityHeaders())
	router.GET("/api/properties", okHandler)
	router.GET("/api/staff/properties", okHandler)

	w := performRequest(router, "GET", "/api/properties", nil)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'self'")
	assert.Empty(t, w.Header().Get("Cache-Control"))

	w = performRequest(router, "GET", "/api/staff/properties", nil)
	assert.Contains(t, w.Header().Get("Cache-Control"), "no-store")
}

func TestSessionBindingStrictRejectsChangedClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newMemoryStore()

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(ContextWithUserID(c.Request.Context(), 7))
		c.Next()
	})
	router.Use(SessionBinding(store, true))
	router.GET("/api/bookings", okHandler)

	w := performRequest(router, "GET", "/api/bookings", map[string]string{
		"X-Forwarded-For": "10.0.0.1",
		"User-Agent":      "Mozilla/5.0",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// тот же пользователь с другого адреса
	w = performRequest(router, "GET", "/api/bookings", map[string]string{
		"X-Forwarded-For": "203.0.113.9",
		"User-Agent":      "Mozilla/5.0",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSessionBindingLogOnlyByDefault(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newMemoryStore()

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(ContextWithUserID(c.Request.Context(), 7))
		c.Next()
	})
	router.Use(SessionBinding(store, false))
	router.GET("/api/bookings", okHandler)

	performRequest(router, "GET", "/api/bookings", map[string]string{
		"X-Forwarded-For": "10.0.0.1",
	})
	w := performRequest(router, "GET", "/api/bookings", map[string]string{
		"X-Forwarded-For": "203.0.113.9",
	})

	// нестрогий режим только пишет в лог
	assert.Equal(t, http.StatusOK, w.Code)
}
