package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"safeletstays/internal/logger"
)

// CounterStore is the slice of the cache the security middleware needs.
// Implemented by cache.Client; tests use an in-memory version.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	TTL(ctx context.Context, key string) (time.Duration, error)
}

const (
	maxFailedAttempts = 5
	blockDuration     = 15 * time.Minute
	attemptWindow     = 5 * time.Minute

	maxURLLength   = 2048
	maxRequestSize = 10 << 20 // 10 MB
)

// hashIdentifier сокращает IP до ключа фиксированной длины
func hashIdentifier(ip string) string {
	hash := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(hash[:])[:16]
}

// RateLimit ограничивает количество запросов с одного адреса в окне.
// При недоступном кеше запросы пропускаются, лимитер не должен ронять сайт.
func RateLimit(store CounterStore, keyPrefix string, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		ip := ClientIP(c)
		key := fmt.Sprintf("ratelimit:%s:%s", keyPrefix, hashIdentifier(ip))

		count, err := store.Incr(ctx, key, window)
		if err != nil {
			logger.WithContext(ctx).Error("Rate limiter unavailable", "error", err)
			c.Next()
			return
		}

		remaining := int64(maxRequests) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(maxRequests) {
			retryAfter := window
			if ttl, err := store.TTL(ctx, key); err == nil && ttl > 0 {
				retryAfter = ttl
			}

			logger.WithContext(ctx).Warn("Rate limit exceeded",
				"ip", ip,
				"key", keyPrefix)

			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": int(retryAfter.Seconds()),
			})
			return
		}

		c.Next()
	}
}

// BruteForceProtection блокирует адрес после серии неудачных попыток входа
// или регистрации. Blocked IPs get a flat 403 until the block expires.
func BruteForceProtection(store CounterStore, protectedPaths []string) gin.HandlerFunc {
	protected := make(map[string]bool, len(protectedPaths))
	for _, path := range protectedPaths {
		protected[path] = true
	}

	return func(c *gin.Context) {
		if store == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		ip := ClientIP(c)
		blockedKey := "bruteforce:blocked:" + hashIdentifier(ip)

		if blocked, err := store.Get(ctx, blockedKey); err == nil && blocked != "" {
			remaining := blockDuration
			if ttl, err := store.TTL(ctx, blockedKey); err == nil && ttl > 0 {
				remaining = ttl
			}

			logger.WithContext(ctx).Warn("Blocked IP attempted access",
				"ip", ip,
				"remaining_sec", int(remaining.Seconds()))

			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": fmt.Sprintf("Too many failed attempts. Please try again in %d minutes.",
					int(remaining.Minutes())+1),
			})
			return
		}

		c.Next()

		// Считаем только неудачи на защищенных маршрутах
		if !protected[c.Request.URL.Path] || c.Request.Method != http.MethodPost {
			return
		}

		status := c.Writer.Status()
		if status != http.StatusUnauthorized && status != http.StatusForbidden {
			return
		}

		attemptsKey := "bruteforce:attempts:" + hashIdentifier(ip)
		attempts, err := store.Incr(ctx, attemptsKey, attemptWindow)
		if err != nil {
			logger.WithContext(ctx).Error("Failed to record auth failure", "error", err)
			return
		}

		if attempts >= maxFailedAttempts {
			if err := store.Set(ctx, blockedKey, "1", blockDuration); err != nil {
				logger.WithContext(ctx).Error("Failed to block IP", "error", err)
				return
			}
			_ = store.Delete(ctx, attemptsKey)

			logger.WithContext(ctx).Warn("IP blocked after repeated auth failures",
				"ip", ip,
				"attempts", attempts)
		}
	}
}

// Шаблоны явно вредоносного ввода: SQL инъекции и попытки XSS
var suspiciousPatterns = func() []*regexp.Regexp {
	raw := []string{
		`(?i)((%27)|('))union`,
		`(?i)union(\s+)select`,
		`(?i)insert(\s+)into`,
		`(?i)delete(\s+)from`,
		`(?i)drop(\s+)table`,
		`(?i)update(\s+)\w+(\s+)set`,
		`(?i)exec(\s|\+)+(s|x)p\w+`,
		`(?i)<script[^>]*>`,
		`(?i)javascript:`,
		`(?i)onerror\s*=`,
		`(?i)onclick\s*=`,
		`(?i)onload\s*=`,
	}

	compiled := make([]*regexp.Regexp, len(raw))
	for i, pattern := range raw {
		compiled[i] = regexp.MustCompile(pattern)
	}
	return compiled
}()

var blockedUserAgents = []string{
	"sqlmap",
	"nikto",
	"nessus",
	"openvas",
	"w3af",
	"nmap",
	"masscan",
	"zgrab",
}

func isSuspicious(value string) bool {
	for _, pattern := range suspiciousPatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// RequestFilter отсекает слишком длинные запросы, известные сканеры
// уязвимостей и параметры с признаками инъекций
func RequestFilter() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ip := ClientIP(c)

		if len(c.Request.URL.RequestURI()) > maxURLLength {
			logger.WithContext(ctx).Warn("URL too long", "ip", ip)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Request URL too long"})
			return
		}

		if c.Request.ContentLength > maxRequestSize {
			logger.WithContext(ctx).Warn("Request body too large",
				"ip", ip,
				"content_length", c.Request.ContentLength)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Request body too large"})
			return
		}

		userAgent := strings.ToLower(c.Request.UserAgent())
		for _, blocked := range blockedUserAgents {
			if strings.Contains(userAgent, blocked) {
				logger.WithContext(ctx).Warn("Blocked user agent",
					"ip", ip,
					"user_agent", userAgent)
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
				return
			}
		}

		for key, values := range c.Request.URL.Query() {
			for _, value := range values {
				if isSuspicious(value) {
					logger.WithContext(ctx).Warn("Suspicious query parameter",
						"ip", ip,
						"param", key)
					c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Potentially malicious input detected"})
					return
				}
			}
		}

		// Поля urlencoded форм проверяются теми же шаблонами, multipart
		// (загрузки файлов) не разбираем
		if c.ContentType() == "application/x-www-form-urlencoded" {
			if err := c.Request.ParseForm(); err == nil {
				for key, values := range c.Request.PostForm {
					for _, value := range values {
						if isSuspicious(value) {
							logger.WithContext(ctx).Warn("Suspicious form field",
								"ip", ip,
								"param", key)
							c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Potentially malicious input detected"})
							return
						}
					}
				}
			}
		}

		c.Next()
	}
}

// SecurityHeaders проставляет защитные заголовки на каждый ответ
func SecurityHeaders() gin.HandlerFunc {
	csp := strings.Join([]string{
		"default-src 'self'",
		"script-src 'self' 'unsafe-inline' https://fonts.googleapis.com",
		"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com",
		"font-src 'self' https://fonts.gstatic.com data:",
		"img-src 'self' data: https:",
		"base-uri 'self'",
		"form-action 'self'",
		"frame-ancestors 'none'",
		"object-src 'none'",
	}, "; ")

	return func(c *gin.Context) {
		c.Header("Content-Security-Policy", csp)
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy",
			"accelerometer=(), camera=(), geolocation=(), gyroscope=(), magnetometer=(), microphone=(), payment=(self), usb=()")

		// Ответы служебных разделов не должны оседать в кешах
		if strings.HasPrefix(c.Request.URL.Path, "/api/staff/") {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, private")
			c.Header("Pragma", "no-cache")
		}

		c.Next()
	}
}

// SessionBinding привязывает аутентифицированную сессию к адресу и браузеру.
// A mismatch is logged; with strict enabled the request is rejected and the
// binding dropped so the account owner can sign in again.
func SessionBinding(store CounterStore, strict bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			c.Next()
			return
		}

		userID, ok := UserIDFromContext(c.Request.Context())
		if !ok {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		fingerprint := hashIdentifier(ClientIP(c) + "|" + c.Request.UserAgent())
		key := fmt.Sprintf("session:binding:%d", userID)

		stored, err := store.Get(ctx, key)
		if err != nil {
			logger.WithContext(ctx).Error("Session binding store unavailable", "error", err)
			c.Next()
			return
		}

		if stored == "" {
			if err := store.Set(ctx, key, fingerprint, 24*time.Hour); err != nil {
				logger.WithContext(ctx).Error("Failed to store session binding", "error", err)
			}
			c.Next()
			return
		}

		if stored != fingerprint {
			logger.WithContext(ctx).Warn("Session binding mismatch",
				"user_id", userID,
				"ip", ClientIP(c))

			if strict {
				_ = store.Delete(ctx, key)
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Session verification failed"})
				return
			}
		}

		c.Next()
	}
}
