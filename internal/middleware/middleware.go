package middleware

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"safeletstays/internal/cache"
	"safeletstays/internal/logger"
	"safeletstays/internal/models"
	"safeletstays/internal/repository"
)

// Ctx key and helpers for authenticated user id
// Using unexported type to avoid collisions

type ctxKey string

const userIDKey ctxKey = "user_id"

func ContextWithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(userIDKey)
	if v == nil {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// ClientIP возвращает реальный адрес клиента с учетом прокси
func ClientIP(c *gin.Context) string {
	// Заголовки в порядке предпочтения
	forwardedHeaders := []string{
		"X-Forwarded-For",
		"X-Real-Ip",
		"Cf-Connecting-Ip", // Cloudflare
		"True-Client-Ip",   // Akamai
	}

	for _, header := range forwardedHeaders {
		if value := c.GetHeader(header); value != "" {
			// X-Forwarded-For может содержать цепочку адресов
			ip := strings.TrimSpace(strings.Split(value, ",")[0])
			if ip != "" {
				return ip
			}
		}
	}

	return c.ClientIP()
}

// CORS middleware для обработки CORS запросов
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}

		c.Next()
	}
}

// RequestID присваивает каждому запросу идентификатор для трассировки в логах
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-Id")
		if requestID == "" {
			requestID = logger.NewRequestID()
		}

		c.Header("X-Request-Id", requestID)
		c.Request = c.Request.WithContext(
			context.WithValue(c.Request.Context(), "request_id", requestID)) //nolint:staticcheck

		c.Next()
	}
}

// Logger middleware для структурированного логирования запросов
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		userID, exists := c.Get("user_id")

		logFields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status_code", c.Writer.Status(),
			"latency_ms", latency.Milliseconds(),
			"client_ip", ClientIP(c),
			"user_agent", c.Request.UserAgent(),
		}

		if exists {
			logFields = append(logFields, "user_id", userID)
		}

		if c.Writer.Status() >= 400 {
			if len(c.Errors) > 0 {
				logFields = append(logFields, "error", c.Errors.String())
			}
			slog.Error("Request completed with error", logFields...)
		}
	}
}

// Recovery middleware для восстановления после паники с детальным логированием
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		slog.Error("PANIC recovered",
			"panic", recovered,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"client_ip", ClientIP(c),
			"user_agent", c.Request.UserAgent(),
		)

		if !c.Writer.Written() {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
	})
}

// BasicAuth аутентифицирует пользователя по HTTP Basic Auth, проверяя
// логин/пароль сначала в кеше, затем в БД
func BasicAuth(userRepo *repository.UserRepository, cacheClient *cache.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", "Basic realm=\"Restricted\"")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		ctx := c.Request.Context()

		// SHA-256 хеш пароля для поиска в кеше
		hash := sha256.Sum256([]byte(password))
		passwordHash := fmt.Sprintf("%x", hash)

		// Сначала пытаемся найти пользователя в кеше
		if cacheClient != nil {
			if userID, err := cacheClient.GetUserIDByAuth(ctx, username, passwordHash); err == nil {
				c.Set("user_id", userID)
				c.Set("user_email", username)
				c.Request = c.Request.WithContext(ContextWithUserID(c.Request.Context(), userID))
				c.Next()
				return
			}
		}

		// Fallback: поиск в базе данных
		user, err := userRepo.GetByEmail(ctx, username)
		if err != nil || user == nil || !user.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		if user.PasswordHash == "" || passwordHash != user.PasswordHash {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		if cacheClient != nil {
			if err := cacheClient.SetUserAuth(ctx, username, passwordHash, user.ID); err != nil {
				slog.Error("Failed to warm auth cache", "error", err, "user_id", user.ID)
			}
		}

		c.Set("user_id", user.ID)
		c.Set("user_email", user.Email)
		c.Set("user", user)
		c.Request = c.Request.WithContext(ContextWithUserID(c.Request.Context(), user.ID))

		c.Next()
	}
}

// OptionalBasicAuth привязывает пользователя к запросу когда креды
// предоставлены, но пускает и анонимных гостей. Неверные креды отклоняются,
// чтобы бронирование не ушло не на тот аккаунт.
func OptionalBasicAuth(userRepo *repository.UserRepository, cacheClient *cache.Client) gin.HandlerFunc {
	authenticate := BasicAuth(userRepo, cacheClient)
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		authenticate(c)
	}
}

// CurrentUser достает аутентифицированного пользователя, дочитывая его из БД
// если в контексте лежит только id из кеша
func CurrentUser(c *gin.Context, userRepo *repository.UserRepository) (*models.User, error) {
	if v, ok := c.Get("user"); ok {
		if user, ok := v.(*models.User); ok {
			return user, nil
		}
	}

	userID, ok := UserIDFromContext(c.Request.Context())
	if !ok {
		return nil, fmt.Errorf("no authenticated user in context")
	}

	user, err := userRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %d not found", userID)
	}

	c.Set("user", user)
	return user, nil
}

// RequireStaff пускает дальше только сотрудников
func RequireStaff(userRepo *repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := CurrentUser(c, userRepo)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		if !user.IsStaff {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Staff access required"})
			return
		}

		c.Next()
	}
}
