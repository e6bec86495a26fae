package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "safeletstays/internal/errors"
	"safeletstays/internal/repository"
	"safeletstays/internal/service"
)

type Handlers struct {
	services *service.Services
	userRepo *repository.UserRepository
}

func NewHandlers(services *service.Services, userRepo *repository.UserRepository) *Handlers {
	return &Handlers{
		services: services,
		userRepo: userRepo,
	}
}

// respondError переводит ошибки сервисного слоя в HTTP статусы
func respondError(c *gin.Context, err error, fallback string) {
	if ve, ok := apperrors.AsValidation(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message, "field": ve.Field})
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case errors.Is(err, apperrors.ErrInvalidToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired link"})
	case errors.Is(err, apperrors.ErrSessionMismatch), errors.Is(err, apperrors.ErrNoCheckoutSession):
		c.JSON(http.StatusConflict, gin.H{"error": "Checkout session mismatch"})
	case errors.Is(err, apperrors.ErrPaymentGateway):
		slog.Error("Payment gateway error", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment service is unavailable, please try again"})
	default:
		slog.Error(fallback, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
