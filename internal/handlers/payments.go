package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"safeletstays/internal/token"
)

// Payments handlers

// PaymentSuccess - GET /api/payments/success
// Возврат гостя с платежной страницы после успешной оплаты. Ссылка содержит
// подписанный токен вместо голого id бронирования.
func (h *Handlers) PaymentSuccess(c *gin.Context) {
	tok := c.Query("token")
	if tok == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	response, err := h.services.Bookings.HandlePaymentReturn(c.Request.Context(), tok, token.ActionSuccess)
	if err != nil {
		respondError(c, err, "Failed to process payment return")
		return
	}

	c.JSON(http.StatusOK, response)
}

// PaymentCancel - GET /api/payments/cancel
// Гость отказался от оплаты на платежной странице
func (h *Handlers) PaymentCancel(c *gin.Context) {
	tok := c.Query("token")
	if tok == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	response, err := h.services.Bookings.HandlePaymentReturn(c.Request.Context(), tok, token.ActionCancel)
	if err != nil {
		respondError(c, err, "Failed to process payment return")
		return
	}

	c.JSON(http.StatusOK, response)
}

// PaymentNotifications - POST /api/payments/notifications
// Webhook платежного шлюза. Подпись считается по сырому телу запроса, поэтому
// тело читается до любого парсинга.
func (h *Handlers) PaymentNotifications(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	signature := c.GetHeader("X-Webhook-Signature")

	if err := h.services.Bookings.HandleCheckoutEvent(c.Request.Context(), payload, signature); err != nil {
		respondError(c, err, "Failed to handle payment notification")
		return
	}

	// Шлюз ждет 200 без тела
	c.Status(http.StatusOK)
}
