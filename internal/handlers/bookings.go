package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"safeletstays/internal/middleware"
	"safeletstays/internal/models"
)

// Bookings handlers

// Checkout - POST /api/checkout/:propertyID
// Создать бронирование и получить ссылку на оплату. Доступно и гостям без
// аккаунта, авторизованный пользователь привязывается к брони.
func (h *Handlers) Checkout(c *gin.Context) {
	propertyID, err := strconv.ParseInt(c.Param("propertyID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property id"})
		return
	}

	var req models.CheckoutRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var userID *int64
	if id, ok := middleware.UserIDFromContext(c.Request.Context()); ok {
		userID = &id
	}

	response, err := h.services.Bookings.Checkout(c.Request.Context(), propertyID, &req, userID)
	if err != nil {
		respondError(c, err, "Failed to start checkout")
		return
	}

	c.JSON(http.StatusCreated, response)
}

// ListBookings - GET /api/bookings
// Бронирования текущего пользователя
func (h *Handlers) ListBookings(c *gin.Context) {
	user, err := middleware.CurrentUser(c, h.userRepo)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	response, err := h.services.Bookings.List(c.Request.Context(), user.ID, user.Email)
	if err != nil {
		respondError(c, err, "Failed to list bookings")
		return
	}

	if response == nil {
		response = []models.ListBookingsResponseItem{}
	}
	c.JSON(http.StatusOK, response)
}

// DownloadReceipt - GET /api/bookings/:id/receipt
// Скачать PDF квитанцию бронирования
func (h *Handlers) DownloadReceipt(c *gin.Context) {
	bookingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	user, err := middleware.CurrentUser(c, h.userRepo)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	receiptPDF, filename, err := h.services.Bookings.DownloadReceipt(
		c.Request.Context(), bookingID, user.ID, user.Email, user.IsStaff)
	if err != nil {
		respondError(c, err, "Failed to get receipt")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", receiptPDF)
}
