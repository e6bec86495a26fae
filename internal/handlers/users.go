package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"safeletstays/internal/middleware"
	"safeletstays/internal/models"
)

// Users handlers

// Signup - POST /api/signup
// Регистрация аккаунта. Профиль создается вместе с пользователем.
func (h *Handlers) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Users.Signup(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to create account")
		return
	}

	c.JSON(http.StatusCreated, response)
}

// GetProfile - GET /api/profile
func (h *Handlers) GetProfile(c *gin.Context) {
	user, err := middleware.CurrentUser(c, h.userRepo)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	profile, err := h.services.Users.GetProfile(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err, "Failed to get profile")
		return
	}

	c.JSON(http.StatusOK, profile)
}

// UpdateProfile - PUT /api/profile
func (h *Handlers) UpdateProfile(c *gin.Context) {
	user, err := middleware.CurrentUser(c, h.userRepo)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.Profile
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.services.Users.UpdateProfile(c.Request.Context(), user.ID, &req)
	if err != nil {
		respondError(c, err, "Failed to update profile")
		return
	}

	c.JSON(http.StatusOK, profile)
}
