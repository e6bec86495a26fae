package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"safeletstays/internal/models"
)

// Properties handlers

// ListProperties - GET /api/properties
// Поиск объектов размещения
func (h *Handlers) ListProperties(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "10"))

	if page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be >= 1"})
		return
	}
	if pageSize < 1 || pageSize > 50 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pageSize must be between 1 and 50"})
		return
	}

	guests, _ := strconv.Atoi(c.Query("guests"))
	beds, _ := strconv.Atoi(c.Query("beds"))

	filter := models.PropertyFilter{
		Query:    c.Query("q"),
		Guests:   guests,
		Beds:     beds,
		Featured: c.Query("featured") == "true",
		Page:     page,
		PageSize: pageSize,
	}

	properties, err := h.services.Properties.Search(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "Failed to search properties")
		return
	}

	if properties == nil {
		properties = []models.Property{}
	}
	c.JSON(http.StatusOK, properties)
}

// GetProperty - GET /api/properties/:slug
// Карточка объекта с похожими предложениями
func (h *Handlers) GetProperty(c *gin.Context) {
	slug := c.Param("slug")

	response, err := h.services.Properties.GetBySlug(c.Request.Context(), slug)
	if err != nil {
		respondError(c, err, "Failed to get property")
		return
	}

	c.JSON(http.StatusOK, response)
}

// Staff property management

// CreateProperty - POST /api/staff/properties
func (h *Handlers) CreateProperty(c *gin.Context) {
	var req models.PropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	property, err := h.services.Properties.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to create property")
		return
	}

	c.JSON(http.StatusCreated, property)
}

// UpdateProperty - PUT /api/staff/properties/:id
func (h *Handlers) UpdateProperty(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property id"})
		return
	}

	var req models.PropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	property, err := h.services.Properties.Update(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err, "Failed to update property")
		return
	}

	c.JSON(http.StatusOK, property)
}

// DeleteProperty - DELETE /api/staff/properties/:id
func (h *Handlers) DeleteProperty(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property id"})
		return
	}

	if err := h.services.Properties.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to delete property")
		return
	}

	c.Status(http.StatusNoContent)
}

// ReindexProperties - POST /api/staff/properties/reindex
// Полная пересборка поискового индекса
func (h *Handlers) ReindexProperties(c *gin.Context) {
	indexed, err := h.services.Properties.Reindex(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to reindex properties")
		return
	}

	c.JSON(http.StatusOK, gin.H{"indexed": indexed})
}
