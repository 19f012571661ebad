package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"water-dispenser-backend/internal/model"
	"water-dispenser-backend/internal/waterlevel"
)

// GetDispensers handles GET /api/dispensers.
func (h *Handler) GetDispensers(c *gin.Context) {
	dispensers, err := h.store.ListDispensers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to fetch dispensers",
			"error":   err.Error(),
		})
		return
	}

	if len(dispensers) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "No dispensers found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(dispensers),
		"data":    dispensers,
	})
}

// GetDispenserByID handles GET /api/dispensers/:id.
func (h *Handler) GetDispenserByID(c *gin.Context) {
	dispenser, err := h.store.GetDispenser(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Dispenser not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to fetch dispenser",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    dispenser,
	})
}

type createDispenserRequest struct {
	Name      string  `json:"name" binding:"required"`
	Location  string  `json:"location"`
	Capacity  float64 `json:"capacity" binding:"required,gt=0"`
	Remaining float64 `json:"remaining" binding:"gte=0"`
}

// CreateDispenser handles POST /api/dispensers. The water level and status
// are derived from the submitted volumes so the record starts consistent.
func (h *Handler) CreateDispenser(c *gin.Context) {
	var req createDispenserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Missing or invalid dispenser fields: name and a positive capacity are required",
			"error":   err.Error(),
		})
		return
	}

	level := waterlevel.Percent(req.Remaining, req.Capacity)
	dispenser := model.Dispenser{
		Name:       req.Name,
		Location:   req.Location,
		Capacity:   req.Capacity,
		Remaining:  req.Remaining,
		WaterLevel: level,
		Status:     waterlevel.SyncStatus(level),
	}

	if err := h.store.CreateDispenser(c.Request.Context(), &dispenser); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to create dispenser",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Dispenser created successfully",
		"data":    dispenser,
	})
}

// updatableDispenserColumns maps accepted request fields to their columns.
// Identifier, counters and timestamps are not caller-writable.
var updatableDispenserColumns = map[string]string{
	"name":      "name",
	"location":  "location",
	"capacity":  "capacity",
	"remaining": "remaining",
	"status":    "status",
}

// UpdateDispenser handles PUT /api/dispensers/:id with a partial-field merge.
func (h *Handler) UpdateDispenser(c *gin.Context) {
	id := c.Param("id")

	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request body",
			"error":   err.Error(),
		})
		return
	}

	updates := make(map[string]any, len(body))
	for field, value := range body {
		if column, ok := updatableDispenserColumns[field]; ok {
			updates[column] = value
		}
	}
	updates["updated_at"] = time.Now().UTC()

	if err := h.store.UpdateDispenser(c.Request.Context(), id, updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Dispenser not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to update dispenser",
			"error":   err.Error(),
		})
		return
	}

	response := gin.H{"id": id}
	for field, value := range body {
		if _, ok := updatableDispenserColumns[field]; ok {
			response[field] = value
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Dispenser updated successfully",
		"data":    response,
	})
}

// DeleteDispenser handles DELETE /api/dispensers/:id.
func (h *Handler) DeleteDispenser(c *gin.Context) {
	if err := h.store.DeleteDispenser(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Dispenser not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to delete dispenser",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Dispenser deleted successfully",
	})
}
