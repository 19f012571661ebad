package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"water-dispenser-backend/internal/waterlevel"
)

type syncRequest struct {
	DispenserID string   `json:"dispenserId"`
	Remaining   *float64 `json:"remaining"`
}

// SyncWaterLevel handles POST /api/dispensers/sync: a sensor reports the
// remaining volume for a dispenser and the record is reclassified.
func (h *Handler) SyncWaterLevel(c *gin.Context) {
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.DispenserID == "" || req.Remaining == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Missing required fields: dispenserId, remaining",
		})
		return
	}
	remaining := *req.Remaining
	if remaining < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Remaining must be a non-negative number",
		})
		return
	}

	ctx := c.Request.Context()
	dispenser, err := h.store.GetDispenser(ctx, req.DispenserID)
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
			"message": "Failed to sync water level",
			"error":   err.Error(),
		})
		return
	}

	oldRemaining := dispenser.Remaining
	capacity := dispenser.Capacity
	if capacity <= 0 {
		capacity = 1
	}

	isRefill := waterlevel.IsRefill(oldRemaining, remaining, capacity)
	level := waterlevel.Percent(remaining, capacity)
	status := waterlevel.SyncStatus(level)

	now := time.Now().UTC()
	updates := map[string]any{
		"remaining":   remaining,
		"water_level": level,
		"status":      status,
		"last_sync":   now,
		"updated_at":  now,
	}
	if isRefill {
		updates["last_refill"] = now
	}

	if err := h.store.UpdateDispenser(ctx, dispenser.ID, updates); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to sync water level",
			"error":   err.Error(),
		})
		return
	}

	if waterlevel.NeedsAttention(dispenser.Status, status) {
		h.dispatchAlert(dispenser.ID)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Water level synced successfully",
		"data": gin.H{
			"dispenserId":       dispenser.ID,
			"remaining":         remaining,
			"waterLevel":        level,
			"status":            status,
			"refillDetected":    isRefill,
			"previousRemaining": oldRemaining,
			"change":            remaining - oldRemaining,
		},
	})
}
