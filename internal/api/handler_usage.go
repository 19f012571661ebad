package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"water-dispenser-backend/internal/model"
	"water-dispenser-backend/internal/waterlevel"
)

// usageHistoryEntry is a usage record with its user profile joined in.
// User is null when the referenced profile no longer exists.
type usageHistoryEntry struct {
	model.UsageHistory
	User *model.User `json:"user"`
}

// resolveUsers fetches the distinct user profiles referenced by the given
// records. Lookups run concurrently; a failed or missing lookup leaves the
// user out of the map and joins as null rather than failing the request.
func (h *Handler) resolveUsers(ctx context.Context, records []model.UsageHistory) map[string]*model.User {
	seen := make(map[string]struct{}, len(records))
	var ids []string
	for _, r := range records {
		if _, ok := seen[r.UserID]; !ok {
			seen[r.UserID] = struct{}{}
			ids = append(ids, r.UserID)
		}
	}

	users := make(map[string]*model.User, len(ids))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			user, err := h.store.GetUser(ctx, id)
			if err != nil {
				return
			}
			mu.Lock()
			users[id] = user
			mu.Unlock()
		}(id)
	}
	wg.Wait()
	return users
}

func joinUsers(records []model.UsageHistory, users map[string]*model.User) []usageHistoryEntry {
	entries := make([]usageHistoryEntry, len(records))
	for i, r := range records {
		entries[i] = usageHistoryEntry{UsageHistory: r, User: users[r.UserID]}
	}
	return entries
}

// GetUsageHistory handles GET /api/usage-history/:dispenserId?limit=N.
func (h *Handler) GetUsageHistory(c *gin.Context) {
	dispenserID := c.Param("dispenserId")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "limit must be a positive integer",
		})
		return
	}

	ctx := c.Request.Context()
	records, err := h.store.UsageByDispenser(ctx, dispenserID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to fetch usage history",
			"error":   err.Error(),
		})
		return
	}
	if len(records) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "No usage history found",
		})
		return
	}

	entries := joinUsers(records, h.resolveUsers(ctx, records))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(entries),
		"data":    entries,
	})
}

// GetWeeklyUsageHistory handles GET /api/usage-history/:dispenserId/weekly,
// returning the records in the 7 days up to and including ?date (default now).
func (h *Handler) GetWeeklyUsageHistory(c *gin.Context) {
	dispenserID := c.Param("dispenserId")

	endDate := time.Now().UTC()
	if raw := c.Query("date"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Invalid date format. Use RFC3339 or YYYY-MM-DD.",
			})
			return
		}
		endDate = parsed
	}
	startDate := endDate.AddDate(0, 0, -7)

	ctx := c.Request.Context()
	records, err := h.store.UsageByDispenserBetween(ctx, dispenserID, startDate, endDate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to fetch weekly usage history",
			"error":   err.Error(),
		})
		return
	}
	if len(records) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "No usage history found for the specified week",
		})
		return
	}

	entries := joinUsers(records, h.resolveUsers(ctx, records))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(entries),
		"dateRange": gin.H{
			"from": startDate.Format(time.RFC3339),
			"to":   endDate.Format(time.RFC3339),
		},
		"data": entries,
	})
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

type createUsageRequest struct {
	DispenserID string   `json:"dispenserId"`
	UserID      string   `json:"userId"`
	Usage       *float64 `json:"usage"`
}

// CreateUsageHistory handles POST /api/usage-history: append a usage event
// and apply its effects to the dispenser.
func (h *Handler) CreateUsageHistory(c *gin.Context) {
	var req createUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.DispenserID == "" || req.UserID == "" || req.Usage == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Missing required fields: dispenserId, userId, usage",
		})
		return
	}
	if *req.Usage <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Usage must be a positive number",
		})
		return
	}

	ctx := c.Request.Context()

	// Existence checks before any write.
	if _, err := h.store.GetDispenser(ctx, req.DispenserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": fmt.Sprintf("Dispenser with ID '%s' not found", req.DispenserID),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to create usage history",
			"error":   err.Error(),
		})
		return
	}
	if _, err := h.store.GetUser(ctx, req.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": fmt.Sprintf("User with ID '%s' not found", req.UserID),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to create usage history",
			"error":   err.Error(),
		})
		return
	}

	record, outcome, err := h.store.RecordUsage(ctx, req.DispenserID, req.UserID, *req.Usage, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to create usage history",
			"error":   err.Error(),
		})
		return
	}

	if waterlevel.NeedsAttention(outcome.PreviousStatus, outcome.Status) {
		h.dispatchAlert(req.DispenserID)
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":          true,
		"message":          "Usage history created successfully",
		"data":             record,
		"dispenserUpdates": outcome,
	})
}
