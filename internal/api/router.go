package api

import (
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"water-dispenser-backend/config"
	"water-dispenser-backend/internal/mw"
	"water-dispenser-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, webpushOptions *webpush.Options, notifier Notifier, srv *config.ServerConfig) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, webpushOptions, notifier)

	limitPerSec, burst := 10.0, 5
	cacheTTL := time.Minute
	if srv != nil {
		limitPerSec = srv.RateLimitPerSec
		burst = srv.RateLimitBurst
		cacheTTL = time.Duration(srv.CacheTTLSeconds) * time.Second
	}
	rateLimiter := mw.RateLimiter(rate.Limit(limitPerSec), burst)

	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	// GET / : health check
	r.GET("/", handler.HealthCheck)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/dispensers", handler.GetDispensers)
		api.POST("/dispensers", handler.CreateDispenser)
		api.POST("/dispensers/sync", handler.SyncWaterLevel)
		api.GET("/dispensers/:id", handler.GetDispenserByID)
		api.PUT("/dispensers/:id", handler.UpdateDispenser)
		api.DELETE("/dispensers/:id", handler.DeleteDispenser)

		// History is dashboard-bound and read-heavy; short-lived caching
		// keeps repeat chart loads off the database.
		api.GET("/usage-history/:dispenserId", caching, handler.GetUsageHistory)
		api.GET("/usage-history/:dispenserId/weekly", caching, handler.GetWeeklyUsageHistory)
		api.POST("/usage-history", handler.CreateUsageHistory)

		api.GET("/users", handler.GetUsers)
		api.GET("/users/me", handler.GetMyProfile)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Route not found",
		})
	})

	return r
}

// HealthCheck reports that the API is up.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "API is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
