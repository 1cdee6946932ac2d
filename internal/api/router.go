package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"inventory-bot-backend/config"
	"inventory-bot-backend/internal/mw"
)

// NewRouter creates and configures the ops API router.
func NewRouter(h *Handler, cfg config.ServerConfig, log logrus.FieldLogger) *gin.Engine {
	r := gin.New()
	r.Use(mw.AccessLog(log), gin.Recovery())

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(ttl, 2*ttl)
	caching := mw.Cache(cacheStore, ttl, ordersCacheKey)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/health", h.GetHealth)
		api.GET("/cycles", h.GetCycles)
		api.GET("/orders", caching, h.ListOrders)

		api.PUT("/push_subscriptions", h.PutSubscription)
		api.DELETE("/push_subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
