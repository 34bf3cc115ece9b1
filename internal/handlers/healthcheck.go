package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	redisclient "github.com/lumenlearn/insight-backend/internal/clients/redis"
)

type HealthHandler struct {
	db    *gorm.DB
	cache *redisclient.Cache
}

func NewHealthHandler(db *gorm.DB, cache *redisclient.Cache) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

// Check reports per-dependency status. Degraded dependencies do not
// fail the check; the endpoint answers as long as the process is up.
func (hh *HealthHandler) Check(c *gin.Context) {
	status := gin.H{"status": "ok"}

	dbStatus := "ok"
	if sqlDB, err := hh.db.DB(); err != nil {
		dbStatus = "error"
	} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		dbStatus = "error"
	}
	status["postgres"] = dbStatus
	status["redis"] = hh.cache.Status(c.Request.Context())

	c.JSON(http.StatusOK, status)
}
