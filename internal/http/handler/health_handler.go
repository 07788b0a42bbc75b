package handler

import (
	"net/http"
	"time"

	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/repo"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type HealthHandler struct {
	db  *pgxpool.Pool
	rdb *redis.Client
}

func NewHealthHandler(db *pgxpool.Pool, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, rdb: rdb}
}

// GET /healthz
func (h *HealthHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GET /readyz
func (h *HealthHandler) Readyz(c *gin.Context) {
	ctx := c.Request.Context()
	// 简单就绪检查：DB、Redis 都能 ping
	if err := h.db.Ping(ctx); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ready": false, "error": "db ping failed"})
		return
	}
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ready": false, "error": "redis ping failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ready": true, "timestamp": time.Now().UTC()})
}

// GET /api/status 公开状态页
func (h *HealthHandler) Status(c *gin.Context) {
	ctx := c.Request.Context()
	users, err := repo.CountUsers(ctx, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "status query failed"})
		return
	}
	activeSchedules, err := repo.CountActiveSchedules(ctx, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "status query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"service":          "lab-sheet-generator-cloud",
		"version":          "3.0",
		"users":            users,
		"active_schedules": activeSchedules,
		"timestamp":        time.Now().UTC(),
	})
}
