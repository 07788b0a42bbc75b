package handler

import (
	"errors"
	"net/http"

	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/repo"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ScheduleHandler struct {
	db *pgxpool.Pool
}

func NewScheduleHandler(db *pgxpool.Pool) *ScheduleHandler {
	return &ScheduleHandler{db: db}
}

// POST /api/v1/schedules
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req service.ScheduleParams
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "detail": err.Error()})
		return
	}
	s, err := service.CreateSchedule(c.Request.Context(), h.db, CurrentUser(c).ID, req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSchedule) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "module not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create schedule failed", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"schedule": s})
}

// GET /api/v1/schedules
func (h *ScheduleHandler) List(c *gin.Context) {
	list, err := repo.ListSchedulesByUser(c.Request.Context(), h.db, CurrentUser(c).ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list schedules failed", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": list, "count": len(list)})
}

// GET /api/v1/schedules/:id
func (h *ScheduleHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule id"})
		return
	}
	s, err := repo.GetUserSchedule(c.Request.Context(), h.db, id, CurrentUser(c).ID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "schedule not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedule": s})
}

// PUT /api/v1/schedules/:id
func (h *ScheduleHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule id"})
		return
	}
	var req service.ScheduleParams
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "detail": err.Error()})
		return
	}
	s, err := service.UpdateSchedule(c.Request.Context(), h.db, CurrentUser(c).ID, id, req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSchedule) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "schedule not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update schedule failed", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedule": s})
}

// DELETE /api/v1/schedules/:id
func (h *ScheduleHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule id"})
		return
	}
	if err := repo.DeleteSchedule(c.Request.Context(), h.db, id, CurrentUser(c).ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete schedule failed", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// PATCH /api/v1/schedules/:id/status
type changeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *ScheduleHandler) ChangeStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule id"})
		return
	}
	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "detail": err.Error()})
		return
	}
	s, err := service.ChangeStatus(c.Request.Context(), h.db, CurrentUser(c).ID, id, req.Status)
	if err != nil {
		if errors.Is(err, service.ErrInvalidTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "schedule not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "change status failed", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedule": s})
}

// POST /api/v1/sync 桌面端全量同步：替换用户所有模块与调度
type syncRequest struct {
	Modules []service.SyncModule `json:"modules" binding:"required"`
}

func (h *ScheduleHandler) Sync(c *gin.Context) {
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "detail": err.Error()})
		return
	}
	modules, schedules, err := service.SyncSchedules(c.Request.Context(), h.db, CurrentUser(c).ID, req.Modules)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sync failed", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"synced_modules": modules, "synced_schedules": schedules})
}
