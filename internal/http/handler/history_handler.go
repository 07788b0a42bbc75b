package handler

import (
	"net/http"
	"strconv"

	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/repo"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

type HistoryHandler struct {
	db *pgxpool.Pool
}

func NewHistoryHandler(db *pgxpool.Pool) *HistoryHandler {
	return &HistoryHandler{db: db}
}

// GET /api/v1/history
func (h *HistoryHandler) List(c *gin.Context) {
	limit := 50
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}
	list, err := repo.ListHistoryByUser(c.Request.Context(), h.db, CurrentUser(c).ID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list history failed", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": list, "count": len(list)})
}
