package handler

import (
	"errors"
	"net/http"

	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserHandler struct {
	db *pgxpool.Pool
}

func NewUserHandler(db *pgxpool.Pool) *UserHandler {
	return &UserHandler{db: db}
}

// POST /api/v1/auth/register
func (h *UserHandler) Register(c *gin.Context) {
	var req service.RegisterParams
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "detail": err.Error()})
		return
	}
	u, err := service.Register(c.Request.Context(), h.db, req)
	if err != nil {
		if errors.Is(err, service.ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "student id or email already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "register failed", "detail": err.Error()})
		return
	}
	// API Key 只在注册与登录响应里出现一次
	c.JSON(http.StatusCreated, gin.H{"user": u, "api_key": u.APIKey})
}

// POST /api/v1/auth/login
func (h *UserHandler) Login(c *gin.Context) {
	var req service.LoginParams
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "detail": err.Error()})
		return
	}
	u, err := service.Login(c.Request.Context(), h.db, req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u, "api_key": u.APIKey})
}

// GET /api/v1/profile
func (h *UserHandler) Profile(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": CurrentUser(c)})
}
