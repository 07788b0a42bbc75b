package handler

import (
	"net/http"
	"time"

	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/domain"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/repo"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ModuleHandler struct {
	db *pgxpool.Pool
}

func NewModuleHandler(db *pgxpool.Pool) *ModuleHandler {
	return &ModuleHandler{db: db}
}

type moduleRequest struct {
	Code            string `json:"code" binding:"required"`
	Name            string `json:"name" binding:"required"`
	Template        string `json:"template"`
	SheetType       string `json:"sheet_type"`
	CustomSheetType string `json:"custom_sheet_type"`
	UseZeroPadding  bool   `json:"use_zero_padding"`
	OutputPath      string `json:"output_path"`
}

// POST /api/v1/modules
func (h *ModuleHandler) Create(c *gin.Context) {
	var req moduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "detail": err.Error()})
		return
	}
	if req.Template == "" {
		req.Template = "classic"
	}
	if req.SheetType == "" {
		req.SheetType = "Practical"
	}
	m := &domain.Module{
		ID:              uuid.New(),
		UserID:          CurrentUser(c).ID,
		Code:            req.Code,
		Name:            req.Name,
		Template:        req.Template,
		SheetType:       req.SheetType,
		CustomSheetType: req.CustomSheetType,
		UseZeroPadding:  req.UseZeroPadding,
		OutputPath:      req.OutputPath,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if err := repo.InsertModule(c.Request.Context(), h.db, m); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create module failed", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"module": m})
}

// GET /api/v1/modules
func (h *ModuleHandler) List(c *gin.Context) {
	mods, err := repo.ListModulesByUser(c.Request.Context(), h.db, CurrentUser(c).ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list modules failed", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"modules": mods, "count": len(mods)})
}

// PUT /api/v1/modules/:id
func (h *ModuleHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid module id"})
		return
	}
	var req moduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "detail": err.Error()})
		return
	}

	m, err := repo.GetUserModule(c.Request.Context(), h.db, id, CurrentUser(c).ID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "module not found"})
		return
	}
	m.Code = req.Code
	m.Name = req.Name
	if req.Template != "" {
		m.Template = req.Template
	}
	if req.SheetType != "" {
		m.SheetType = req.SheetType
	}
	m.CustomSheetType = req.CustomSheetType
	m.UseZeroPadding = req.UseZeroPadding
	m.OutputPath = req.OutputPath
	if err := repo.UpdateModule(c.Request.Context(), h.db, m); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update module failed", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"module": m})
}

// DELETE /api/v1/modules/:id
func (h *ModuleHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid module id"})
		return
	}
	if err := repo.DeleteModule(c.Request.Context(), h.db, id, CurrentUser(c).ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete module failed", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}
