package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/docgen"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/service"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/token"

	"github.com/gin-gonic/gin"
)

// ActionHandler 处理邮件按钮链接。这些端点不走 API Key 认证，
// 令牌本身就是凭证（不可猜测、一次性、24 小时过期）。
type ActionHandler struct {
	actions *service.Actions
}

func NewActionHandler(actions *service.Actions) *ActionHandler {
	return &ActionHandler{actions: actions}
}

// GET /api/generate/:token
func (h *ActionHandler) Generate(c *gin.Context) {
	res, err := h.actions.ConsumeGenerate(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.fail(c, err)
		return
	}

	label := docgen.SheetLabel(res.SheetType, res.History.PracticalNumber, res.Schedule.UseZeroPadding)
	detail := fmt.Sprintf("File: %s", res.History.Filename)
	if res.Schedule.AutoIncrement {
		detail += fmt.Sprintf(" · next up: %s %d", res.SheetType, res.NextNumber)
	}
	renderSuccess(c, fmt.Sprintf("%s for %s is being generated. Check your inbox shortly.", label, res.ModuleName), detail)
}

// GET /api/skip/:token
func (h *ActionHandler) Skip(c *gin.Context) {
	res, err := h.actions.ConsumeSkip(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.fail(c, err)
		return
	}

	msg := fmt.Sprintf("This week's lab on %s has been skipped.", res.Date)
	detail := fmt.Sprintf("Practical number stays at %d.", res.Schedule.CurrentPracticalNumber)
	if !res.Added {
		detail = "This date was already skipped."
	}
	renderSkipped(c, msg, detail)
}

func (h *ActionHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, token.ErrNotFound):
		renderError(c, http.StatusBadRequest, "This link has already been used or is invalid.")
	case errors.Is(err, token.ErrExpired):
		renderError(c, http.StatusBadRequest, "This link has expired. A new one arrives with the next reminder.")
	case errors.Is(err, service.ErrActionMismatch):
		renderError(c, http.StatusBadRequest, "This link is not valid for that action.")
	case errors.Is(err, service.ErrScheduleNotFound):
		renderError(c, http.StatusNotFound, "The schedule behind this link no longer exists.")
	default:
		log.Printf("action failed: %v", err)
		renderError(c, http.StatusInternalServerError, "Something went wrong on our side. Please try again later.")
	}
}
