package handler

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

// 令牌链接在邮件客户端里打开，响应是给人看的 HTML 页面而不是 JSON

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body style="font-family:Segoe UI,Arial,sans-serif;background:#f5f5f5;margin:0;padding:40px;">
  <div style="max-width:480px;margin:0 auto;background:#fff;border-radius:8px;padding:32px;text-align:center;box-shadow:0 2px 8px rgba(0,0,0,0.1);">
    <div style="font-size:48px;">{{.Icon}}</div>
    <h1 style="color:{{.Color}};margin:16px 0 8px 0;">{{.Title}}</h1>
    <p style="color:#555;font-size:16px;">{{.Message}}</p>
    {{if .Detail}}<p style="color:#888;font-size:13px;">{{.Detail}}</p>{{end}}
  </div>
</body>
</html>`))

type pageData struct {
	Title   string
	Icon    string
	Color   string
	Message string
	Detail  string
}

func renderPage(c *gin.Context, status int, p pageData) {
	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(c.Writer, p); err != nil {
		c.String(http.StatusInternalServerError, "render failed")
	}
}

func renderSuccess(c *gin.Context, message, detail string) {
	renderPage(c, http.StatusOK, pageData{
		Title: "Success", Icon: "✅", Color: "#2e7d32",
		Message: message, Detail: detail,
	})
}

func renderSkipped(c *gin.Context, message, detail string) {
	renderPage(c, http.StatusOK, pageData{
		Title: "Skipped", Icon: "⏭️", Color: "#f57c00",
		Message: message, Detail: detail,
	})
}

func renderError(c *gin.Context, status int, message string) {
	renderPage(c, status, pageData{
		Title: "Something went wrong", Icon: "⚠️", Color: "#c62828",
		Message: message,
	})
}
