// Package docgen 渲染实验表头文档。
// 模板是内置的 HTML（Word 可以直接打开），按模块配置选择样式，
// 输出到本地目录后由投递 worker 负责发信与上传。
package docgen

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SheetLabel 拼表头标题，例如 "Practical 05" / "Practical 5"
func SheetLabel(sheetType string, number int, zeroPad bool) string {
	if zeroPad {
		return fmt.Sprintf("%s %02d", sheetType, number)
	}
	return fmt.Sprintf("%s %d", sheetType, number)
}

// Filename 生成输出文件名，例如 "IT1010_Practical_05.doc"
func Filename(moduleCode, sheetType string, number int, zeroPad bool) string {
	code := strings.ReplaceAll(strings.TrimSpace(moduleCode), " ", "")
	st := strings.ReplaceAll(strings.TrimSpace(sheetType), " ", "")
	if zeroPad {
		return fmt.Sprintf("%s_%s_%02d.doc", code, st, number)
	}
	return fmt.Sprintf("%s_%s_%d.doc", code, st, number)
}

// Sheet 一次渲染的全部输入
type Sheet struct {
	StudentName     string
	StudentID       string
	ModuleName      string
	ModuleCode      string
	SheetType       string
	PracticalNumber int
	UseZeroPadding  bool
	Template        string // 模板标识，空或未知回落到 classic
	GeneratedAt     time.Time
}

type Generator struct {
	outputDir string
}

// NewGenerator 创建生成器并确保输出目录存在
func NewGenerator(outputDir string) (*Generator, error) {
	if outputDir == "" {
		outputDir = filepath.Join(os.TempDir(), "labsheets")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	return &Generator{outputDir: outputDir}, nil
}

// Generate 渲染文档并写入输出目录，返回文件完整路径
func (g *Generator) Generate(s Sheet) (string, error) {
	tmpl, ok := templates[s.Template]
	if !ok {
		tmpl = templates[TemplateClassic]
	}

	data := struct {
		Sheet
		Label string
		Date  string
	}{
		Sheet: s,
		Label: SheetLabel(s.SheetType, s.PracticalNumber, s.UseZeroPadding),
		Date:  s.GeneratedAt.Format("2006-01-02"),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render sheet: %w", err)
	}

	path := filepath.Join(g.outputDir, Filename(s.ModuleCode, s.SheetType, s.PracticalNumber, s.UseZeroPadding))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// 模板标识
const (
	TemplateClassic = "classic"
	TemplateMinimal = "minimal"
)

var templates = map[string]*template.Template{
	TemplateClassic: template.Must(template.New(TemplateClassic).Parse(classicTemplate)),
	TemplateMinimal: template.Must(template.New(TemplateMinimal).Parse(minimalTemplate)),
}

const classicTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Label}} - {{.ModuleName}}</title></head>
<body style="font-family:Calibri,sans-serif;">
  <div style="text-align:center;border-bottom:3px solid #333;padding-bottom:16px;">
    <h1 style="margin:0;">{{.ModuleName}}</h1>
    <h2 style="margin:8px 0 0 0;">{{.ModuleCode}}</h2>
    <h2 style="margin:8px 0 0 0;">{{.Label}}</h2>
  </div>
  <table style="margin-top:24px;font-size:14pt;">
    <tr><td style="padding:4px 16px 4px 0;"><b>Name:</b></td><td>{{.StudentName}}</td></tr>
    <tr><td style="padding:4px 16px 4px 0;"><b>Student ID:</b></td><td>{{.StudentID}}</td></tr>
    <tr><td style="padding:4px 16px 4px 0;"><b>Date:</b></td><td>{{.Date}}</td></tr>
  </table>
</body>
</html>`

const minimalTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Label}}</title></head>
<body style="font-family:Calibri,sans-serif;">
  <p><b>{{.ModuleCode}} - {{.Label}}</b></p>
  <p>{{.StudentName}} ({{.StudentID}}) - {{.Date}}</p>
  <hr>
</body>
</html>`
