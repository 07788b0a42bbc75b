package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID  `json:"id"`
	StudentID    string     `json:"student_id"` // 学号，唯一
	Name         string     `json:"name"`
	Email        string     `json:"email"` // 唯一
	PasswordHash string     `json:"-"`
	APIKey       string     `json:"-"` // "sk_" 前缀的访问密钥
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login"`
}

type Module struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	Code            string    `json:"code"` // 课程代码，例如 "IT1010"
	Name            string    `json:"name"`
	Template        string    `json:"template"`   // 文档模板标识，默认 "classic"
	SheetType       string    `json:"sheet_type"` // Practical / Lab / Custom ...
	CustomSheetType string    `json:"custom_sheet_type"`
	UseZeroPadding  bool      `json:"use_zero_padding"`
	OutputPath      string    `json:"output_path"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EffectiveSheetType 返回实际使用的表头类型：
// sheet_type 为 "Custom" 且填写了自定义名称时用自定义名称
func (m *Module) EffectiveSheetType() string {
	if m.SheetType == "Custom" && m.CustomSheetType != "" {
		return m.CustomSheetType
	}
	return m.SheetType
}
