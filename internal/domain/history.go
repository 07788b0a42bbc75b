package domain

import (
	"time"

	"github.com/google/uuid"
)

// GenerationHistory 一次成功生成的快照记录。
// 只在 generate 令牌消费成功时写入一条，之后不再修改。
type GenerationHistory struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	ModuleCode      string    `json:"module_code"`
	PracticalNumber int       `json:"practical_number"` // 本次生成使用的序号（递增前）
	Filename        string    `json:"filename"`
	GeneratedVia    string    `json:"generated_via"` // 触发渠道，目前固定 "email"
	CreatedAt       time.Time `json:"created_at"`
}

// GenerationApplied 状态机应用 generate 动作后的结果：
// 写入的历史记录 + 应用后的最新 schedule
type GenerationApplied struct {
	History  GenerationHistory
	Schedule Schedule
}
