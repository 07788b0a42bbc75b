package domain

import (
	"time"

	"github.com/google/uuid"
)

// 调度状态
const (
	StatusActive   = "active"   // 正常扫描、正常触发
	StatusPaused   = "paused"   // 暂停扫描，可随时恢复
	StatusDisabled = "disabled" // 停用，仅允许显式重新激活回 active
)

type Schedule struct {
	ID                     uuid.UUID  `json:"id"`                       // 调度规则的唯一标识
	UserID                 uuid.UUID  `json:"user_id"`                  // 所属用户
	ModuleID               uuid.UUID  `json:"module_id"`                // 关联的课程模块
	DayOfWeek              int        `json:"day_of_week"`              // 0=周一 .. 6=周日
	LabTime                string     `json:"lab_time"`                 // 实验开始时间 "HH:MM"
	GenerateBeforeMinutes  int        `json:"generate_before_minutes"`  // 提前量（分钟），允许超过 24 小时
	CurrentPracticalNumber int        `json:"current_practical_number"` // 当前实验序号，只能经状态机递增
	AutoIncrement          bool       `json:"auto_increment"`           // 生成成功后是否自动递增序号
	UseZeroPadding         bool       `json:"use_zero_padding"`         // 序号是否补零（01 vs 1）
	Status                 string     `json:"status"`                   // active/paused/disabled
	SkipDates              []string   `json:"skip_dates"`               // 被跳过的日期 "YYYY-MM-DD"，只增不减
	UploadToOneDrive       bool       `json:"upload_to_onedrive"`       // 生成后是否上传 OneDrive
	SendConfirmation       bool       `json:"send_confirmation"`        // 生成后是否发送确认邮件
	LastEmailSent          *time.Time `json:"last_email_sent"`          // 上次提醒邮件发送时间（冷却判定）
	LastGeneratedAt        *time.Time `json:"last_generated_at"`        // 上次成功生成时间
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

var dayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// DayName 返回 day_of_week 对应的英文星期名，越界返回空串
func (s *Schedule) DayName() string {
	if s.DayOfWeek < 0 || s.DayOfWeek > 6 {
		return ""
	}
	return dayNames[s.DayOfWeek]
}

// HasSkipDate 判断日期（"YYYY-MM-DD"）是否在跳过列表内
func (s *Schedule) HasSkipDate(date string) bool {
	for _, d := range s.SkipDates {
		if d == date {
			return true
		}
	}
	return false
}

// ValidStatus 判断状态值是否合法
func ValidStatus(status string) bool {
	switch status {
	case StatusActive, StatusPaused, StatusDisabled:
		return true
	}
	return false
}

// CanTransition 判断状态迁移是否合法。
// active 与 paused 之间任意迁移；disabled 是终态，只能显式重新激活回 active。
func CanTransition(from, to string) bool {
	if !ValidStatus(from) || !ValidStatus(to) {
		return false
	}
	if from == to {
		return true
	}
	if from == StatusDisabled {
		return to == StatusActive
	}
	return true
}

// ScheduleContext 一条调度规则连同其所属用户与课程模块，
// 扫描器与令牌消费都需要这份完整上下文
type ScheduleContext struct {
	Schedule Schedule
	User     User
	Module   Module
}
