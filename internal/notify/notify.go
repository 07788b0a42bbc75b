// Package notify 负责发送提醒邮件（带 生成/跳过 按钮）与生成完成的确认邮件
package notify

import "context"

// Notification 提醒邮件所需的全部字段
type Notification struct {
	ToEmail         string
	StudentName     string
	ModuleName      string
	ModuleCode      string
	PracticalNumber int
	DayName         string
	LabTime         string
	SheetType       string
	UseZeroPadding  bool
	GenerateToken   string
	SkipToken       string
}

// Confirmation 确认邮件所需字段，AttachmentPath 为空表示不带附件
type Confirmation struct {
	ToEmail         string
	StudentName     string
	ModuleName      string
	SheetType       string
	PracticalNumber int
	NextNumber      int
	UseZeroPadding  bool
	OneDriveLink    string
	AttachmentPath  string
}

// Notifier 提醒邮件发送方。返回 error 表示本次投递失败，
// 调用方（扫描器）不更新 last_email_sent，等下次扫描在窗口内重试。
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
