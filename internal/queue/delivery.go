package queue

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DeliveryJob 投递任务：generate 令牌消费成功后入队，
// worker 负责渲染文档、上传 OneDrive、发确认邮件。
// 字段是消费时刻的快照，投递与后续的 schedule 变更互不影响。
type DeliveryJob struct {
	HistoryID  uuid.UUID `json:"history_id"` // 对应的生成历史记录，作为任务去重键
	ScheduleID uuid.UUID `json:"schedule_id"`
	UserID     uuid.UUID `json:"user_id"`
	Attempt    int       `json:"attempt"`
	MaxRetries int       `json:"max_retries"`
	QueueName  string    `json:"queue_name"`

	StudentName      string `json:"student_name"`
	StudentID        string `json:"student_id"`
	Email            string `json:"email"`
	ModuleCode       string `json:"module_code"`
	ModuleName       string `json:"module_name"`
	Template         string `json:"template"`
	SheetType        string `json:"sheet_type"`
	PracticalNumber  int    `json:"practical_number"`
	NextNumber       int    `json:"next_number"`
	UseZeroPadding   bool   `json:"use_zero_padding"`
	UploadToOneDrive bool   `json:"upload_to_onedrive"`
	SendConfirmation bool   `json:"send_confirmation"`
}

// Deliveries 投递队列的生产端封装
type Deliveries struct {
	rdb  *redis.Client
	name string
}

func NewDeliveries(rdb *redis.Client, name string) *Deliveries {
	if name == "" {
		name = "delivery"
	}
	return &Deliveries{rdb: rdb, name: name}
}

// Enqueue 投递任务入就绪队列
func (d *Deliveries) Enqueue(ctx context.Context, job DeliveryJob) error {
	job.QueueName = d.name
	if job.Attempt == 0 {
		job.Attempt = 1
	}
	b, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return EnqueueReady(ctx, d.rdb, d.name, string(b))
}
