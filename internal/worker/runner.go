// Package worker 消费投递队列：渲染文档、上传 OneDrive、发确认邮件。
// 失败按指数退避进延迟队列重试，重试耗尽进死信队列。
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/clock"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/docgen"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/drive"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/notify"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/queue"

	"github.com/redis/go-redis/v9"
)

const (
	// retryBaseDelay 第 n 次重试延迟 base * 2^(n-1)
	retryBaseDelay = 5 * time.Second
	// jobLockTTL 单任务锁时长，防止同一条历史记录被并发投递
	jobLockTTL = 2 * time.Minute
)

type Runner struct {
	rdb      *redis.Client
	gen      *docgen.Generator
	mailer   *notify.Mailer
	drive    *drive.OneDrive
	clk      clock.Clock
	workerID string
}

func NewRunner(rdb *redis.Client, gen *docgen.Generator, mailer *notify.Mailer, od *drive.OneDrive, clk clock.Clock, workerID string) *Runner {
	if clk == nil {
		clk = clock.System{}
	}
	return &Runner{rdb: rdb, gen: gen, mailer: mailer, drive: od, clk: clk, workerID: workerID}
}

// HandleRaw 处理一条队列载荷。返回 error 仅表示载荷不可解析，
// 业务失败在内部走重试/死信，不向上抛。
func (r *Runner) HandleRaw(ctx context.Context, payload string) error {
	var job queue.DeliveryJob
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		log.Printf("discard malformed delivery payload: %v", err)
		return err
	}

	lockKey := "lease:delivery:" + job.HistoryID.String()
	ok, err := queue.AcquireLock(ctx, r.rdb, lockKey, r.workerID, jobLockTTL)
	if err != nil {
		log.Printf("acquire delivery lock %s: %v", lockKey, err)
		r.requeue(ctx, job)
		return nil
	}
	if !ok {
		// 其他 worker 在处理同一条历史记录，直接丢弃这份重复载荷
		log.Printf("delivery %s locked by another worker, dropping duplicate", job.HistoryID)
		return nil
	}
	// 投递期间按半个 TTL 的节奏续租，慢投递（SMTP、OneDrive 超时重试）
	// 不会让锁先到期放进第二个 worker
	renewCtx, stopRenew := context.WithCancel(ctx)
	go renewLease(renewCtx, jobLockTTL/2, func(c context.Context) (bool, error) {
		return queue.RenewLock(c, r.rdb, lockKey, r.workerID, jobLockTTL)
	})
	defer func() {
		stopRenew()
		if _, err := queue.ReleaseLock(ctx, r.rdb, lockKey, r.workerID); err != nil {
			log.Printf("release delivery lock %s: %v", lockKey, err)
		}
	}()

	if err := r.deliver(ctx, job); err != nil {
		log.Printf("delivery %s attempt %d/%d failed: %v", job.HistoryID, job.Attempt, job.MaxRetries, err)
		r.metric(ctx, job.QueueName, "failed")
		r.requeue(ctx, job)
		return nil
	}
	r.metric(ctx, job.QueueName, "succeeded")
	return nil
}

func (r *Runner) deliver(ctx context.Context, job queue.DeliveryJob) error {
	sheet := docgen.Sheet{
		StudentName:     job.StudentName,
		StudentID:       job.StudentID,
		ModuleName:      job.ModuleName,
		ModuleCode:      job.ModuleCode,
		SheetType:       job.SheetType,
		PracticalNumber: job.PracticalNumber,
		UseZeroPadding:  job.UseZeroPadding,
		Template:        job.Template,
		GeneratedAt:     r.clk.Now(),
	}
	path, err := r.gen.Generate(sheet)
	if err != nil {
		return fmt.Errorf("generate sheet: %w", err)
	}
	defer os.Remove(path)

	var link string
	if job.UploadToOneDrive && r.drive != nil && r.drive.Enabled() {
		link, err = r.drive.Upload(ctx, path, job.StudentID)
		if err != nil {
			return fmt.Errorf("upload to onedrive: %w", err)
		}
	}

	if job.SendConfirmation && r.mailer != nil && r.mailer.Enabled() {
		c := notify.Confirmation{
			ToEmail:         job.Email,
			StudentName:     job.StudentName,
			ModuleName:      job.ModuleName,
			SheetType:       job.SheetType,
			PracticalNumber: job.PracticalNumber,
			NextNumber:      job.NextNumber,
			UseZeroPadding:  job.UseZeroPadding,
			OneDriveLink:    link,
			AttachmentPath:  path,
		}
		if err := r.mailer.SendConfirmation(ctx, c); err != nil {
			return fmt.Errorf("send confirmation: %w", err)
		}
	}

	log.Printf("delivered: history=%s file=%s onedrive=%v", job.HistoryID, path, link != "")
	return nil
}

// requeue 重试或进死信。重试载荷带着递增后的 attempt 进延迟队列
func (r *Runner) requeue(ctx context.Context, job queue.DeliveryJob) {
	if job.Attempt >= job.MaxRetries {
		b, err := json.Marshal(job)
		if err == nil {
			err = queue.EnqueueDLQ(ctx, r.rdb, job.QueueName, string(b))
		}
		if err != nil {
			log.Printf("move delivery %s to dlq: %v", job.HistoryID, err)
			return
		}
		r.metric(ctx, job.QueueName, "dead")
		log.Printf("delivery %s exhausted %d retries, moved to dlq", job.HistoryID, job.MaxRetries)
		return
	}

	delay := time.Duration(math.Pow(2, float64(job.Attempt-1))) * retryBaseDelay
	job.Attempt++
	b, err := json.Marshal(job)
	if err != nil {
		log.Printf("marshal retry payload %s: %v", job.HistoryID, err)
		return
	}
	if err := queue.EnqueueDelayed(ctx, r.rdb, job.QueueName, string(b), r.clk.Now().Add(delay)); err != nil {
		log.Printf("enqueue retry %s: %v", job.HistoryID, err)
		return
	}
	r.metric(ctx, job.QueueName, "retried")
}

// renewLease 周期调用 renew 直到 ctx 取消。续期失败（锁已易主或 Redis 出错）
// 只记日志并停止，此时任务照常跑完，重复投递由历史记录去重兜底。
func renewLease(ctx context.Context, interval time.Duration, renew func(context.Context) (bool, error)) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			ok, err := renew(ctx)
			if err != nil {
				log.Printf("renew delivery lease: %v", err)
				return
			}
			if !ok {
				log.Println("delivery lease lost, stop renewing")
				return
			}
		}
	}
}

func (r *Runner) metric(ctx context.Context, queueName, name string) {
	key := fmt.Sprintf("metrics:worker:delivery:%s:%s", queueName, name)
	if err := r.rdb.Incr(ctx, key).Err(); err != nil {
		log.Printf("incr metric %s: %v", key, err)
	}
}
