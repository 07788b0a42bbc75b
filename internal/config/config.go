package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	HTTPPort    string
	PostgresDSN string
	RedisURL    string
	BaseURL     string // 邮件里操作链接的前缀

	ScanInterval      time.Duration // 扫描周期，默认 15 分钟
	DeliveryQueue     string        // 投递队列名
	WorkerConcurrency int
	OutputDir         string // 文档输出目录

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string

	OneDriveClientID     string
	OneDriveClientSecret string
	OneDriveRefreshToken string
}

func Load() AppConfig {
	// 本地开发用 .env，不存在时忽略
	_ = godotenv.Load()

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "host=localhost port=5432 user=labsheets dbname=labsheets sslmode=disable"
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:" + port
	}

	scanInterval := 15 * time.Minute
	if v := os.Getenv("SCAN_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			scanInterval = d
		}
	}

	queueName := os.Getenv("DELIVERY_QUEUE")
	if queueName == "" {
		queueName = "delivery"
	}

	concurrency := 2
	if v := os.Getenv("WORKER_CONCURRENCY"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			concurrency = parsed
		}
	}

	smtpPort := 587
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			smtpPort = parsed
		}
	}

	return AppConfig{
		HTTPPort:             port,
		PostgresDSN:          dsn,
		RedisURL:             redisURL,
		BaseURL:              baseURL,
		ScanInterval:         scanInterval,
		DeliveryQueue:        queueName,
		WorkerConcurrency:    concurrency,
		OutputDir:            os.Getenv("OUTPUT_DIR"),
		SMTPHost:             os.Getenv("SMTP_HOST"),
		SMTPPort:             smtpPort,
		SMTPUser:             os.Getenv("GMAIL_USER"),
		SMTPPassword:         os.Getenv("GMAIL_APP_PASSWORD"),
		OneDriveClientID:     os.Getenv("ONEDRIVE_CLIENT_ID"),
		OneDriveClientSecret: os.Getenv("ONEDRIVE_CLIENT_SECRET"),
		OneDriveRefreshToken: os.Getenv("ONEDRIVE_REFRESH_TOKEN"),
	}
}
