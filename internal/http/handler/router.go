package handler

import (
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Deps 路由装配所需的共享依赖
type Deps struct {
	DB      *pgxpool.Pool
	RDB     *redis.Client
	Actions *service.Actions
}

// Register 注册全部路由。api 进程与 all-in-one 进程共用
func Register(engine *gin.Engine, d Deps) {
	health := NewHealthHandler(d.DB, d.RDB)
	users := NewUserHandler(d.DB)
	modules := NewModuleHandler(d.DB)
	schedules := NewScheduleHandler(d.DB)
	history := NewHistoryHandler(d.DB)
	actions := NewActionHandler(d.Actions)
	queues := NewQueueHandler(d.RDB)
	metrics := NewMetricsHandler(d.RDB)

	// 健康与就绪
	engine.GET("/healthz", health.Healthz)
	engine.GET("/readyz", health.Readyz)
	engine.GET("/api/status", health.Status)

	// 邮件按钮链接：令牌即凭证，不走 API Key
	engine.GET("/api/generate/:token", actions.Generate)
	engine.GET("/api/skip/:token", actions.Skip)

	// 注册与登录
	auth := engine.Group("/api/v1/auth")
	{
		auth.POST("/register", users.Register)
		auth.POST("/login", users.Login)
	}

	// 需要 API Key 的业务 API
	api := engine.Group("/api/v1")
	api.Use(APIKeyAuth(d.DB))
	{
		api.GET("/profile", users.Profile)

		api.POST("/modules", modules.Create)
		api.GET("/modules", modules.List)
		api.PUT("/modules/:id", modules.Update)
		api.DELETE("/modules/:id", modules.Delete)

		api.POST("/schedules", schedules.Create)
		api.GET("/schedules", schedules.List)
		api.GET("/schedules/:id", schedules.Get)
		api.PUT("/schedules/:id", schedules.Update)
		api.DELETE("/schedules/:id", schedules.Delete)
		api.PATCH("/schedules/:id/status", schedules.ChangeStatus)
		api.POST("/sync", schedules.Sync)

		api.GET("/history", history.List)

		api.GET("/queues/:name/dlq", queues.ListDLQ)
		api.POST("/queues/:name/dlq/replay", queues.ReplayDLQ)

		api.GET("/metrics/scanner", metrics.GetScannerMetrics)
		api.GET("/metrics/worker", metrics.GetWorkerMetrics)
	}
}
