package main

import (
	"context"
	"log"
	"time"

	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/clock"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/config"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/db"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/http/handler"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/queue"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/service"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/token"

	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 初始化 Postgres
	pool, err := db.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("postgres init failed: %v", err)
	}
	defer pool.Close()

	// 确保最小表结构存在
	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("ensure schema failed: %v", err)
	}

	// 初始化 Redis
	rdb, err := queue.Connect(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis init failed: %v", err)
	}
	defer rdb.Close()

	// 组装服务与路由
	clk := clock.System{}
	tokens := token.NewRedisStore(rdb, clk, token.DefaultTTL)
	deliveries := queue.NewDeliveries(rdb, cfg.DeliveryQueue)
	actions := service.NewActions(pool, tokens, deliveries, clk)

	engine := gin.Default()
	handler.Register(engine, handler.Deps{DB: pool, RDB: rdb, Actions: actions})

	log.Printf("starting api server on :%s", cfg.HTTPPort)
	if err := engine.Run(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
