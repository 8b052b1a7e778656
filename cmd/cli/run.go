package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"donorflow/internal/automation"
	"donorflow/internal/config"
	"donorflow/internal/handlers"
	"donorflow/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a standalone rule engine without the donor database",
	Long: `Run the automation engine with only in-memory state: rules, events,
and the execution feed work, while database-backed actions report failures.
Useful for local rule development and demos.`,
	Run: run,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func run(cmd *cobra.Command, args []string) {
	// 加载配置
	cfg := config.Load()

	// 初始化日志系统
	if err := config.InitLogger(cfg); err != nil {
		logrus.Fatalf("Failed to initialize logger: %v", err)
	}
	appLogger := logrus.StandardLogger()

	// 仅注册无外部依赖的动作处理器
	actionHandlers := services.BuildActionHandlers(services.ActionDeps{Logger: appLogger})
	engine := automation.NewEngine(actionHandlers, automation.Options{
		Workers:   cfg.Automation.Workers,
		QueueSize: cfg.Automation.QueueSize,
	}, nil, appLogger)
	defer engine.Close()

	feedHub := services.NewFeedHub()
	go feedHub.Run()
	engine.SetExecutionHook(feedHub.BroadcastExecution)

	// 设置 Gin 模式
	if cfg.Server.Host != "localhost" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, engine, feedHub)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logrus.Infof("Starting engine on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Server failed to start: %v", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func setupRouter(cfg *config.Config, engine *automation.Engine, feedHub *services.FeedHub) *gin.Engine {
	router := gin.New()

	// 中间件
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// 健康检查
	healthHandler := handlers.NewHealthHandler(nil, engine, nil, nil)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	if cfg.Monitoring.Enabled {
		router.GET(cfg.Monitoring.MetricsPath, handlers.NewMetricsHandler(engine).GetMetrics)
	}

	// API 路由组
	api := router.Group("/api")
	handlers.RegisterAutomationRoutes(api, handlers.NewAutomationHandler(engine))
	api.GET("/automations/feed", feedHub.HandleWebSocket)

	return router
}
