// 文件: cmd/report-server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Enochung/PhotoConsolidationBackEndSys/config"
	"github.com/Enochung/PhotoConsolidationBackEndSys/internal/api"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/catalog"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/logger"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/maintenance"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/report"
)

func main() {
	// --- 1. 初始化 ---
	// .env 不存在时忽略
	_ = godotenv.Load()
	if err := config.LoadConfig("."); err != nil {
		log.Fatalf("FATAL: 无法加载配置: %v", err)
	}
	if err := logger.InitLogger(config.C.Logger); err != nil {
		log.Fatalf("FATAL: 无法初始化日志: %v", err)
	}
	defer logger.Close()
	slog.Info("应用启动")
	defer slog.Info("应用关闭")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- 2. 准备工作目录 ---
	if err := os.MkdirAll(config.C.Storage.WorkDir, 0755); err != nil {
		slog.Error("FATAL: 无法创建工作目录", "path", config.C.Storage.WorkDir, "error", err)
		os.Exit(1)
	}
	stagingRoot := config.C.StagingPath()

	// 启动时先清理上次异常退出留下的工作区，之后定期清理
	maint := maintenance.NewMaintenance(slog.Default(), 0)
	if removed, err := maint.SweepStaleWorkspaces(stagingRoot, config.C.Storage.StaleWorkspace); err != nil {
		slog.Warn("清理过期工作区失败", "error", err)
	} else if len(removed) > 0 {
		slog.Info("已清理过期工作区", "count", len(removed))
	}
	maintenance.StartJanitor(ctx, maint, stagingRoot, config.C.Storage.JanitorInterval, config.C.Storage.StaleWorkspace)

	// --- 3. 创建核心服务实例 ---
	generator := report.NewGeneratorFromConfig(config.C)
	cat := catalog.New(config.C.Storage.WorkDir)

	// --- 4. 设置并启动HTTP服务器 ---
	router := api.RegisterRoutes(config.C, generator, cat)

	server := &http.Server{
		Addr:         config.C.Server.Port,
		Handler:      router,
		ReadTimeout:  config.C.Server.Timeout,
		WriteTimeout: config.C.Server.Timeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP服务器正在启动...", "地址", config.C.Server.Port, "workDir", config.C.Storage.WorkDir)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("正在关闭HTTP服务器...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP服务器关闭失败", "error", err)
		}
	case err := <-serverErr:
		slog.Error("无法启动HTTP服务器", "error", err)
		logger.Close()
		os.Exit(1)
	}
}
