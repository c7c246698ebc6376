package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/handler"
	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/router"
	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/scheduler"
)

// serve 启动 HTTP 服务器与定时任务，收到终止信号后优雅关闭
func serve(ctx context.Context) error {
	slog.Info(VersionInfo())

	store, engine, pool, err := setup(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	// 创建路由
	mux := router.Setup(handler.New(cfg, engine, store, pool))

	// 创建服务器
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 启动定时任务
	sched := scheduler.New(engine, store, cfg)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	// 启动服务器
	errCh := make(chan error, 1)
	go func() {
		slog.Info("服务器启动", "port", cfg.Port, "url", cfg.AppURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待终止信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		slog.Error("服务器错误", "error", err)
		return err
	}

	slog.Info("正在关闭服务器...")

	// 优雅关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("服务器关闭失败", "error", err)
	}

	slog.Info("服务器已关闭")
	return nil
}
