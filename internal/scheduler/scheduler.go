// Package scheduler 提供定时任务功能
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/config"
	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/database"
	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/game"

	"github.com/robfig/cron/v3"
)

// Scheduler 定时任务调度器
type Scheduler struct {
	cron   *cron.Cron
	engine *game.Engine
	store  database.Store
	cfg    *config.Config
}

// New 创建新的调度器
func New(engine *game.Engine, store database.Store, cfg *config.Config) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		engine: engine,
		store:  store,
		cfg:    cfg,
	}
}

// Start 注册任务并启动调度器，表达式为空的任务不注册
func (s *Scheduler) Start() error {
	if s.cfg.SweepSpec != "" {
		if _, err := s.cron.AddFunc(s.cfg.SweepSpec, s.RunSweepNow); err != nil {
			return fmt.Errorf("注册过期回合任务失败: %w", err)
		}
	}

	if s.cfg.CleanupSpec != "" {
		if _, err := s.cron.AddFunc(s.cfg.CleanupSpec, func() {
			slog.Info("执行定时数据清理任务")
			if err := s.RunCleanupNow(); err != nil {
				slog.Error("数据清理任务失败", "error", err)
			}
		}); err != nil {
			return fmt.Errorf("注册数据清理任务失败: %w", err)
		}
	}

	s.cron.Start()
	slog.Info("定时任务调度器已启动", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop 停止调度器，等待运行中的任务结束
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("定时任务调度器已停止")
}

// RunSweepNow 立即推进所有已过期的回合
func (s *Scheduler) RunSweepNow() {
	start := time.Now()
	n, err := s.engine.Sweep(context.Background())
	if err != nil {
		slog.Error("过期回合推进失败", "error", err)
		return
	}
	if n > 0 {
		slog.Info("过期回合推进完成", "games", n, "duration", time.Since(start))
	}
}

// RunCleanupNow 立即执行清理任务
func (s *Scheduler) RunCleanupNow() error {
	return database.RunCleanup(context.Background(), s.store, time.Now())
}
