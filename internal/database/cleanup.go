package database

import (
	"context"
	"log/slog"
	"time"
)

// AbandonedAfter 等待中游戏无人变动超过该时长即被清理
const AbandonedAfter = 7 * 24 * time.Hour

// RunCleanup 执行所有清理操作
// 规则：删除超过 7 天没有任何变化的等待中游戏，进行中与已结束的游戏保留
func RunCleanup(ctx context.Context, store Store, now time.Time) error {
	startTime := time.Now()
	slog.Info("开始执行数据清理任务")

	gamesCount, err := store.CleanupAbandonedGames(ctx, now.Add(-AbandonedAfter))
	if err != nil {
		slog.Error("清理废弃游戏失败", "error", err)
		return err
	}

	slog.Info("数据清理任务完成",
		"games", gamesCount,
		"duration", time.Since(startTime),
	)
	return nil
}
