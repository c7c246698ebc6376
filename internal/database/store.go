package database

import (
	"context"
	"fmt"
	"time"

	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/config"
	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/game"
)

// Store 存储实现需要满足的全部能力
type Store interface {
	game.Repository
	game.AgentStore

	Stats(ctx context.Context) (*Stats, error)
	// CleanupAbandonedGames 删除 before 之前就没有任何变化的等待中游戏
	CleanupAbandonedGames(ctx context.Context, before time.Time) (int64, error)
	Close()
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Open 按配置打开存储，Postgres 会同时执行迁移
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StorageDriver {
	case DriverPostgres, "":
		if err := InitDB(ctx, cfg); err != nil {
			return nil, err
		}
		if _, err := RunMigrations(ctx); err != nil {
			Close()
			return nil, fmt.Errorf("数据库迁移失败: %w", err)
		}
		return &PGStore{}, nil
	case DriverSQLite:
		s, err := NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := s.Initialize(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case DriverMemory:
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("未知的存储驱动: %s", cfg.StorageDriver)
}
