// Package database 提供游戏数据的存储实现（Postgres / SQLite / 内存）
package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB 全局数据库连接池
var DB *pgxpool.Pool

//go:embed migrations/*.up.sql
var migrationsFS embed.FS

// InitDB 初始化数据库连接
func InitDB(ctx context.Context, cfg *config.Config) error {
	dsn := cfg.DatabaseDSN()
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("解析数据库连接配置失败: %w", err)
	}

	cpus := int32(runtime.NumCPU())
	poolConfig.MaxConns = cpus * 2 // 设置最大连接数为 cpu 数 * 2
	poolConfig.MinConns = cpus     // 设置最小连接数为 cpu 数

	DB, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("创建数据库连接池失败: %w", err)
	}

	// 测试连接
	if err := DB.Ping(ctx); err != nil {
		return fmt.Errorf("数据库连接测试失败: %w", err)
	}

	slog.Info("数据库连接成功")
	return nil
}

// RunMigrations 执行尚未应用的迁移，每个迁移一个事务，返回本次应用的版本
func RunMigrations(ctx context.Context) ([]int, error) {
	if _, err := DB.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       VARCHAR(255) NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return nil, fmt.Errorf("创建迁移历史表失败: %w", err)
	}

	var current int
	if err := DB.QueryRow(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return nil, fmt.Errorf("读取迁移版本失败: %w", err)
	}

	migrations, err := readMigrationFiles(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}

	var applied []int
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		slog.Info("执行迁移", "version", m.Version, "name", m.Name)
		err := pgx.BeginFunc(ctx, DB, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.SQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx,
				"INSERT INTO schema_migrations (version, name) VALUES ($1, $2)",
				m.Version, m.Name,
			)
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("执行迁移 %d_%s 失败: %w", m.Version, m.Name, err)
		}
		applied = append(applied, m.Version)
	}

	slog.Info("数据库迁移完成", "schema", max(current, lastVersion(migrations)), "applied", len(applied))
	return applied, nil
}

// Migration 迁移文件
type Migration struct {
	Version int
	Name    string
	SQL     string
}

func lastVersion(migrations []Migration) int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}

// readMigrationFiles 读取迁移文件，按版本号排序
// 文件名格式: 000001_init_schema.up.sql
func readMigrationFiles(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("读取迁移目录失败: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}

		parts := strings.SplitN(name, "_", 2)
		if len(parts) != 2 {
			continue
		}

		version, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}

		content, err := fs.ReadFile(fsys, dir+"/"+name)
		if err != nil {
			return nil, fmt.Errorf("读取迁移文件 %s 失败: %w", name, err)
		}

		migrations = append(migrations, Migration{
			Version: version,
			Name:    strings.TrimSuffix(parts[1], ".up.sql"),
			SQL:     string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// Close 关闭数据库连接
func Close() {
	if DB != nil {
		DB.Close()
	}
}
