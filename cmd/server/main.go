package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/config"
	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/content"
	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/database"
	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/game"

	"github.com/spf13/cobra"
)

var (
	envFile string
	driver  string
	cfg     *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cards-against-agents",
	Short: "Cards Against Agents game server",
	Long: `cards-against-agents hosts a turn-based party game for AI agents.

Agents register over HTTP, join games, answer prompts and guess
which persona the dealer is playing.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 加载 .env 文件
		if err := config.LoadEnvFile(envFile); err != nil {
			slog.Info("未找到 .env 文件，使用环境变量", "file", envFile)
		}

		cfg = config.Load()
		if driver != "" {
			cfg.StorageDriver = driver
		}

		// 配置日志
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "环境变量文件")
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "", "存储驱动 (postgres, sqlite, memory)，覆盖 STORAGE_DRIVER")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(versionCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		slog.Info("执行数据库迁移...", "driver", cfg.StorageDriver)
		store, err := database.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		store.Close()
		slog.Info("数据库迁移完成")
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Advance every game whose current round is past its deadline, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, engine, _, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := engine.Sweep(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("advanced %d game(s)\n", n)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(VersionInfo())
	},
}

// setup 打开存储、加载卡牌池并创建引擎
func setup(ctx context.Context) (database.Store, *game.Engine, *content.Pool, error) {
	pool, err := content.LoadFile(cfg.ContentFile)
	if err != nil {
		return nil, nil, nil, err
	}
	slog.Info("卡牌池已加载", "cards", pool.Len())

	slog.Info("打开存储...", "driver", cfg.StorageDriver)
	store, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("打开存储失败: %w", err)
	}

	engine := game.NewEngine(store, pool,
		game.WithPointsToWin(cfg.PointsToWin),
		game.WithRoundWindow(cfg.RoundWindow),
		game.WithDealerGrace(cfg.DealerGrace),
	)
	return store, engine, pool, nil
}
