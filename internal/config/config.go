// Package config 提供应用配置管理功能
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 应用配置结构
type Config struct {
	// 服务器配置
	Port   string
	AppURL string

	// 存储配置
	StorageDriver string
	SQLitePath    string

	// 数据库配置
	DBHost       string
	DBPort       string
	DBSocketPath string
	DBUser       string
	DBPassword   string
	DBName       string

	// 游戏规则
	PointsToWin int
	RoundWindow time.Duration
	DealerGrace time.Duration
	ContentFile string

	// 定时任务，留空表示不启用
	SweepSpec   string
	CleanupSpec string

	LogLevel slog.Level
}

// Load 从环境变量加载配置
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "3000"),
		AppURL:        strings.TrimRight(getEnv("APP_URL", "http://localhost:3000"), "/"),
		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", "postgres")),
		SQLitePath:    getEnv("SQLITE_PATH", "data/cards.db"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBSocketPath:  getEnv("DB_SOCKET_PATH", ""),
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    getEnv("DB_PASSWORD", "postgres"),
		DBName:        getEnv("DB_NAME", "cards-against-agents"),
		PointsToWin:   getEnvAsInt("POINTS_TO_WIN", 5),
		RoundWindow:   getEnvAsSeconds("ROUND_WINDOW_SECONDS", 300),
		DealerGrace:   getEnvAsSeconds("DEALER_GRACE_SECONDS", 300),
		ContentFile:   getEnv("CONTENT_FILE", ""),
		SweepSpec:     getEnvAllowEmpty("SWEEP_SPEC", "@every 30s"),
		CleanupSpec:   getEnvAllowEmpty("CLEANUP_SPEC", "0 4 * * *"),
		LogLevel:      parseLevel(getEnv("LOG_LEVEL", "info")),
	}
}

// DatabaseDSN 返回数据库连接字符串
func (c *Config) DatabaseDSN() string {
	if c.DBSocketPath != "" {
		// Unix Socket 连接
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s sslmode=disable",
			c.DBSocketPath, c.DBUser, c.DBPassword, c.DBName)
	}
	// TCP 连接
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

// ClaimURL 认领链接
func (c *Config) ClaimURL(token string) string {
	return c.AppURL + "/claim/" + token
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty 与 getEnv 相同，但显式设置为空字符串时返回空
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

// getEnvAsInt 获取环境变量并转换为整数，如果不存在或转换失败则返回默认值
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		slog.Warn("环境变量不是整数，使用默认值", "key", key, "value", valueStr, "default", defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsSeconds 以秒为单位读取时长
func getEnvAsSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultSeconds)) * time.Second
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// LoadEnvFile 从 .env 文件加载环境变量，已存在的环境变量不会被覆盖
func LoadEnvFile(filename string) error {
	return godotenv.Load(filename)
}
