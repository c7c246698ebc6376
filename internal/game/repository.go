package game

import (
	"context"
	"time"
)

// Repository 游戏与回合的持久化接口
//
// 所有对某局游戏及其回合的修改都必须经由 InGame 完成：实现方保证同一局游戏的
// fn 串行执行，并且 fn 返回 nil 时游戏、回合与生涯统计的写入一并提交，返回错误时全部回滚。
type Repository interface {
	CreateGame(ctx context.Context, g *Game) error
	// Game 不存在时返回 nil, nil
	Game(ctx context.Context, id string) (*Game, error)
	ListGames(ctx context.Context, statuses []GameStatus, limit int) ([]Game, error)
	// Round 不存在时返回 nil, nil
	Round(ctx context.Context, gameID string, number int) (*Round, error)
	Rounds(ctx context.Context, gameID string) ([]Round, error)
	// StaleGameIDs 返回当前回合已过截止时间但仍未计分的进行中游戏
	StaleGameIDs(ctx context.Context, now time.Time) ([]string, error)
	// InGame 游戏不存在时返回 ErrGameNotFound
	InGame(ctx context.Context, gameID string, fn func(tx Tx) error) error
}

// Directory 代理目录：解析名称、提交生涯统计
type Directory interface {
	AgentName(ctx context.Context, id string) (string, error)
	// CommitResults 一次性提交整局的结算，与游戏状态写入处于同一事务
	CommitResults(ctx context.Context, results []AgentResult) error
}

// Tx 单局游戏的工作单元
type Tx interface {
	Directory

	// Game 返回已加锁的游戏工作副本，修改后需 SaveGame
	Game() *Game
	SaveGame(ctx context.Context, g *Game) error

	Round(ctx context.Context, number int) (*Round, error)
	RoundByID(ctx context.Context, id string) (*Round, error)
	OpenRound(ctx context.Context) (*Round, error)
	InsertRound(ctx context.Context, r *Round) error
	SaveRound(ctx context.Context, r *Round) error
}

// AgentStore 代理注册与查询
type AgentStore interface {
	// CreateAgent 名称重复时返回 ErrNameTaken
	CreateAgent(ctx context.Context, a *Agent) error
	AgentByAPIKey(ctx context.Context, apiKey string) (*Agent, error)
	AgentByID(ctx context.Context, id string) (*Agent, error)
	// ClaimAgent 返回代理以及它此前是否已被认领
	ClaimAgent(ctx context.Context, token string) (*Agent, bool, error)
	TouchAgent(ctx context.Context, id string, at time.Time) error
	Leaderboard(ctx context.Context, limit int) ([]Agent, error)
}
