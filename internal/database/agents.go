package database

import (
	"context"
	"errors"
	"time"

	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/game"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PGStore 基于全局连接池 DB 的 Postgres 存储
type PGStore struct{}

var _ Store = (*PGStore)(nil)

const selectAgent = `
	SELECT id, name, description, api_key, claim_token, claim_status, last_active, created_at,
		total_points, total_wins, games_played, correct_persona_guesses
	FROM agents
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*game.Agent, error) {
	var a game.Agent
	var claim string
	err := row.Scan(
		&a.ID, &a.Name, &a.Description, &a.APIKey, &a.ClaimToken, &claim, &a.LastActive, &a.CreatedAt,
		&a.Stats.TotalPoints, &a.Stats.TotalWins, &a.Stats.GamesPlayed, &a.Stats.CorrectPersonaGuesses,
	)
	if err != nil {
		return nil, err
	}
	a.ClaimStatus = game.ClaimStatus(claim)
	return &a, nil
}

// pgAgent 查询单个代理，不存在时返回 nil, nil
func pgAgent(ctx context.Context, where string, arg any) (*game.Agent, error) {
	a, err := scanAgent(DB.QueryRow(ctx, selectAgent+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// CreateAgent 注册代理
func (s *PGStore) CreateAgent(ctx context.Context, a *game.Agent) error {
	_, err := DB.Exec(ctx, `
		INSERT INTO agents (id, name, description, api_key, claim_token, claim_status, last_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, a.ID, a.Name, a.Description, a.APIKey, a.ClaimToken, string(a.ClaimStatus), a.LastActive, a.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return game.ErrNameTaken
	}
	return err
}

// AgentByAPIKey 根据 API Key 获取代理
func (s *PGStore) AgentByAPIKey(ctx context.Context, apiKey string) (*game.Agent, error) {
	return pgAgent(ctx, "WHERE api_key = $1", apiKey)
}

// AgentByID 根据 ID 获取代理
func (s *PGStore) AgentByID(ctx context.Context, id string) (*game.Agent, error) {
	return pgAgent(ctx, "WHERE id = $1", id)
}

// ClaimAgent 认领代理
func (s *PGStore) ClaimAgent(ctx context.Context, token string) (*game.Agent, bool, error) {
	a, err := pgAgent(ctx, "WHERE claim_token = $1", token)
	if err != nil || a == nil {
		return nil, false, err
	}
	if a.ClaimStatus == game.ClaimClaimed {
		return a, true, nil
	}

	if _, err := DB.Exec(ctx, `
		UPDATE agents SET claim_status = $1 WHERE id = $2
	`, string(game.ClaimClaimed), a.ID); err != nil {
		return nil, false, err
	}
	a.ClaimStatus = game.ClaimClaimed
	return a, false, nil
}

// TouchAgent 更新最后活跃时间
func (s *PGStore) TouchAgent(ctx context.Context, id string, at time.Time) error {
	_, err := DB.Exec(ctx, `UPDATE agents SET last_active = $1 WHERE id = $2`, at, id)
	return err
}

// Leaderboard 排行榜：至少参加过一局，按总分、胜场排序
func (s *PGStore) Leaderboard(ctx context.Context, limit int) ([]game.Agent, error) {
	rows, err := DB.Query(ctx, selectAgent+`
		WHERE games_played > 0
		ORDER BY total_points DESC, total_wins DESC, created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	agents := make([]game.Agent, 0, limit)
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, *a)
	}
	return agents, rows.Err()
}

// pgCommitResults 在事务内以一个 batch 提交整局结算
func pgCommitResults(ctx context.Context, tx pgx.Tx, results []game.AgentResult) error {
	batch := &pgx.Batch{}
	for _, r := range results {
		batch.Queue(`
			UPDATE agents
			SET total_points = total_points + $1,
				games_played = games_played + 1,
				total_wins = total_wins + $2,
				correct_persona_guesses = correct_persona_guesses + $3
			WHERE id = $4
		`, r.Points, boolInt(r.Won), boolInt(r.PersonaGuessCorrect), r.AgentID)
	}
	return tx.SendBatch(ctx, batch).Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
