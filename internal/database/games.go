package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/game"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier 连接池与事务共有的查询方法
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const selectGame = `
	SELECT id, status, players, player_scores, current_round, points_to_win,
		winner_id, winner_name, created_at, updated_at, finished_at
	FROM games
`

func scanGame(row rowScanner) (*game.Game, error) {
	var g game.Game
	var status string
	var j gameJSON
	var winnerID, winnerName *string
	err := row.Scan(
		&g.ID, &status, &j.Players, &j.Scores, &g.CurrentRound, &g.PointsToWin,
		&winnerID, &winnerName, &g.CreatedAt, &g.UpdatedAt, &g.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	g.Status = game.GameStatus(status)
	if winnerID != nil {
		g.WinnerID = *winnerID
	}
	if winnerName != nil {
		g.WinnerName = *winnerName
	}
	if err := decodeGame(&g, j); err != nil {
		return nil, err
	}
	return &g, nil
}

// nullable 空字符串存为 NULL
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CreateGame 创建游戏
func (s *PGStore) CreateGame(ctx context.Context, g *game.Game) error {
	j, err := encodeGame(g)
	if err != nil {
		return err
	}
	_, err = DB.Exec(ctx, `
		INSERT INTO games (id, status, players, player_scores, current_round, points_to_win, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, g.ID, string(g.Status), j.Players, j.Scores, g.CurrentRound, g.PointsToWin, g.CreatedAt, g.UpdatedAt)
	return err
}

// Game 根据ID获取游戏
func (s *PGStore) Game(ctx context.Context, id string) (*game.Game, error) {
	return pgGame(ctx, DB, id, false)
}

func pgGame(ctx context.Context, q querier, id string, lock bool) (*game.Game, error) {
	query := selectGame + "WHERE id = $1"
	if lock {
		query += " FOR UPDATE"
	}
	g, err := scanGame(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return g, err
}

// ListGames 按状态筛选游戏，最新创建的在前
func (s *PGStore) ListGames(ctx context.Context, statuses []game.GameStatus, limit int) ([]game.Game, error) {
	rows, err := DB.Query(ctx, selectGame+`
		WHERE status = ANY($1)
		ORDER BY created_at DESC
		LIMIT $2
	`, statusStrings(statuses), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	games := make([]game.Game, 0, limit)
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, *g)
	}
	return games, rows.Err()
}

// StaleGameIDs 当前回合已过截止时间且未计分的进行中游戏
func (s *PGStore) StaleGameIDs(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := DB.Query(ctx, `
		SELECT g.id
		FROM games g
		JOIN rounds r ON r.game_id = g.id AND r.round_number = g.current_round
		WHERE g.status = 'active' AND r.status <> 'scored' AND r.deadline < $1
		ORDER BY r.deadline
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// InGame 锁定游戏行并在同一事务中执行 fn
func (s *PGStore) InGame(ctx context.Context, gameID string, fn func(tx game.Tx) error) error {
	return pgx.BeginFunc(ctx, DB, func(tx pgx.Tx) error {
		g, err := pgGame(ctx, tx, gameID, true)
		if err != nil {
			return fmt.Errorf("锁定游戏失败: %w", err)
		}
		if g == nil {
			return game.ErrGameNotFound
		}
		return fn(&pgTx{tx: tx, game: g})
	})
}

// CleanupAbandonedGames 删除长期无人加入的等待中游戏
func (s *PGStore) CleanupAbandonedGames(ctx context.Context, before time.Time) (int64, error) {
	tag, err := DB.Exec(ctx, `
		DELETE FROM games WHERE status = 'waiting' AND updated_at < $1
	`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Close 关闭连接池
func (s *PGStore) Close() {
	Close()
}

// pgTx 单局游戏事务
type pgTx struct {
	tx   pgx.Tx
	game *game.Game
}

func (t *pgTx) Game() *game.Game {
	return t.game
}

func (t *pgTx) SaveGame(ctx context.Context, g *game.Game) error {
	j, err := encodeGame(g)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx, `
		UPDATE games
		SET status = $1, players = $2, player_scores = $3, current_round = $4,
			winner_id = $5, winner_name = $6, updated_at = $7, finished_at = $8
		WHERE id = $9
	`, string(g.Status), j.Players, j.Scores, g.CurrentRound,
		nullable(g.WinnerID), nullable(g.WinnerName), g.UpdatedAt, g.FinishedAt, g.ID)
	return err
}

func (t *pgTx) AgentName(ctx context.Context, id string) (string, error) {
	var name string
	err := t.tx.QueryRow(ctx, `SELECT name FROM agents WHERE id = $1`, id).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return name, err
}

func (t *pgTx) CommitResults(ctx context.Context, results []game.AgentResult) error {
	return pgCommitResults(ctx, t.tx, results)
}

func (t *pgTx) Round(ctx context.Context, number int) (*game.Round, error) {
	return pgRound(ctx, t.tx, "WHERE game_id = $1 AND round_number = $2", t.game.ID, number)
}

func (t *pgTx) RoundByID(ctx context.Context, id string) (*game.Round, error) {
	return pgRound(ctx, t.tx, "WHERE id = $1", id)
}

func (t *pgTx) OpenRound(ctx context.Context) (*game.Round, error) {
	return pgRound(ctx, t.tx, `
		WHERE game_id = $1 AND status = 'open'
		ORDER BY round_number DESC
		LIMIT 1
	`, t.game.ID)
}

func (t *pgTx) InsertRound(ctx context.Context, r *game.Round) error {
	return pgInsertRound(ctx, t.tx, r)
}

func (t *pgTx) SaveRound(ctx context.Context, r *game.Round) error {
	return pgSaveRound(ctx, t.tx, r)
}
