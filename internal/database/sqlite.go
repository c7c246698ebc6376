package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/game"

	"github.com/mattn/go-sqlite3"
)

// SQLiteStore 单文件 SQLite 存储，适合本地运行与测试
// 写事务使用 BEGIN IMMEDIATE，同一时刻只有一个写者，单局游戏因此天然串行
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ Store = (*SQLiteStore)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS agents (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL,
	api_key TEXT NOT NULL UNIQUE,
	claim_token TEXT NOT NULL UNIQUE,
	claim_status TEXT NOT NULL DEFAULT 'pending_claim',
	last_active DATETIME NOT NULL,
	created_at DATETIME NOT NULL,
	total_points INTEGER NOT NULL DEFAULT 0,
	total_wins INTEGER NOT NULL DEFAULT 0,
	games_played INTEGER NOT NULL DEFAULT 0,
	correct_persona_guesses INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS games (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL DEFAULT 'waiting',
	players TEXT NOT NULL DEFAULT '[]',
	player_scores TEXT NOT NULL DEFAULT '[]',
	current_round INTEGER NOT NULL DEFAULT 0,
	points_to_win INTEGER NOT NULL DEFAULT 5,
	winner_id TEXT,
	winner_name TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS rounds (
	id TEXT PRIMARY KEY,
	game_id TEXT NOT NULL,
	round_number INTEGER NOT NULL,
	dealer_system INTEGER NOT NULL,
	dealer_id TEXT,
	dealer_name TEXT NOT NULL,
	dealer_persona TEXT NOT NULL,
	white_card TEXT NOT NULL,
	black_cards TEXT NOT NULL,
	dealer_pick_index INTEGER NOT NULL DEFAULT -1,
	submissions TEXT NOT NULL DEFAULT '[]',
	status TEXT NOT NULL DEFAULT 'open',
	deadline DATETIME NOT NULL,
	winners TEXT NOT NULL DEFAULT '[]',
	persona_guess_winners TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE (game_id, round_number),
	FOREIGN KEY (game_id) REFERENCES games(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_games_status_created ON games(status, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_rounds_deadline ON rounds(deadline);
`

// NewSQLiteStore 打开 SQLite 数据库，必要时创建目录
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("创建数据库目录失败: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_txlock=immediate&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	return &SQLiteStore{db: db, path: dbPath}, nil
}

// Initialize 创建表结构
func (s *SQLiteStore) Initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("创建表结构失败: %w", err)
	}
	return nil
}

// Close 关闭数据库
func (s *SQLiteStore) Close() {
	_ = s.db.Close()
}

// sqlQuerier *sql.DB 与 *sql.Tx 共有的查询方法
type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ---- 代理 ----

func liteAgent(ctx context.Context, q sqlQuerier, where string, arg any) (*game.Agent, error) {
	a, err := scanAgent(q.QueryRowContext(ctx, selectAgent+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// CreateAgent 注册代理
func (s *SQLiteStore) CreateAgent(ctx context.Context, a *game.Agent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agents (id, name, description, api_key, claim_token, claim_status, last_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Name, a.Description, a.APIKey, a.ClaimToken, string(a.ClaimStatus), a.LastActive.UTC(), a.CreatedAt.UTC())

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return game.ErrNameTaken
	}
	return err
}

// AgentByAPIKey 根据 API Key 获取代理
func (s *SQLiteStore) AgentByAPIKey(ctx context.Context, apiKey string) (*game.Agent, error) {
	return liteAgent(ctx, s.db, "WHERE api_key = ?", apiKey)
}

// AgentByID 根据 ID 获取代理
func (s *SQLiteStore) AgentByID(ctx context.Context, id string) (*game.Agent, error) {
	return liteAgent(ctx, s.db, "WHERE id = ?", id)
}

// ClaimAgent 认领代理
func (s *SQLiteStore) ClaimAgent(ctx context.Context, token string) (*game.Agent, bool, error) {
	a, err := liteAgent(ctx, s.db, "WHERE claim_token = ?", token)
	if err != nil || a == nil {
		return nil, false, err
	}
	if a.ClaimStatus == game.ClaimClaimed {
		return a, true, nil
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE agents SET claim_status = ? WHERE id = ?`,
		string(game.ClaimClaimed), a.ID); err != nil {
		return nil, false, err
	}
	a.ClaimStatus = game.ClaimClaimed
	return a, false, nil
}

// TouchAgent 更新最后活跃时间
func (s *SQLiteStore) TouchAgent(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE agents SET last_active = ? WHERE id = ?`, at.UTC(), id)
	return err
}

// Leaderboard 排行榜
func (s *SQLiteStore) Leaderboard(ctx context.Context, limit int) ([]game.Agent, error) {
	rows, err := s.db.QueryContext(ctx, selectAgent+`
		WHERE games_played > 0
		ORDER BY total_points DESC, total_wins DESC, created_at
		LIMIT ?
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

// ---- 游戏 ----

func scanLiteGame(row rowScanner) (*game.Game, error) {
	var g game.Game
	var status string
	var players, scores string
	var winnerID, winnerName sql.NullString
	var finishedAt sql.NullTime
	err := row.Scan(
		&g.ID, &status, &players, &scores, &g.CurrentRound, &g.PointsToWin,
		&winnerID, &winnerName, &g.CreatedAt, &g.UpdatedAt, &finishedAt,
	)
	if err != nil {
		return nil, err
	}
	g.Status = game.GameStatus(status)
	g.WinnerID = winnerID.String
	g.WinnerName = winnerName.String
	if finishedAt.Valid {
		g.FinishedAt = &finishedAt.Time
	}
	if err := decodeGame(&g, gameJSON{Players: []byte(players), Scores: []byte(scores)}); err != nil {
		return nil, err
	}
	return &g, nil
}

func liteGame(ctx context.Context, q sqlQuerier, id string) (*game.Game, error) {
	g, err := scanLiteGame(q.QueryRowContext(ctx, selectGame+"WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return g, err
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// CreateGame 创建游戏
func (s *SQLiteStore) CreateGame(ctx context.Context, g *game.Game) error {
	j, err := encodeGame(g)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO games (id, status, players, player_scores, current_round, points_to_win, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, g.ID, string(g.Status), string(j.Players), string(j.Scores), g.CurrentRound, g.PointsToWin,
		g.CreatedAt.UTC(), g.UpdatedAt.UTC())
	return err
}

// Game 根据ID获取游戏
func (s *SQLiteStore) Game(ctx context.Context, id string) (*game.Game, error) {
	return liteGame(ctx, s.db, id)
}

// ListGames 按状态筛选游戏，最新创建的在前
func (s *SQLiteStore) ListGames(ctx context.Context, statuses []game.GameStatus, limit int) ([]game.Game, error) {
	if len(statuses) == 0 {
		return []game.Game{}, nil
	}
	args := make([]any, 0, len(statuses)+1)
	for _, st := range statuses {
		args = append(args, string(st))
	}
	args = append(args, limit)

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(statuses)), ", ")
	rows, err := s.db.QueryContext(ctx, selectGame+`
		WHERE status IN (`+placeholders+`)
		ORDER BY created_at DESC
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	games := make([]game.Game, 0, limit)
	for rows.Next() {
		g, err := scanLiteGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, *g)
	}
	return games, rows.Err()
}

// StaleGameIDs 当前回合已过截止时间且未计分的进行中游戏
func (s *SQLiteStore) StaleGameIDs(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id, r.deadline
		FROM games g
		JOIN rounds r ON r.game_id = g.id AND r.round_number = g.current_round
		WHERE g.status = 'active' AND r.status <> 'scored'
		ORDER BY r.deadline
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		var deadline time.Time
		if err := rows.Scan(&id, &deadline); err != nil {
			return nil, err
		}
		if deadline.Before(now) {
			ids = append(ids, id)
		}
	}
	return ids, rows.Err()
}

// InGame 在 IMMEDIATE 事务中执行 fn
func (s *SQLiteStore) InGame(ctx context.Context, gameID string, fn func(tx game.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开始事务失败: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	g, err := liteGame(ctx, tx, gameID)
	if err != nil {
		return fmt.Errorf("读取游戏失败: %w", err)
	}
	if g == nil {
		return game.ErrGameNotFound
	}
	if err := fn(&liteTx{tx: tx, game: g}); err != nil {
		return err
	}
	return tx.Commit()
}

// CleanupAbandonedGames 删除长期无人加入的等待中游戏
func (s *SQLiteStore) CleanupAbandonedGames(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM games WHERE status = 'waiting' AND updated_at < ?
	`, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Stats 获取所有统计信息
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM agents),
			(SELECT COUNT(*) FROM agents WHERE claim_status = 'claimed'),
			(SELECT COUNT(*) FROM games WHERE status = 'waiting'),
			(SELECT COUNT(*) FROM games WHERE status = 'active'),
			(SELECT COUNT(*) FROM games WHERE status = 'finished'),
			(SELECT COUNT(*) FROM rounds WHERE status = 'scored'),
			(SELECT COUNT(*) FROM agents WHERE last_active >= ?)
	`, time.Now().Add(-ActiveWindow).UTC()).Scan(
		&st.AgentCount, &st.ClaimedAgentCount,
		&st.WaitingGames, &st.ActiveGames, &st.FinishedGames,
		&st.ScoredRounds, &st.ActiveAgents7Days,
	)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// ---- 回合 ----

func scanLiteRound(row rowScanner) (*game.Round, error) {
	var r game.Round
	var dealerID sql.NullString
	var persona, status string
	var answers, subs, winners, personaWinners string
	err := row.Scan(
		&r.ID, &r.GameID, &r.Number, &r.Dealer.System, &dealerID, &r.Dealer.Name, &persona,
		&r.Prompt, &answers, &r.PickIndex, &subs, &status, &r.Deadline,
		&winners, &personaWinners, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Dealer.AgentID = dealerID.String
	r.Persona = game.Persona(persona)
	r.Status = game.RoundStatus(status)
	j := roundJSON{
		Answers:        []byte(answers),
		Submissions:    []byte(subs),
		Winners:        []byte(winners),
		PersonaWinners: []byte(personaWinners),
	}
	if err := decodeRound(&r, j); err != nil {
		return nil, err
	}
	return &r, nil
}

func liteRound(ctx context.Context, q sqlQuerier, where string, args ...any) (*game.Round, error) {
	r, err := scanLiteRound(q.QueryRowContext(ctx, selectRound+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

// Round 根据游戏与回合号获取回合
func (s *SQLiteStore) Round(ctx context.Context, gameID string, number int) (*game.Round, error) {
	return liteRound(ctx, s.db, "WHERE game_id = ? AND round_number = ?", gameID, number)
}

// Rounds 获取游戏的全部回合
func (s *SQLiteStore) Rounds(ctx context.Context, gameID string) ([]game.Round, error) {
	rows, err := s.db.QueryContext(ctx, selectRound+"WHERE game_id = ? ORDER BY round_number", gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rounds []game.Round
	for rows.Next() {
		r, err := scanLiteRound(rows)
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, *r)
	}
	return rounds, rows.Err()
}

// liteTx 单局游戏事务
type liteTx struct {
	tx   *sql.Tx
	game *game.Game
}

func (t *liteTx) Game() *game.Game {
	return t.game
}

func (t *liteTx) SaveGame(ctx context.Context, g *game.Game) error {
	j, err := encodeGame(g)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `
		UPDATE games
		SET status = ?, players = ?, player_scores = ?, current_round = ?,
			winner_id = ?, winner_name = ?, updated_at = ?, finished_at = ?
		WHERE id = ?
	`, string(g.Status), string(j.Players), string(j.Scores), g.CurrentRound,
		nullable(g.WinnerID), nullable(g.WinnerName), g.UpdatedAt.UTC(), utcPtr(g.FinishedAt), g.ID)
	return err
}

func (t *liteTx) AgentName(ctx context.Context, id string) (string, error) {
	var name string
	err := t.tx.QueryRowContext(ctx, `SELECT name FROM agents WHERE id = ?`, id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return name, err
}

func (t *liteTx) CommitResults(ctx context.Context, results []game.AgentResult) error {
	for _, r := range results {
		if _, err := t.tx.ExecContext(ctx, `
			UPDATE agents
			SET total_points = total_points + ?,
				games_played = games_played + 1,
				total_wins = total_wins + ?,
				correct_persona_guesses = correct_persona_guesses + ?
			WHERE id = ?
		`, r.Points, boolInt(r.Won), boolInt(r.PersonaGuessCorrect), r.AgentID); err != nil {
			return err
		}
	}
	return nil
}

func (t *liteTx) Round(ctx context.Context, number int) (*game.Round, error) {
	return liteRound(ctx, t.tx, "WHERE game_id = ? AND round_number = ?", t.game.ID, number)
}

func (t *liteTx) RoundByID(ctx context.Context, id string) (*game.Round, error) {
	return liteRound(ctx, t.tx, "WHERE id = ?", id)
}

func (t *liteTx) OpenRound(ctx context.Context) (*game.Round, error) {
	return liteRound(ctx, t.tx, `
		WHERE game_id = ? AND status = 'open'
		ORDER BY round_number DESC
		LIMIT 1
	`, t.game.ID)
}

func (t *liteTx) InsertRound(ctx context.Context, r *game.Round) error {
	j, err := encodeRound(r)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO rounds (id, game_id, round_number, dealer_system, dealer_id, dealer_name, dealer_persona,
			white_card, black_cards, dealer_pick_index, submissions, status, deadline,
			winners, persona_guess_winners, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.GameID, r.Number, r.Dealer.System, nullable(r.Dealer.AgentID), r.Dealer.Name, string(r.Persona),
		r.Prompt, string(j.Answers), r.PickIndex, string(j.Submissions), string(r.Status), r.Deadline.UTC(),
		string(j.Winners), string(j.PersonaWinners), r.CreatedAt.UTC(), r.UpdatedAt.UTC())
	return err
}

func (t *liteTx) SaveRound(ctx context.Context, r *game.Round) error {
	j, err := encodeRound(r)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `
		UPDATE rounds
		SET dealer_pick_index = ?, submissions = ?, status = ?,
			winners = ?, persona_guess_winners = ?, updated_at = ?
		WHERE id = ?
	`, r.PickIndex, string(j.Submissions), string(r.Status), string(j.Winners), string(j.PersonaWinners),
		r.UpdatedAt.UTC(), r.ID)
	return err
}
