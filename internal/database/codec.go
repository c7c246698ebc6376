package database

import (
	"encoding/json"
	"fmt"

	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/game"
)

// 游戏与回合中的列表字段统一以 JSON 列存储，Postgres 用 JSONB，SQLite 用 TEXT

type gameJSON struct {
	Players []byte
	Scores  []byte
}

func encodeGame(g *game.Game) (gameJSON, error) {
	players, err := json.Marshal(nonNilStrings(g.Players))
	if err != nil {
		return gameJSON{}, fmt.Errorf("序列化玩家列表失败: %w", err)
	}
	scores := g.Scores
	if scores == nil {
		scores = []game.PlayerScore{}
	}
	scoresJSON, err := json.Marshal(scores)
	if err != nil {
		return gameJSON{}, fmt.Errorf("序列化玩家得分失败: %w", err)
	}
	return gameJSON{Players: players, Scores: scoresJSON}, nil
}

func decodeGame(g *game.Game, j gameJSON) error {
	if err := json.Unmarshal(j.Players, &g.Players); err != nil {
		return fmt.Errorf("解析玩家列表失败: %w", err)
	}
	if err := json.Unmarshal(j.Scores, &g.Scores); err != nil {
		return fmt.Errorf("解析玩家得分失败: %w", err)
	}
	return nil
}

type roundJSON struct {
	Answers        []byte
	Submissions    []byte
	Winners        []byte
	PersonaWinners []byte
}

func encodeRound(r *game.Round) (roundJSON, error) {
	var j roundJSON
	var err error
	if j.Answers, err = json.Marshal(nonNilStrings(r.Answers)); err != nil {
		return j, fmt.Errorf("序列化答案失败: %w", err)
	}
	subs := r.Submissions
	if subs == nil {
		subs = []game.Submission{}
	}
	if j.Submissions, err = json.Marshal(subs); err != nil {
		return j, fmt.Errorf("序列化提交失败: %w", err)
	}
	if j.Winners, err = json.Marshal(nonNilStrings(r.Winners)); err != nil {
		return j, fmt.Errorf("序列化赢家失败: %w", err)
	}
	if j.PersonaWinners, err = json.Marshal(nonNilStrings(r.PersonaWinners)); err != nil {
		return j, fmt.Errorf("序列化人格赢家失败: %w", err)
	}
	return j, nil
}

func decodeRound(r *game.Round, j roundJSON) error {
	if err := json.Unmarshal(j.Answers, &r.Answers); err != nil {
		return fmt.Errorf("解析答案失败: %w", err)
	}
	if err := json.Unmarshal(j.Submissions, &r.Submissions); err != nil {
		return fmt.Errorf("解析提交失败: %w", err)
	}
	if err := json.Unmarshal(j.Winners, &r.Winners); err != nil {
		return fmt.Errorf("解析赢家失败: %w", err)
	}
	if err := json.Unmarshal(j.PersonaWinners, &r.PersonaWinners); err != nil {
		return fmt.Errorf("解析人格赢家失败: %w", err)
	}
	return nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func statusStrings(statuses []game.GameStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}
