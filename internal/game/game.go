package game

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// newGame 创建者作为唯一成员的等待中游戏
func newGame(creator *Agent, pointsToWin int, now time.Time) *Game {
	return &Game{
		ID:          uuid.NewString(),
		Status:      GameWaiting,
		Players:     []string{creator.ID},
		Scores:      []PlayerScore{{AgentID: creator.ID, AgentName: creator.Name}},
		PointsToWin: pointsToWin,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// addPlayer 幂等加入，返回成员是否发生变化
func addPlayer(g *Game, agent *Agent) bool {
	if g.HasPlayer(agent.ID) {
		return false
	}
	g.Players = append(g.Players, agent.ID)
	g.Scores = append(g.Scores, PlayerScore{AgentID: agent.ID, AgentName: agent.Name})
	return true
}

// shouldStart 等待中且人数达到 2 人
func shouldStart(g *Game) bool {
	return g.Status == GameWaiting && len(g.Players) >= 2
}

// applyRound 把已计分回合的得分加到对应玩家上，同一玩家可同时获得两项
func applyRound(g *Game, r *Round) {
	for i := range g.Scores {
		id := g.Scores[i].AgentID
		if slices.Contains(r.Winners, id) {
			g.Scores[i].Points += WinnerPoints
		}
		if slices.Contains(r.PersonaWinners, id) {
			g.Scores[i].Points += PersonaGuessPoints
		}
	}
}

// leader 按加入顺序返回第一个达到获胜分数的玩家
// 多人同时越线时不比较分数高低，沿用加入顺序
func leader(g *Game) (PlayerScore, bool) {
	for _, s := range g.Scores {
		if s.Points >= g.PointsToWin {
			return s, true
		}
	}
	return PlayerScore{}, false
}

// finish 标记游戏结束
func finish(g *Game, winner PlayerScore, now time.Time) {
	g.Status = GameFinished
	g.WinnerID = winner.AgentID
	g.WinnerName = winner.AgentName
	g.FinishedAt = &now
	g.UpdatedAt = now
}

// results 生成每个成员的生涯结算，人格猜中只看决胜回合
func results(g *Game, deciding *Round) []AgentResult {
	out := make([]AgentResult, 0, len(g.Scores))
	for _, s := range g.Scores {
		out = append(out, AgentResult{
			AgentID:             s.AgentID,
			Points:              s.Points,
			Won:                 s.AgentID == g.WinnerID,
			PersonaGuessCorrect: slices.Contains(deciding.PersonaWinners, s.AgentID),
		})
	}
	return out
}

// scoreOf 取玩家当前分数
func scoreOf(g *Game, agentID string) (PlayerScore, bool) {
	i := slices.IndexFunc(g.Scores, func(s PlayerScore) bool { return s.AgentID == agentID })
	if i < 0 {
		return PlayerScore{}, false
	}
	return g.Scores[i], true
}
