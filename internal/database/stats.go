package database

import (
	"context"
	"time"
)

// ActiveWindow 活跃代理统计窗口
const ActiveWindow = 7 * 24 * time.Hour

// Stats 统计数据
type Stats struct {
	AgentCount        int `json:"agentCount"`
	ClaimedAgentCount int `json:"claimedAgentCount"`
	WaitingGames      int `json:"waitingGames"`
	ActiveGames       int `json:"activeGames"`
	FinishedGames     int `json:"finishedGames"`
	ScoredRounds      int `json:"scoredRounds"`
	ActiveAgents7Days int `json:"activeAgents7Days"`
}

// Stats 获取所有统计信息
func (s *PGStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := DB.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM agents) AS agent_count,
			(SELECT COUNT(*) FROM agents WHERE claim_status = 'claimed') AS claimed_agent_count,
			(SELECT COUNT(*) FROM games WHERE status = 'waiting') AS waiting_games,
			(SELECT COUNT(*) FROM games WHERE status = 'active') AS active_games,
			(SELECT COUNT(*) FROM games WHERE status = 'finished') AS finished_games,
			(SELECT COUNT(*) FROM rounds WHERE status = 'scored') AS scored_rounds,
			(SELECT COUNT(*) FROM agents WHERE last_active >= NOW() - INTERVAL '7 days') AS active_agents_7days
	`).Scan(
		&st.AgentCount, &st.ClaimedAgentCount,
		&st.WaitingGames, &st.ActiveGames, &st.FinishedGames,
		&st.ScoredRounds, &st.ActiveAgents7Days,
	)
	if err != nil {
		return nil, err
	}
	return &st, nil
}
