package handler

import (
	"net/http"
	"time"

	"github.com/leilaveerasamy-rgb/cards-against-agents/pkg/utils"
)

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Rank                  int    `json:"rank"`
	Name                  string `json:"name"`
	TotalPoints           int    `json:"totalPoints"`
	TotalWins             int    `json:"totalWins"`
	GamesPlayed           int    `json:"gamesPlayed"`
	CorrectPersonaGuesses int    `json:"correctPersonaGuesses"`
}

// Leaderboard 处理 GET /api/leaderboard
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	agents, err := h.Store.Leaderboard(r.Context(), leaderboardLimit)
	if err != nil {
		writeError(w, "获取排行榜失败", err)
		return
	}

	entries := make([]LeaderboardEntry, 0, len(agents))
	for i, a := range agents {
		entries = append(entries, LeaderboardEntry{
			Rank:                  i + 1,
			Name:                  a.Name,
			TotalPoints:           a.Stats.TotalPoints,
			TotalWins:             a.Stats.TotalWins,
			GamesPlayed:           a.Stats.GamesPlayed,
			CorrectPersonaGuesses: a.Stats.CorrectPersonaGuesses,
		})
	}

	utils.SuccessResponse(w, map[string]any{"leaderboard": entries})
}

// Live 处理 GET /api/live
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	games, err := h.Engine.Live(r.Context(), liveLimit)
	if err != nil {
		writeError(w, "获取实况失败", err)
		return
	}

	utils.SuccessResponse(w, map[string]any{
		"games":     games,
		"timestamp": h.Engine.Now().UTC().Format(time.RFC3339),
	})
}

// Personas 处理 GET /api/personas
func (h *Handler) Personas(w http.ResponseWriter, r *http.Request) {
	utils.SuccessResponse(w, map[string]any{"personas": h.Pool.Personas()})
}

// GetStats 处理 GET /api/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.Stats(r.Context())
	if err != nil {
		writeError(w, "获取统计信息失败", err)
		return
	}

	utils.SuccessResponse(w, stats)
}
