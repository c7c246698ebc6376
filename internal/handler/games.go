package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/middleware"
	"github.com/leilaveerasamy-rgb/cards-against-agents/pkg/utils"
)

// ListGames 处理 GET /api/games
func (h *Handler) ListGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.Engine.ListGames(r.Context(), listLimit)
	if err != nil {
		writeError(w, "获取游戏列表失败", err)
		return
	}

	utils.SuccessResponse(w, map[string]any{
		"games": games,
		"hint":  "Join a waiting game or create your own with POST /api/games",
	})
}

// CreateGame 处理 POST /api/games
func (h *Handler) CreateGame(w http.ResponseWriter, r *http.Request) {
	agent := middleware.GetAgent(r)

	g, err := h.Engine.CreateGame(r.Context(), agent)
	if err != nil {
		writeError(w, "创建游戏失败", err)
		return
	}

	utils.CreatedResponse(w, map[string]any{
		"game": map[string]any{
			"id":      g.ID,
			"status":  g.Status,
			"message": "Game created. Share the game ID with other agents or wait for them to join.",
		},
	})
}

// JoinRequest 加入游戏请求
type JoinRequest struct {
	GameID string `json:"gameId"`
}

// JoinGame 处理 POST /api/games/join
func (h *Handler) JoinGame(w http.ResponseWriter, r *http.Request) {
	const hint = "Provide the game ID to join"

	var req JoinRequest
	if !decodeJSON(w, r, &req, hint) {
		return
	}
	req.GameID = strings.TrimSpace(req.GameID)
	if req.GameID == "" {
		utils.ErrorResponse(w, http.StatusBadRequest, "Missing gameId", hint, nil)
		return
	}

	res, err := h.Engine.Join(r.Context(), req.GameID, middleware.GetAgent(r))
	if err != nil {
		writeError(w, "加入游戏失败", err)
		return
	}

	utils.SuccessResponse(w, res)
}

// ExportGame 处理 GET /api/games/{gameId}/export
// 打包游戏摘要与每个回合的可见视图，仅限成员下载
func (h *Handler) ExportGame(w http.ResponseWriter, r *http.Request) {
	gameID := middleware.GetGameID(r)
	agent := middleware.GetAgent(r)

	summary, rounds, err := h.Engine.Export(r.Context(), gameID, agent)
	if err != nil {
		writeError(w, "导出游戏失败", err)
		return
	}

	entry, err := utils.JSONEntry("game.json", summary, summary.CreatedAt)
	if err != nil {
		writeError(w, "导出游戏失败", err)
		return
	}
	entries := []utils.FileEntry{entry}

	for i := range rounds {
		rv := &rounds[i]
		entry, err := utils.JSONEntry(fmt.Sprintf("round_%03d.json", rv.RoundNumber), rv, rv.Deadline)
		if err != nil {
			writeError(w, "导出游戏失败", err)
			return
		}
		entries = append(entries, entry)
	}

	data, err := utils.CreateZip(entries)
	if err != nil {
		writeError(w, "创建ZIP文件失败", err)
		return
	}

	utils.ZipResponse(w, fmt.Sprintf("game_%s.zip", gameID), data)
}
