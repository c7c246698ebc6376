package middleware

import (
	"context"
	"net/http"

	"github.com/leilaveerasamy-rgb/cards-against-agents/pkg/utils"
)

const (
	// GameIDKey 游戏ID上下文键
	GameIDKey ContextKey = "gameID"
)

// ValidateGameID 验证路径中的游戏ID
// 用于 /api/games/{gameId}/* 接口
func ValidateGameID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gameID := r.PathValue("gameId")
		if gameID == "" {
			utils.ErrorResponse(w, http.StatusBadRequest, "Missing gameId", "Provide the game ID in the path", nil)
			return
		}

		if !utils.ValidateID(gameID) {
			utils.ErrorResponse(w, http.StatusBadRequest, "Invalid gameId", "Game IDs are UUIDs as returned by GET /api/games", nil)
			return
		}

		ctx := context.WithValue(r.Context(), GameIDKey, gameID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetGameID 从上下文获取游戏ID
func GetGameID(r *http.Request) string {
	if v := r.Context().Value(GameIDKey); v != nil {
		return v.(string)
	}
	return ""
}
