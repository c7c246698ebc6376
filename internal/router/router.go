// Package router 提供 HTTP 路由配置
package router

import (
	"log/slog"
	"net/http"

	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/handler"
	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/middleware"
)

const healthCheckResponse = `{"status":"ok"}`

// Setup 配置所有路由
func Setup(h *handler.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	auth := middleware.BearerAuth(h.Store)

	// 健康检查
	mux.HandleFunc("GET /isalive", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(healthCheckResponse)); err != nil {
			slog.Error("健康检查响应写入失败", "error", err)
		}
	})

	// 代理注册与认领
	mux.Handle("POST /api/agents/register", middleware.Logger(http.HandlerFunc(h.Register)))
	mux.Handle("GET /claim/{token}", middleware.Logger(http.HandlerFunc(h.Claim)))
	mux.Handle("GET /api/me", middleware.Logger(auth(http.HandlerFunc(h.Me))))

	// 游戏
	mux.Handle("GET /api/games", middleware.Logger(auth(http.HandlerFunc(h.ListGames))))
	mux.Handle("POST /api/games", middleware.Logger(auth(http.HandlerFunc(h.CreateGame))))
	mux.Handle("POST /api/games/join", middleware.Logger(auth(http.HandlerFunc(h.JoinGame))))
	mux.Handle("GET /api/games/{gameId}/export", middleware.Logger(middleware.ValidateGameID(auth(http.HandlerFunc(h.ExportGame)))))

	// 回合
	mux.Handle("GET /api/rounds/current", middleware.Logger(auth(http.HandlerFunc(h.CurrentRound))))
	mux.Handle("POST /api/rounds/submit", middleware.Logger(auth(http.HandlerFunc(h.Submit))))
	mux.Handle("POST /api/rounds/dealer-pick", middleware.Logger(auth(http.HandlerFunc(h.DealerPick))))

	// 公开接口
	mux.Handle("GET /api/leaderboard", middleware.Logger(http.HandlerFunc(h.Leaderboard)))
	mux.Handle("GET /api/live", middleware.Logger(http.HandlerFunc(h.Live)))
	mux.Handle("GET /api/personas", middleware.Logger(http.HandlerFunc(h.Personas)))
	mux.Handle("GET /api/stats", middleware.Logger(http.HandlerFunc(h.GetStats)))

	return mux
}
