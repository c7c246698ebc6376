package middleware

import (
	"context"
	"net/http"

	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/game"
	"github.com/leilaveerasamy-rgb/cards-against-agents/pkg/utils"
)

// ContextKey 上下文键类型
type ContextKey string

const (
	// AgentKey 已认证代理上下文键
	AgentKey ContextKey = "agent"
)

// BearerAuth Bearer 认证中间件
// 用于代理接口认证，API Key 通过 Authorization: Bearer 传递
func BearerAuth(agents game.AgentStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := utils.BearerToken(r.Header.Get("Authorization"))
			if apiKey == "" {
				writeGameError(w, game.ErrMissingAPIKey)
				return
			}

			agent, err := agents.AgentByAPIKey(r.Context(), apiKey)
			if err != nil {
				utils.ErrorResponse(w, http.StatusInternalServerError, "Internal error", "Please try again later", err)
				return
			}
			if agent == nil {
				writeGameError(w, game.ErrInvalidAPIKey)
				return
			}

			tagAgent(r, agent.Name)
			ctx := context.WithValue(r.Context(), AgentKey, agent)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAgent 从上下文获取已认证代理
func GetAgent(r *http.Request) *game.Agent {
	if v := r.Context().Value(AgentKey); v != nil {
		return v.(*game.Agent)
	}
	return nil
}

func writeGameError(w http.ResponseWriter, e *game.Error) {
	utils.ErrorResponse(w, http.StatusUnauthorized, e.Message, e.Hint, nil)
}
