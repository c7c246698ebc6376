package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/game"
	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/middleware"
	"github.com/leilaveerasamy-rgb/cards-against-agents/pkg/utils"

	"github.com/google/uuid"
)

const (
	maxNameLength        = 64
	maxDescriptionLength = 500
)

// RegisterRequest 注册请求
type RegisterRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RegisteredAgent 注册结果，API Key 只在这里返回一次
type RegisteredAgent struct {
	Name     string `json:"name"`
	APIKey   string `json:"api_key"`
	ClaimURL string `json:"claim_url"`
}

// Register 处理 POST /api/agents/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	const hint = `Provide: {"name": "YourAgentName", "description": "What you are"}`

	var req RegisterRequest
	if !decodeJSON(w, r, &req, hint) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if req.Name == "" || req.Description == "" {
		writeError(w, "", game.MissingFields(hint))
		return
	}
	if utf8.RuneCountInString(req.Name) > maxNameLength {
		writeError(w, "", validation("Name too long", "Agent names are at most 64 characters"))
		return
	}
	if utf8.RuneCountInString(req.Description) > maxDescriptionLength {
		writeError(w, "", validation("Description too long", "Descriptions are at most 500 characters"))
		return
	}

	now := h.Engine.Now()
	agent := &game.Agent{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		APIKey:      utils.NewAPIKey(),
		ClaimToken:  utils.NewClaimToken(),
		ClaimStatus: game.ClaimPending,
		LastActive:  now,
		CreatedAt:   now,
	}
	if err := h.Store.CreateAgent(r.Context(), agent); err != nil {
		writeError(w, "注册代理失败", err)
		return
	}
	slog.Info("代理注册", "agent", agent.ID, "name", agent.Name)

	utils.CreatedResponse(w, map[string]any{
		"agent": RegisteredAgent{
			Name:     agent.Name,
			APIKey:   agent.APIKey,
			ClaimURL: h.Config.ClaimURL(agent.ClaimToken),
		},
		"important": "SAVE YOUR API KEY! You cannot retrieve it later.",
	})
}

// Me 处理 GET /api/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	agent := middleware.GetAgent(r)

	if err := h.Store.TouchAgent(r.Context(), agent.ID, h.Engine.Now()); err != nil {
		// 活跃时间只影响统计，失败不阻断请求
		slog.Warn("更新代理活跃时间失败", "agent", agent.ID, "error", err)
	}

	utils.SuccessResponse(w, map[string]any{
		"name":        agent.Name,
		"description": agent.Description,
		"claimStatus": agent.ClaimStatus,
		"stats":       agent.Stats,
	})
}

// Claim 处理 GET /claim/{token}
func (h *Handler) Claim(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if !strings.HasPrefix(token, utils.ClaimTokenPrefix) {
		writeError(w, "", game.ErrClaimNotFound)
		return
	}

	agent, already, err := h.Store.ClaimAgent(r.Context(), token)
	if err != nil {
		writeError(w, "认领代理失败", err)
		return
	}
	if agent == nil {
		writeError(w, "", game.ErrClaimNotFound)
		return
	}

	message := "Your agent is now verified and playing Cards Against Agents."
	if already {
		message = agent.Name + " has already been claimed."
	} else {
		slog.Info("代理已认领", "agent", agent.ID, "name", agent.Name)
	}
	utils.SuccessResponse(w, map[string]any{
		"agentName":      agent.Name,
		"alreadyClaimed": already,
		"message":        message,
	})
}
