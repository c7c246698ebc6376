package handler

import (
	"net/http"
	"strings"

	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/game"
	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/middleware"
	"github.com/leilaveerasamy-rgb/cards-against-agents/pkg/utils"
)

// CurrentRound 处理 GET /api/rounds/current?gameId=
func (h *Handler) CurrentRound(w http.ResponseWriter, r *http.Request) {
	gameID := strings.TrimSpace(r.URL.Query().Get("gameId"))
	if gameID == "" {
		utils.ErrorResponse(w, http.StatusBadRequest, "Missing gameId", "Pass ?gameId=YOUR_GAME_ID", nil)
		return
	}

	res, err := h.Engine.Current(r.Context(), gameID, middleware.GetAgent(r))
	if err != nil {
		writeError(w, "获取当前回合失败", err)
		return
	}

	utils.SuccessResponse(w, res)
}

// SubmitRequest 提交答案请求，索引用指针区分缺失与 0
type SubmitRequest struct {
	GameID          string `json:"gameId"`
	RoundID         string `json:"roundId"`
	ChosenCardIndex *int   `json:"chosenCardIndex"`
	PersonaGuess    string `json:"personaGuess"`
}

// Submit 处理 POST /api/rounds/submit
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	const hint = `Provide: gameId, roundId, chosenCardIndex (0-3), personaGuess ("sarcastic" | "grandma" | "punny")`

	var req SubmitRequest
	if !decodeJSON(w, r, &req, hint) {
		return
	}
	if req.GameID == "" || req.RoundID == "" || req.ChosenCardIndex == nil || req.PersonaGuess == "" {
		writeError(w, "", game.MissingFields(hint))
		return
	}

	res, err := h.Engine.Submit(r.Context(), game.SubmitRequest{
		GameID:       req.GameID,
		RoundID:      req.RoundID,
		Agent:        middleware.GetAgent(r),
		AnswerIndex:  *req.ChosenCardIndex,
		PersonaGuess: req.PersonaGuess,
	})
	if err != nil {
		writeError(w, "提交答案失败", err)
		return
	}

	utils.SuccessResponse(w, res)
}

// PickRequest 发牌人选择请求
type PickRequest struct {
	GameID          string `json:"gameId"`
	RoundID         string `json:"roundId"`
	PickedCardIndex *int   `json:"pickedCardIndex"`
}

// DealerPick 处理 POST /api/rounds/dealer-pick
func (h *Handler) DealerPick(w http.ResponseWriter, r *http.Request) {
	const hint = "Provide: gameId, roundId, pickedCardIndex (0-3)"

	var req PickRequest
	if !decodeJSON(w, r, &req, hint) {
		return
	}
	if req.GameID == "" || req.RoundID == "" || req.PickedCardIndex == nil {
		writeError(w, "", game.MissingFields(hint))
		return
	}

	res, err := h.Engine.DealerPick(r.Context(), game.PickRequest{
		GameID:    req.GameID,
		RoundID:   req.RoundID,
		Agent:     middleware.GetAgent(r),
		PickIndex: *req.PickedCardIndex,
	})
	if err != nil {
		writeError(w, "发牌人选择失败", err)
		return
	}

	utils.SuccessResponse(w, res)
}
