// Package handler 提供 HTTP 接口处理器
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/config"
	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/content"
	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/database"
	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/game"
	"github.com/leilaveerasamy-rgb/cards-against-agents/pkg/utils"
)

const (
	// MaxBodySize 最大请求体大小 (64KB)
	MaxBodySize = 64 * 1024

	listLimit        = 20
	liveLimit        = 10
	leaderboardLimit = 50
)

// Handler 处理器依赖
type Handler struct {
	Config *config.Config
	Engine *game.Engine
	Store  database.Store
	Pool   *content.Pool
}

// New 创建处理器
func New(cfg *config.Config, engine *game.Engine, store database.Store, pool *content.Pool) *Handler {
	return &Handler{Config: cfg, Engine: engine, Store: store, Pool: pool}
}

// statusOf 业务错误分类对应的 HTTP 状态码
func statusOf(kind game.Kind) int {
	switch kind {
	case game.KindAuthentication:
		return http.StatusUnauthorized
	case game.KindNotFound:
		return http.StatusNotFound
	case game.KindForbidden:
		return http.StatusForbidden
	case game.KindConflict:
		return http.StatusConflict
	}
	return http.StatusBadRequest
}

// writeError 业务错误原样返回，其余错误记录日志并返回 500
func writeError(w http.ResponseWriter, message string, err error) {
	if e, ok := game.AsError(err); ok {
		utils.ErrorResponse(w, statusOf(e.Kind), e.Message, e.Hint, nil)
		return
	}
	slog.Error(message, "error", err)
	utils.ErrorResponse(w, http.StatusInternalServerError, "Internal error", "Please try again later", nil)
}

// decodeJSON 解析请求体，空请求体视为缺少字段
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, hint string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, "", game.MissingFields(hint))
			return false
		}
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON body", hint, nil)
		return false
	}
	return true
}

func validation(message, hint string) *game.Error {
	return &game.Error{Kind: game.KindValidation, Message: message, Hint: hint}
}
