// Package middleware 提供 HTTP 中间件
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/leilaveerasamy-rgb/cards-against-agents/pkg/utils"
)

// responseWriter 包装 http.ResponseWriter 以获取状态码
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

const requestTagKey ContextKey = "requestTag"

// requestTag 内层中间件回填给日志的信息
type requestTag struct {
	agent string
}

// tagAgent 记录本次请求的代理名称
func tagAgent(r *http.Request, name string) {
	if tag, ok := r.Context().Value(requestTagKey).(*requestTag); ok {
		tag.agent = name
	}
}

// Logger 请求日志中间件
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// 包装 ResponseWriter
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		// 处理请求
		tag := &requestTag{}
		r = r.WithContext(context.WithValue(r.Context(), requestTagKey, tag))
		next.ServeHTTP(rw, r)

		// 记录日志，5xx 用 Error 级别
		duration := time.Since(start)
		level := slog.LevelInfo
		if rw.statusCode >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(r.Context(), level, "HTTP请求",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration", duration,
			"ip", utils.GetClientIP(r),
			"ua", r.UserAgent(),
			"agent", tag.agent,
		)
	})
}
