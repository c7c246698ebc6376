package utils

import (
	"strings"

	"github.com/google/uuid"
)

const (
	// APIKeyPrefix API Key 前缀
	APIKeyPrefix = "cah_"
	// ClaimTokenPrefix 认领令牌前缀
	ClaimTokenPrefix = "cah_claim_"
)

// NewAPIKey 生成 API Key
func NewAPIKey() string {
	return APIKeyPrefix + compactUUID()
}

// NewClaimToken 生成认领令牌
func NewClaimToken() string {
	return ClaimTokenPrefix + compactUUID()
}

func compactUUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ValidateID 验证 UUID 格式的资源ID
func ValidateID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}

// BearerToken 从 Authorization 头提取 Bearer 令牌
func BearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
