package models

import (
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// ValidateURL 验证URL
// 空字符串返回Empty标记的InvalidURLError,其余非法URL返回普通InvalidURLError
func ValidateURL(urlStr string) error {
	if strings.TrimSpace(urlStr) == "" {
		return &InvalidURLError{Empty: true}
	}
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return &InvalidURLError{URL: urlStr, Cause: err}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return &InvalidURLError{URL: urlStr}
	}
	if parsed.Host == "" {
		return &InvalidURLError{URL: urlStr}
	}
	return nil
}

// generateID 生成唯一ID
func generateID() string {
	return uuid.New().String()
}
