package main

import (
	"fmt"
	"strings"

	"github.com/RecoveryAshes/SitemapWarmup/internal/core"
	"github.com/RecoveryAshes/SitemapWarmup/internal/utils"
)

// ValidateWarmupConfig 验证合并后的预热参数
func ValidateWarmupConfig(cfg core.WarmupConfig) error {
	if cfg.Limit < 0 {
		return fmt.Errorf("URL上限不能为负数,当前值: %d", cfg.Limit)
	}

	if cfg.Concurrency < 0 || cfg.Concurrency > 1000 {
		return fmt.Errorf("并发数必须在0-1000之间,当前值: %d", cfg.Concurrency)
	}

	if cfg.RequestTimeout < 0 || cfg.RequestTimeout > 3600 {
		return fmt.Errorf("请求超时必须在0-3600秒之间,当前值: %d", cfg.RequestTimeout)
	}

	if cfg.CrawlTimeout < 0 {
		return fmt.Errorf("整体超时不能为负数,当前值: %d", cfg.CrawlTimeout)
	}

	if cfg.RateLimit < 0 {
		return fmt.Errorf("限速不能为负数,当前值: %.2f", cfg.RateLimit)
	}

	switch strings.ToLower(cfg.Format) {
	case "", utils.FormatText, utils.FormatJSON:
	default:
		return fmt.Errorf("无效的输出格式: %s (有效值: %s, %s)", cfg.Format, utils.FormatText, utils.FormatJSON)
	}

	return nil
}
