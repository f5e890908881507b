package models

import (
	"fmt"
	"strings"
)

// InvalidURLError URL为空或格式无效
type InvalidURLError struct {
	URL   string
	Empty bool
	Cause error
}

// Error 实现error接口
func (e *InvalidURLError) Error() string {
	if e.Empty {
		return "URL不能为空"
	}
	return fmt.Sprintf("无效的URL: %q", e.URL)
}

// Unwrap 支持errors.Unwrap
func (e *InvalidURLError) Unwrap() error {
	return e.Cause
}

// FileIsMissingError 本地文件不存在
type FileIsMissingError struct {
	Path string
}

// Error 实现error接口
func (e *FileIsMissingError) Error() string {
	return fmt.Sprintf("文件不存在: %s", e.Path)
}

// FileIsNotReadableError 文件存在但无法打开
type FileIsNotReadableError struct {
	Path  string
	Cause error
}

// Error 实现error接口
func (e *FileIsNotReadableError) Error() string {
	return fmt.Sprintf("文件不可读 [%s]: %v", e.Path, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *FileIsNotReadableError) Unwrap() error {
	return e.Cause
}

// SitemapCannotBeReadError 读取Sitemap数据流时出错
type SitemapCannotBeReadError struct {
	Sitemap Sitemap
	Cause   error
}

// Error 实现error接口
func (e *SitemapCannotBeReadError) Error() string {
	return fmt.Sprintf("无法读取Sitemap [%s]: %v", e.Sitemap.URI, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *SitemapCannotBeReadError) Unwrap() error {
	return e.Cause
}

// SitemapIsMalformedError Sitemap文档结构错误(如出现空节点)
type SitemapIsMalformedError struct {
	Sitemap Sitemap
	Cause   error
}

// Error 实现error接口
func (e *SitemapIsMalformedError) Error() string {
	return fmt.Sprintf("Sitemap格式错误 [%s]: %v", e.Sitemap.URI, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *SitemapIsMalformedError) Unwrap() error {
	return e.Cause
}

// InvalidCrawlerOptionError 爬取器不支持的选项
// Options 包含全部非法选项名,而非仅第一个
type InvalidCrawlerOptionError struct {
	Crawler string
	Options []string
}

// Error 实现error接口
func (e *InvalidCrawlerOptionError) Error() string {
	quoted := make([]string, 0, len(e.Options))
	for _, option := range e.Options {
		quoted = append(quoted, fmt.Sprintf("%q", option))
	}
	return fmt.Sprintf("爬取器 %q 不支持选项: %s", e.Crawler, strings.Join(quoted, ", "))
}

// OptionsAreMalformedError 爬取器选项无法解析
type OptionsAreMalformedError struct {
	Source string
	Cause  error
}

// Error 实现error接口
func (e *OptionsAreMalformedError) Error() string {
	if e.Source == "" {
		return "爬取器选项格式错误,请使用JSON对象"
	}
	return fmt.Sprintf("爬取器选项 %q 格式错误,请使用JSON对象", e.Source)
}

// Unwrap 支持errors.Unwrap
func (e *OptionsAreMalformedError) Unwrap() error {
	return e.Cause
}

// UnknownCrawlerError 未注册的爬取器名称
type UnknownCrawlerError struct {
	Name      string
	Available []string
}

// Error 实现error接口
func (e *UnknownCrawlerError) Error() string {
	return fmt.Sprintf("未知的爬取器: %s (可用: %s)", e.Name, strings.Join(e.Available, ", "))
}

// InvalidCrawlerError 已注册的爬取器未实现Crawler接口
type InvalidCrawlerError struct {
	Name string
	Type string
}

// Error 实现error接口
func (e *InvalidCrawlerError) Error() string {
	return fmt.Sprintf("爬取器 %s (%s) 未实现Crawler接口", e.Name, e.Type)
}

// NoSitemapsError 既没有Sitemap也没有额外URL
type NoSitemapsError struct{}

// Error 实现error接口
func (e *NoSitemapsError) Error() string {
	return "至少需要提供一个Sitemap或URL"
}

// UnknownStrategyError 未知的排序策略
type UnknownStrategyError struct {
	Name      string
	Available []string
}

// Error 实现error接口
func (e *UnknownStrategyError) Error() string {
	return fmt.Sprintf("未知的排序策略: %s (可用: %s)", e.Name, strings.Join(e.Available, ", "))
}

// CrawlFailedError 存在失败的URL或Sitemap且未允许失败
type CrawlFailedError struct {
	FailedURLs     int
	FailedSitemaps int
}

// Error 实现error接口
func (e *CrawlFailedError) Error() string {
	return fmt.Sprintf("缓存预热失败: %d 个URL失败, %d 个Sitemap失败", e.FailedURLs, e.FailedSitemaps)
}
