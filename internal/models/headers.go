package models

import (
	"fmt"
	"net/http"
	"strings"
)

// HeaderSource 自定义头部的来源, 出现在验证错误中
type HeaderSource string

const (
	HeaderSourceDefault       HeaderSource = "默认头部"
	HeaderSourceFlag          HeaderSource = "参数 --header"
	HeaderSourceConfigFile    HeaderSource = "头部配置文件"
	HeaderSourceCrawlerOption HeaderSource = "爬取器选项 request_headers"
)

// HeaderConfig headers.yaml的结构
type HeaderConfig struct {
	Headers map[string]string `mapstructure:"headers" yaml:"headers"`
}

// HeaderMap 名称到值的映射, 来自配置文件或爬取器选项
type HeaderMap map[string]string

// ToHeader 转换为规范化名称的http.Header
// 空名称返回ValidationError
func (m HeaderMap) ToHeader(source HeaderSource) (http.Header, error) {
	result := make(http.Header, len(m))
	for name, value := range m {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, &ValidationError{
				Source: source,
				Field:  "name",
				Reason: "头部名称不能为空",
			}
		}
		result.Set(name, strings.TrimSpace(value))
	}
	return result, nil
}

// CliHeaders 命令行 -H 传入的 "Name: Value" 列表
type CliHeaders []string

// Parse 解析为http.Header, 同名头部后者覆盖前者
func (ch CliHeaders) Parse() (http.Header, error) {
	result := make(http.Header)
	for i, s := range ch {
		name, value, ok := strings.Cut(s, ":")
		if !ok {
			return nil, &ValidationError{
				Source:     HeaderSourceFlag,
				Field:      "name",
				HeaderName: s,
				Reason:     fmt.Sprintf("第%d项缺少冒号分隔符", i+1),
				Suggestion: "使用 'Name: Value' 格式",
			}
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, &ValidationError{
				Source: HeaderSourceFlag,
				Field:  "name",
				Reason: fmt.Sprintf("第%d项头部名称为空", i+1),
			}
		}
		result.Set(name, strings.TrimSpace(value))
	}
	return result, nil
}

// HeaderProvider sitemap下载和预热请求共用的头部
type HeaderProvider interface {
	// GetHeaders 返回合并后的头部 (默认 < 配置文件 < 命令行)
	// 配置文件无法解析或头部验证失败时返回错误
	GetHeaders() (http.Header, error)
}

// ValidationError 头部验证错误
type ValidationError struct {
	Source     HeaderSource
	Field      string // "name" 或 "value"
	HeaderName string
	Reason     string
	Suggestion string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("头部验证失败 [%s]: %s", e.HeaderName, e.Reason)
	if e.Source != "" {
		msg = fmt.Sprintf("%s: %s", e.Source, msg)
	}
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (建议: %s)", e.Suggestion)
	}
	return msg
}

// ConfigError 头部配置文件无法读取或解析
type ConfigError struct {
	FilePath string
	Cause    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("配置文件错误 [%s]: %v", e.FilePath, e.Cause)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}
