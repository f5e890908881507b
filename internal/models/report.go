package models

import (
	"encoding/json"
	"time"
)

// MessageSeverity 日志消息级别
type MessageSeverity string

const (
	SeverityInfo    MessageSeverity = "info"
	SeverityWarning MessageSeverity = "warning"
	SeverityError   MessageSeverity = "error"
)

// CrawlReport JSON格式的预热报告
type CrawlReport struct {
	// 运行信息
	RunID     string    `json:"run_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time,omitempty"`
	Duration  float64   `json:"duration"` // 预热耗时(秒)

	ParserResult      *ParserResultReport      `json:"parserResult,omitempty"`
	CacheWarmupResult *CacheWarmupResultReport `json:"cacheWarmupResult,omitempty"`

	// 按级别分组的消息
	Messages map[MessageSeverity][]string `json:"messages,omitempty"`
}

// ParserResultReport sitemap解析结果
type ParserResultReport struct {
	Success *ParsedSitemapsReport `json:"success,omitempty"`
	Failure *FailedSitemapsReport `json:"failure,omitempty"`
}

// ParsedSitemapsReport 成功解析的sitemap和URL
type ParsedSitemapsReport struct {
	Sitemaps []string `json:"sitemaps"`
	URLs     []string `json:"urls"`
}

// FailedSitemapsReport 解析失败的sitemap
type FailedSitemapsReport struct {
	Sitemaps []string `json:"sitemaps"`
}

// CacheWarmupResultReport 预热结果
type CacheWarmupResultReport struct {
	Success []string `json:"success,omitempty"`
	Failure []string `json:"failure,omitempty"`
}

// NewCrawlReport 创建报告
func NewCrawlReport() *CrawlReport {
	return &CrawlReport{
		RunID:     generateID(),
		StartTime: time.Now(),
	}
}

// AddMessage 追加消息
func (r *CrawlReport) AddMessage(severity MessageSeverity, message string) {
	if r.Messages == nil {
		r.Messages = make(map[MessageSeverity][]string)
	}
	r.Messages[severity] = append(r.Messages[severity], message)
}

// ToJSON 序列化为JSON
func (r *CrawlReport) ToJSON(pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(r, "", "  ")
	}
	return json.Marshal(r)
}

// FromJSON 从JSON反序列化
func (r *CrawlReport) FromJSON(data []byte) error {
	return json.Unmarshal(data, r)
}
