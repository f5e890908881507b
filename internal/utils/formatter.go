package utils

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/RecoveryAshes/SitemapWarmup/internal/models"
)

// 输出格式名称
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Formatter 预热结果的输出
// 每次运行可被调用任意次
type Formatter interface {
	// FormatParserResult 输出sitemap解析结果
	FormatParserResult(parsed []models.Sitemap, failed []models.Sitemap, urls []models.URL)
	// FormatCacheWarmupResult 输出预热结果
	FormatCacheWarmupResult(result models.CacheWarmupResult, duration time.Duration)
	// LogMessage 按级别输出消息
	LogMessage(message string, severity models.MessageSeverity)
	// IsVerbose 是否输出详细列表
	IsVerbose() bool
	// Flush 写出缓存的内容
	Flush() error
}

// NewFormatter 按名称创建格式化器
func NewFormatter(name string, w io.Writer, verbose bool) (Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", FormatText:
		return NewTextFormatter(w, verbose), nil
	case FormatJSON:
		return NewJSONFormatter(w), nil
	default:
		return nil, fmt.Errorf("不支持的输出格式: %s (可用: %s, %s)", name, FormatText, FormatJSON)
	}
}

// TextFormatter 人类可读的文本输出
type TextFormatter struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
}

// NewTextFormatter 创建文本格式化器
func NewTextFormatter(w io.Writer, verbose bool) *TextFormatter {
	return &TextFormatter{w: w, verbose: verbose}
}

// FormatParserResult 实现Formatter
func (f *TextFormatter) FormatParserResult(parsed []models.Sitemap, failed []models.Sitemap, urls []models.URL) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fmt.Fprintf(f.w, "解析Sitemap: 成功 %d, 失败 %d, 发现URL %d\n", len(parsed), len(failed), len(urls))

	if f.verbose {
		for _, sitemap := range parsed {
			fmt.Fprintf(f.w, "  ✓ %s\n", sitemap.URI)
		}
		for _, u := range urls {
			fmt.Fprintf(f.w, "    %s\n", u.URI)
		}
	}
	for _, sitemap := range failed {
		fmt.Fprintf(f.w, "  ✗ %s\n", sitemap.URI)
	}
}

// FormatCacheWarmupResult 实现Formatter
func (f *TextFormatter) FormatCacheWarmupResult(result models.CacheWarmupResult, duration time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fmt.Fprintf(f.w, "缓存预热: 成功 %d, 失败 %d, 耗时 %.2f秒\n",
		len(result.Successful), len(result.Failed), duration.Seconds())

	if f.verbose {
		for _, u := range result.Successful {
			fmt.Fprintf(f.w, "  ✓ %s\n", u.URI)
		}
	}
	for _, failed := range result.Failed {
		fmt.Fprintf(f.w, "  ✗ %s (%s)\n", failed.URL.URI, failed.Reason)
	}
}

// LogMessage 实现Formatter
func (f *TextFormatter) LogMessage(message string, severity models.MessageSeverity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fmt.Fprintf(f.w, "[%s] %s\n", strings.ToUpper(string(severity)), message)
}

// IsVerbose 实现Formatter
func (f *TextFormatter) IsVerbose() bool {
	return f.verbose
}

// Flush 文本输出即时写出
func (f *TextFormatter) Flush() error {
	return nil
}

// JSONFormatter 在Flush时输出单个JSON文档
type JSONFormatter struct {
	mu     sync.Mutex
	w      io.Writer
	report *models.CrawlReport
}

// NewJSONFormatter 创建JSON格式化器
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{w: w, report: models.NewCrawlReport()}
}

// FormatParserResult 实现Formatter
func (f *JSONFormatter) FormatParserResult(parsed []models.Sitemap, failed []models.Sitemap, urls []models.URL) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parsedURIs := make([]string, 0, len(parsed))
	for _, sitemap := range parsed {
		parsedURIs = append(parsedURIs, sitemap.URI)
	}
	urlURIs := make([]string, 0, len(urls))
	for _, u := range urls {
		urlURIs = append(urlURIs, u.URI)
	}
	failedURIs := make([]string, 0, len(failed))
	for _, sitemap := range failed {
		failedURIs = append(failedURIs, sitemap.URI)
	}

	f.report.ParserResult = &models.ParserResultReport{
		Success: &models.ParsedSitemapsReport{Sitemaps: parsedURIs, URLs: urlURIs},
		Failure: &models.FailedSitemapsReport{Sitemaps: failedURIs},
	}
}

// FormatCacheWarmupResult 实现Formatter
func (f *JSONFormatter) FormatCacheWarmupResult(result models.CacheWarmupResult, duration time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.report.CacheWarmupResult = &models.CacheWarmupResultReport{
		Success: result.SuccessfulURIs(),
		Failure: result.FailedURIs(),
	}
	f.report.Duration = duration.Seconds()
}

// LogMessage 实现Formatter
func (f *JSONFormatter) LogMessage(message string, severity models.MessageSeverity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.report.AddMessage(severity, message)
}

// IsVerbose JSON输出总是包含完整列表
func (f *JSONFormatter) IsVerbose() bool {
	return true
}

// Flush 写出JSON文档
func (f *JSONFormatter) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.report.EndTime = time.Now()
	data, err := f.report.ToJSON(true)
	if err != nil {
		return fmt.Errorf("序列化JSON报告失败: %w", err)
	}
	if _, err := f.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("写出JSON报告失败: %w", err)
	}
	return nil
}

// Report 当前报告
func (f *JSONFormatter) Report() *models.CrawlReport {
	return f.report
}
