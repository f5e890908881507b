package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/RecoveryAshes/SitemapWarmup/internal/crawlers"
	"github.com/RecoveryAshes/SitemapWarmup/internal/models"
	"github.com/RecoveryAshes/SitemapWarmup/internal/sitemap"
	"github.com/RecoveryAshes/SitemapWarmup/internal/utils"
)

// CacheWarmer 串联sitemap展开、排序截断和缓存预热
type CacheWarmer struct {
	resolver  *Resolver
	crawler   crawlers.Crawler
	strategy  crawlers.Strategy
	formatter utils.Formatter
	limit     int

	closers []func() error
}

// NewCacheWarmer 创建预热器
// strategy 为nil时保持发现顺序, limit 为0表示不限制
func NewCacheWarmer(parser SitemapParser, crawler crawlers.Crawler, strategy crawlers.Strategy, formatter utils.Formatter, limit int) *CacheWarmer {
	if strategy == nil {
		strategy = crawlers.NoSort{}
	}
	return &CacheWarmer{
		resolver:  NewResolver(parser),
		crawler:   crawler,
		strategy:  strategy,
		formatter: formatter,
		limit:     limit,
	}
}

// RunResult 一次预热运行的结果
type RunResult struct {
	Resolution Resolution
	URLs       []models.URL // 实际提交预热的URL,按派发顺序
	Result     models.CacheWarmupResult
	Duration   time.Duration
}

// Failed 是否存在失败的URL或根sitemap
// 嵌套sitemap失败只作为警告
func (r RunResult) Failed() bool {
	return len(r.Result.Failed) > 0 || r.Resolution.FailedRootSitemaps() > 0
}

// Err 未允许失败且运行失败时返回 CrawlFailedError
func (r RunResult) Err(allowFailures bool) error {
	if allowFailures || !r.Failed() {
		return nil
	}
	return &models.CrawlFailedError{
		FailedURLs:     len(r.Result.Failed),
		FailedSitemaps: r.Resolution.FailedRootSitemaps(),
	}
}

// Run 执行一次预热
func (w *CacheWarmer) Run(ctx context.Context, sitemaps []models.Sitemap, urls []models.URL) (RunResult, error) {
	if len(sitemaps) == 0 && len(urls) == 0 {
		return RunResult{}, &models.NoSitemapsError{}
	}

	// 有排序策略时先完整展开,排序后再截断
	resolveLimit := w.limit
	if crawlers.IsOrdering(w.strategy) {
		resolveLimit = 0
	}

	utils.Infof("开始解析 %d 个sitemap (额外URL %d 个)", len(sitemaps), len(urls))
	resolution := w.resolver.Resolve(ctx, sitemaps, urls, resolveLimit)
	w.formatter.FormatParserResult(resolution.Parsed, resolution.FailedSitemaps(), resolution.URLs)
	for _, failed := range resolution.Failed {
		severity := models.SeverityWarning
		if failed.Root {
			severity = models.SeverityError
		}
		w.formatter.LogMessage(failed.Err.Error(), severity)
	}

	ordered := crawlers.SortURLs(resolution.URLs, w.strategy)
	if w.limit > 0 && len(ordered) > w.limit {
		utils.Infof("URL数量 %d 超过上限, 截断为 %d", len(ordered), w.limit)
		ordered = ordered[:w.limit]
	}

	run := RunResult{Resolution: resolution, URLs: ordered}
	if err := ctx.Err(); err != nil {
		return run, err
	}

	utils.Debugf("提交预热: %d 个URL (排序: %s)", len(ordered), w.strategy.Name())
	start := time.Now()
	result, err := w.crawler.Crawl(ctx, ordered)
	if err != nil {
		return run, fmt.Errorf("缓存预热失败: %w", err)
	}
	run.Result = result
	run.Duration = time.Since(start)

	w.formatter.FormatCacheWarmupResult(result, run.Duration)
	return run, nil
}

// Formatter 输出格式化器
func (w *CacheWarmer) Formatter() utils.Formatter {
	return w.formatter
}

// Close 释放临时文件等资源
func (w *CacheWarmer) Close() error {
	var errs []error
	for i := len(w.closers) - 1; i >= 0; i-- {
		errs = append(errs, w.closers[i]())
	}
	w.closers = nil
	return errors.Join(errs...)
}

// Setup 从配置组装预热器所需的参数
type Setup struct {
	Config         *Config
	CrawlerOptions string   // JSON格式, 覆盖配置文件中的crawler_options
	Headers        []string // "Name: Value"
	Output         io.Writer
	Registry       *crawlers.Registry // 为nil时使用内置爬取器
}

// NewCacheWarmerFromConfig 按配置组装下载器、解析器、爬取器和格式化器
// 调用方负责Close
func NewCacheWarmerFromConfig(setup Setup) (*CacheWarmer, error) {
	cfg := setup.Config.Warmup

	formatter, err := utils.NewFormatter(cfg.Format, setup.Output, cfg.Verbose)
	if err != nil {
		return nil, err
	}

	strategy, err := crawlers.StrategyByName(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	options, err := cfg.CrawlerOptions(setup.CrawlerOptions)
	if err != nil {
		return nil, err
	}

	headerManager, err := NewHeaderManager(cfg.HeadersFile, setup.Headers)
	if err != nil {
		return nil, err
	}
	if _, err := headerManager.GetHeaders(); err != nil {
		return nil, err
	}

	var monitor *crawlers.ResourceMonitor
	if setup.Config.Resource.Enabled {
		monitor = crawlers.NewResourceMonitor(setup.Config.ResourceMonitorConfig())
		monitor.StartMonitoring(time.Second)
	}

	registry := setup.Registry
	if registry == nil {
		registry = crawlers.DefaultRegistry()
	}
	crawler, err := registry.Create(cfg.Crawler, crawlers.Dependencies{
		HeaderProvider: headerManager,
		Monitor:        monitor,
	})
	if err != nil {
		if monitor != nil {
			monitor.StopMonitoring()
		}
		return nil, err
	}

	if err := applyCrawlerOptions(crawler, options, formatter); err != nil {
		if monitor != nil {
			monitor.StopMonitoring()
		}
		return nil, err
	}

	_, isJSON := formatter.(*utils.JSONFormatter)
	if aware, ok := crawler.(crawlers.ProgressAware); ok && cfg.Progress && !isJSON {
		aware.SetProgressObserver(utils.NewProgressObserver("缓存预热"))
	}

	requestTimeout := time.Duration(cfg.RequestTimeout) * time.Second
	parser := sitemap.NewParser(sitemap.NewDownloader(sitemap.DownloaderConfig{
		Timeout:            requestTimeout,
		InsecureSkipVerify: cfg.Insecure,
		HeaderProvider:     headerManager,
	}))

	warmer := NewCacheWarmer(parser, crawler, strategy, formatter, cfg.Limit)
	warmer.closers = append(warmer.closers, parser.Close)
	if monitor != nil {
		warmer.closers = append(warmer.closers, func() error {
			monitor.StopMonitoring()
			return nil
		})
	}

	utils.Debugf("请求头部: %v", headerManager.GetSafeHeaders())
	return warmer, nil
}

// applyCrawlerOptions 不可配置的爬取器忽略选项并给出警告
func applyCrawlerOptions(crawler crawlers.Crawler, options crawlers.Options, formatter utils.Formatter) error {
	configurable, ok := crawler.(crawlers.ConfigurableCrawler)
	if !ok {
		if len(options) > 0 {
			message := fmt.Sprintf("爬取器 %T 不支持选项, 已忽略", crawler)
			utils.Warn(message)
			formatter.LogMessage(message, models.SeverityWarning)
		}
		return nil
	}
	return configurable.SetOptions(options)
}

// Inputs 将配置中的sitemap和URL转换为模型
// URL文件中的URL追加在 --urls 之后
func (w WarmupConfig) Inputs() ([]models.Sitemap, []models.URL, error) {
	sitemaps := make([]models.Sitemap, 0, len(w.Sitemaps))
	for _, raw := range w.Sitemaps {
		s, err := models.NewSitemap(raw)
		if err != nil {
			return nil, nil, err
		}
		sitemaps = append(sitemaps, s)
	}

	rawURLs := append([]string{}, w.URLs...)
	if w.URLsFile != "" {
		fromFile, err := utils.ReadURLsFromFile(w.URLsFile)
		if err != nil {
			return nil, nil, err
		}
		rawURLs = append(rawURLs, fromFile...)
	}

	urls := make([]models.URL, 0, len(rawURLs))
	for _, raw := range rawURLs {
		u, err := models.NewURL(raw)
		if err != nil {
			return nil, nil, err
		}
		urls = append(urls, u)
	}
	return sitemaps, urls, nil
}
