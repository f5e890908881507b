package crawlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/RecoveryAshes/SitemapWarmup/internal/models"
	"github.com/RecoveryAshes/SitemapWarmup/internal/utils"
)

// ConcurrentCrawler 选项名
const (
	OptionConcurrency    = "concurrency"
	OptionRequestMethod  = "request_method"
	OptionRequestHeaders = "request_headers"
	OptionRequestTimeout = "request_timeout"
	OptionRateLimit      = "rate_limit"
	OptionCrawlTimeout   = "crawl_timeout"
	OptionInsecure       = "insecure_skip_verify"
)

// ConcurrentCrawlerDefaults 默认选项
func ConcurrentCrawlerDefaults() Options {
	return Options{
		OptionConcurrency:    DefaultConcurrency,
		OptionRequestMethod:  http.MethodHead,
		OptionRequestHeaders: map[string]string{},
		OptionRequestTimeout: 30,
		OptionRateLimit:      0,
		OptionCrawlTimeout:   0,
		OptionInsecure:       false,
	}
}

// ConcurrentCrawler 默认爬取器: Colly + 有界并发引擎
type ConcurrentCrawler struct {
	name           string
	options        *OptionSet
	headerProvider models.HeaderProvider
	monitor        *ResourceMonitor
	observer       ProgressObserver

	// 测试时可替换
	newFetcher func(config CollyFetcherConfig) Fetcher
}

// NewConcurrentCrawler 创建并发爬取器
func NewConcurrentCrawler(deps Dependencies) *ConcurrentCrawler {
	return newConcurrentCrawler(CrawlerConcurrent, deps)
}

func newConcurrentCrawler(name string, deps Dependencies) *ConcurrentCrawler {
	return &ConcurrentCrawler{
		name:           name,
		options:        NewOptionSet(name, ConcurrentCrawlerDefaults()),
		headerProvider: deps.HeaderProvider,
		monitor:        deps.Monitor,
		newFetcher: func(config CollyFetcherConfig) Fetcher {
			return NewCollyFetcher(config)
		},
	}
}

// SetOptions 合并选项
func (c *ConcurrentCrawler) SetOptions(options Options) error {
	return c.options.Merge(options)
}

// Options 当前选项
func (c *ConcurrentCrawler) Options() Options {
	return c.options.All()
}

// SetProgressObserver 设置进度观察者
func (c *ConcurrentCrawler) SetProgressObserver(observer ProgressObserver) {
	c.observer = observer
}

// crawlSettings 从选项解析出的运行参数
type crawlSettings struct {
	concurrency    int
	method         string
	headers        http.Header
	requestTimeout time.Duration
	rateLimit      float64
	crawlTimeout   time.Duration
	insecure       bool
}

func (c *ConcurrentCrawler) resolveSettings() (crawlSettings, error) {
	var s crawlSettings
	var err error

	if s.concurrency, err = c.options.Int(OptionConcurrency); err != nil {
		return s, err
	}
	if s.concurrency < 1 {
		return s, fmt.Errorf("爬取器 %q 的并发数必须大于0, 当前: %d", c.name, s.concurrency)
	}
	if s.method, err = c.options.String(OptionRequestMethod); err != nil {
		return s, err
	}
	s.method = strings.ToUpper(strings.TrimSpace(s.method))
	if s.method != http.MethodHead && s.method != http.MethodGet {
		return s, fmt.Errorf("爬取器 %q 仅支持HEAD或GET请求, 当前: %s", c.name, s.method)
	}
	if s.headers, err = c.options.Headers(OptionRequestHeaders); err != nil {
		return s, err
	}
	if err = utils.NewHeaderValidator().ValidateFrom(models.HeaderSourceCrawlerOption, s.headers); err != nil {
		return s, err
	}
	if s.requestTimeout, err = c.options.Seconds(OptionRequestTimeout); err != nil {
		return s, err
	}
	if s.rateLimit, err = c.options.Float(OptionRateLimit); err != nil {
		return s, err
	}
	if s.crawlTimeout, err = c.options.Seconds(OptionCrawlTimeout); err != nil {
		return s, err
	}
	if s.insecure, err = c.options.Bool(OptionInsecure); err != nil {
		return s, err
	}
	return s, nil
}

// Crawl 预热URL
func (c *ConcurrentCrawler) Crawl(ctx context.Context, urls []models.URL) (models.CacheWarmupResult, error) {
	s, err := c.resolveSettings()
	if err != nil {
		return models.CacheWarmupResult{}, err
	}

	concurrency := s.concurrency
	if c.monitor != nil {
		if capped := c.monitor.CapWorkers(concurrency); capped < concurrency {
			utils.Warnf("系统资源受限, 并发数从 %d 调整为 %d", concurrency, capped)
			concurrency = capped
		}
	}

	var fetcher Fetcher = c.newFetcher(CollyFetcherConfig{
		Method:             s.method,
		Timeout:            s.requestTimeout,
		Headers:            s.headers,
		HeaderProvider:     c.headerProvider,
		InsecureSkipVerify: s.insecure,
	})
	if s.rateLimit > 0 {
		utils.Debugf("启用限速: 每秒 %.2f 个请求", s.rateLimit)
		fetcher = NewRateLimitedFetcher(fetcher, s.rateLimit)
	}

	engine := NewEngine(fetcher, EngineConfig{
		Concurrency: concurrency,
		Timeout:     s.crawlTimeout,
	})
	if c.observer != nil {
		engine.SetObserver(c.observer)
	}

	utils.Debugf("爬取器 %s: 方法=%s, 请求超时=%v, 整体超时=%v", c.name, s.method, s.requestTimeout, s.crawlTimeout)
	return engine.Crawl(ctx, urls), nil
}

// OutputtingCrawler 带进度条的并发爬取器
type OutputtingCrawler struct {
	*ConcurrentCrawler
}

// NewOutputtingCrawler 创建带进度条的爬取器
func NewOutputtingCrawler(deps Dependencies) *OutputtingCrawler {
	crawler := &OutputtingCrawler{ConcurrentCrawler: newConcurrentCrawler(CrawlerOutputting, deps)}
	crawler.observer = utils.NewProgressObserver("缓存预热")
	return crawler
}
