package crawlers

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/RecoveryAshes/SitemapWarmup/internal/models"
	"github.com/RecoveryAshes/SitemapWarmup/internal/utils"
	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"
)

// ErrFetchTimeout 请求在超时前未完成
var ErrFetchTimeout = errors.New("请求超时")

// Fetcher 对单个URL发起一次预热请求
// 返回nil表示预热成功
type Fetcher interface {
	Fetch(ctx context.Context, u models.URL) error
}

// FetcherFunc 函数适配器
type FetcherFunc func(ctx context.Context, u models.URL) error

// Fetch 实现Fetcher
func (f FetcherFunc) Fetch(ctx context.Context, u models.URL) error {
	return f(ctx, u)
}

// CollyFetcherConfig Colly预热请求配置
type CollyFetcherConfig struct {
	Method             string
	Timeout            time.Duration
	Headers            http.Header
	HeaderProvider     models.HeaderProvider
	InsecureSkipVerify bool
}

// CollyFetcher 基于Colly的预热请求
// 使用同步Collector,并发由Engine控制
type CollyFetcher struct {
	collector *colly.Collector
	method    string
	headers   http.Header
}

// NewCollyFetcher 创建Colly预热请求器
func NewCollyFetcher(config CollyFetcherConfig) *CollyFetcher {
	method := strings.ToUpper(strings.TrimSpace(config.Method))
	if method == "" {
		method = http.MethodHead
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	c.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: config.InsecureSkipVerify,
		},
		MaxIdleConnsPerHost: 16,
	})
	c.SetRequestTimeout(config.Timeout)
	// 所有状态码都交给OnResponse, 由Fetch按状态码判定
	c.ParseHTTPErrorResponse = true

	// 头部优先级: 头部提供者 < 爬取器选项
	headers := make(http.Header)
	if config.HeaderProvider != nil {
		provided, err := config.HeaderProvider.GetHeaders()
		if err != nil {
			utils.Warnf("获取HTTP头部失败: %v", err)
		}
		for name, values := range provided {
			if len(values) > 0 {
				headers.Set(name, values[0])
			}
		}
	}
	for name, values := range config.Headers {
		if len(values) > 0 {
			headers.Set(name, values[0])
		}
	}
	if ua := headers.Get("User-Agent"); ua != "" {
		c.UserAgent = ua
	}
	utils.Debugf("预热请求头部: %s", utils.NewHeaderRedactor().RedactToString(headers))

	c.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(statusCodeKey, r.StatusCode)
		utils.Debugf("预热完成: %s %s (HTTP %d)", r.Request.Method, r.Request.URL, r.StatusCode)
	})

	return &CollyFetcher{
		collector: c,
		method:    method,
		headers:   headers,
	}
}

const statusCodeKey = "statusCode"

// Fetch 发起请求,ctx结束时放弃等待
// 最终响应为2xx时成功
func (f *CollyFetcher) Fetch(ctx context.Context, u models.URL) error {
	done := make(chan error, 1)
	go func() {
		requestCtx := colly.NewContext()
		if err := f.collector.Request(f.method, u.URI, nil, requestCtx, f.headers.Clone()); err != nil {
			done <- err
			return
		}
		done <- checkStatus(requestCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%s %s: %w", f.method, u.URI, err)
		}
		return nil
	case <-ctx.Done():
		return contextError(ctx)
	}
}

func checkStatus(requestCtx *colly.Context) error {
	status, ok := requestCtx.GetAny(statusCodeKey).(int)
	if !ok {
		return errors.New("未收到响应")
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("HTTP %d %s", status, http.StatusText(status))
	}
	return nil
}

// RateLimitedFetcher 令牌桶限速
type RateLimitedFetcher struct {
	next    Fetcher
	limiter *rate.Limiter
}

// NewRateLimitedFetcher 每秒最多perSecond个请求
func NewRateLimitedFetcher(next Fetcher, perSecond float64) *RateLimitedFetcher {
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedFetcher{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Fetch 等待令牌后转发
// 一直等到令牌可用或ctx结束,不因截止时间提前放弃
func (f *RateLimitedFetcher) Fetch(ctx context.Context, u models.URL) error {
	reservation := f.limiter.Reserve()
	if !reservation.OK() {
		return fmt.Errorf("限速器无法预留令牌: %s", u.URI)
	}

	if delay := reservation.Delay(); delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			reservation.Cancel()
			return contextError(ctx)
		}
	}
	if ctx.Err() != nil {
		return contextError(ctx)
	}
	return f.next.Fetch(ctx, u)
}

func contextError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrFetchTimeout
	}
	return ctx.Err()
}
