package crawlers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/RecoveryAshes/SitemapWarmup/internal/models"
	"github.com/RecoveryAshes/SitemapWarmup/internal/utils"
	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency 默认并发数
const DefaultConcurrency = 5

// ProgressObserver 进度通知
// 仅作为旁路通道,不影响结果
type ProgressObserver interface {
	Start(total int)
	Advance()
	Finish()
}

// EngineConfig 爬取引擎配置
type EngineConfig struct {
	Concurrency int           // 最大并发数, <1 时使用默认值
	Timeout     time.Duration // 整次运行的超时, 0 表示不限制
}

// Engine 有界并发的预热调度器
type Engine struct {
	fetcher  Fetcher
	config   EngineConfig
	observer ProgressObserver
}

// NewEngine 创建爬取引擎
func NewEngine(fetcher Fetcher, config EngineConfig) *Engine {
	if config.Concurrency < 1 {
		config.Concurrency = DefaultConcurrency
	}
	return &Engine{
		fetcher: fetcher,
		config:  config,
	}
}

// SetObserver 设置进度观察者
func (e *Engine) SetObserver(observer ProgressObserver) {
	e.observer = observer
}

// Concurrency 返回实际并发数
func (e *Engine) Concurrency() int {
	return e.config.Concurrency
}

// Crawl 按给定顺序调度URL,每个URL只请求一次
// 超时后未完成或未调度的URL均记为超时失败
func (e *Engine) Crawl(ctx context.Context, urls []models.URL) models.CacheWarmupResult {
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	acc := newResultAccumulator(urls)
	total := acc.size()

	if e.observer != nil {
		e.observer.Start(total)
		defer e.observer.Finish()
	}

	utils.Infof("开始预热: %d 个URL, 并发数 %d", total, e.config.Concurrency)
	startTime := time.Now()

	sem := semaphore.NewWeighted(int64(e.config.Concurrency))
	var wg sync.WaitGroup

	for _, entry := range acc.entries {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		wg.Add(1)
		go func(entry *resultEntry) {
			defer wg.Done()
			defer sem.Release(1)

			err := e.fetcher.Fetch(ctx, entry.url)
			if acc.record(entry.index, err) && e.observer != nil {
				e.observer.Advance()
			}
		}(entry)
	}

	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()

	select {
	case <-waitDone:
	case <-ctx.Done():
		utils.Warnf("预热超时或被取消, 放弃未完成的请求")
	}

	// 剩余URL(未调度或仍在进行中)记为失败
	reason := ErrFetchTimeout.Error()
	if ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		reason = ctx.Err().Error()
	}
	abandoned := acc.seal(reason)
	if abandoned > 0 && e.observer != nil {
		for i := 0; i < abandoned; i++ {
			e.observer.Advance()
		}
	}

	result := acc.snapshot()
	utils.Infof("预热结束: 成功 %d, 失败 %d, 耗时 %.2f秒",
		len(result.Successful), len(result.Failed), time.Since(startTime).Seconds())
	return result
}

// resultEntry 单个URL的结果槽位
type resultEntry struct {
	index  int
	url    models.URL
	done   bool
	failed bool
	reason string
}

// resultAccumulator 并发安全的结果收集器,按URI去重
type resultAccumulator struct {
	mu      sync.Mutex
	entries []*resultEntry
	sealed  bool
}

func newResultAccumulator(urls []models.URL) *resultAccumulator {
	seen := make(map[string]struct{}, len(urls))
	acc := &resultAccumulator{entries: make([]*resultEntry, 0, len(urls))}
	for _, u := range urls {
		if _, ok := seen[u.URI]; ok {
			continue
		}
		seen[u.URI] = struct{}{}
		acc.entries = append(acc.entries, &resultEntry{index: len(acc.entries), url: u})
	}
	return acc
}

func (a *resultAccumulator) size() int {
	return len(a.entries)
}

// record 记录结果,已记录或已封存时返回false
func (a *resultAccumulator) record(index int, err error) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry := a.entries[index]
	if a.sealed || entry.done {
		return false
	}
	entry.done = true
	if err != nil {
		entry.failed = true
		entry.reason = err.Error()
		utils.Warnf("预热失败 [%s]: %v", entry.url.URI, err)
	}
	return true
}

// seal 封存结果,返回被放弃的URL数
func (a *resultAccumulator) seal(reason string) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	abandoned := 0
	for _, entry := range a.entries {
		if entry.done {
			continue
		}
		entry.done = true
		entry.failed = true
		entry.reason = reason
		abandoned++
	}
	a.sealed = true
	return abandoned
}

// snapshot 按调度顺序输出结果
func (a *resultAccumulator) snapshot() models.CacheWarmupResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	result := models.CacheWarmupResult{
		Successful: make([]models.URL, 0),
		Failed:     make([]models.FailedURL, 0),
	}
	for _, entry := range a.entries {
		if !entry.failed {
			result.Successful = append(result.Successful, entry.url)
		} else {
			result.Failed = append(result.Failed, models.FailedURL{URL: entry.url, Reason: entry.reason})
		}
	}
	return result
}
