package crawlers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/RecoveryAshes/SitemapWarmup/internal/models"
)

func makeURLs(uris ...string) []models.URL {
	urls := make([]models.URL, 0, len(uris))
	for _, uri := range uris {
		urls = append(urls, models.URL{URI: uri, Priority: models.DefaultPriority})
	}
	return urls
}

// countingObserver 记录进度通知
type countingObserver struct {
	mu       sync.Mutex
	total    int
	advanced int
	finished bool
}

func (o *countingObserver) Start(total int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.total = total
}

func (o *countingObserver) Advance() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.advanced++
}

func (o *countingObserver) Finish() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = true
}

func TestEngine_ConcurrencyBound(t *testing.T) {
	var inFlight, maxInFlight int32

	fetcher := FetcherFunc(func(ctx context.Context, u models.URL) error {
		current := atomic.AddInt32(&inFlight, 1)
		for {
			max := atomic.LoadInt32(&maxInFlight)
			if current <= max || atomic.CompareAndSwapInt32(&maxInFlight, max, current) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil
	})

	uris := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		uris = append(uris, fmt.Sprintf("https://example.com/%d", i))
	}

	engine := NewEngine(fetcher, EngineConfig{Concurrency: 3})
	result := engine.Crawl(context.Background(), makeURLs(uris...))

	if len(result.Successful) != 20 || len(result.Failed) != 0 {
		t.Fatalf("成功 %d, 失败 %d, want 20/0", len(result.Successful), len(result.Failed))
	}
	if got := atomic.LoadInt32(&maxInFlight); got > 3 {
		t.Errorf("最大并发 = %d, 不应超过3", got)
	}

	// 结果按调度顺序
	for i, u := range result.Successful {
		if u.URI != uris[i] {
			t.Errorf("Successful[%d] = %s, want %s", i, u.URI, uris[i])
		}
	}
}

func TestEngine_RecordsEachURLOnce(t *testing.T) {
	var calls sync.Map

	fetcher := FetcherFunc(func(ctx context.Context, u models.URL) error {
		count, _ := calls.LoadOrStore(u.URI, new(int32))
		atomic.AddInt32(count.(*int32), 1)
		if u.URI != "https://example.com/" {
			return errors.New("Not Found")
		}
		return nil
	})

	urls := makeURLs("https://example.com/", "https://example.com/a", "https://example.com/", "https://example.com/b")
	observer := &countingObserver{}

	engine := NewEngine(fetcher, EngineConfig{Concurrency: 2})
	engine.SetObserver(observer)
	result := engine.Crawl(context.Background(), urls)

	if len(result.Successful) != 1 {
		t.Errorf("成功数 = %d, want 1", len(result.Successful))
	}
	if len(result.Failed) != 2 {
		t.Fatalf("失败数 = %d, want 2", len(result.Failed))
	}
	for _, failed := range result.Failed {
		if failed.Reason != "Not Found" {
			t.Errorf("失败原因 = %q", failed.Reason)
		}
	}

	calls.Range(func(key, value interface{}) bool {
		if n := atomic.LoadInt32(value.(*int32)); n != 1 {
			t.Errorf("%s 被请求 %d 次, want 1", key, n)
		}
		return true
	})

	if observer.total != 3 || observer.advanced != 3 || !observer.finished {
		t.Errorf("进度通知不正确: %+v", observer)
	}
}

func TestEngine_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	// 忽略ctx的阻塞请求
	fetcher := FetcherFunc(func(ctx context.Context, u models.URL) error {
		<-release
		return nil
	})

	urls := makeURLs("https://example.com/a", "https://example.com/b", "https://example.com/c")
	observer := &countingObserver{}

	engine := NewEngine(fetcher, EngineConfig{Concurrency: 1, Timeout: 50 * time.Millisecond})
	engine.SetObserver(observer)

	start := time.Now()
	result := engine.Crawl(context.Background(), urls)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("超时后应立即返回, 耗时 %v", elapsed)
	}

	if len(result.Successful) != 0 {
		t.Errorf("成功数 = %d, want 0", len(result.Successful))
	}
	if len(result.Failed) != 3 {
		t.Fatalf("失败数 = %d, want 3", len(result.Failed))
	}
	for _, failed := range result.Failed {
		if failed.Reason != ErrFetchTimeout.Error() {
			t.Errorf("%s 失败原因 = %q, want 超时", failed.URL.URI, failed.Reason)
		}
	}
	if observer.advanced != 3 {
		t.Errorf("进度推进 = %d, want 3", observer.advanced)
	}
}

func TestEngine_Empty(t *testing.T) {
	engine := NewEngine(FetcherFunc(func(ctx context.Context, u models.URL) error {
		t.Error("不应发起请求")
		return nil
	}), EngineConfig{})

	result := engine.Crawl(context.Background(), nil)
	if len(result.Successful) != 0 || len(result.Failed) != 0 {
		t.Errorf("空输入应得到空结果: %+v", result)
	}
	if engine.Concurrency() != DefaultConcurrency {
		t.Errorf("默认并发 = %d, want %d", engine.Concurrency(), DefaultConcurrency)
	}
}

func TestRateLimitedFetcher(t *testing.T) {
	var calls int32
	next := FetcherFunc(func(ctx context.Context, u models.URL) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	fetcher := NewRateLimitedFetcher(next, 20)
	start := time.Now()
	for i := 0; i < 25; i++ {
		if err := fetcher.Fetch(context.Background(), models.URL{URI: "https://example.com/"}); err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
	}

	if atomic.LoadInt32(&calls) != 25 {
		t.Errorf("调用次数 = %d, want 25", calls)
	}
	// 突发20个之后,剩余5个需要约250ms
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("限速未生效, 耗时 %v", elapsed)
	}
}
