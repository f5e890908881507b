package crawlers

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/RecoveryAshes/SitemapWarmup/internal/models"
)

// 内置爬取器名称
const (
	CrawlerConcurrent = "concurrent"
	CrawlerOutputting = "outputting"
)

// Dependencies 创建爬取器时注入的依赖
type Dependencies struct {
	HeaderProvider models.HeaderProvider
	Monitor        *ResourceMonitor
}

// Factory 爬取器工厂
// 返回值必须实现Crawler,否则Create返回InvalidCrawlerError
type Factory func(deps Dependencies) interface{}

// Registry 按名称注册的爬取器
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry 注册了内置爬取器的注册表
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(CrawlerConcurrent, func(deps Dependencies) interface{} {
		return NewConcurrentCrawler(deps)
	})
	r.Register(CrawlerOutputting, func(deps Dependencies) interface{} {
		return NewOutputtingCrawler(deps)
	})
	return r
}

// Register 注册或覆盖爬取器
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(name)] = factory
}

// Names 已注册的名称(已排序)
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Create 按名称创建爬取器
func (r *Registry) Create(name string, deps Dependencies) (Crawler, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = CrawlerConcurrent
	}

	r.mu.RLock()
	factory, ok := r.factories[key]
	r.mu.RUnlock()
	if !ok {
		return nil, &models.UnknownCrawlerError{Name: name, Available: r.Names()}
	}

	product := factory(deps)
	crawler, ok := product.(Crawler)
	if !ok {
		return nil, &models.InvalidCrawlerError{Name: key, Type: fmt.Sprintf("%T", product)}
	}
	return crawler, nil
}
