package crawlers

import (
	"context"

	"github.com/RecoveryAshes/SitemapWarmup/internal/models"
)

// Crawler 缓存预热爬取器
type Crawler interface {
	// Crawl 预热给定URL,返回的结果在返回后不再修改
	Crawl(ctx context.Context, urls []models.URL) (models.CacheWarmupResult, error)
}

// ConfigurableCrawler 接受选项的爬取器
type ConfigurableCrawler interface {
	Crawler
	SetOptions(options Options) error
	Options() Options
}

// ProgressAware 可以接收进度观察者的爬取器
type ProgressAware interface {
	SetProgressObserver(observer ProgressObserver)
}
