// Package crawlers 对sitemap中发现的URL发起缓存预热请求
//
// # 核心组件
//
// Engine 是有界并发的派发器: 按给定顺序派发URL, 每个URL只请求一次,
// 结果按URI去重写入共享累加器。整体超时后未完成的请求记为失败。
//
//	engine := NewEngine(fetcher, EngineConfig{Concurrency: 5, Timeout: time.Minute})
//	result := engine.Crawl(ctx, urls)
//
// Fetcher 负责单个URL的请求。CollyFetcher 基于Colly发送HEAD或GET请求,
// RateLimitedFetcher 用令牌桶包装任意Fetcher。
//
// ConcurrentCrawler 和 OutputtingCrawler 是内置的可配置爬取器, 通过 Registry 按名称创建:
//
//	crawler, err := DefaultRegistry().Create("concurrent", Dependencies{HeaderProvider: hm})
//	if configurable, ok := crawler.(ConfigurableCrawler); ok {
//	    err = configurable.SetOptions(Options{"concurrency": 10})
//	}
//
// 未知选项会一次性全部列出后拒绝, 已知选项覆盖默认值。
//
// # 排序策略
//
// Strategy 在截断前对URL做稳定排序:
//   - none: 保持发现顺序
//   - sort-by-priority: 按priority降序
//   - sort-by-changefreq: 按更新频率降序
//   - sort-by-lastmod: 按最后修改时间降序, 缺失值排在最后
//
// # 资源限制
//
// ResourceMonitor 根据可用内存和CPU负载限制实际并发数, 资源紧张时减半。
package crawlers
