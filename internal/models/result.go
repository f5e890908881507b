package models

// FailedURL 预热失败的URL及原因
type FailedURL struct {
	URL    URL    `json:"url"`
	Reason string `json:"reason"`
}

// CacheWarmupResult 爬取引擎完成后的结果快照
// 引擎返回后不再修改
type CacheWarmupResult struct {
	Successful []URL       `json:"successful"`
	Failed     []FailedURL `json:"failed"`
}

// FailedURIs 返回失败URL的URI列表
func (r CacheWarmupResult) FailedURIs() []string {
	uris := make([]string, 0, len(r.Failed))
	for _, failed := range r.Failed {
		uris = append(uris, failed.URL.URI)
	}
	return uris
}

// SuccessfulURIs 返回成功URL的URI列表
func (r CacheWarmupResult) SuccessfulURIs() []string {
	uris := make([]string, 0, len(r.Successful))
	for _, u := range r.Successful {
		uris = append(uris, u.URI)
	}
	return uris
}

// IsSuccessful 没有失败的URL
func (r CacheWarmupResult) IsSuccessful() bool {
	return len(r.Failed) == 0
}

// WarmupStats 一次预热运行的统计
type WarmupStats struct {
	ParsedSitemaps int     `json:"parsed_sitemaps"` // 成功解析的sitemap数
	FailedSitemaps int     `json:"failed_sitemaps"` // 解析失败的sitemap数
	DiscoveredURLs int     `json:"discovered_urls"` // 发现的URL数(去重后)
	CrawledURLs    int     `json:"crawled_urls"`    // 实际爬取的URL数
	SuccessfulURLs int     `json:"successful_urls"` // 预热成功数
	FailedURLs     int     `json:"failed_urls"`     // 预热失败数
	Duration       float64 `json:"duration"`        // 总耗时(秒)
}
