package core

import (
	"context"

	"github.com/RecoveryAshes/SitemapWarmup/internal/models"
	"github.com/RecoveryAshes/SitemapWarmup/internal/utils"
)

// SitemapParser 解析单个sitemap文档
type SitemapParser interface {
	Parse(ctx context.Context, sitemap models.Sitemap) (models.ParserResult, error)
}

// FailedSitemap 解析失败的sitemap
type FailedSitemap struct {
	Sitemap models.Sitemap
	Root    bool // 由用户直接提供,而非从sitemap索引中发现
	Err     error
}

// Resolution sitemap展开结果
type Resolution struct {
	URLs   []models.URL
	Parsed []models.Sitemap
	Failed []FailedSitemap
}

// FailedSitemaps 失败的sitemap列表
func (r Resolution) FailedSitemaps() []models.Sitemap {
	sitemaps := make([]models.Sitemap, 0, len(r.Failed))
	for _, failed := range r.Failed {
		sitemaps = append(sitemaps, failed.Sitemap)
	}
	return sitemaps
}

// FailedRootSitemaps 失败的根sitemap数量
func (r Resolution) FailedRootSitemaps() int {
	count := 0
	for _, failed := range r.Failed {
		if failed.Root {
			count++
		}
	}
	return count
}

// CrawlingState 一次展开过程的状态,不跨运行共享
type CrawlingState struct {
	visited map[string]struct{}
	seen    map[string]struct{}
	urls    []models.URL
	parsed  []models.Sitemap
	failed  []FailedSitemap
	limit   int // 0 表示不限制
}

func newCrawlingState(limit int) *CrawlingState {
	if limit < 0 {
		limit = 0
	}
	return &CrawlingState{
		visited: make(map[string]struct{}),
		seen:    make(map[string]struct{}),
		limit:   limit,
	}
}

// visit 标记sitemap为已访问,已访问过时返回false
func (s *CrawlingState) visit(sitemap models.Sitemap) bool {
	if s.isVisited(sitemap) {
		return false
	}
	s.visited[sitemap.URI] = struct{}{}
	return true
}

func (s *CrawlingState) isVisited(sitemap models.Sitemap) bool {
	_, ok := s.visited[sitemap.URI]
	return ok
}

// addURL 按URI去重追加,达到上限后不再接受
func (s *CrawlingState) addURL(u models.URL) bool {
	if s.limitReached() {
		return false
	}
	if _, ok := s.seen[u.URI]; ok {
		return false
	}
	s.seen[u.URI] = struct{}{}
	s.urls = append(s.urls, u)
	return true
}

func (s *CrawlingState) limitReached() bool {
	return s.limit > 0 && len(s.urls) >= s.limit
}

func (s *CrawlingState) resolution() Resolution {
	return Resolution{URLs: s.urls, Parsed: s.parsed, Failed: s.failed}
}

type queuedSitemap struct {
	sitemap models.Sitemap
	root    bool
}

// Resolver 广度优先展开sitemap索引
// 单线程执行: 排序和截断需要完整的sitemap结构
type Resolver struct {
	parser SitemapParser
}

// NewResolver 创建展开器
func NewResolver(parser SitemapParser) *Resolver {
	return &Resolver{parser: parser}
}

// Resolve 展开根sitemap,收集URL
// 额外URL排在最前并计入上限; 单个sitemap失败只记录,不中止
func (r *Resolver) Resolve(ctx context.Context, roots []models.Sitemap, extra []models.URL, limit int) Resolution {
	state := newCrawlingState(limit)

	for _, u := range extra {
		state.addURL(u)
	}

	queue := make([]queuedSitemap, 0, len(roots))
	for _, root := range roots {
		queue = append(queue, queuedSitemap{sitemap: root, root: true})
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			utils.Warnf("sitemap解析被中断, 剩余 %d 个未处理: %v", len(queue), err)
			break
		}
		if state.limitReached() {
			utils.Debugf("已达到URL上限 %d, 跳过剩余 %d 个sitemap", state.limit, len(queue))
			break
		}

		item := queue[0]
		queue = queue[1:]

		if !state.visit(item.sitemap) {
			utils.Debugf("跳过已访问的sitemap: %s", item.sitemap.URI)
			continue
		}

		result, err := r.parser.Parse(ctx, item.sitemap)
		if err != nil {
			utils.Warnf("解析sitemap失败: %v", err)
			state.failed = append(state.failed, FailedSitemap{Sitemap: item.sitemap, Root: item.root, Err: err})
			continue
		}
		state.parsed = append(state.parsed, item.sitemap)

		for _, nested := range result.Sitemaps {
			if !state.isVisited(nested) {
				queue = append(queue, queuedSitemap{sitemap: nested})
			}
		}

		added := 0
		for _, u := range result.URLs {
			if state.addURL(u) {
				added++
			}
		}
		utils.Debugf("解析sitemap: %s (子sitemap %d, 新URL %d/%d)",
			item.sitemap.URI, len(result.Sitemaps), added, len(result.URLs))
	}

	return state.resolution()
}
