package models

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// DefaultPriority sitemap协议约定的默认优先级
const DefaultPriority = 0.5

// Sitemap 一个sitemap文档的引用(远程URL或本地文件)
type Sitemap struct {
	URI       string `json:"uri"`                  // 规范化后的URI,本地文件为file://形式
	LocalPath string `json:"local_path,omitempty"` // 本地文件绝对路径,远程sitemap为空
}

// NewSitemap 根据URL或本地文件路径创建Sitemap
// 支持: http(s)://..., file://..., 相对/绝对文件路径
func NewSitemap(raw string) (Sitemap, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Sitemap{}, &InvalidURLError{Empty: true}
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return Sitemap{}, &InvalidURLError{URL: raw, Cause: err}
	}

	switch {
	case parsed.Scheme == "http" || parsed.Scheme == "https":
		if err := ValidateURL(raw); err != nil {
			return Sitemap{}, err
		}
		return Sitemap{URI: parsed.String()}, nil
	case parsed.Scheme == "file":
		if parsed.Path == "" {
			return Sitemap{}, &InvalidURLError{URL: raw}
		}
		return newLocalSitemap(filepath.FromSlash(parsed.Path))
	case parsed.Scheme == "" || len(parsed.Scheme) == 1:
		// 无协议或Windows盘符(C:\...)视为本地路径
		return newLocalSitemap(raw)
	default:
		return Sitemap{}, &InvalidURLError{URL: raw}
	}
}

func newLocalSitemap(path string) (Sitemap, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Sitemap{}, &InvalidURLError{URL: path, Cause: err}
	}
	uri := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return Sitemap{URI: uri.String(), LocalPath: abs}, nil
}

// IsLocalFile 是否为本地文件
func (s Sitemap) IsLocalFile() bool {
	return s.LocalPath != ""
}

// String 实现fmt.Stringer
func (s Sitemap) String() string {
	return s.URI
}

// ResolveReference 将sitemap中的loc相对当前sitemap解析为绝对地址
func (s Sitemap) ResolveReference(loc string) string {
	ref, err := url.Parse(loc)
	if err != nil || ref.IsAbs() {
		return loc
	}
	base, err := url.Parse(s.URI)
	if err != nil {
		return loc
	}
	return base.ResolveReference(ref).String()
}

// ChangeFrequency <changefreq> 枚举
type ChangeFrequency string

const (
	ChangeFrequencyAlways  ChangeFrequency = "always"
	ChangeFrequencyHourly  ChangeFrequency = "hourly"
	ChangeFrequencyDaily   ChangeFrequency = "daily"
	ChangeFrequencyWeekly  ChangeFrequency = "weekly"
	ChangeFrequencyMonthly ChangeFrequency = "monthly"
	ChangeFrequencyYearly  ChangeFrequency = "yearly"
	ChangeFrequencyNever   ChangeFrequency = "never"
)

// changeFrequencyRanks 越频繁排名越高,缺失值为0
var changeFrequencyRanks = map[ChangeFrequency]int{
	ChangeFrequencyAlways:  7,
	ChangeFrequencyHourly:  6,
	ChangeFrequencyDaily:   5,
	ChangeFrequencyWeekly:  4,
	ChangeFrequencyMonthly: 3,
	ChangeFrequencyYearly:  2,
	ChangeFrequencyNever:   1,
}

// ParseChangeFrequency 大小写不敏感地匹配枚举值
func ParseChangeFrequency(s string) (ChangeFrequency, bool) {
	freq := ChangeFrequency(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := changeFrequencyRanks[freq]; !ok {
		return "", false
	}
	return freq, true
}

// Rank 返回排序用的等级
func (f ChangeFrequency) Rank() int {
	return changeFrequencyRanks[f]
}

// URL 一个待预热的URL
// 相等性仅由URI决定
type URL struct {
	URI             string          `json:"uri"`
	Priority        float64         `json:"priority"`
	LastModified    *time.Time      `json:"last_modified,omitempty"`
	ChangeFrequency ChangeFrequency `json:"change_frequency,omitempty"`
}

// NewURL 创建URL并验证URI
func NewURL(raw string) (URL, error) {
	raw = strings.TrimSpace(raw)
	if err := ValidateURL(raw); err != nil {
		return URL{}, err
	}
	return URL{URI: raw, Priority: DefaultPriority}, nil
}

// Equal 比较URI
func (u URL) Equal(other URL) bool {
	return u.URI == other.URI
}

// String 实现fmt.Stringer
func (u URL) String() string {
	return u.URI
}

// ParserResult 单个sitemap文档的解析结果
type ParserResult struct {
	Sitemaps []Sitemap `json:"sitemaps"`
	URLs     []URL     `json:"urls"`
}
