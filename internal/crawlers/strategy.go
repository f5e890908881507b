package crawlers

import (
	"cmp"
	"slices"
	"strings"

	"github.com/RecoveryAshes/SitemapWarmup/internal/models"
)

// 排序策略名称
const (
	StrategyNone                       = "none"
	StrategySortByPriority             = "sort-by-priority"
	StrategySortByChangeFrequency      = "sort-by-changefreq"
	StrategySortByLastModificationDate = "sort-by-lastmod"
)

// Strategy URL排序策略
// Compare 返回负数表示a排在b前面
type Strategy interface {
	Name() string
	Compare(a, b models.URL) int
}

// SortByPriority 按priority降序
type SortByPriority struct{}

func (SortByPriority) Name() string { return StrategySortByPriority }

func (SortByPriority) Compare(a, b models.URL) int {
	return cmp.Compare(b.Priority, a.Priority)
}

// SortByChangeFrequency 按changefreq等级降序,缺失值最低
type SortByChangeFrequency struct{}

func (SortByChangeFrequency) Name() string { return StrategySortByChangeFrequency }

func (SortByChangeFrequency) Compare(a, b models.URL) int {
	return cmp.Compare(b.ChangeFrequency.Rank(), a.ChangeFrequency.Rank())
}

// SortByLastModificationDate 按lastmod降序,缺失值最低
type SortByLastModificationDate struct{}

func (SortByLastModificationDate) Name() string { return StrategySortByLastModificationDate }

func (SortByLastModificationDate) Compare(a, b models.URL) int {
	switch {
	case a.LastModified == nil && b.LastModified == nil:
		return 0
	case a.LastModified == nil:
		return 1
	case b.LastModified == nil:
		return -1
	default:
		return b.LastModified.Compare(*a.LastModified)
	}
}

// NoSort 保持发现顺序
type NoSort struct{}

func (NoSort) Name() string { return StrategyNone }

func (NoSort) Compare(a, b models.URL) int { return 0 }

var strategies = map[string]Strategy{
	StrategyNone:                       NoSort{},
	StrategySortByPriority:             SortByPriority{},
	StrategySortByChangeFrequency:      SortByChangeFrequency{},
	StrategySortByLastModificationDate: SortByLastModificationDate{},
}

// StrategyNames 返回所有可用策略名称(已排序)
func StrategyNames() []string {
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// StrategyByName 按名称查找策略,空名称等同于none
func StrategyByName(name string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return NoSort{}, nil
	}
	strategy, ok := strategies[name]
	if !ok {
		return nil, &models.UnknownStrategyError{Name: name, Available: StrategyNames()}
	}
	return strategy, nil
}

// IsOrdering 策略是否会改变顺序
func IsOrdering(strategy Strategy) bool {
	if strategy == nil {
		return false
	}
	_, none := strategy.(NoSort)
	return !none
}

// SortURLs 返回稳定排序后的副本,比较相等的URL保持原有相对顺序
func SortURLs(urls []models.URL, strategy Strategy) []models.URL {
	sorted := slices.Clone(urls)
	if !IsOrdering(strategy) {
		return sorted
	}
	slices.SortStableFunc(sorted, strategy.Compare)
	return sorted
}
