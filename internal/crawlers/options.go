package crawlers

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/RecoveryAshes/SitemapWarmup/internal/models"
	"github.com/spf13/cast"
)

// Options 爬取器选项
type Options map[string]interface{}

// ParseOptions 解析JSON格式的选项字符串
// 空字符串返回空选项
func ParseOptions(raw string) (Options, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Options{}, nil
	}

	var options Options
	if err := json.Unmarshal([]byte(raw), &options); err != nil || options == nil {
		return nil, &models.OptionsAreMalformedError{Source: raw, Cause: err}
	}
	return options, nil
}

// OptionSet 带默认值的选项集合
// 所有可配置爬取器共用: 先校验键名,再覆盖默认值
type OptionSet struct {
	crawler  string
	defaults Options
	values   Options
}

// NewOptionSet 创建选项集合,默认值同时定义了允许的键
func NewOptionSet(crawler string, defaults Options) *OptionSet {
	return &OptionSet{
		crawler:  crawler,
		defaults: maps.Clone(defaults),
		values:   maps.Clone(defaults),
	}
}

// Merge 校验并合并选项
// 未知键全部列出后一次性拒绝,合并失败时当前值不变
func (o *OptionSet) Merge(options Options) error {
	var invalid []string
	for key := range options {
		if _, ok := o.defaults[key]; !ok {
			invalid = append(invalid, key)
		}
	}
	if len(invalid) > 0 {
		slices.Sort(invalid)
		return &models.InvalidCrawlerOptionError{Crawler: o.crawler, Options: invalid}
	}

	merged := maps.Clone(o.values)
	for key, value := range options {
		merged[key] = value
	}
	o.values = merged
	return nil
}

// All 返回当前全部选项的副本
func (o *OptionSet) All() Options {
	return maps.Clone(o.values)
}

// Int 读取整数选项, 带小数部分的数字视为类型错误
func (o *OptionSet) Int(key string) (int, error) {
	raw := o.values[key]
	if f, ok := raw.(float64); ok && f != math.Trunc(f) {
		return 0, o.typeError(key, "整数", fmt.Errorf("%v 不是整数", f))
	}
	v, err := cast.ToIntE(raw)
	if err != nil {
		return 0, o.typeError(key, "整数", err)
	}
	return v, nil
}

// Float 读取浮点选项
func (o *OptionSet) Float(key string) (float64, error) {
	v, err := cast.ToFloat64E(o.values[key])
	if err != nil {
		return 0, o.typeError(key, "数字", err)
	}
	return v, nil
}

// String 读取字符串选项
func (o *OptionSet) String(key string) (string, error) {
	v, err := cast.ToStringE(o.values[key])
	if err != nil {
		return "", o.typeError(key, "字符串", err)
	}
	return v, nil
}

// Bool 读取布尔选项
func (o *OptionSet) Bool(key string) (bool, error) {
	v, err := cast.ToBoolE(o.values[key])
	if err != nil {
		return false, o.typeError(key, "布尔值", err)
	}
	return v, nil
}

// Seconds 读取以秒为单位的时长选项
func (o *OptionSet) Seconds(key string) (time.Duration, error) {
	v, err := o.Float(key)
	if err != nil {
		return 0, err
	}
	return time.Duration(v * float64(time.Second)), nil
}

// Headers 读取头部映射选项
func (o *OptionSet) Headers(key string) (http.Header, error) {
	raw, err := cast.ToStringMapStringE(o.values[key])
	if err != nil {
		return nil, o.typeError(key, "头部映射", err)
	}
	return models.HeaderMap(raw).ToHeader(models.HeaderSourceCrawlerOption)
}

func (o *OptionSet) typeError(key, want string, cause error) error {
	return fmt.Errorf("爬取器 %q 的选项 %q 应为%s: %w", o.crawler, key, want, cause)
}
