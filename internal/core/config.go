package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/RecoveryAshes/SitemapWarmup/internal/crawlers"
	"github.com/RecoveryAshes/SitemapWarmup/internal/utils"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀, 如 SITEMAPWARMUP_WARMUP_LIMIT
const EnvPrefix = "SITEMAPWARMUP"

// Config 应用程序配置
type Config struct {
	Warmup   WarmupConfig   `mapstructure:"warmup"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Resource ResourceConfig `mapstructure:"resource"`
}

// WarmupConfig 预热配置
type WarmupConfig struct {
	Sitemaps         []string               `mapstructure:"sitemaps"`
	URLs             []string               `mapstructure:"urls"`
	URLsFile         string                 `mapstructure:"urls_file"`
	Limit            int                    `mapstructure:"limit"`
	Strategy         string                 `mapstructure:"strategy"`
	Crawler          string                 `mapstructure:"crawler"`
	CrawlerOptionMap map[string]interface{} `mapstructure:"crawler_options"`
	AllowFailures    bool                   `mapstructure:"allow_failures"`

	// 以下为0时使用爬取器默认值
	Concurrency    int     `mapstructure:"concurrency"`
	RequestTimeout int     `mapstructure:"request_timeout"` // 秒
	CrawlTimeout   int     `mapstructure:"crawl_timeout"`   // 秒
	RateLimit      float64 `mapstructure:"rate_limit"`      // 每秒请求数

	Format      string `mapstructure:"format"`
	Progress    bool   `mapstructure:"progress"`
	Verbose     bool   `mapstructure:"verbose"`
	HeadersFile string `mapstructure:"headers_file"`
	Insecure    bool   `mapstructure:"insecure"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	NoColor  bool           `mapstructure:"no_color"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// ResourceConfig 资源限制配置
type ResourceConfig struct {
	Enabled             bool  `mapstructure:"enabled"`
	SafetyReserveMemory int64 `mapstructure:"safety_reserve_memory"` // 字节
	SafetyThreshold     int64 `mapstructure:"safety_threshold"`      // 字节
	CPULoadThreshold    int   `mapstructure:"cpu_load_threshold"`    // 百分比
	MaxWorkersLimit     int   `mapstructure:"max_workers_limit"`
}

// flagBindings 配置键 -> 命令行参数名
var flagBindings = map[string]string{
	"warmup.urls":            "urls",
	"warmup.urls_file":       "urls-file",
	"warmup.limit":           "limit",
	"warmup.strategy":        "strategy",
	"warmup.crawler":         "crawler",
	"warmup.allow_failures":  "allow-failures",
	"warmup.concurrency":     "concurrency",
	"warmup.request_timeout": "request-timeout",
	"warmup.crawl_timeout":   "crawl-timeout",
	"warmup.rate_limit":      "rate-limit",
	"warmup.format":          "format",
	"warmup.progress":        "progress",
	"warmup.verbose":         "verbose",
	"warmup.headers_file":    "headers-file",
	"warmup.insecure":        "insecure",
	"logging.level":          "log-level",
}

// LoadConfig 加载配置文件
// 优先级: 命令行参数 > 环境变量 > 配置文件 > 默认值
// flags 为nil时只读取配置文件和环境变量
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".sitemapwarmup"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if flags != nil {
		for key, name := range flagBindings {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("绑定参数 --%s 失败: %w", name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	} else {
		utils.Debugf("使用配置文件: %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	v.SetDefault("warmup.sitemaps", []string{})
	v.SetDefault("warmup.urls", []string{})
	v.SetDefault("warmup.limit", 0)
	v.SetDefault("warmup.strategy", crawlers.StrategyNone)
	v.SetDefault("warmup.crawler", crawlers.CrawlerConcurrent)
	v.SetDefault("warmup.crawler_options", map[string]interface{}{})
	v.SetDefault("warmup.allow_failures", false)
	v.SetDefault("warmup.format", utils.FormatText)
	v.SetDefault("warmup.progress", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	v.SetDefault("resource.enabled", true)
	v.SetDefault("resource.safety_reserve_memory", 512*1024*1024)
	v.SetDefault("resource.safety_threshold", 256*1024*1024)
	v.SetDefault("resource.cpu_load_threshold", 90)
	v.SetDefault("resource.max_workers_limit", 64)
}

// LogConfig 转换为日志系统配置
func (c *Config) LogConfig() utils.LogConfig {
	return utils.LogConfig{
		Level:      c.Logging.Level,
		LogDir:     c.Logging.LogDir,
		MaxSize:    c.Logging.Rotation.MaxSize,
		MaxBackups: c.Logging.Rotation.MaxBackups,
		MaxAge:     c.Logging.Rotation.MaxAge,
		Compress:   c.Logging.Rotation.Compress,
		NoColor:    c.Logging.NoColor,
	}
}

// ResourceMonitorConfig 转换为资源监控器配置
func (c *Config) ResourceMonitorConfig() crawlers.ResourceMonitorConfig {
	return crawlers.ResourceMonitorConfig{
		SafetyReserveMemory: c.Resource.SafetyReserveMemory,
		SafetyThreshold:     c.Resource.SafetyThreshold,
		CPULoadThreshold:    c.Resource.CPULoadThreshold,
		MaxWorkersLimit:     c.Resource.MaxWorkersLimit,
	}
}

// CrawlerOptions 合并爬取器选项
// 优先级: 专用配置项 > JSON字符串 > 配置文件中的crawler_options
func (w WarmupConfig) CrawlerOptions(rawJSON string) (crawlers.Options, error) {
	options := crawlers.Options{}
	for key, value := range w.CrawlerOptionMap {
		options[key] = value
	}

	parsed, err := crawlers.ParseOptions(rawJSON)
	if err != nil {
		return nil, err
	}
	for key, value := range parsed {
		options[key] = value
	}

	if w.Concurrency > 0 {
		options[crawlers.OptionConcurrency] = w.Concurrency
	}
	if w.RequestTimeout > 0 {
		options[crawlers.OptionRequestTimeout] = w.RequestTimeout
	}
	if w.CrawlTimeout > 0 {
		options[crawlers.OptionCrawlTimeout] = w.CrawlTimeout
	}
	if w.RateLimit > 0 {
		options[crawlers.OptionRateLimit] = w.RateLimit
	}
	if w.Insecure {
		options[crawlers.OptionInsecure] = true
	}
	return options, nil
}
