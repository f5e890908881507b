package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/RecoveryAshes/SitemapWarmup/internal/crawlers"
	"github.com/spf13/pflag"
)

const sampleConfig = `warmup:
  sitemaps:
    - https://example.com/sitemap.xml
  limit: 3
  strategy: sort-by-changefreq
  crawler_options:
    concurrency: 3
    request_headers:
      X-Cache-Warmup: "1"
logging:
  level: debug
resource:
  enabled: false
`

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
	return path
}

func newTestFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("limit", 0, "")
	flags.String("strategy", "", "")
	flags.StringSlice("urls", nil, "")
	flags.Bool("allow-failures", false, "")
	return flags
}

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := LoadConfig(writeConfigFile(t, "logging:\n  level: warn\n"), nil)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if config.Warmup.Crawler != crawlers.CrawlerConcurrent {
		t.Errorf("默认爬取器 = %q", config.Warmup.Crawler)
	}
	if config.Warmup.Strategy != crawlers.StrategyNone {
		t.Errorf("默认策略 = %q", config.Warmup.Strategy)
	}
	if config.Warmup.Format != "text" || config.Warmup.Limit != 0 || config.Warmup.AllowFailures {
		t.Errorf("预热默认值错误: %+v", config.Warmup)
	}
	if config.Logging.Level != "warn" || config.Logging.Rotation.MaxSize != 10 {
		t.Errorf("日志配置错误: %+v", config.Logging)
	}
	if !config.Resource.Enabled || config.Resource.MaxWorkersLimit != 64 {
		t.Errorf("资源默认值错误: %+v", config.Resource)
	}
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := writeConfigFile(t, sampleConfig)

	t.Run("配置文件", func(t *testing.T) {
		flags := newTestFlags()
		if err := flags.Parse(nil); err != nil {
			t.Fatal(err)
		}
		config, err := LoadConfig(path, flags)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if config.Warmup.Limit != 3 || config.Warmup.Strategy != crawlers.StrategySortByChangeFrequency {
			t.Errorf("未修改的参数不应覆盖配置文件: %+v", config.Warmup)
		}
		if !equalStrings(config.Warmup.Sitemaps, []string{"https://example.com/sitemap.xml"}) {
			t.Errorf("sitemaps = %v", config.Warmup.Sitemaps)
		}
		if config.Resource.Enabled {
			t.Error("resource.enabled 应为false")
		}
	})

	t.Run("命令行参数覆盖配置文件", func(t *testing.T) {
		flags := newTestFlags()
		if err := flags.Parse([]string{"--limit=7", "--urls=https://a.test/,https://b.test/", "--allow-failures"}); err != nil {
			t.Fatal(err)
		}
		config, err := LoadConfig(path, flags)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if config.Warmup.Limit != 7 || !config.Warmup.AllowFailures {
			t.Errorf("命令行参数未生效: %+v", config.Warmup)
		}
		if !equalStrings(config.Warmup.URLs, []string{"https://a.test/", "https://b.test/"}) {
			t.Errorf("urls = %v", config.Warmup.URLs)
		}
	})

	t.Run("环境变量覆盖配置文件", func(t *testing.T) {
		t.Setenv("SITEMAPWARMUP_WARMUP_STRATEGY", crawlers.StrategySortByPriority)
		config, err := LoadConfig(path, nil)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if config.Warmup.Strategy != crawlers.StrategySortByPriority {
			t.Errorf("strategy = %q", config.Warmup.Strategy)
		}
	})
}

func TestLoadConfig_Malformed(t *testing.T) {
	if _, err := LoadConfig(writeConfigFile(t, "warmup: [unclosed\n"), nil); err == nil {
		t.Error("期望返回错误")
	}
}

func TestWarmupConfig_CrawlerOptions(t *testing.T) {
	config, err := LoadConfig(writeConfigFile(t, sampleConfig), nil)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	t.Run("配置文件选项", func(t *testing.T) {
		options, err := config.Warmup.CrawlerOptions("")
		if err != nil {
			t.Fatalf("CrawlerOptions() error = %v", err)
		}
		if options[crawlers.OptionConcurrency] != 3 {
			t.Errorf("concurrency = %v", options[crawlers.OptionConcurrency])
		}
		if _, ok := options[crawlers.OptionRequestHeaders]; !ok {
			t.Error("应包含request_headers")
		}
	})

	t.Run("JSON和专用参数逐级覆盖", func(t *testing.T) {
		warmup := config.Warmup
		warmup.Concurrency = 8
		options, err := warmup.CrawlerOptions(`{"concurrency": 4, "request_method": "GET"}`)
		if err != nil {
			t.Fatalf("CrawlerOptions() error = %v", err)
		}
		if options[crawlers.OptionConcurrency] != 8 {
			t.Errorf("concurrency = %v, 期望 8", options[crawlers.OptionConcurrency])
		}
		if options[crawlers.OptionRequestMethod] != "GET" {
			t.Errorf("request_method = %v", options[crawlers.OptionRequestMethod])
		}
	})

	t.Run("JSON格式错误", func(t *testing.T) {
		if _, err := config.Warmup.CrawlerOptions(`[1, 2]`); err == nil {
			t.Error("期望返回错误")
		}
	})

	t.Run("合并后的选项可被爬取器接受", func(t *testing.T) {
		options, err := config.Warmup.CrawlerOptions("")
		if err != nil {
			t.Fatalf("CrawlerOptions() error = %v", err)
		}
		crawler := crawlers.NewConcurrentCrawler(crawlers.Dependencies{})
		if err := crawler.SetOptions(options); err != nil {
			t.Errorf("SetOptions() error = %v", err)
		}
	})
}
