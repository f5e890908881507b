package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/RecoveryAshes/SitemapWarmup/internal/config"
	"github.com/RecoveryAshes/SitemapWarmup/internal/core"
	"github.com/RecoveryAshes/SitemapWarmup/internal/crawlers"
	"github.com/RecoveryAshes/SitemapWarmup/internal/models"
	"github.com/RecoveryAshes/SitemapWarmup/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = core.Version
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile  string
	logLevel    string
	headers     []string
	headersFile string

	// 预热参数
	urls           []string
	urlsFile       string
	limit          int
	strategy       string
	crawlerName    string
	crawlerOptions string
	allowFailures  bool
	concurrency    int
	requestTimeout int
	crawlTimeout   int
	rateLimit      float64
	format         string
	progress       bool
	verbose        bool
	insecure       bool

	// headers init
	overwriteTemplate bool
)

// appConfig 由PersistentPreRunE加载
var appConfig *core.Config

var rootCmd = &cobra.Command{
	Use:   "sitemapwarmup [sitemap...]",
	Short: "基于Sitemap的缓存预热工具",
	Long: `SitemapWarmup - 解析Sitemap并预热其中所有URL的缓存

  • 递归展开sitemap索引,自动识别gzip压缩
  • 支持远程URL和本地文件
  • 按优先级/更新频率/修改时间排序后截断
  • 有界并发的HEAD/GET预热请求
  • 文本或JSON格式的结果输出

示例:
  sitemapwarmup https://example.com/sitemap.xml
  sitemapwarmup https://example.com/sitemap.xml --limit 100 --strategy sort-by-priority
  sitemapwarmup ./sitemap.xml.gz --urls https://example.com/ --format json
  sitemapwarmup https://example.com/sitemap.xml --crawler-options '{"concurrency": 10, "request_method": "GET"}'
  sitemapwarmup https://example.com/sitemap.xml -H "Authorization: Bearer token"

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := core.LoadConfig(configFile, cmd.Flags())
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		if err := utils.InitLogger(cfg.LogConfig()); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}
		if cfg.Warmup.Verbose {
			utils.Info("详细模式已启用")
		}

		appConfig = cfg
		return nil
	},
	RunE: runWarmup,
}

func runWarmup(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	if len(args) > 0 {
		cfg.Warmup.Sitemaps = args
	}

	if err := ValidateWarmupConfig(cfg.Warmup); err != nil {
		return err
	}

	sitemaps, extraURLs, err := cfg.Warmup.Inputs()
	if err != nil {
		return err
	}
	if len(sitemaps) == 0 && len(extraURLs) == 0 {
		cmd.SetOut(os.Stderr)
		_ = cmd.Help()
		return &models.NoSitemapsError{}
	}

	warmer, err := core.NewCacheWarmerFromConfig(core.Setup{
		Config:         cfg,
		CrawlerOptions: crawlerOptions,
		Headers:        headers,
		Output:         cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := warmer.Close(); err != nil {
			utils.Warnf("清理临时文件失败: %v", err)
		}
	}()

	// Ctrl+C 时放弃未完成的请求,仍然输出已有结果
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, runErr := warmer.Run(ctx, sitemaps, extraURLs)
	if err := warmer.Formatter().Flush(); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	return run.Err(cfg.Warmup.AllowFailures)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "SitemapWarmup %s\n", Version)
		fmt.Fprintf(cmd.OutOrStdout(), "构建时间: %s\n", BuildTime)
	},
}

var headersCmd = &cobra.Command{
	Use:   "headers",
	Short: "管理预热请求头部",
}

var headersInitCmd = &cobra.Command{
	Use:   "init",
	Short: "生成头部配置文件模板",
	RunE: func(cmd *cobra.Command, args []string) error {
		loader := config.NewHeaderConfigLoader(appConfig.Warmup.HeadersFile)
		if err := loader.WriteTemplate(overwriteTemplate); err != nil {
			return err
		}
		utils.Infof("已生成头部配置文件: %s", loader.Path())
		return nil
	},
}

var headersShowCmd = &cobra.Command{
	Use:   "show",
	Short: "验证并显示合并后的头部(已脱敏)",
	RunE: func(cmd *cobra.Command, args []string) error {
		headerManager, err := core.NewHeaderManager(appConfig.Warmup.HeadersFile, headers)
		if err != nil {
			return err
		}
		if _, err := headerManager.GetHeaders(); err != nil {
			return fmt.Errorf("头部验证失败: %w", err)
		}

		safeHeaders := headerManager.GetSafeHeaders()
		names := make([]string, 0, len(safeHeaders))
		for name := range safeHeaders {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, safeHeaders[name])
		}
		return nil
	},
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().StringArrayVarP(&headers, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")
	rootCmd.PersistentFlags().StringVar(&headersFile, "headers-file", "", "头部配置文件 (默认 "+config.DefaultConfigFile+")")

	// 预热参数
	rootCmd.Flags().StringSliceVarP(&urls, "urls", "u", nil, "额外预热的URL,可多次指定")
	rootCmd.Flags().StringVarP(&urlsFile, "urls-file", "f", "", "包含URL列表的文件,每行一个")
	rootCmd.Flags().IntVarP(&limit, "limit", "l", 0, "最多预热的URL数量,0表示不限制")
	rootCmd.Flags().StringVarP(&strategy, "strategy", "s", "", "排序策略 ("+strings.Join(crawlers.StrategyNames(), "|")+")")
	rootCmd.Flags().StringVar(&crawlerName, "crawler", "", "爬取器 ("+strings.Join(crawlers.DefaultRegistry().Names(), "|")+")")
	rootCmd.Flags().StringVarP(&crawlerOptions, "crawler-options", "o", "", "JSON格式的爬取器选项")
	rootCmd.Flags().BoolVar(&allowFailures, "allow-failures", false, "存在失败时仍以0退出")
	rootCmd.Flags().IntVar(&concurrency, "concurrency", 0, "并发请求数,0表示使用爬取器默认值")
	rootCmd.Flags().IntVar(&requestTimeout, "request-timeout", 0, "单个请求超时(秒)")
	rootCmd.Flags().IntVar(&crawlTimeout, "crawl-timeout", 0, "整体预热超时(秒)")
	rootCmd.Flags().Float64Var(&rateLimit, "rate-limit", 0, "每秒最多请求数,0表示不限速")
	rootCmd.Flags().StringVar(&format, "format", "", "输出格式 (text|json)")
	rootCmd.Flags().BoolVarP(&progress, "progress", "p", false, "显示进度条")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "输出详细列表")
	rootCmd.Flags().BoolVarP(&insecure, "insecure", "k", false, "跳过TLS证书验证")

	headersInitCmd.Flags().BoolVar(&overwriteTemplate, "force", false, "覆盖已存在的配置文件")

	// 添加子命令
	headersCmd.AddCommand(headersInitCmd, headersShowCmd)
	rootCmd.AddCommand(versionCmd, headersCmd)
}

// exitCode 预热失败返回1, 其余错误返回2
func exitCode(err error) int {
	var crawlFailed *models.CrawlFailedError
	if errors.As(err, &crawlFailed) {
		return 1
	}
	return 2
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(exitCode(err))
	}
}
