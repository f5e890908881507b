package core

import (
	"net/http"
	"sync"

	"github.com/RecoveryAshes/SitemapWarmup/internal/config"
	"github.com/RecoveryAshes/SitemapWarmup/internal/models"
	"github.com/RecoveryAshes/SitemapWarmup/internal/utils"
)

// DefaultUserAgent 默认User-Agent
const DefaultUserAgent = "Mozilla/5.0 (compatible; SitemapWarmup/" + Version + "; +https://github.com/RecoveryAshes/SitemapWarmup)"

// HeaderManager 管理预热请求头部
// 实现 models.HeaderProvider
type HeaderManager struct {
	defaults http.Header
	config   http.Header
	cli      http.Header

	validator    *utils.HeaderValidator
	redactor     *utils.HeaderRedactor
	configLoader *config.HeaderConfigLoader

	// 加载与验证只执行一次,结果被sitemap下载器和预热请求共享
	once   sync.Once
	merged http.Header
	err    error
}

// NewHeaderManager 创建头部管理器
// configFile 为空时使用 configs/headers.yaml
func NewHeaderManager(configFile string, cliHeaders []string) (*HeaderManager, error) {
	cli, err := models.CliHeaders(cliHeaders).Parse()
	if err != nil {
		return nil, err
	}

	return &HeaderManager{
		defaults:     getDefaultHeaders(),
		cli:          cli,
		validator:    utils.NewHeaderValidator(),
		redactor:     utils.NewHeaderRedactor(),
		configLoader: config.NewHeaderConfigLoader(configFile),
	}, nil
}

func getDefaultHeaders() http.Header {
	return http.Header{
		"User-Agent":      []string{DefaultUserAgent},
		"Accept":          []string{"*/*"},
		"Accept-Encoding": []string{"gzip, deflate, br"},
	}
}

// loadConfig 加载配置文件中的头部
func (hm *HeaderManager) loadConfig() error {
	headerConfig, err := hm.configLoader.LoadConfig()
	if err != nil {
		utils.Errorf("加载HTTP头部配置失败: %v", err)
		return err
	}

	hm.config, err = models.HeaderMap(headerConfig.Headers).ToHeader(models.HeaderSourceConfigFile)
	if err != nil {
		return err
	}

	if len(hm.config) > 0 {
		utils.Debugf("加载了%d个HTTP头部配置: %v", len(hm.config), hm.redactor.Redact(hm.config))
	}
	return nil
}

// validate 依次验证默认、配置、命令行头部
func (hm *HeaderManager) validate() error {
	layers := []struct {
		source  models.HeaderSource
		headers http.Header
	}{
		{models.HeaderSourceDefault, hm.defaults},
		{models.HeaderSourceConfigFile, hm.config},
		{models.HeaderSourceFlag, hm.cli},
	}
	for _, layer := range layers {
		if err := hm.validator.ValidateFrom(layer.source, layer.headers); err != nil {
			utils.Errorf("HTTP头部验证失败: %v", err)
			return err
		}
	}
	return nil
}

// mergeHeaders 按优先级合并 (default < config < cli)
func (hm *HeaderManager) mergeHeaders() http.Header {
	result := make(http.Header)
	for _, layer := range []http.Header{hm.defaults, hm.config, hm.cli} {
		for name, values := range layer {
			result[http.CanonicalHeaderKey(name)] = values
		}
	}
	return result
}

// GetHeaders 实现 HeaderProvider
func (hm *HeaderManager) GetHeaders() (http.Header, error) {
	hm.once.Do(func() {
		if hm.err = hm.loadConfig(); hm.err != nil {
			return
		}
		if hm.err = hm.validate(); hm.err != nil {
			return
		}
		hm.merged = hm.mergeHeaders()
	})
	if hm.err != nil {
		return nil, hm.err
	}
	return hm.merged.Clone(), nil
}

// GetSafeHeaders 返回脱敏后的头部 (用于日志)
func (hm *HeaderManager) GetSafeHeaders() map[string]string {
	headers, err := hm.GetHeaders()
	if err != nil {
		return map[string]string{}
	}
	return hm.redactor.Redact(headers)
}
