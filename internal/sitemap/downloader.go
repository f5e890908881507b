package sitemap

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/RecoveryAshes/SitemapWarmup/internal/models"
	"github.com/RecoveryAshes/SitemapWarmup/internal/utils"
	"github.com/andybalholm/brotli"
)

// HTTPClient 下载远程sitemap所需的能力
type HTTPClient interface {
	Get(ctx context.Context, uri string) (io.ReadCloser, error)
}

// DownloaderConfig 下载器配置
type DownloaderConfig struct {
	Timeout            time.Duration
	InsecureSkipVerify bool
	HeaderProvider     models.HeaderProvider
}

// Downloader 基于net/http的sitemap下载器
// 自行处理Content-Encoding,因为手动设置Accept-Encoding后标准库不再自动解压
type Downloader struct {
	client         *http.Client
	headerProvider models.HeaderProvider
}

// NewDownloader 创建下载器
func NewDownloader(config DownloaderConfig) *Downloader {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &Downloader{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: config.InsecureSkipVerify,
				},
			},
			Timeout: config.Timeout,
		},
		headerProvider: config.HeaderProvider,
	}
}

// Get 下载URI并返回解压后的响应体
func (d *Downloader) Get(ctx context.Context, uri string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}

	if d.headerProvider != nil {
		headers, err := d.headerProvider.GetHeaders()
		if err != nil {
			utils.Warnf("获取HTTP头部失败: %v", err)
		} else {
			for name, values := range headers {
				if len(values) > 0 {
					req.Header.Set(name, values[0])
				}
			}
		}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("下载sitemap失败: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("下载sitemap失败: HTTP %d", resp.StatusCode)
	}

	body, err := decompressBody(resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}

	utils.Debugf("下载sitemap: %s (HTTP %d, 编码=%q)", uri, resp.StatusCode, resp.Header.Get("Content-Encoding"))
	return body, nil
}

// decompressBody 根据Content-Encoding包装响应体
// 支持 gzip, deflate, br (Brotli)
func decompressBody(contentEncoding string, body io.ReadCloser) (io.ReadCloser, error) {
	encoding := strings.ToLower(strings.TrimSpace(contentEncoding))

	switch encoding {
	case "gzip":
		reader, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("gzip解压失败: %w", err)
		}
		return &decodingBody{Reader: reader, closers: []io.Closer{reader, body}}, nil

	case "deflate":
		reader := flate.NewReader(body)
		return &decodingBody{Reader: reader, closers: []io.Closer{reader, body}}, nil

	case "br":
		return &decodingBody{Reader: brotli.NewReader(body), closers: []io.Closer{body}}, nil

	case "", "identity":
		return body, nil

	default:
		// 未知编码,仍然返回原始内容
		utils.Warnf("未知的Content-Encoding: %s", contentEncoding)
		return body, nil
	}
}

type decodingBody struct {
	io.Reader
	closers []io.Closer
}

func (b *decodingBody) Close() error {
	var firstErr error
	for _, c := range b.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
