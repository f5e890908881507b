// Package sitemap 解析sitemap与sitemap索引文档
package sitemap

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/RecoveryAshes/SitemapWarmup/internal/models"
	"github.com/RecoveryAshes/SitemapWarmup/internal/utils"
	"github.com/RecoveryAshes/SitemapWarmup/internal/xmlstream"
)

// gzipMagic gzip文件头 (含deflate压缩方法)
var gzipMagic = []byte{0x1f, 0x8b, 0x08}

// lastModificationLayouts W3C Datetime 常见格式
var lastModificationLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
}

// Parser sitemap解析器
//
// 远程sitemap先下载到临时文件,临时文件在Close时删除。
// 调用者必须在所有路径上调用Close:
//
//	parser := NewParser(downloader)
//	defer parser.Close()
type Parser struct {
	client HTTPClient

	sitemapCollector *xmlstream.Collector
	urlCollector     *xmlstream.Collector

	temporaryFiles []string
}

// NewParser 创建解析器
func NewParser(client HTTPClient) *Parser {
	return &Parser{
		client: client,
		sitemapCollector: xmlstream.NewCollector(xmlstream.SitemapNodePath, []xmlstream.Node{
			xmlstream.NodeLastModificationDate,
			xmlstream.NodeLocation,
		}),
		urlCollector: xmlstream.NewCollector(xmlstream.URLNodePath, []xmlstream.Node{
			xmlstream.NodeChangeFrequency,
			xmlstream.NodeLastModificationDate,
			xmlstream.NodeLocation,
			xmlstream.NodePriority,
		}),
	}
}

// Parse 解析单个sitemap文档
// 处理流程:
//  1. 获取输入文件(本地文件或下载到临时文件)
//  2. 检测gzip文件头,必要时透明解压
//  3. 单次流式读取,同时驱动sitemap和url两个收集器
//  4. 将原始记录转换为Sitemap/URL
func (p *Parser) Parse(ctx context.Context, sitemap models.Sitemap) (models.ParserResult, error) {
	filename, err := p.fetchSitemapFile(ctx, sitemap)
	if err != nil {
		return models.ParserResult{}, err
	}

	reader, closeFile, err := openSitemapFile(filename)
	if err != nil {
		return models.ParserResult{}, err
	}
	defer closeFile()

	p.sitemapCollector.Reset()
	p.urlCollector.Reset()

	if err := xmlstream.Process(reader, p.sitemapCollector, p.urlCollector); err != nil {
		var emptyErr *xmlstream.EmptyNodeError
		if errors.As(err, &emptyErr) {
			return models.ParserResult{}, &models.SitemapIsMalformedError{Sitemap: sitemap, Cause: err}
		}
		return models.ParserResult{}, &models.SitemapCannotBeReadError{Sitemap: sitemap, Cause: err}
	}

	result := models.ParserResult{
		Sitemaps: make([]models.Sitemap, 0, len(p.sitemapCollector.Records())),
		URLs:     make([]models.URL, 0, len(p.urlCollector.Records())),
	}

	for _, record := range p.sitemapCollector.Records() {
		child, err := convertSitemap(record, sitemap)
		if err != nil {
			return models.ParserResult{}, err
		}
		result.Sitemaps = append(result.Sitemaps, child)
	}

	for _, record := range p.urlCollector.Records() {
		u, err := convertURL(record, sitemap)
		if err != nil {
			return models.ParserResult{}, err
		}
		result.URLs = append(result.URLs, u)
	}

	utils.Debugf("解析sitemap完成: %s (子sitemap=%d, URL=%d)", sitemap.URI, len(result.Sitemaps), len(result.URLs))
	return result, nil
}

// fetchSitemapFile 返回可读取的本地文件路径
func (p *Parser) fetchSitemapFile(ctx context.Context, sitemap models.Sitemap) (string, error) {
	if sitemap.IsLocalFile() {
		return sitemap.LocalPath, nil
	}

	if p.client == nil {
		return "", &models.SitemapCannotBeReadError{Sitemap: sitemap, Cause: errors.New("未配置HTTP客户端")}
	}

	filename, err := p.downloadSitemap(ctx, sitemap.URI)
	if err != nil {
		return "", &models.SitemapCannotBeReadError{Sitemap: sitemap, Cause: err}
	}
	return filename, nil
}

// downloadSitemap 将远程sitemap写入临时文件
func (p *Parser) downloadSitemap(ctx context.Context, uri string) (string, error) {
	body, err := p.client.Get(ctx, uri)
	if err != nil {
		return "", err
	}
	defer body.Close()

	file, err := os.CreateTemp("", "sitemap_*.xml")
	if err != nil {
		return "", fmt.Errorf("创建临时文件失败: %w", err)
	}
	// 先登记,保证写入失败时也会被Close清理
	p.temporaryFiles = append(p.temporaryFiles, file.Name())

	if _, err := io.Copy(file, body); err != nil {
		file.Close()
		return "", fmt.Errorf("写入临时文件失败: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("关闭临时文件失败: %w", err)
	}

	return file.Name(), nil
}

// openSitemapFile 打开文件,gzip文件透明解压
func openSitemapFile(filename string) (io.Reader, func(), error) {
	info, err := os.Stat(filename)
	if err != nil || info.IsDir() {
		return nil, nil, &models.FileIsMissingError{Path: filename}
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, nil, &models.FileIsNotReadableError{Path: filename, Cause: err}
	}

	buffered := bufio.NewReader(file)
	magic, _ := buffered.Peek(len(gzipMagic))
	if !bytes.Equal(magic, gzipMagic) {
		return buffered, func() { file.Close() }, nil
	}

	gz, err := gzip.NewReader(buffered)
	if err != nil {
		file.Close()
		return nil, nil, &models.FileIsNotReadableError{Path: filename, Cause: err}
	}
	return gz, func() {
		gz.Close()
		file.Close()
	}, nil
}

// Close 删除本次解析器创建的所有临时文件
func (p *Parser) Close() error {
	var errs []error
	for _, filename := range p.temporaryFiles {
		if err := os.Remove(filename); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	p.temporaryFiles = nil
	return errors.Join(errs...)
}

// TemporaryFiles 返回当前持有的临时文件
func (p *Parser) TemporaryFiles() []string {
	return append([]string(nil), p.temporaryFiles...)
}

func convertSitemap(record xmlstream.Record, parent models.Sitemap) (models.Sitemap, error) {
	loc, err := resolveLocation(record, parent)
	if err != nil {
		return models.Sitemap{}, err
	}

	child, err := models.NewSitemap(loc)
	if err != nil {
		return models.Sitemap{}, err
	}

	// 远程sitemap不允许引用本地文件
	if child.IsLocalFile() && !parent.IsLocalFile() {
		return models.Sitemap{}, &models.InvalidURLError{URL: loc}
	}
	return child, nil
}

func convertURL(record xmlstream.Record, parent models.Sitemap) (models.URL, error) {
	loc, err := resolveLocation(record, parent)
	if err != nil {
		return models.URL{}, err
	}

	u, err := models.NewURL(loc)
	if err != nil {
		return models.URL{}, err
	}

	if priority, ok := parsePriority(record[xmlstream.NodePriority]); ok {
		u.Priority = priority
	}
	if lastmod, ok := parseLastModificationDate(record[xmlstream.NodeLastModificationDate]); ok {
		u.LastModified = &lastmod
	}
	if freq, ok := models.ParseChangeFrequency(record[xmlstream.NodeChangeFrequency]); ok {
		u.ChangeFrequency = freq
	}
	return u, nil
}

func resolveLocation(record xmlstream.Record, parent models.Sitemap) (string, error) {
	loc := strings.TrimSpace(record[xmlstream.NodeLocation])
	if loc == "" {
		return "", &models.InvalidURLError{Empty: true}
	}
	return parent.ResolveReference(loc), nil
}

// parsePriority 非法或超出[0,1]范围时返回false
func parsePriority(text string) (float64, bool) {
	if text == "" {
		return 0, false
	}
	priority, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(priority) || priority < 0 || priority > 1 {
		return 0, false
	}
	return priority, true
}

func parseLastModificationDate(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}
	for _, layout := range lastModificationLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
