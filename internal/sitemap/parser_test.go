package sitemap

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/RecoveryAshes/SitemapWarmup/internal/models"
)

const pageSitemapXML = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url>
    <loc>https://example.com/</loc>
    <priority>0.8</priority>
    <changefreq>Daily</changefreq>
    <lastmod>2024-01-02T10:00:00+01:00</lastmod>
  </url>
  <url>
    <loc>https://example.com/foo</loc>
    <priority>0.2</priority>
  </url>
  <url>
    <loc>https://example.com/bar</loc>
    <priority>abc</priority>
    <changefreq>sometimes</changefreq>
    <lastmod>yesterday</lastmod>
  </url>
</urlset>`

const indexSitemapXML = `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap>
    <loc>https://example.com/page-sitemap.xml</loc>
    <lastmod>2024-01-02</lastmod>
  </sitemap>
  <sitemap>
    <loc>post-sitemap.xml</loc>
  </sitemap>
</sitemapindex>`

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("写入测试文件失败: %v", err)
	}
	return path
}

func localSitemap(t *testing.T, path string) models.Sitemap {
	t.Helper()
	sitemap, err := models.NewSitemap(path)
	if err != nil {
		t.Fatalf("NewSitemap() error = %v", err)
	}
	return sitemap
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("gzip写入失败: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("gzip关闭失败: %v", err)
	}
	return buf.Bytes()
}

func TestParser_ParseURLSet(t *testing.T) {
	parser := NewParser(nil)
	defer parser.Close()

	result, err := parser.Parse(context.Background(), localSitemap(t, writeFile(t, "sitemap.xml", []byte(pageSitemapXML))))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(result.Sitemaps) != 0 {
		t.Errorf("子sitemap数 = %d, want 0", len(result.Sitemaps))
	}
	if len(result.URLs) != 3 {
		t.Fatalf("URL数 = %d, want 3", len(result.URLs))
	}

	home := result.URLs[0]
	if home.URI != "https://example.com/" {
		t.Errorf("URI = %s", home.URI)
	}
	if home.Priority != 0.8 {
		t.Errorf("Priority = %v, want 0.8", home.Priority)
	}
	if home.ChangeFrequency != models.ChangeFrequencyDaily {
		t.Errorf("ChangeFrequency = %q, want daily", home.ChangeFrequency)
	}
	if home.LastModified == nil || !home.LastModified.Equal(time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("LastModified = %v", home.LastModified)
	}

	t.Run("非法可选字段被忽略", func(t *testing.T) {
		bar := result.URLs[2]
		if bar.Priority != models.DefaultPriority {
			t.Errorf("非法priority应回退为默认值, 得到 %v", bar.Priority)
		}
		if bar.ChangeFrequency != "" {
			t.Errorf("非法changefreq应被丢弃, 得到 %q", bar.ChangeFrequency)
		}
		if bar.LastModified != nil {
			t.Errorf("非法lastmod应被丢弃, 得到 %v", bar.LastModified)
		}
	})
}

func TestParser_ParseSitemapIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(indexSitemapXML))
	}))
	defer server.Close()

	sitemap, err := models.NewSitemap(server.URL + "/sitemaps/index.xml")
	if err != nil {
		t.Fatalf("NewSitemap() error = %v", err)
	}

	parser := NewParser(NewDownloader(DownloaderConfig{Timeout: 5 * time.Second}))
	result, err := parser.Parse(context.Background(), sitemap)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := []string{
		"https://example.com/page-sitemap.xml",
		server.URL + "/sitemaps/post-sitemap.xml",
	}
	if len(result.Sitemaps) != len(want) {
		t.Fatalf("子sitemap数 = %d, want %d", len(result.Sitemaps), len(want))
	}
	for i, uri := range want {
		if result.Sitemaps[i].URI != uri {
			t.Errorf("Sitemaps[%d] = %s, want %s", i, result.Sitemaps[i].URI, uri)
		}
	}

	t.Run("Close删除临时文件", func(t *testing.T) {
		files := parser.TemporaryFiles()
		if len(files) != 1 {
			t.Fatalf("临时文件数 = %d, want 1", len(files))
		}
		if err := parser.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if _, err := os.Stat(files[0]); !os.IsNotExist(err) {
			t.Errorf("临时文件应已删除: %s", files[0])
		}
	})
}

func TestParser_Gzip(t *testing.T) {
	plain := writeFile(t, "sitemap.xml", []byte(pageSitemapXML))
	compressed := writeFile(t, "sitemap.xml.gz", gzipBytes(t, []byte(pageSitemapXML)))

	plainParser := NewParser(nil)
	defer plainParser.Close()
	gzParser := NewParser(nil)
	defer gzParser.Close()

	want, err := plainParser.Parse(context.Background(), localSitemap(t, plain))
	if err != nil {
		t.Fatalf("Parse(plain) error = %v", err)
	}
	got, err := gzParser.Parse(context.Background(), localSitemap(t, compressed))
	if err != nil {
		t.Fatalf("Parse(gzip) error = %v", err)
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("gzip解析结果不一致:\n got  %+v\n want %+v", got, want)
	}
}

func TestParser_Idempotent(t *testing.T) {
	sitemap := localSitemap(t, writeFile(t, "sitemap.xml", []byte(pageSitemapXML)))

	first := NewParser(nil)
	defer first.Close()
	second := NewParser(nil)
	defer second.Close()

	a, err := first.Parse(context.Background(), sitemap)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	b, err := second.Parse(context.Background(), sitemap)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("两次解析结果应相等")
	}

	// 同一实例重复解析
	c, err := first.Parse(context.Background(), sitemap)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !reflect.DeepEqual(a, c) {
		t.Error("复用解析器的结果应相等")
	}
}

func TestParser_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing.xml":
			http.NotFound(w, r)
		case "/local-ref.xml":
			w.Write([]byte(`<sitemapindex><sitemap><loc>file:///etc/sitemap.xml</loc></sitemap></sitemapindex>`))
		}
	}))
	defer server.Close()

	remote := func(path string) models.Sitemap {
		sitemap, err := models.NewSitemap(server.URL + path)
		if err != nil {
			t.Fatalf("NewSitemap() error = %v", err)
		}
		return sitemap
	}

	tests := []struct {
		name    string
		sitemap models.Sitemap
		check   func(error) bool
	}{
		{
			name:    "文件不存在",
			sitemap: localSitemap(t, filepath.Join(t.TempDir(), "missing.xml")),
			check:   func(err error) bool { var e *models.FileIsMissingError; return errors.As(err, &e) },
		},
		{
			name:    "空loc",
			sitemap: localSitemap(t, writeFile(t, "empty.xml", []byte(`<urlset><url><loc></loc></url></urlset>`))),
			check:   func(err error) bool { var e *models.SitemapIsMalformedError; return errors.As(err, &e) },
		},
		{
			name:    "XML语法错误",
			sitemap: localSitemap(t, writeFile(t, "broken.xml", []byte(`<urlset><url><loc>https://example.com/</url>`))),
			check:   func(err error) bool { var e *models.SitemapCannotBeReadError; return errors.As(err, &e) },
		},
		{
			name:    "非法loc",
			sitemap: localSitemap(t, writeFile(t, "invalid.xml", []byte(`<urlset><url><loc>ftp://example.com/</loc></url></urlset>`))),
			check:   func(err error) bool { var e *models.InvalidURLError; return errors.As(err, &e) },
		},
		{
			name:    "下载失败",
			sitemap: remote("/missing.xml"),
			check:   func(err error) bool { var e *models.SitemapCannotBeReadError; return errors.As(err, &e) },
		},
		{
			name:    "远程sitemap引用本地文件",
			sitemap: remote("/local-ref.xml"),
			check:   func(err error) bool { var e *models.InvalidURLError; return errors.As(err, &e) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewParser(NewDownloader(DownloaderConfig{Timeout: 5 * time.Second}))
			defer parser.Close()

			_, err := parser.Parse(context.Background(), tt.sitemap)
			if err == nil {
				t.Fatal("应返回错误")
			}
			if !tt.check(err) {
				t.Errorf("错误类型不符: %T %v", err, err)
			}
		})
	}
}

func TestDecompressBody(t *testing.T) {
	payload := []byte(pageSitemapXML)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		w.Write(gzipBytes(t, payload))
	}))
	defer server.Close()

	sitemap, err := models.NewSitemap(server.URL + "/sitemap.xml")
	if err != nil {
		t.Fatalf("NewSitemap() error = %v", err)
	}

	parser := NewParser(NewDownloader(DownloaderConfig{}))
	defer parser.Close()

	result, err := parser.Parse(context.Background(), sitemap)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(result.URLs) != 3 {
		t.Errorf("URL数 = %d, want 3", len(result.URLs))
	}
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		text   string
		want   float64
		wantOK bool
	}{
		{"0.5", 0.5, true},
		{" 1.0 ", 1, true},
		{"0", 0, true},
		{"", 0, false},
		{"abc", 0, false},
		{"1.5", 0, false},
		{"-0.1", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := parsePriority(tt.text)
			if ok != tt.wantOK || (ok && got != tt.want) {
				t.Errorf("parsePriority(%q) = %v, %v, want %v, %v", tt.text, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
