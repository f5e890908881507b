package utils

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/RecoveryAshes/SitemapWarmup/internal/models"
)

func TestHeaderValidator_ValidateName(t *testing.T) {
	validator := NewHeaderValidator()

	tests := []struct {
		name        string
		headerName  string
		expectError bool
	}{
		{"合法名称-字母", "User-Agent", false},
		{"合法名称-数字", "X-Request-ID-123", false},
		{"非法名称-空格", "User Agent", true},
		{"非法名称-下划线", "User_Agent", true},
		{"非法名称-特殊字符", "User@Agent", true},
		{"非法名称-空字符串", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateName(tt.headerName)
			if (err != nil) != tt.expectError {
				t.Errorf("期望错误=%v, 实际错误=%v", tt.expectError, err)
			}
		})
	}
}

func TestHeaderValidator_ValidateValue(t *testing.T) {
	validator := NewHeaderValidator()

	tests := []struct {
		name        string
		headerValue string
		expectError bool
	}{
		{"合法值-ASCII", "Mozilla/5.0", false},
		{"合法值-空字符串", "", false},
		{"合法值-最大长度", strings.Repeat(" ", MaxHeaderValueLength), false},
		{"非法值-超长", strings.Repeat("a", MaxHeaderValueLength+1), true},
		{"非法值-控制字符", "value\x00with\x01null", true},
		{"非法值-换行", "value\r\nX-Injected: 1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateValue("X-Test", tt.headerValue)
			if (err != nil) != tt.expectError {
				t.Errorf("期望错误=%v, 实际错误=%v", tt.expectError, err)
			}
		})
	}
}

func TestHeaderValidator_IsForbidden(t *testing.T) {
	validator := NewHeaderValidator()

	tests := []struct {
		headerName string
		expected   bool
	}{
		{"Host", true},
		{"host", true},
		{"Content-Length", true},
		{"Connection", true},
		{"User-Agent", false},
		{"Accept-Encoding", false},
	}

	for _, tt := range tests {
		t.Run(tt.headerName, func(t *testing.T) {
			if got := validator.IsForbidden(tt.headerName); got != tt.expected {
				t.Errorf("IsForbidden(%q) = %v, 期望 %v", tt.headerName, got, tt.expected)
			}
		})
	}
}

func TestHeaderValidator_Validate(t *testing.T) {
	validator := NewHeaderValidator()

	t.Run("合法头部", func(t *testing.T) {
		headers := http.Header{
			"User-Agent": []string{"SitemapWarmup/1.0"},
			"Accept":     []string{"*/*"},
		}
		if err := validator.Validate(headers); err != nil {
			t.Errorf("期望无错误, 实际错误=%v", err)
		}
	})

	t.Run("按名称顺序返回第一个错误", func(t *testing.T) {
		headers := http.Header{
			"X-Bad":      []string{"value\x00bad"},
			"Connection": []string{"close"},
		}
		err := validator.Validate(headers)
		var validationErr *models.ValidationError
		if !errors.As(err, &validationErr) {
			t.Fatalf("期望ValidationError, 得到 %v", err)
		}
		if validationErr.HeaderName != "Connection" {
			t.Errorf("期望先报告Connection, 得到 %s", validationErr.HeaderName)
		}
	})

}

func TestHeaderRedactor(t *testing.T) {
	redactor := NewHeaderRedactor()

	tests := []struct {
		name     string
		header   string
		value    string
		expected string
	}{
		{"Bearer令牌", "Authorization", "Bearer token123", "Bearer ***"},
		{"Basic认证", "Authorization", "Basic dXNlcjpwYXNz", "Basic ***"},
		{"长密钥保留首尾", "X-Api-Key", "key12345678", "key1***5678"},
		{"短密钥完全隐藏", "X-Secret", "short", "***"},
		{"Cookie", "Cookie", "session=abcdefghijk", "sess***hijk"},
		{"空值", "Authorization", "", "***"},
		{"非敏感头部", "User-Agent", "Mozilla/5.0", "Mozilla/5.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := redactor.RedactHeaderValue(tt.header, tt.value); got != tt.expected {
				t.Errorf("RedactHeaderValue(%q, %q) = %q, 期望 %q", tt.header, tt.value, got, tt.expected)
			}
		})
	}

	t.Run("字符串输出按名称排序", func(t *testing.T) {
		headers := http.Header{}
		headers.Set("X-Token", "abc")
		headers.Set("Accept", "*/*")
		got := redactor.RedactToString(headers)
		if got != "Accept: */*, X-Token: ***" {
			t.Errorf("RedactToString() = %q", got)
		}
	})
}
