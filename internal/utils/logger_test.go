package utils

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testLogConfig(dir, level string) LogConfig {
	return LogConfig{
		Level:      level,
		LogDir:     dir,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   false,
		NoColor:    true,
	}
}

func TestInitLogger(t *testing.T) {
	tempDir := filepath.Join(t.TempDir(), "logs")

	if err := InitLoggerWithConsole(testLogConfig(tempDir, "debug"), io.Discard); err != nil {
		t.Fatalf("初始化日志器失败: %v", err)
	}

	if _, err := os.Stat(tempDir); os.IsNotExist(err) {
		t.Errorf("日志目录未创建: %s", tempDir)
	}

	Info("测试信息日志")
	Warn("测试警告日志")
	Debug("测试调试日志")

	mainLogPath := filepath.Join(tempDir, MainLogFile)
	if _, err := os.Stat(mainLogPath); os.IsNotExist(err) {
		t.Errorf("主日志文件未创建: %s", mainLogPath)
	}
}

func TestLogLevels(t *testing.T) {
	tempDir := t.TempDir()

	if err := InitLoggerWithConsole(testLogConfig(tempDir, "info"), io.Discard); err != nil {
		t.Fatalf("初始化日志器失败: %v", err)
	}

	Info("信息日志测试")
	Infof("格式化信息日志: %s", "测试")
	Warnf("格式化警告日志: %d", 123)
	Debugf("调试日志-不应写入: %v", true)

	content, err := os.ReadFile(filepath.Join(tempDir, MainLogFile))
	if err != nil {
		t.Fatalf("读取日志文件失败: %v", err)
	}

	if !strings.Contains(string(content), "信息日志测试") {
		t.Error("主日志应包含info级别日志")
	}
	if strings.Contains(string(content), "调试日志-不应写入") {
		t.Error("info级别下不应写入debug日志")
	}
}

func TestErrorLogFiltered(t *testing.T) {
	tempDir := t.TempDir()

	if err := InitLoggerWithConsole(testLogConfig(tempDir, "info"), io.Discard); err != nil {
		t.Fatalf("初始化日志器失败: %v", err)
	}

	Info("普通日志")
	Error(errors.New("连接被拒绝"), "错误日志")

	content, err := os.ReadFile(filepath.Join(tempDir, ErrorLogFile))
	if err != nil {
		t.Fatalf("读取错误日志失败: %v", err)
	}
	if strings.Contains(string(content), "普通日志") {
		t.Error("错误日志文件不应包含info级别日志")
	}
	if !strings.Contains(string(content), "错误日志") {
		t.Error("错误日志文件应包含error级别日志")
	}
}

func TestConsoleOutput(t *testing.T) {
	var console bytes.Buffer

	if err := InitLoggerWithConsole(testLogConfig(t.TempDir(), "info"), &console); err != nil {
		t.Fatalf("初始化日志器失败: %v", err)
	}

	chineseMsg := "这是一条中文日志消息"
	Info(chineseMsg)

	if !strings.Contains(console.String(), chineseMsg) {
		t.Errorf("控制台输出应包含中文消息, 得到: %s", console.String())
	}
}

func TestDefaultLogConfig(t *testing.T) {
	config := DefaultLogConfig()

	if config.Level != "info" {
		t.Errorf("默认日志级别错误: 期望 'info', 得到 '%s'", config.Level)
	}
	if config.LogDir != "logs" {
		t.Errorf("默认日志目录错误: 期望 'logs', 得到 '%s'", config.LogDir)
	}
	if config.MaxSize != 10 || config.MaxBackups != 3 || config.MaxAge != 28 {
		t.Errorf("默认轮转参数错误: %+v", config)
	}
	if !config.Compress {
		t.Error("默认应该启用压缩")
	}
}
