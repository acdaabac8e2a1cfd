package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mt5-bridge/internal/config"
)

func TestNewLogger_RejectsUnknownLevel(t *testing.T) {
	if _, err := NewLogger(config.LoggingConfig{Level: "loud", Encoding: "console"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNewLogger_WritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.log")
	logger, err := NewLogger(config.LoggingConfig{
		Level:            "info",
		Encoding:         "json",
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		File:             config.LogFileConfig{Path: path, MaxSizeMB: 1},
	})
	if err != nil {
		t.Fatalf("NewLogger returned error: %v", err)
	}
	logger.Info("交易已执行")
	logger.Debug("不应写入")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取日志文件失败: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, "交易已执行") || !strings.Contains(text, `"service":"mt5-bridge"`) {
		t.Errorf("unexpected file content: %s", text)
	}
	if strings.Contains(text, "不应写入") {
		t.Errorf("debug entry should be filtered: %s", text)
	}
}
