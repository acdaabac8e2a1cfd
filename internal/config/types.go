package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了网关运行所需的全部配置项。
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Terminal TerminalConfig `mapstructure:"terminal"`
	Trading  TradingConfig  `mapstructure:"trading"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// TerminalConfig 描述终端桥接进程的连接信息与登录凭证。
type TerminalConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Login       int64         `mapstructure:"login"`
	Password    string        `mapstructure:"password"`
	Server      string        `mapstructure:"server"`
	Path        string        `mapstructure:"path"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
	Retry       RetryConfig   `mapstructure:"retry"`
}

// RetryConfig 控制只读查询的重试。下单类调用不会重试。
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinDelay    time.Duration `mapstructure:"min_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// TradingConfig 提供交易请求的默认值。
type TradingConfig struct {
	DefaultDeviation int   `mapstructure:"default_deviation"`
	DefaultMagic     int64 `mapstructure:"default_magic"`
}

// ServerConfig 控制 HTTP 服务。
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig 管理数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string        `mapstructure:"level"`
	Encoding         string        `mapstructure:"encoding"`
	Development      bool          `mapstructure:"development"`
	OutputPaths      []string      `mapstructure:"output_paths"`
	ErrorOutputPaths []string      `mapstructure:"error_output_paths"`
	File             LogFileConfig `mapstructure:"file"`
}

// LogFileConfig 配置滚动日志文件，Path 为空时不落盘。
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.Terminal.BaseURL == "" {
		err = multierr.Append(err, errors.New("terminal.base_url 不能为空"))
	} else if u, parseErr := url.Parse(c.Terminal.BaseURL); parseErr != nil || u.Scheme == "" || u.Host == "" {
		err = multierr.Append(err, fmt.Errorf("terminal.base_url 无效: %q", c.Terminal.BaseURL))
	}
	if c.Terminal.Login < 0 {
		err = multierr.Append(err, errors.New("terminal.login 不能为负"))
	}
	if c.Terminal.Login > 0 && c.Terminal.Password == "" {
		err = multierr.Append(err, errors.New("配置了 terminal.login 时 terminal.password 不能为空"))
	}
	if c.Terminal.CallTimeout <= 0 {
		err = multierr.Append(err, errors.New("terminal.call_timeout 必须大于0"))
	}
	if c.Terminal.Retry.MaxAttempts <= 0 {
		err = multierr.Append(err, errors.New("terminal.retry.max_attempts 必须大于0"))
	}
	if c.Terminal.Retry.MinDelay <= 0 || c.Terminal.Retry.MaxDelay <= 0 {
		err = multierr.Append(err, errors.New("terminal.retry.delay 必须为正"))
	}
	if c.Terminal.Retry.MinDelay > c.Terminal.Retry.MaxDelay {
		err = multierr.Append(err, errors.New("terminal.retry.min_delay 不能大于 max_delay"))
	}
	if c.Trading.DefaultDeviation < 0 {
		err = multierr.Append(err, errors.New("trading.default_deviation 不能为负"))
	}
	if c.Trading.DefaultMagic < 0 {
		err = multierr.Append(err, errors.New("trading.default_magic 不能为负"))
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		err = multierr.Append(err, errors.New("server.addr 不能为空"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		err = multierr.Append(err, errors.New("server.shutdown_timeout 必须大于0"))
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		err = multierr.Append(err, errors.New("server 读写超时不能为负"))
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}
	if c.Logging.File.Path != "" && c.Logging.File.MaxSizeMB <= 0 {
		err = multierr.Append(err, errors.New("logging.file.max_size_mb 必须大于0"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
