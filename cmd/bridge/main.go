package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"mt5-bridge/internal/app"
	"mt5-bridge/internal/config"
	"mt5-bridge/internal/log"
	"mt5-bridge/internal/store"
)

func main() {
	os.Exit(run())
}

// run 返回进程退出码，保证 defer 中的日志刷新与数据库关闭在退出前执行。
func run() int {
	var (
		configPath string
		listenAddr string
		checkOnly  bool
	)
	flag.StringVar(&configPath, "config", "", "配置文件路径，默认使用 configs/config.yaml")
	flag.StringVar(&listenAddr, "addr", "", "覆盖 server.addr 的监听地址")
	flag.BoolVar(&checkOnly, "check", false, "只校验配置并打印摘要")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		return 1
	}
	if addr := strings.TrimSpace(listenAddr); addr != "" {
		cfg.Server.Addr = addr
	}

	if checkOnly {
		fmt.Fprintf(os.Stdout, "配置有效: environment=%s bridge=%s addr=%s database=%s\n",
			cfg.App.Environment, cfg.Terminal.BaseURL, cfg.Server.Addr, databaseLabel(cfg.Database))
		return 0
	}

	logger, err := log.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("MT5 网关启动",
		zap.String("config", configLabel(configPath)),
		zap.String("environment", cfg.App.Environment),
		zap.String("bridge_url", cfg.Terminal.BaseURL),
		zap.String("listen_addr", cfg.Server.Addr),
		zap.String("database", databaseLabel(cfg.Database)),
		zap.Int64("login", cfg.Terminal.Login),
		zap.Duration("call_timeout", cfg.Terminal.CallTimeout),
	)

	sqliteStore, err := store.NewSQLite(cfg.Database)
	if err != nil {
		logger.Error("初始化数据库失败", zap.Error(err))
		return 1
	}
	defer func() {
		if closeErr := sqliteStore.Close(); closeErr != nil {
			logger.Warn("关闭数据库失败", zap.Error(closeErr))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.New(cfg, logger, sqliteStore).Run(ctx); err != nil {
		logger.Error("网关运行异常", zap.Error(err))
		return 1
	}

	logger.Info("网关已安全退出")
	return 0
}

func configLabel(path string) string {
	if path == "" {
		return "configs/config.yaml"
	}
	return path
}

func databaseLabel(cfg config.DatabaseConfig) string {
	if cfg.InMemory {
		return ":memory:"
	}
	return cfg.Path
}
