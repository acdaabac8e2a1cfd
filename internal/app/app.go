package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mt5-bridge/internal/config"
	"mt5-bridge/internal/httpapi"
	"mt5-bridge/internal/journal"
	"mt5-bridge/internal/store"
	"mt5-bridge/internal/terminal"
	"mt5-bridge/internal/trade"
)

// App 聚合核心依赖并驱动系统生命周期。
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
}

// New 创建 App 实例。
func New(cfg *config.Config, logger *zap.Logger, store *store.Store) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
	}
}

// Run 登录终端、启动 HTTP 接口，阻塞直到 ctx 结束后关闭终端连接。
func (a *App) Run(ctx context.Context) error {
	client, err := terminal.NewClient(a.cfg.Terminal, a.logger.Named("terminal"))
	if err != nil {
		return err
	}

	srv, err := a.buildServer(client)
	if err != nil {
		return err
	}

	a.initializeTerminal(ctx, client)
	defer a.shutdownTerminal(client)

	if err := srv.Run(ctx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("系统异常退出: %w", err)
	}
	a.logger.Info("系统收到退出信号，正在停止")
	return nil
}

func (a *App) buildServer(client *terminal.Client) (*httpapi.Server, error) {
	journalSvc, err := journal.NewService(a.store, a.logger.Named("journal"))
	if err != nil {
		return nil, err
	}
	metrics := httpapi.NewMetrics()

	trades := trade.NewService(client, trade.Defaults{
		Deviation: a.cfg.Trading.DefaultDeviation,
		Magic:     a.cfg.Trading.DefaultMagic,
	}, a.logger.Named("trade"), trade.MultiRecorder{journalSvc, metrics})

	return httpapi.NewServer(a.cfg.Server, httpapi.Deps{
		Trades:   trades,
		Terminal: client,
		Accounts: terminal.NewAccountService(client, a.logger.Named("account")),
		History:  client,
		Journal:  journalSvc,
		Metrics:  metrics,
	}, a.logger.Named("http"))
}

// initializeTerminal 未配置账号时沿用终端当前登录；登录失败不阻止启动，健康检查会反映断开状态。
func (a *App) initializeTerminal(ctx context.Context, client *terminal.Client) {
	if a.cfg.Terminal.Login <= 0 {
		a.logger.Info("未配置终端账号，沿用终端当前会话")
		return
	}
	err := client.Initialize(ctx, terminal.Credentials{
		Login:    a.cfg.Terminal.Login,
		Password: a.cfg.Terminal.Password,
		Server:   a.cfg.Terminal.Server,
		Path:     a.cfg.Terminal.Path,
	})
	if err != nil {
		a.logger.Error("终端登录失败", zap.Int64("login", a.cfg.Terminal.Login), zap.Error(err))
		return
	}
	a.logger.Info("终端已登录",
		zap.Int64("login", a.cfg.Terminal.Login),
		zap.String("server", a.cfg.Terminal.Server),
	)
}

func (a *App) shutdownTerminal(client *terminal.Client) {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := client.Shutdown(ctx); err != nil {
		a.logger.Warn("关闭终端连接失败", zap.Error(err))
		return
	}
	a.logger.Info("终端连接已关闭")
}
