package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mt5-bridge/internal/config"
)

// Deps 为 HTTP 层依赖的服务。
type Deps struct {
	Trades   tradeService
	Terminal terminalReader
	Accounts accountSource
	History  historyReader
	Journal  journalReader
	Metrics  *Metrics
}

// Server 是对外的 HTTP 接口。
type Server struct {
	cfg     config.ServerConfig
	engine  *gin.Engine
	metrics *Metrics
	logger  *zap.Logger
}

// NewServer 创建 HTTP 服务并注册全部路由。
func NewServer(cfg config.ServerConfig, deps Deps, logger *zap.Logger) (*Server, error) {
	if deps.Trades == nil || deps.Terminal == nil || deps.Accounts == nil || deps.History == nil || deps.Journal == nil {
		return nil, fmt.Errorf("httpapi: 依赖不完整")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), correlationID(), deps.Metrics.middleware(), requestLogger(logger))

	s := &Server{
		cfg:     cfg,
		engine:  engine,
		metrics: deps.Metrics,
		logger:  logger,
	}
	s.routes(&handlers{
		trades:   deps.Trades,
		terminal: deps.Terminal,
		accounts: deps.Accounts,
		history:  deps.History,
		journal:  deps.Journal,
	})
	return s, nil
}

func (s *Server) routes(h *handlers) {
	r := s.engine

	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))

	tr := r.Group("/trade")
	tr.POST("/buy", h.market(h.trades.Buy))
	tr.POST("/sell", h.market(h.trades.Sell))
	tr.POST("/check", h.check)
	tr.POST("/buy-limit", h.pending(h.trades.BuyLimit))
	tr.POST("/sell-limit", h.pending(h.trades.SellLimit))
	tr.POST("/buy-stop", h.pending(h.trades.BuyStop))
	tr.POST("/sell-stop", h.pending(h.trades.SellStop))
	tr.POST("/close", h.closePosition)
	tr.POST("/modify", h.modifyOrder)

	r.GET("/terminal", h.terminalInfo)
	r.GET("/account", h.account)
	r.GET("/account/overview", h.accountOverview)
	r.GET("/account/portfolio/stats", h.portfolioStats)
	r.GET("/positions", h.positions)
	r.GET("/positions/:ticket", h.position)
	r.GET("/orders", h.orders)
	r.GET("/orders/:ticket", h.order)
	r.GET("/symbols", h.symbols)
	r.GET("/symbols/:symbol", h.symbol)
	r.POST("/symbols/:symbol/select", h.selectSymbol)
	r.GET("/ticks/:symbol", h.tick)
	r.GET("/journal", h.journalEntries)

	hist := r.Group("/history")
	hist.GET("/orders", h.historyOrders)
	hist.GET("/orders/total", h.historyOrdersTotal)
	hist.GET("/orders/:ticket", h.historyOrder)
	hist.GET("/deals", h.historyDeals)
	hist.GET("/deals/total", h.historyDealsTotal)
	hist.GET("/deals/:ticket", h.historyDeal)
}

// Handler 返回 http.Handler，便于测试。
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run 监听端口直到 ctx 结束，然后在超时内优雅关闭。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP 接口已启动", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("HTTP 服务异常: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("关闭 HTTP 服务失败: %w", err)
	}
	s.logger.Info("HTTP 接口已关闭")
	return nil
}
