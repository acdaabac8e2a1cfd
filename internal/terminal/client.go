package terminal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"mt5-bridge/internal/config"
)

// Client 通过 HTTP 与终端旁的桥接进程交互。
// 只读查询按配置重试，下单、检查与改单只发送一次。
type Client struct {
	cfg    config.TerminalConfig
	logger *zap.Logger
	http   *resty.Client
}

// NewClient 创建桥接客户端。
func NewClient(cfg config.TerminalConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("terminal: base_url 不能为空")
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetTimeout(cfg.CallTimeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "mt5-bridge")

	return &Client{
		cfg:    cfg,
		logger: logger,
		http:   httpClient,
	}, nil
}

// Initialize 使用凭证登录终端。
func (c *Client) Initialize(ctx context.Context, creds Credentials) error {
	var resp struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if _, err := c.send(ctx, "initialize", http.MethodPost, "/initialize", nil, creds, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("%w: %s", ErrNotInitialized, resp.Error)
	}
	c.logger.Info("终端已初始化", zap.Int64("login", creds.Login), zap.String("server", creds.Server))
	return nil
}

// Shutdown 断开终端连接。
func (c *Client) Shutdown(ctx context.Context) error {
	_, err := c.send(ctx, "shutdown", http.MethodPost, "/shutdown", nil, nil, nil)
	return err
}

// Alive 检查终端连接，任何错误都视为不可用。
func (c *Client) Alive(ctx context.Context) bool {
	var resp struct {
		Alive bool `json:"alive"`
	}
	found, err := c.send(ctx, "ping", http.MethodGet, "/ping", nil, nil, &resp)
	if err != nil {
		c.logger.Debug("终端探活失败", zap.Error(err))
		return false
	}
	return found && resp.Alive
}

// SymbolInfo 获取品种元数据，不存在时返回 nil。
func (c *Client) SymbolInfo(ctx context.Context, symbol string) (*SymbolInfo, error) {
	var info *SymbolInfo
	err := c.query(ctx, "symbol_info", "/symbols/{symbol}", map[string]string{"symbol": symbol}, &info)
	return info, err
}

// SelectSymbol 将品种加入市场报价窗口。
func (c *Client) SelectSymbol(ctx context.Context, symbol string) (bool, error) {
	var resp struct {
		OK bool `json:"ok"`
	}
	found, err := c.send(ctx, "symbol_select", http.MethodPost, "/symbols/{symbol}/select",
		map[string]string{"symbol": symbol}, map[string]bool{"enable": true}, &resp)
	if err != nil {
		return false, err
	}
	return found && resp.OK, nil
}

// Tick 获取最新报价，无报价时返回 nil。
func (c *Client) Tick(ctx context.Context, symbol string) (*Tick, error) {
	var tick *Tick
	err := c.query(ctx, "symbol_info_tick", "/ticks/{symbol}", map[string]string{"symbol": symbol}, &tick)
	return tick, err
}

// Position 按票号获取持仓，不存在时返回 nil。
func (c *Client) Position(ctx context.Context, ticket int64) (*Position, error) {
	var pos *Position
	err := c.query(ctx, "positions_get", "/positions/{ticket}",
		map[string]string{"ticket": strconv.FormatInt(ticket, 10)}, &pos)
	return pos, err
}

// PendingOrder 按票号获取挂单，不存在时返回 nil。
func (c *Client) PendingOrder(ctx context.Context, id int64) (*Order, error) {
	var order *Order
	err := c.query(ctx, "orders_get", "/orders/{ticket}",
		map[string]string{"ticket": strconv.FormatInt(id, 10)}, &order)
	return order, err
}

// Positions 返回全部持仓。
func (c *Client) Positions(ctx context.Context) ([]Position, error) {
	return c.FindPositions(ctx, Filter{})
}

// FindPositions 按品种或品种组返回持仓，Symbol 优先。
func (c *Client) FindPositions(ctx context.Context, filter Filter) ([]Position, error) {
	positions := make([]Position, 0)
	if err := c.find(ctx, "positions_get", "/positions", filter.values(), &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

// Orders 返回全部挂单。
func (c *Client) Orders(ctx context.Context) ([]Order, error) {
	return c.FindOrders(ctx, Filter{})
}

// FindOrders 按品种或品种组返回挂单，Symbol 优先。
func (c *Client) FindOrders(ctx context.Context, filter Filter) ([]Order, error) {
	orders := make([]Order, 0)
	if err := c.find(ctx, "orders_get", "/orders", filter.values(), &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Symbols 返回终端全部品种，group 非空时按品种组筛选。
func (c *Client) Symbols(ctx context.Context, group string) ([]SymbolInfo, error) {
	var values map[string]string
	if group != "" {
		values = map[string]string{"group": group}
	}
	symbols := make([]SymbolInfo, 0)
	if err := c.find(ctx, "symbols_get", "/symbols", values, &symbols); err != nil {
		return nil, err
	}
	return symbols, nil
}

// TerminalInfo 返回终端运行环境信息。
func (c *Client) TerminalInfo(ctx context.Context) (*TerminalInfo, error) {
	var info *TerminalInfo
	if err := c.query(ctx, "terminal_info", "/terminal", nil, &info); err != nil {
		return nil, err
	}
	if info == nil {
		return nil, ErrNotInitialized
	}
	return info, nil
}

// Account 返回账户信息。
func (c *Client) Account(ctx context.Context) (*Account, error) {
	var account *Account
	if err := c.query(ctx, "account_info", "/account", nil, &account); err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrNotInitialized
	}
	return account, nil
}

// Submit 发送交易请求。终端没有返回结果时返回 nil。
func (c *Client) Submit(ctx context.Context, req Request) (*Result, error) {
	var result *Result
	if _, err := c.send(ctx, "order_send", http.MethodPost, "/orders/send", nil, req, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Check 让终端校验请求但不执行。
func (c *Client) Check(ctx context.Context, req Request) (*CheckResult, error) {
	var result *CheckResult
	if _, err := c.send(ctx, "order_check", http.MethodPost, "/orders/check", nil, req, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Modify 修改挂单价格与止损止盈。
func (c *Client) Modify(ctx context.Context, req ModifyRequest) (bool, error) {
	var resp struct {
		OK bool `json:"ok"`
	}
	found, err := c.send(ctx, "order_modify", http.MethodPost, "/orders/{ticket}/modify",
		map[string]string{"ticket": strconv.FormatInt(req.Ticket, 10)}, req, &resp)
	if err != nil {
		return false, err
	}
	return found && resp.OK, nil
}

func (f Filter) values() map[string]string {
	switch {
	case f.Symbol != "":
		return map[string]string{"symbol": f.Symbol}
	case f.Group != "":
		return map[string]string{"group": f.Group}
	}
	return nil
}

// query 执行带重试的只读 GET，404 时保持 out 为零值。
func (c *Client) query(ctx context.Context, operation, path string, params map[string]string, out interface{}) error {
	return c.callWithRetry(ctx, operation, func() error {
		_, err := c.do(ctx, operation, http.MethodGet, path, params, nil, nil, out)
		return err
	})
}

// find 与 query 相同，但条件放在查询串里。
func (c *Client) find(ctx context.Context, operation, path string, values map[string]string, out interface{}) error {
	return c.callWithRetry(ctx, operation, func() error {
		_, err := c.do(ctx, operation, http.MethodGet, path, nil, values, nil, out)
		return err
	})
}

// send 发送单次请求。返回 false 表示桥接进程回复 404。
func (c *Client) send(ctx context.Context, operation, method, path string, params map[string]string, body, out interface{}) (bool, error) {
	return c.do(ctx, operation, method, path, params, nil, body, out)
}

func (c *Client) do(ctx context.Context, operation, method, path string, params, values map[string]string, body, out interface{}) (bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	req := c.http.R().SetContext(callCtx)
	if len(params) > 0 {
		req.SetPathParams(params)
	}
	if len(values) > 0 {
		req.SetQueryParams(values)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return false, fmt.Errorf("terminal %s: %w", operation, err)
	}

	if resp.StatusCode() == http.StatusNotFound {
		return false, nil
	}
	if resp.IsError() {
		return false, &StatusError{
			Operation: operation,
			Status:    resp.StatusCode(),
			Body:      strings.TrimSpace(string(resp.Body())),
		}
	}

	if out == nil || len(resp.Body()) == 0 {
		return true, nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return true, fmt.Errorf("terminal %s: 解析响应失败: %w", operation, err)
	}
	return true, nil
}

func (c *Client) callWithRetry(ctx context.Context, operation string, fn func() error) error {
	attempt := 0
	maxAttempts := c.cfg.Retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	delay := c.cfg.Retry.MinDelay
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}
	maxDelay := c.cfg.Retry.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 2 * time.Second
	}

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		attempt++
		start := time.Now()
		err := fn()
		duration := time.Since(start)
		if err == nil {
			if attempt > 1 {
				c.logger.Info("终端调用重试后成功",
					zap.String("operation", operation),
					zap.Int("attempts", attempt),
					zap.Duration("latency", duration),
				)
			}
			return nil
		}

		if !IsRetryable(err) || attempt >= maxAttempts {
			c.logger.Error("终端调用失败",
				zap.String("operation", operation),
				zap.Int("attempts", attempt),
				zap.Duration("latency", duration),
				zap.Error(err),
			)
			return err
		}

		wait := delay
		if wait > maxDelay {
			wait = maxDelay
		}

		c.logger.Warn("终端调用失败，等待重试",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}
