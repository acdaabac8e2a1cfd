package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"mt5-bridge/internal/journal"
	"mt5-bridge/internal/terminal"
	"mt5-bridge/internal/trade"
)

type tradeService interface {
	Buy(ctx context.Context, intent trade.TradeIntent) (trade.Outcome, error)
	Sell(ctx context.Context, intent trade.TradeIntent) (trade.Outcome, error)
	BuyLimit(ctx context.Context, intent trade.PendingTradeIntent) (trade.Outcome, error)
	SellLimit(ctx context.Context, intent trade.PendingTradeIntent) (trade.Outcome, error)
	BuyStop(ctx context.Context, intent trade.PendingTradeIntent) (trade.Outcome, error)
	SellStop(ctx context.Context, intent trade.PendingTradeIntent) (trade.Outcome, error)
	ClosePosition(ctx context.Context, intent trade.CloseIntent) (trade.Outcome, error)
	ModifyOrder(ctx context.Context, intent trade.ModifyIntent) (trade.ModifyOutcome, error)
	Check(ctx context.Context, intent trade.TradeIntent) (trade.CheckOutcome, error)
}

type terminalReader interface {
	Alive(ctx context.Context) bool
	TerminalInfo(ctx context.Context) (*terminal.TerminalInfo, error)
	Account(ctx context.Context) (*terminal.Account, error)
	FindPositions(ctx context.Context, filter terminal.Filter) ([]terminal.Position, error)
	FindOrders(ctx context.Context, filter terminal.Filter) ([]terminal.Order, error)
	Position(ctx context.Context, ticket int64) (*terminal.Position, error)
	PendingOrder(ctx context.Context, id int64) (*terminal.Order, error)
	Symbols(ctx context.Context, group string) ([]terminal.SymbolInfo, error)
	SymbolInfo(ctx context.Context, symbol string) (*terminal.SymbolInfo, error)
	SelectSymbol(ctx context.Context, symbol string) (bool, error)
	Tick(ctx context.Context, symbol string) (*terminal.Tick, error)
}

type accountSource interface {
	Overview(ctx context.Context) (terminal.AccountOverview, error)
	PortfolioStats(ctx context.Context) (terminal.PortfolioStats, error)
}

type historyReader interface {
	HistoryOrdersTotal(ctx context.Context, from, to time.Time) (int, error)
	HistoryDealsTotal(ctx context.Context, from, to time.Time) (int, error)
	HistoryOrders(ctx context.Context, q terminal.HistoryQuery) ([]terminal.HistoryOrder, error)
	HistoryDeals(ctx context.Context, q terminal.HistoryQuery) ([]terminal.Deal, error)
	HistoryOrder(ctx context.Context, ticket int64) (*terminal.HistoryOrder, error)
	HistoryDeal(ctx context.Context, ticket int64) (*terminal.Deal, error)
}

type journalReader interface {
	List(ctx context.Context, entryType journal.EntryType, limit int) ([]journal.Entry, error)
}

// tradeRequest 对应市价单请求体；check 额外需要 side。
type tradeRequest struct {
	Symbol     string   `json:"symbol" binding:"required"`
	Side       string   `json:"side"`
	Volume     float64  `json:"volume"`
	StopLoss   *float64 `json:"sl"`
	TakeProfit *float64 `json:"tp"`
	Deviation  *int     `json:"deviation"`
	Magic      *int64   `json:"magic"`
}

func (r tradeRequest) intent() trade.TradeIntent {
	return trade.TradeIntent{
		Symbol:     strings.TrimSpace(r.Symbol),
		Volume:     r.Volume,
		StopLoss:   r.StopLoss,
		TakeProfit: r.TakeProfit,
		Deviation:  r.Deviation,
		Magic:      r.Magic,
	}
}

type pendingRequest struct {
	tradeRequest
	Price float64 `json:"price"`
}

type closeRequest struct {
	Ticket int64 `json:"ticket" binding:"required"`
}

type modifyRequest struct {
	OrderID       int64    `json:"order_id" binding:"required"`
	NewPrice      float64  `json:"new_price"`
	NewStopLoss   *float64 `json:"new_sl"`
	NewTakeProfit *float64 `json:"new_tp"`
}

// HealthResponse 为健康检查响应。
type HealthResponse struct {
	App     string    `json:"app"`
	MT5     string    `json:"mt5"`
	TimeUTC time.Time `json:"time_utc"`
}

// PositionResponse 为按票号查询持仓的响应。
type PositionResponse struct {
	Ticket   int64              `json:"ticket"`
	Position *terminal.Position `json:"position"`
}

// OrderResponse 为按票号查询挂单的响应。
type OrderResponse struct {
	Ticket int64           `json:"ticket"`
	Order  *terminal.Order `json:"order"`
}

// SymbolListResponse 只列出品种名。
type SymbolListResponse struct {
	SymbolCount int      `json:"symbol_count"`
	Symbols     []string `json:"symbols"`
}

// SelectSymbolResponse 为选入品种的响应。
type SelectSymbolResponse struct {
	Message string `json:"message"`
}

type handlers struct {
	trades   tradeService
	terminal terminalReader
	accounts accountSource
	history  historyReader
	journal  journalReader
}

func (h *handlers) market(call func(context.Context, trade.TradeIntent) (trade.Outcome, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req tradeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}
		outcome, err := call(c.Request.Context(), req.intent())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, outcome)
	}
}

func (h *handlers) pending(call func(context.Context, trade.PendingTradeIntent) (trade.Outcome, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req pendingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}
		outcome, err := call(c.Request.Context(), trade.PendingTradeIntent{
			TradeIntent: req.intent(),
			Price:       req.Price,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, outcome)
	}
}

func (h *handlers) check(c *gin.Context) {
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	// 方向由服务在探活之后解析
	intent := req.intent()
	intent.Side = trade.Side(req.Side)

	outcome, err := h.trades.Check(c.Request.Context(), intent)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (h *handlers) closePosition(c *gin.Context) {
	var req closeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	outcome, err := h.trades.ClosePosition(c.Request.Context(), trade.CloseIntent{Ticket: req.Ticket})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (h *handlers) modifyOrder(c *gin.Context) {
	var req modifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	outcome, err := h.trades.ModifyOrder(c.Request.Context(), trade.ModifyIntent{
		OrderID:       req.OrderID,
		NewPrice:      req.NewPrice,
		NewStopLoss:   req.NewStopLoss,
		NewTakeProfit: req.NewTakeProfit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (h *handlers) health(c *gin.Context) {
	status := "disconnected"
	if h.terminal.Alive(c.Request.Context()) {
		status = "connected"
	}
	c.JSON(http.StatusOK, HealthResponse{App: "ok", MT5: status, TimeUTC: time.Now().UTC()})
}

func (h *handlers) account(c *gin.Context) {
	account, err := h.terminal.Account(c.Request.Context())
	if err != nil {
		respondError(c, readError("account_info", err))
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *handlers) accountOverview(c *gin.Context) {
	overview, err := h.accounts.Overview(c.Request.Context())
	if err != nil {
		respondError(c, readError("account_overview", err))
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (h *handlers) portfolioStats(c *gin.Context) {
	stats, err := h.accounts.PortfolioStats(c.Request.Context())
	if err != nil {
		respondError(c, readError("portfolio_stats", err))
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *handlers) terminalInfo(c *gin.Context) {
	info, err := h.terminal.TerminalInfo(c.Request.Context())
	if err != nil {
		respondError(c, readError("terminal_info", err))
		return
	}
	c.JSON(http.StatusOK, info)
}

// positions 支持 ?symbol= 或 ?group= 筛选，同时给出时 symbol 优先。
func (h *handlers) positions(c *gin.Context) {
	positions, err := h.terminal.FindPositions(c.Request.Context(), filterOf(c))
	if err != nil {
		respondError(c, readError("positions_get", err))
		return
	}
	if positions == nil {
		positions = []terminal.Position{}
	}
	c.JSON(http.StatusOK, positions)
}

func (h *handlers) position(c *gin.Context) {
	ticket, ok := ticketParam(c)
	if !ok {
		return
	}
	pos, err := h.terminal.Position(c.Request.Context(), ticket)
	if err != nil {
		respondError(c, readError("positions_get", err))
		return
	}
	if pos == nil {
		respondNotFound(c, "POSITION_NOT_FOUND", fmt.Sprintf("position %d not found", ticket))
		return
	}
	c.JSON(http.StatusOK, PositionResponse{Ticket: ticket, Position: pos})
}

func (h *handlers) orders(c *gin.Context) {
	orders, err := h.terminal.FindOrders(c.Request.Context(), filterOf(c))
	if err != nil {
		respondError(c, readError("orders_get", err))
		return
	}
	if orders == nil {
		orders = []terminal.Order{}
	}
	c.JSON(http.StatusOK, orders)
}

func (h *handlers) order(c *gin.Context) {
	ticket, ok := ticketParam(c)
	if !ok {
		return
	}
	order, err := h.terminal.PendingOrder(c.Request.Context(), ticket)
	if err != nil {
		respondError(c, readError("orders_get", err))
		return
	}
	if order == nil {
		respondNotFound(c, "ORDER_NOT_FOUND", fmt.Sprintf("order %d not found", ticket))
		return
	}
	c.JSON(http.StatusOK, OrderResponse{Ticket: ticket, Order: order})
}

func (h *handlers) symbols(c *gin.Context) {
	symbols, err := h.terminal.Symbols(c.Request.Context(), strings.TrimSpace(c.Query("group")))
	if err != nil {
		respondError(c, readError("symbols_get", err))
		return
	}
	names := make([]string, 0, len(symbols))
	for _, info := range symbols {
		names = append(names, info.Name)
	}
	c.JSON(http.StatusOK, SymbolListResponse{SymbolCount: len(names), Symbols: names})
}

func (h *handlers) selectSymbol(c *gin.Context) {
	name := c.Param("symbol")
	ok, err := h.terminal.SelectSymbol(c.Request.Context(), name)
	if err != nil {
		respondError(c, readError("symbol_select", err))
		return
	}
	if !ok {
		respondError(c, fmt.Errorf("%w: %q", trade.ErrSymbolUnselectable, name))
		return
	}
	c.JSON(http.StatusOK, SelectSymbolResponse{Message: fmt.Sprintf("Symbol %s selected", name)})
}

func (h *handlers) symbol(c *gin.Context) {
	name := c.Param("symbol")
	info, err := h.terminal.SymbolInfo(c.Request.Context(), name)
	if err != nil {
		respondError(c, readError("symbol_info", err))
		return
	}
	if info == nil {
		respondNotFound(c, "SYMBOL_NOT_FOUND", fmt.Sprintf("symbol %q not found", name))
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *handlers) tick(c *gin.Context) {
	name := c.Param("symbol")
	tick, err := h.terminal.Tick(c.Request.Context(), name)
	if err != nil {
		respondError(c, readError("symbol_info_tick", err))
		return
	}
	if tick == nil {
		respondNotFound(c, "TICK_NOT_FOUND", fmt.Sprintf("symbol %q or tick not found", name))
		return
	}
	c.JSON(http.StatusOK, tick)
}

func (h *handlers) journalEntries(c *gin.Context) {
	limit := 200
	if qs := c.Query("limit"); qs != "" {
		if v, err := strconv.Atoi(qs); err == nil && v > 0 {
			limit = v
		}
	}
	entryType := journal.EntryType(strings.ToLower(strings.TrimSpace(c.Query("type"))))

	entries, err := h.journal.List(c.Request.Context(), entryType, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func filterOf(c *gin.Context) terminal.Filter {
	return terminal.Filter{
		Symbol: strings.TrimSpace(c.Query("symbol")),
		Group:  strings.TrimSpace(c.Query("group")),
	}
}

func ticketParam(c *gin.Context) (int64, bool) {
	raw := c.Param("ticket")
	ticket, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ticket <= 0 {
		respondBadRequest(c, fmt.Errorf("invalid ticket %q", raw))
		return 0, false
	}
	return ticket, true
}
