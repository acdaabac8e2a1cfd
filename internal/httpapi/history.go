package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"mt5-bridge/internal/terminal"
)

// 不带时区的时间按 UTC 解释。
var historyTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// OrdersTotalResponse 为区间内历史委托数量。
type OrdersTotalResponse struct {
	From       string `json:"from"`
	To         string `json:"to"`
	OrderCount int    `json:"order_count"`
}

// DealsTotalResponse 为区间内历史成交数量。
type DealsTotalResponse struct {
	From      string `json:"from"`
	To        string `json:"to"`
	DealCount int    `json:"deal_count"`
}

// HistoryOrdersResponse 为历史委托列表。按持仓查询时只带 position_id。
type HistoryOrdersResponse struct {
	From       string                  `json:"from,omitempty"`
	To         string                  `json:"to,omitempty"`
	Group      string                  `json:"group,omitempty"`
	PositionID int64                   `json:"position_id,omitempty"`
	OrderCount int                     `json:"order_count"`
	Orders     []terminal.HistoryOrder `json:"orders"`
}

// HistoryDealsResponse 为历史成交列表。
type HistoryDealsResponse struct {
	From       string          `json:"from,omitempty"`
	To         string          `json:"to,omitempty"`
	Group      string          `json:"group,omitempty"`
	PositionID int64           `json:"position_id,omitempty"`
	DealCount  int             `json:"deal_count"`
	Deals      []terminal.Deal `json:"deals"`
}

// HistoryOrderResponse 为按票号查询的历史委托。
type HistoryOrderResponse struct {
	Ticket int64                  `json:"ticket"`
	Order  *terminal.HistoryOrder `json:"order"`
}

// DealResponse 为按票号查询的历史成交。
type DealResponse struct {
	Ticket int64          `json:"ticket"`
	Deal   *terminal.Deal `json:"deal"`
}

type historyParams struct {
	From     string `form:"from"`
	To       string `form:"to"`
	Group    string `form:"group"`
	Position int64  `form:"position"`
}

func (h *handlers) historyOrdersTotal(c *gin.Context) {
	from, to, ok := historyRange(c)
	if !ok {
		return
	}
	total, err := h.history.HistoryOrdersTotal(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, readError("history_orders_total", err))
		return
	}
	c.JSON(http.StatusOK, OrdersTotalResponse{From: isoTime(from), To: isoTime(to), OrderCount: total})
}

func (h *handlers) historyDealsTotal(c *gin.Context) {
	from, to, ok := historyRange(c)
	if !ok {
		return
	}
	total, err := h.history.HistoryDealsTotal(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, readError("history_deals_total", err))
		return
	}
	c.JSON(http.StatusOK, DealsTotalResponse{From: isoTime(from), To: isoTime(to), DealCount: total})
}

// historyOrders 接受 from/to(+group) 或 position 两种查询。
func (h *handlers) historyOrders(c *gin.Context) {
	q, ok := historyQuery(c)
	if !ok {
		return
	}
	orders, err := h.history.HistoryOrders(c.Request.Context(), q)
	if err != nil {
		respondError(c, readError("history_orders_get", err))
		return
	}
	if orders == nil {
		orders = []terminal.HistoryOrder{}
	}

	resp := HistoryOrdersResponse{OrderCount: len(orders), Orders: orders}
	if q.Position > 0 {
		resp.PositionID = q.Position
	} else {
		resp.From, resp.To, resp.Group = isoTime(q.From), isoTime(q.To), q.Group
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) historyDeals(c *gin.Context) {
	q, ok := historyQuery(c)
	if !ok {
		return
	}
	deals, err := h.history.HistoryDeals(c.Request.Context(), q)
	if err != nil {
		respondError(c, readError("history_deals_get", err))
		return
	}
	if deals == nil {
		deals = []terminal.Deal{}
	}

	resp := HistoryDealsResponse{DealCount: len(deals), Deals: deals}
	if q.Position > 0 {
		resp.PositionID = q.Position
	} else {
		resp.From, resp.To, resp.Group = isoTime(q.From), isoTime(q.To), q.Group
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) historyOrder(c *gin.Context) {
	ticket, ok := ticketParam(c)
	if !ok {
		return
	}
	order, err := h.history.HistoryOrder(c.Request.Context(), ticket)
	if err != nil {
		respondError(c, readError("history_orders_get", err))
		return
	}
	if order == nil {
		respondNotFound(c, "HISTORY_ORDER_NOT_FOUND", fmt.Sprintf("history order %d not found", ticket))
		return
	}
	c.JSON(http.StatusOK, HistoryOrderResponse{Ticket: ticket, Order: order})
}

func (h *handlers) historyDeal(c *gin.Context) {
	ticket, ok := ticketParam(c)
	if !ok {
		return
	}
	deal, err := h.history.HistoryDeal(c.Request.Context(), ticket)
	if err != nil {
		respondError(c, readError("history_deals_get", err))
		return
	}
	if deal == nil {
		respondNotFound(c, "DEAL_NOT_FOUND", fmt.Sprintf("deal %d not found", ticket))
		return
	}
	c.JSON(http.StatusOK, DealResponse{Ticket: ticket, Deal: deal})
}

func historyQuery(c *gin.Context) (terminal.HistoryQuery, bool) {
	var params historyParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBadRequest(c, err)
		return terminal.HistoryQuery{}, false
	}
	if params.Position < 0 {
		respondBadRequest(c, fmt.Errorf("invalid position %d", params.Position))
		return terminal.HistoryQuery{}, false
	}
	if params.Position > 0 {
		return terminal.HistoryQuery{Position: params.Position}, true
	}

	from, to, ok := historyRange(c)
	if !ok {
		return terminal.HistoryQuery{}, false
	}
	return terminal.HistoryQuery{From: from, To: to, Group: strings.TrimSpace(params.Group)}, true
}

// historyRange 要求 from 与 to 都存在且 from 不晚于 to。
func historyRange(c *gin.Context) (time.Time, time.Time, bool) {
	from, err := parseHistoryTime("from", c.Query("from"))
	if err != nil {
		respondBadRequest(c, err)
		return time.Time{}, time.Time{}, false
	}
	to, err := parseHistoryTime("to", c.Query("to"))
	if err != nil {
		respondBadRequest(c, err)
		return time.Time{}, time.Time{}, false
	}
	if to.Before(from) {
		respondBadRequest(c, fmt.Errorf("to %s is before from %s", isoTime(to), isoTime(from)))
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func parseHistoryTime(name, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%s is required", name)
	}
	for _, layout := range historyTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%s %q is not an ISO datetime", name, value)
}

func isoTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05")
}
