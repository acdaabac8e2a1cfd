package terminal

import (
	"context"
	"strconv"
	"time"
)

// HistoryOrdersTotal 返回区间内的历史委托数量。
func (c *Client) HistoryOrdersTotal(ctx context.Context, from, to time.Time) (int, error) {
	return c.historyTotal(ctx, "history_orders_total", "/history/orders/total", from, to)
}

// HistoryDealsTotal 返回区间内的历史成交数量。
func (c *Client) HistoryDealsTotal(ctx context.Context, from, to time.Time) (int, error) {
	return c.historyTotal(ctx, "history_deals_total", "/history/deals/total", from, to)
}

// HistoryOrders 按区间与品种组，或按持仓查询历史委托。
func (c *Client) HistoryOrders(ctx context.Context, q HistoryQuery) ([]HistoryOrder, error) {
	orders := make([]HistoryOrder, 0)
	if err := c.find(ctx, "history_orders_get", "/history/orders", q.values(), &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// HistoryDeals 按区间与品种组，或按持仓查询历史成交。
func (c *Client) HistoryDeals(ctx context.Context, q HistoryQuery) ([]Deal, error) {
	deals := make([]Deal, 0)
	if err := c.find(ctx, "history_deals_get", "/history/deals", q.values(), &deals); err != nil {
		return nil, err
	}
	return deals, nil
}

// HistoryOrder 按票号获取历史委托，不存在时返回 nil。
func (c *Client) HistoryOrder(ctx context.Context, ticket int64) (*HistoryOrder, error) {
	var order *HistoryOrder
	err := c.query(ctx, "history_orders_get", "/history/orders/{ticket}",
		map[string]string{"ticket": strconv.FormatInt(ticket, 10)}, &order)
	return order, err
}

// HistoryDeal 按票号获取历史成交，不存在时返回 nil。
func (c *Client) HistoryDeal(ctx context.Context, ticket int64) (*Deal, error) {
	var deal *Deal
	err := c.query(ctx, "history_deals_get", "/history/deals/{ticket}",
		map[string]string{"ticket": strconv.FormatInt(ticket, 10)}, &deal)
	return deal, err
}

func (c *Client) historyTotal(ctx context.Context, operation, path string, from, to time.Time) (int, error) {
	var resp struct {
		Total int `json:"total"`
	}
	values := map[string]string{
		"from": strconv.FormatInt(from.Unix(), 10),
		"to":   strconv.FormatInt(to.Unix(), 10),
	}
	if err := c.find(ctx, operation, path, values, &resp); err != nil {
		return 0, err
	}
	return resp.Total, nil
}

// 终端按秒级 Unix 时间比较区间。
func (q HistoryQuery) values() map[string]string {
	if q.Position > 0 {
		return map[string]string{"position": strconv.FormatInt(q.Position, 10)}
	}
	values := map[string]string{
		"from": strconv.FormatInt(q.From.Unix(), 10),
		"to":   strconv.FormatInt(q.To.Unix(), 10),
	}
	if q.Group != "" {
		values["group"] = q.Group
	}
	return values
}
