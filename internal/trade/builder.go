package trade

import (
	"context"
	"fmt"

	"mt5-bridge/internal/terminal"
)

// RequestKind 标识原生请求的种类。
type RequestKind string

const (
	RequestMarket  RequestKind = "market"
	RequestPending RequestKind = "pending"
	RequestClose   RequestKind = "close"
	RequestModify  RequestKind = "modify"
)

// NativeRequest 是按订单种类区分的原生请求，只能由本包构造。
type NativeRequest interface {
	Kind() RequestKind
	sealed()
}

// MarketRequest 为市价单，价格取自发送前的最新报价。
type MarketRequest struct {
	Symbol     string
	Side       Side
	Volume     float64
	Price      float64
	StopLoss   *float64
	TakeProfit *float64
	Deviation  int
	Magic      int64
}

func (MarketRequest) Kind() RequestKind { return RequestMarket }
func (MarketRequest) sealed()           {}

// Wire 转为终端请求。
func (r MarketRequest) Wire() terminal.Request {
	return terminal.Request{
		Action:      terminal.ActionDeal,
		Symbol:      r.Symbol,
		Volume:      r.Volume,
		Type:        r.Side.orderType(),
		Price:       r.Price,
		StopLoss:    r.StopLoss,
		TakeProfit:  r.TakeProfit,
		Deviation:   r.Deviation,
		Magic:       r.Magic,
		TypeTime:    terminal.TimeGTC,
		TypeFilling: terminal.FillingReturn,
	}
}

// PendingRequest 为限价/止损挂单，价格由调用方给出。
type PendingRequest struct {
	Symbol      string
	PendingKind PendingKind
	Volume      float64
	Price       float64
	StopLoss    *float64
	TakeProfit  *float64
	Deviation   int
	Magic       int64
}

func (PendingRequest) Kind() RequestKind { return RequestPending }
func (PendingRequest) sealed()           {}

// Wire 转为终端请求。
func (r PendingRequest) Wire() terminal.Request {
	return terminal.Request{
		Action:      terminal.ActionPending,
		Symbol:      r.Symbol,
		Volume:      r.Volume,
		Type:        r.PendingKind.orderType(),
		Price:       r.Price,
		StopLoss:    r.StopLoss,
		TakeProfit:  r.TakeProfit,
		Deviation:   r.Deviation,
		Magic:       r.Magic,
		TypeTime:    terminal.TimeGTC,
		TypeFilling: terminal.FillingReturn,
	}
}

// CloseRequest 以反向市价单平掉指定持仓。
type CloseRequest struct {
	Symbol    string
	Position  int64
	Side      Side
	Volume    float64
	Price     float64
	Deviation int
	Magic     int64
}

func (CloseRequest) Kind() RequestKind { return RequestClose }
func (CloseRequest) sealed()           {}

// Wire 转为终端请求。
func (r CloseRequest) Wire() terminal.Request {
	return terminal.Request{
		Action:      terminal.ActionDeal,
		Symbol:      r.Symbol,
		Volume:      r.Volume,
		Type:        r.Side.orderType(),
		Price:       r.Price,
		Deviation:   r.Deviation,
		Magic:       r.Magic,
		Position:    r.Position,
		TypeTime:    terminal.TimeGTC,
		TypeFilling: terminal.FillingReturn,
	}
}

// ModifyRequest 修改挂单，所有字段都已确定。
type ModifyRequest struct {
	Ticket     int64
	Price      float64
	StopLoss   float64
	TakeProfit float64
	Expiration int64
}

func (ModifyRequest) Kind() RequestKind { return RequestModify }
func (ModifyRequest) sealed()           {}

// Wire 转为终端请求。
func (r ModifyRequest) Wire() terminal.ModifyRequest {
	return terminal.ModifyRequest{
		Ticket:     r.Ticket,
		Price:      r.Price,
		StopLoss:   r.StopLoss,
		TakeProfit: r.TakeProfit,
		Expiration: r.Expiration,
	}
}

type quoteSource interface {
	Tick(ctx context.Context, symbol string) (*terminal.Tick, error)
}

// Defaults 为意图未指定时使用的参数。
type Defaults struct {
	Deviation int
	Magic     int64
}

// DefaultDefaults 返回与终端习惯一致的默认值。
func DefaultDefaults() Defaults {
	return Defaults{Deviation: 10, Magic: 0}
}

// RequestBuilder 根据意图组装原生请求。
type RequestBuilder struct {
	quotes   quoteSource
	defaults Defaults
}

// NewRequestBuilder 创建请求构造器。
func NewRequestBuilder(quotes quoteSource, defaults Defaults) *RequestBuilder {
	return &RequestBuilder{quotes: quotes, defaults: defaults}
}

// Market 在构造时拉取最新报价：买入用 ask，卖出用 bid。
func (b *RequestBuilder) Market(ctx context.Context, intent TradeIntent, side Side) (MarketRequest, error) {
	tick, err := b.tick(ctx, intent.Symbol)
	if err != nil {
		return MarketRequest{}, err
	}

	price := tick.Bid
	if side == SideBuy {
		price = tick.Ask
	}
	if price <= 0 {
		return MarketRequest{}, fmt.Errorf("%w: %q has no %s price", ErrQuoteUnavailable, intent.Symbol, side)
	}

	return MarketRequest{
		Symbol:     intent.Symbol,
		Side:       side,
		Volume:     intent.Volume,
		Price:      price,
		StopLoss:   intent.StopLoss,
		TakeProfit: intent.TakeProfit,
		Deviation:  b.deviation(intent.Deviation),
		Magic:      b.magic(intent.Magic),
	}, nil
}

// Pending 原样使用调用方价格与止损止盈。
func (b *RequestBuilder) Pending(intent PendingTradeIntent, kind PendingKind) PendingRequest {
	return PendingRequest{
		Symbol:      intent.Symbol,
		PendingKind: kind,
		Volume:      intent.Volume,
		Price:       intent.Price,
		StopLoss:    intent.StopLoss,
		TakeProfit:  intent.TakeProfit,
		Deviation:   b.deviation(intent.Deviation),
		Magic:       b.magic(intent.Magic),
	}
}

// Close 复制持仓的手数与 magic，平多用 bid，平空用 ask。
func (b *RequestBuilder) Close(ctx context.Context, pos terminal.Position) (CloseRequest, error) {
	tick, err := b.tick(ctx, pos.Symbol)
	if err != nil {
		return CloseRequest{}, err
	}

	held := sideOfPosition(pos.Type)
	price := tick.Ask
	if held == SideBuy {
		price = tick.Bid
	}
	if price <= 0 {
		return CloseRequest{}, fmt.Errorf("%w: %q has no closing price", ErrQuoteUnavailable, pos.Symbol)
	}

	return CloseRequest{
		Symbol:    pos.Symbol,
		Position:  pos.Ticket,
		Side:      held.Opposite(),
		Volume:    pos.Volume,
		Price:     price,
		Deviation: b.defaults.Deviation,
		Magic:     pos.Magic,
	}, nil
}

// Modify 未指定的止损止盈沿用挂单现值，到期时间保持不变。
func (b *RequestBuilder) Modify(order terminal.Order, intent ModifyIntent) ModifyRequest {
	sl := order.StopLoss
	if intent.NewStopLoss != nil {
		sl = *intent.NewStopLoss
	}
	tp := order.TakeProfit
	if intent.NewTakeProfit != nil {
		tp = *intent.NewTakeProfit
	}
	return ModifyRequest{
		Ticket:     order.Ticket,
		Price:      intent.NewPrice,
		StopLoss:   sl,
		TakeProfit: tp,
		Expiration: order.TimeExpiration,
	}
}

func (b *RequestBuilder) tick(ctx context.Context, symbol string) (*terminal.Tick, error) {
	tick, err := b.quotes.Tick(ctx, symbol)
	if err != nil {
		return nil, gatewayError("symbol_info_tick", err)
	}
	if tick == nil {
		return nil, fmt.Errorf("%w: %q", ErrQuoteUnavailable, symbol)
	}
	return tick, nil
}

func (b *RequestBuilder) deviation(v *int) int {
	if v != nil {
		return *v
	}
	return b.defaults.Deviation
}

func (b *RequestBuilder) magic(v *int64) int64 {
	if v != nil {
		return *v
	}
	return b.defaults.Magic
}
