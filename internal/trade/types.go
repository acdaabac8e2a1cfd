package trade

import (
	"fmt"
	"strings"

	"mt5-bridge/internal/terminal"
)

// Side 表示下单方向。
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ParseSide 解析方向字符串，大小写不敏感。
func ParseSide(value string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(value))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSide, value)
}

// Opposite 返回反方向。
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

func (s Side) orderType() terminal.OrderType {
	if s == SideBuy {
		return terminal.OrderTypeBuy
	}
	return terminal.OrderTypeSell
}

func sideOfPosition(t terminal.OrderType) Side {
	if t == terminal.OrderTypeBuy {
		return SideBuy
	}
	return SideSell
}

// PendingKind 表示挂单类型。
type PendingKind string

const (
	PendingBuyLimit  PendingKind = "buy_limit"
	PendingSellLimit PendingKind = "sell_limit"
	PendingBuyStop   PendingKind = "buy_stop"
	PendingSellStop  PendingKind = "sell_stop"
)

func (k PendingKind) orderType() terminal.OrderType {
	switch k {
	case PendingBuyLimit:
		return terminal.OrderTypeBuyLimit
	case PendingSellLimit:
		return terminal.OrderTypeSellLimit
	case PendingBuyStop:
		return terminal.OrderTypeBuyStop
	default:
		return terminal.OrderTypeSellStop
	}
}

// Side 返回挂单对应的方向。
func (k PendingKind) Side() Side {
	if k == PendingBuyLimit || k == PendingBuyStop {
		return SideBuy
	}
	return SideSell
}

// TradeIntent 描述一笔市价交易意图。Deviation/Magic 为 nil 时使用服务默认值。
type TradeIntent struct {
	Symbol     string
	Side       Side
	Volume     float64
	StopLoss   *float64
	TakeProfit *float64
	Deviation  *int
	Magic      *int64
}

// PendingTradeIntent 为需要显式价格的挂单意图。
type PendingTradeIntent struct {
	TradeIntent
	Price float64
}

// ModifyIntent 描述挂单修改。NewStopLoss/NewTakeProfit 为 nil 表示保留原值。
type ModifyIntent struct {
	OrderID       int64
	NewPrice      float64
	NewStopLoss   *float64
	NewTakeProfit *float64
}

// CloseIntent 描述平仓。
type CloseIntent struct {
	Ticket int64
}

// Outcome 为一次交易的标准化结果。
type Outcome struct {
	ReturnCode     ReturnCode `json:"-"`
	Retcode        uint32     `json:"retcode"`
	RetcodeMeaning string     `json:"retcode_meaning"`
	Order          int64      `json:"order"`
	Price          float64    `json:"price"`
	Volume         float64    `json:"volume"`
	Comment        string     `json:"comment"`
}

// Succeeded 表示终端返回了 Done。
func (o Outcome) Succeeded() bool {
	return o.ReturnCode == Done
}

// ModifyOutcome 为改单结果。
type ModifyOutcome struct {
	Status string `json:"status"`
	Ticket int64  `json:"ticket"`
}

// CheckOutcome 为终端预检结果。
type CheckOutcome struct {
	Retcode        uint32  `json:"retcode"`
	RetcodeMeaning string  `json:"retcode_meaning"`
	Balance        float64 `json:"balance"`
	Equity         float64 `json:"equity"`
	Margin         float64 `json:"margin"`
	MarginFree     float64 `json:"margin_free"`
	MarginLevel    float64 `json:"margin_level"`
	Comment        string  `json:"comment"`
}
