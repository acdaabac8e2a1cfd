package terminal

import (
	"strconv"
	"time"
)

// TradeMode 为品种的交易权限，数值与终端保持一致。
type TradeMode int

const (
	TradeModeDisabled  TradeMode = 0
	TradeModeLongOnly  TradeMode = 1
	TradeModeShortOnly TradeMode = 2
	TradeModeCloseOnly TradeMode = 3
	TradeModeFull      TradeMode = 4
)

func (m TradeMode) String() string {
	switch m {
	case TradeModeDisabled:
		return "Disabled"
	case TradeModeLongOnly:
		return "Long Only"
	case TradeModeShortOnly:
		return "Short Only"
	case TradeModeCloseOnly:
		return "Close Only"
	case TradeModeFull:
		return "Full Access"
	}
	return "Unknown (" + strconv.Itoa(int(m)) + ")"
}

// Action 为交易请求的操作类型。
type Action int

const (
	ActionDeal    Action = 1
	ActionPending Action = 5
)

// OrderType 为终端的委托类型编号。
type OrderType int

const (
	OrderTypeBuy       OrderType = 0
	OrderTypeSell      OrderType = 1
	OrderTypeBuyLimit  OrderType = 2
	OrderTypeSellLimit OrderType = 3
	OrderTypeBuyStop   OrderType = 4
	OrderTypeSellStop  OrderType = 5
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeBuy:
		return "Buy"
	case OrderTypeSell:
		return "Sell"
	case OrderTypeBuyLimit:
		return "Buy Limit"
	case OrderTypeSellLimit:
		return "Sell Limit"
	case OrderTypeBuyStop:
		return "Buy Stop"
	case OrderTypeSellStop:
		return "Sell Stop"
	}
	return "Unknown (" + strconv.Itoa(int(t)) + ")"
}

// TimeInForce 为委托有效期类型。
type TimeInForce int

const (
	TimeGTC TimeInForce = 0
)

// Filling 为成交方式。
type Filling int

const (
	FillingReturn Filling = 2
)

// 终端返回码。
const (
	RetcodeCheckOK         uint32 = 0
	RetcodeRequote         uint32 = 10004
	RetcodeReject          uint32 = 10006
	RetcodeDone            uint32 = 10009
	RetcodeInvalid         uint32 = 10013
	RetcodeInvalidVolume   uint32 = 10014
	RetcodeTradeDisabled   uint32 = 10017
	RetcodeMarketClosed    uint32 = 10018
	RetcodeNoMoney         uint32 = 10019
	RetcodePriceChanged    uint32 = 10020
	RetcodeTooManyRequests uint32 = 10024
	RetcodeConnection      uint32 = 10031
)

// SymbolInfo 为品种元数据。成交量限制为 0 表示终端未提供。
type SymbolInfo struct {
	Name       string    `json:"name"`
	Visible    bool      `json:"visible"`
	TradeMode  TradeMode `json:"trade_mode"`
	Digits     int       `json:"digits"`
	VolumeMin  float64   `json:"volume_min"`
	VolumeMax  float64   `json:"volume_max"`
	VolumeStep float64   `json:"volume_step"`
}

// Tick 为最新报价。
type Tick struct {
	Time int64   `json:"time"`
	Bid  float64 `json:"bid"`
	Ask  float64 `json:"ask"`
	Last float64 `json:"last"`
}

// Position 为持仓。
type Position struct {
	Ticket     int64     `json:"ticket"`
	Symbol     string    `json:"symbol"`
	Type       OrderType `json:"type"`
	Volume     float64   `json:"volume"`
	PriceOpen  float64   `json:"price_open"`
	StopLoss   float64   `json:"sl"`
	TakeProfit float64   `json:"tp"`
	Profit     float64   `json:"profit"`
	Magic      int64     `json:"magic"`
	Comment    string    `json:"comment"`
	Time       int64     `json:"time"`
}

// Order 为挂单。
type Order struct {
	Ticket         int64       `json:"ticket"`
	Symbol         string      `json:"symbol"`
	Type           OrderType   `json:"type"`
	VolumeCurrent  float64     `json:"volume_current"`
	PriceOpen      float64     `json:"price_open"`
	StopLoss       float64     `json:"sl"`
	TakeProfit     float64     `json:"tp"`
	TypeTime       TimeInForce `json:"type_time"`
	TimeExpiration int64       `json:"time_expiration"`
	Magic          int64       `json:"magic"`
	Comment        string      `json:"comment"`
}

// Request 为提交给终端 order_send / order_check 的原生请求。
// StopLoss/TakeProfit 为 nil 时不下发。
type Request struct {
	Action      Action      `json:"action"`
	Symbol      string      `json:"symbol"`
	Volume      float64     `json:"volume"`
	Type        OrderType   `json:"type"`
	Price       float64     `json:"price"`
	StopLoss    *float64    `json:"sl,omitempty"`
	TakeProfit  *float64    `json:"tp,omitempty"`
	Deviation   int         `json:"deviation"`
	Magic       int64       `json:"magic"`
	Position    int64       `json:"position,omitempty"`
	TypeTime    TimeInForce `json:"type_time"`
	TypeFilling Filling     `json:"type_filling"`
	Comment     string      `json:"comment,omitempty"`
}

// Result 为 order_send 的返回。
type Result struct {
	Retcode   uint32  `json:"retcode"`
	Deal      int64   `json:"deal"`
	Order     int64   `json:"order"`
	Volume    float64 `json:"volume"`
	Price     float64 `json:"price"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Comment   string  `json:"comment"`
	RequestID int64   `json:"request_id"`
}

// CheckResult 为 order_check 的返回。
type CheckResult struct {
	Retcode     uint32  `json:"retcode"`
	Balance     float64 `json:"balance"`
	Equity      float64 `json:"equity"`
	Profit      float64 `json:"profit"`
	Margin      float64 `json:"margin"`
	MarginFree  float64 `json:"margin_free"`
	MarginLevel float64 `json:"margin_level"`
	Comment     string  `json:"comment"`
}

// ModifyRequest 为修改挂单的参数。
type ModifyRequest struct {
	Ticket     int64   `json:"ticket"`
	Price      float64 `json:"price"`
	StopLoss   float64 `json:"sl"`
	TakeProfit float64 `json:"tp"`
	Expiration int64   `json:"expiration"`
}

// Account 为账户信息。
type Account struct {
	Login       int64   `json:"login"`
	Name        string  `json:"name"`
	Server      string  `json:"server"`
	Currency    string  `json:"currency"`
	Leverage    int64   `json:"leverage"`
	Balance     float64 `json:"balance"`
	Equity      float64 `json:"equity"`
	Profit      float64 `json:"profit"`
	Margin      float64 `json:"margin"`
	MarginFree  float64 `json:"margin_free"`
	MarginLevel float64 `json:"margin_level"`
}

// Credentials 为终端登录凭证。
type Credentials struct {
	Login    int64  `json:"login"`
	Password string `json:"password"`
	Server   string `json:"server"`
	Path     string `json:"path,omitempty"`
}

// AccountOverview 聚合账户、持仓与挂单。
type AccountOverview struct {
	Account     Account    `json:"account"`
	Positions   []Position `json:"positions"`
	Orders      []Order    `json:"orders"`
	RetrievedAt time.Time  `json:"retrieved_at"`
}

// TerminalInfo 为终端运行环境信息。
type TerminalInfo struct {
	Build            int64  `json:"build"`
	Name             string `json:"name"`
	Company          string `json:"company"`
	Language         string `json:"language"`
	Path             string `json:"path"`
	DataPath         string `json:"data_path"`
	CommonDataPath   string `json:"commondata_path"`
	Connected        bool   `json:"connected"`
	TradeAllowed     bool   `json:"trade_allowed"`
	TradeAPIDisabled bool   `json:"tradeapi_disabled"`
	DLLsAllowed      bool   `json:"dlls_allowed"`
	Ping             int64  `json:"ping_last"`
	MaxBars          int64  `json:"maxbars"`
	CodePage         int64  `json:"codepage"`
}

// Filter 按品种或品种组筛选持仓与挂单，两者都为空表示不筛选。
// Group 使用终端的通配语法，例如 "*USD*" 或 "*,!EUR*"。
type Filter struct {
	Symbol string
	Group  string
}

// HistoryQuery 描述历史委托或成交的查询条件。
// Position 大于 0 时按持仓查询，忽略时间区间与品种组。
type HistoryQuery struct {
	From     time.Time
	To       time.Time
	Group    string
	Position int64
}

// HistoryOrder 为历史委托。
type HistoryOrder struct {
	Ticket         int64     `json:"ticket"`
	Symbol         string    `json:"symbol"`
	Type           OrderType `json:"type"`
	State          int       `json:"state"`
	TimeSetup      int64     `json:"time_setup"`
	TimeDone       int64     `json:"time_done"`
	VolumeInitial  float64   `json:"volume_initial"`
	VolumeCurrent  float64   `json:"volume_current"`
	PriceOpen      float64   `json:"price_open"`
	PriceCurrent   float64   `json:"price_current"`
	StopLoss       float64   `json:"sl"`
	TakeProfit     float64   `json:"tp"`
	PositionID     int64     `json:"position_id"`
	Magic          int64     `json:"magic"`
	Comment        string    `json:"comment"`
	TimeExpiration int64     `json:"time_expiration"`
}

// Deal 为历史成交。
type Deal struct {
	Ticket     int64   `json:"ticket"`
	Order      int64   `json:"order"`
	Symbol     string  `json:"symbol"`
	Type       int     `json:"type"`
	Entry      int     `json:"entry"`
	Time       int64   `json:"time"`
	Volume     float64 `json:"volume"`
	Price      float64 `json:"price"`
	Commission float64 `json:"commission"`
	Swap       float64 `json:"swap"`
	Profit     float64 `json:"profit"`
	Fee        float64 `json:"fee"`
	PositionID int64   `json:"position_id"`
	Magic      int64   `json:"magic"`
	Comment    string  `json:"comment"`
}

// PortfolioStats 为账户资金与持仓的汇总。
type PortfolioStats struct {
	Balance             float64 `json:"balance"`
	Equity              float64 `json:"equity"`
	Margin              float64 `json:"margin"`
	FreeMargin          float64 `json:"free_margin"`
	MarginLevel         float64 `json:"margin_level"`
	OpenPositionsCount  int     `json:"open_positions_count"`
	OpenPositionsProfit float64 `json:"open_positions_profit"`
	OpenPositionsVolume float64 `json:"open_positions_volume"`
}
