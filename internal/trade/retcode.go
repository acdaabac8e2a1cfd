package trade

import "mt5-bridge/internal/terminal"

// ReturnCode 是终端返回码的封闭枚举，未识别的编号统一归为 Unknown。
type ReturnCode int

const (
	Unknown ReturnCode = iota
	Done
	Requote
	Rejected
	InvalidRequest
	InsufficientFunds
	InvalidVolume
	MarketClosed
	PriceChanged
	NoConnection
	ServerBusy
	TradingDisabled
)

// ReturnCodes 列出全部已知返回码（不含 Unknown）。
var ReturnCodes = []ReturnCode{
	Done,
	Requote,
	Rejected,
	InvalidRequest,
	InsufficientFunds,
	InvalidVolume,
	MarketClosed,
	PriceChanged,
	NoConnection,
	ServerBusy,
	TradingDisabled,
}

// ReturnCodeOf 将终端原始返回码映射到枚举。
func ReturnCodeOf(native uint32) ReturnCode {
	switch native {
	case terminal.RetcodeDone:
		return Done
	case terminal.RetcodeRequote:
		return Requote
	case terminal.RetcodeReject:
		return Rejected
	case terminal.RetcodeInvalid:
		return InvalidRequest
	case terminal.RetcodeNoMoney:
		return InsufficientFunds
	case terminal.RetcodeInvalidVolume:
		return InvalidVolume
	case terminal.RetcodeMarketClosed:
		return MarketClosed
	case terminal.RetcodePriceChanged:
		return PriceChanged
	case terminal.RetcodeConnection:
		return NoConnection
	case terminal.RetcodeTooManyRequests:
		return ServerBusy
	case terminal.RetcodeTradeDisabled:
		return TradingDisabled
	default:
		return Unknown
	}
}

// Native 返回枚举对应的终端返回码，Unknown 没有对应值。
func (c ReturnCode) Native() (uint32, bool) {
	switch c {
	case Done:
		return terminal.RetcodeDone, true
	case Requote:
		return terminal.RetcodeRequote, true
	case Rejected:
		return terminal.RetcodeReject, true
	case InvalidRequest:
		return terminal.RetcodeInvalid, true
	case InsufficientFunds:
		return terminal.RetcodeNoMoney, true
	case InvalidVolume:
		return terminal.RetcodeInvalidVolume, true
	case MarketClosed:
		return terminal.RetcodeMarketClosed, true
	case PriceChanged:
		return terminal.RetcodePriceChanged, true
	case NoConnection:
		return terminal.RetcodeConnection, true
	case ServerBusy:
		return terminal.RetcodeTooManyRequests, true
	case TradingDisabled:
		return terminal.RetcodeTradeDisabled, true
	}
	return 0, false
}

// Meaning 返回可读说明。
func (c ReturnCode) Meaning() string {
	switch c {
	case Done:
		return "Done"
	case Requote:
		return "Requote"
	case Rejected:
		return "Rejected"
	case InvalidRequest:
		return "Invalid request"
	case InsufficientFunds:
		return "Not enough funds"
	case InvalidVolume:
		return "Invalid volume"
	case MarketClosed:
		return "Market closed"
	case PriceChanged:
		return "Price changed"
	case NoConnection:
		return "No connection"
	case ServerBusy:
		return "Server busy"
	case TradingDisabled:
		return "Trading disabled"
	}
	return "Unknown error"
}

func (c ReturnCode) String() string {
	return c.Meaning()
}
