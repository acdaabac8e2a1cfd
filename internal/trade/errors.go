package trade

import (
	"errors"
	"fmt"
)

var (
	// ErrGatewayUnavailable 表示终端连接不可用。
	ErrGatewayUnavailable = errors.New("terminal connection failed")
	// ErrNoGatewayResponse 表示终端没有返回任何结果。
	ErrNoGatewayResponse = errors.New("no response from terminal")
	// ErrQuoteUnavailable 表示取不到最新报价。
	ErrQuoteUnavailable = errors.New("no quote available")

	ErrSymbolNotFound     = errors.New("symbol not found")
	ErrSymbolUnselectable = errors.New("symbol could not be selected")
	ErrSymbolNotTradable  = errors.New("symbol is not tradable")
	ErrInvalidVolume      = errors.New("invalid volume")
	ErrInvalidPrice       = errors.New("invalid price")
	ErrInvalidSide        = errors.New("invalid side")

	ErrPositionNotFound = errors.New("position not found")
	ErrOrderNotFound    = errors.New("order not found")

	// ErrTradeRejected 匹配所有 *RejectedError。
	ErrTradeRejected = errors.New("trade rejected")
	ErrModifyFailed  = errors.New("failed to modify order")

	ErrUnsupportedRequest = errors.New("unsupported request")
)

// Kind 为错误分类，决定对外的状态码。
type Kind int

const (
	KindUnknown Kind = iota
	KindConnection
	KindValidation
	KindNotFound
	KindExecution
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindExecution:
		return "execution"
	}
	return "unknown"
}

var errorTable = []struct {
	err  error
	kind Kind
	code string
}{
	{ErrGatewayUnavailable, KindConnection, "MT5_CONN_FAILED"},
	{ErrNoGatewayResponse, KindConnection, "MT5_NO_RESPONSE"},
	{ErrQuoteUnavailable, KindConnection, "QUOTE_UNAVAILABLE"},
	{ErrSymbolNotFound, KindValidation, "SYMBOL_NOT_FOUND"},
	{ErrSymbolUnselectable, KindValidation, "SYMBOL_UNSELECTABLE"},
	{ErrSymbolNotTradable, KindValidation, "SYMBOL_NOT_TRADABLE"},
	{ErrInvalidVolume, KindValidation, "INVALID_VOLUME"},
	{ErrInvalidPrice, KindValidation, "INVALID_PRICE"},
	{ErrInvalidSide, KindValidation, "INVALID_SIDE"},
	{ErrPositionNotFound, KindNotFound, "POSITION_NOT_FOUND"},
	{ErrOrderNotFound, KindNotFound, "ORDER_NOT_FOUND"},
	{ErrTradeRejected, KindExecution, "TRADE_REJECTED"},
	{ErrModifyFailed, KindExecution, "MODIFY_FAILED"},
}

// KindOf 返回错误分类。
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, entry := range errorTable {
		if errors.Is(err, entry.err) {
			return entry.kind
		}
	}
	return KindUnknown
}

// Code 返回错误的机器可读编码。
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, entry := range errorTable {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return "INTERNAL"
}

// RejectedError 表示终端受理了请求但返回了非 Done 的返回码。
type RejectedError struct {
	Code    uint32
	Meaning string
	Comment string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("trade failed: %d - %s", e.Code, e.Meaning)
}

// Is 使 errors.Is(err, ErrTradeRejected) 成立。
func (e *RejectedError) Is(target error) bool {
	return target == ErrTradeRejected
}

func rejected(outcome Outcome) *RejectedError {
	return &RejectedError{
		Code:    outcome.Retcode,
		Meaning: outcome.RetcodeMeaning,
		Comment: outcome.Comment,
	}
}

func gatewayError(operation string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrGatewayUnavailable, operation, err)
}
