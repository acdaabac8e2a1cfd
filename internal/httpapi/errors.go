package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"mt5-bridge/internal/terminal"
	"mt5-bridge/internal/trade"
)

// ErrorResponse 为统一错误响应体。
type ErrorResponse struct {
	ErrorCode      string  `json:"error_code"`
	Message        string  `json:"message"`
	Hint           string  `json:"hint,omitempty"`
	CorrelationID  string  `json:"correlation_id,omitempty"`
	Retcode        *uint32 `json:"retcode,omitempty"`
	RetcodeMeaning string  `json:"retcode_meaning,omitempty"`
}

const codeBadRequest = "INVALID_REQUEST"

var kindStatus = map[trade.Kind]int{
	trade.KindConnection: http.StatusServiceUnavailable,
	trade.KindValidation: http.StatusBadRequest,
	trade.KindNotFound:   http.StatusNotFound,
	trade.KindExecution:  http.StatusBadRequest,
}

var codeHints = map[string]string{
	"MT5_CONN_FAILED":     "Ensure MT5 is open and login is active.",
	"MT5_NO_RESPONSE":     "The terminal returned no result; check the terminal journal before resubmitting.",
	"QUOTE_UNAVAILABLE":   "The symbol has no live quote; the market may be closed.",
	"SYMBOL_NOT_TRADABLE": "The symbol trade mode does not allow opening positions.",
	"TRADE_REJECTED":      "The order was not retried; resubmit if still intended.",
}

func statusOf(err error) int {
	if errors.Is(err, terminal.ErrNotInitialized) {
		return http.StatusServiceUnavailable
	}
	if status, ok := kindStatus[trade.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	code := trade.Code(err)
	if errors.Is(err, terminal.ErrNotInitialized) {
		code = "MT5_NOT_INITIALIZED"
	}
	resp := ErrorResponse{
		ErrorCode:     code,
		Message:       err.Error(),
		Hint:          codeHints[code],
		CorrelationID: c.GetString(correlationIDKey),
	}

	var rej *trade.RejectedError
	if errors.As(err, &rej) {
		retcode := rej.Code
		resp.Retcode = &retcode
		resp.RetcodeMeaning = rej.Meaning
		if rej.Comment != "" {
			resp.Message = err.Error() + " (" + rej.Comment + ")"
		}
	}

	c.AbortWithStatusJSON(statusOf(err), resp)
}

func respondBadRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		ErrorCode:     codeBadRequest,
		Message:       err.Error(),
		CorrelationID: c.GetString(correlationIDKey),
	})
}

func respondNotFound(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{
		ErrorCode:     code,
		Message:       message,
		CorrelationID: c.GetString(correlationIDKey),
	})
}

// readError 将只读查询的终端故障归入连接错误，未初始化保持原样。
func readError(operation string, err error) error {
	if errors.Is(err, terminal.ErrNotInitialized) || trade.KindOf(err) != trade.KindUnknown {
		return err
	}
	return fmt.Errorf("%w: %s: %w", trade.ErrGatewayUnavailable, operation, err)
}
