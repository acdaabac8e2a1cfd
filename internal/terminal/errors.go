package terminal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrNotInitialized 表示桥接进程尚未登录终端。
	ErrNotInitialized = errors.New("terminal not initialized")
)

// StatusError 为桥接进程返回的非 2xx 响应。
type StatusError struct {
	Operation string
	Status    int
	Body      string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("terminal %s: http %d: %s", e.Operation, e.Status, e.Body)
}

// IsRetryable 判断错误是否可重试。
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status >= http.StatusInternalServerError || statusErr.Status == http.StatusTooManyRequests
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
