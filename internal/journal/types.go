package journal

import (
	"time"

	"mt5-bridge/internal/trade"
)

// EntryType 表示流水记录类型。
type EntryType string

const (
	EntryTrade   EntryType = "trade"
	EntryCheck   EntryType = "check"
	EntryModify  EntryType = "modify"
	EntryFailure EntryType = "failure"
)

// Entry 为一条交易流水。
type Entry struct {
	ID        int64       `json:"id"`
	Type      EntryType   `json:"type"`
	Operation string      `json:"operation"`
	Symbol    string      `json:"symbol,omitempty"`
	Ticket    int64       `json:"ticket,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TradePayload 记录成交或被拒的终端结果。
type TradePayload struct {
	Volume  float64        `json:"volume"`
	Price   float64        `json:"price"`
	Outcome *trade.Outcome `json:"outcome,omitempty"`
}

// FailurePayload 记录未到达终端或被拒绝的操作。
type FailurePayload struct {
	Volume    float64        `json:"volume"`
	Price     float64        `json:"price"`
	ErrorCode string         `json:"error_code"`
	Kind      string         `json:"kind"`
	Error     string         `json:"error"`
	Outcome   *trade.Outcome `json:"outcome,omitempty"`
}

func entryType(rec trade.Record) EntryType {
	if rec.Err != nil {
		return EntryFailure
	}
	switch rec.Operation {
	case trade.OpCheck:
		return EntryCheck
	case trade.OpModify:
		return EntryModify
	}
	return EntryTrade
}
