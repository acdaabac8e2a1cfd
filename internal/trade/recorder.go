package trade

import "context"

// Operation 为对外暴露的交易操作名。
type Operation string

const (
	OpBuy       Operation = "buy"
	OpSell      Operation = "sell"
	OpBuyLimit  Operation = "buy_limit"
	OpSellLimit Operation = "sell_limit"
	OpBuyStop   Operation = "buy_stop"
	OpSellStop  Operation = "sell_stop"
	OpClose     Operation = "close_position"
	OpModify    Operation = "modify_order"
	OpCheck     Operation = "check"
)

// Record 描述一次已完成的操作，Err 为 nil 表示成功。
type Record struct {
	Operation Operation
	Symbol    string
	Ticket    int64
	Volume    float64
	Price     float64
	Outcome   *Outcome
	Err       error
}

// Recorder 接收每次操作的结果，用于审计与统计。
type Recorder interface {
	RecordTrade(ctx context.Context, rec Record)
}

// MultiRecorder 依次转发给多个 Recorder。
type MultiRecorder []Recorder

// RecordTrade 实现 Recorder。
func (m MultiRecorder) RecordTrade(ctx context.Context, rec Record) {
	for _, r := range m {
		if r != nil {
			r.RecordTrade(ctx, rec)
		}
	}
}

type nopRecorder struct{}

func (nopRecorder) RecordTrade(context.Context, Record) {}
