package trade

import (
	"context"
	"sync"

	"mt5-bridge/internal/terminal"
)

type fakeGateway struct {
	mu sync.Mutex

	alive     bool
	symbols   map[string]*terminal.SymbolInfo
	selectOK  bool
	ticks     map[string]*terminal.Tick
	positions map[int64]*terminal.Position
	orders    map[int64]*terminal.Order

	result      *terminal.Result
	submitErr   error
	checkResult *terminal.CheckResult
	modifyOK    bool

	calls    []string
	submits  []terminal.Request
	checks   []terminal.Request
	modifies []terminal.ModifyRequest
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		alive: true,
		symbols: map[string]*terminal.SymbolInfo{
			"EURUSD": {
				Name:       "EURUSD",
				Visible:    true,
				TradeMode:  terminal.TradeModeFull,
				Digits:     5,
				VolumeMin:  0.01,
				VolumeMax:  100,
				VolumeStep: 0.01,
			},
		},
		selectOK: true,
		ticks: map[string]*terminal.Tick{
			"EURUSD": {Bid: 1.2000, Ask: 1.2005},
		},
		positions: map[int64]*terminal.Position{},
		orders:    map[int64]*terminal.Order{},
		result: &terminal.Result{
			Retcode: terminal.RetcodeDone,
			Order:   123456,
			Price:   1.2005,
			Volume:  0.1,
			Comment: "Request executed",
		},
		checkResult: &terminal.CheckResult{Retcode: terminal.RetcodeCheckOK, Balance: 1000, Equity: 1000},
		modifyOK:    true,
	}
}

func (g *fakeGateway) record(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, name)
}

func (g *fakeGateway) called(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (g *fakeGateway) Alive(context.Context) bool {
	g.record("Alive")
	return g.alive
}

func (g *fakeGateway) SymbolInfo(_ context.Context, symbol string) (*terminal.SymbolInfo, error) {
	g.record("SymbolInfo")
	info, ok := g.symbols[symbol]
	if !ok {
		return nil, nil
	}
	copied := *info
	return &copied, nil
}

func (g *fakeGateway) SelectSymbol(_ context.Context, symbol string) (bool, error) {
	g.record("SelectSymbol")
	return g.selectOK, nil
}

func (g *fakeGateway) Tick(_ context.Context, symbol string) (*terminal.Tick, error) {
	g.record("Tick")
	return g.ticks[symbol], nil
}

func (g *fakeGateway) Position(_ context.Context, ticket int64) (*terminal.Position, error) {
	g.record("Position")
	return g.positions[ticket], nil
}

func (g *fakeGateway) PendingOrder(_ context.Context, id int64) (*terminal.Order, error) {
	g.record("PendingOrder")
	return g.orders[id], nil
}

func (g *fakeGateway) Submit(_ context.Context, req terminal.Request) (*terminal.Result, error) {
	g.record("Submit")
	g.mu.Lock()
	g.submits = append(g.submits, req)
	g.mu.Unlock()
	if g.submitErr != nil {
		return nil, g.submitErr
	}
	return g.result, nil
}

func (g *fakeGateway) Check(_ context.Context, req terminal.Request) (*terminal.CheckResult, error) {
	g.record("Check")
	g.mu.Lock()
	g.checks = append(g.checks, req)
	g.mu.Unlock()
	return g.checkResult, nil
}

func (g *fakeGateway) Modify(_ context.Context, req terminal.ModifyRequest) (bool, error) {
	g.record("Modify")
	g.mu.Lock()
	g.modifies = append(g.modifies, req)
	g.mu.Unlock()
	return g.modifyOK, nil
}

type captureRecorder struct {
	records []Record
}

func (r *captureRecorder) RecordTrade(_ context.Context, rec Record) {
	r.records = append(r.records, rec)
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func int64Ptr(v int64) *int64     { return &v }
