package trade

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"mt5-bridge/internal/terminal"
)

func newTestService(gw *fakeGateway) (*Service, *captureRecorder) {
	rec := &captureRecorder{}
	return NewService(gw, DefaultDefaults(), nil, rec), rec
}

func TestServiceBuy_UsesAskPrice(t *testing.T) {
	gw := newFakeGateway()
	svc, _ := newTestService(gw)

	outcome, err := svc.Buy(context.Background(), TradeIntent{Symbol: "EURUSD", Volume: 0.1})
	if err != nil {
		t.Fatalf("Buy returned error: %v", err)
	}
	if outcome.RetcodeMeaning != "Done" || outcome.Order != 123456 {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
	if len(gw.submits) != 1 {
		t.Fatalf("expected one submit, got %d", len(gw.submits))
	}
	req := gw.submits[0]
	if req.Price != 1.2005 {
		t.Errorf("expected ask 1.2005, got %v", req.Price)
	}
	if req.Action != terminal.ActionDeal || req.Type != terminal.OrderTypeBuy {
		t.Errorf("unexpected action/type: %d/%d", req.Action, req.Type)
	}
	if req.TypeTime != terminal.TimeGTC || req.TypeFilling != terminal.FillingReturn {
		t.Errorf("unexpected time/filling: %d/%d", req.TypeTime, req.TypeFilling)
	}
	if req.Deviation != 10 || req.Magic != 0 {
		t.Errorf("expected default deviation/magic, got %d/%d", req.Deviation, req.Magic)
	}
	if req.StopLoss != nil || req.TakeProfit != nil {
		t.Errorf("expected no sl/tp")
	}
}

func TestServiceSell_UsesBidPriceAndOverrides(t *testing.T) {
	gw := newFakeGateway()
	svc, _ := newTestService(gw)

	_, err := svc.Sell(context.Background(), TradeIntent{
		Symbol:     "EURUSD",
		Volume:     0.2,
		StopLoss:   floatPtr(1.21),
		TakeProfit: floatPtr(1.19),
		Deviation:  intPtr(5),
		Magic:      int64Ptr(777),
	})
	if err != nil {
		t.Fatalf("Sell returned error: %v", err)
	}
	req := gw.submits[0]
	if req.Price != 1.2000 || req.Type != terminal.OrderTypeSell {
		t.Errorf("unexpected price/type: %v/%d", req.Price, req.Type)
	}
	if req.Deviation != 5 || req.Magic != 777 {
		t.Errorf("overrides not applied: %d/%d", req.Deviation, req.Magic)
	}
	if req.StopLoss == nil || *req.StopLoss != 1.21 || req.TakeProfit == nil || *req.TakeProfit != 1.19 {
		t.Errorf("sl/tp not passed through")
	}
}

func TestServiceSellStop_Scenario(t *testing.T) {
	gw := newFakeGateway()
	gw.result = &terminal.Result{Retcode: terminal.RetcodeDone, Order: 123456, Price: 1.1980, Volume: 0.1}
	svc, _ := newTestService(gw)

	outcome, err := svc.SellStop(context.Background(), PendingTradeIntent{
		TradeIntent: TradeIntent{Symbol: "EURUSD", Volume: 0.1},
		Price:       1.1980,
	})
	if err != nil {
		t.Fatalf("SellStop returned error: %v", err)
	}
	if outcome.Order != 123456 || outcome.Price != 1.1980 || outcome.Volume != 0.1 || outcome.RetcodeMeaning != "Done" {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
	req := gw.submits[0]
	if req.Action != terminal.ActionPending || req.Type != terminal.OrderTypeSellStop || req.Price != 1.1980 {
		t.Errorf("unexpected request: %+v", req)
	}
	if gw.called("Tick") != 0 {
		t.Errorf("pending orders should not fetch a quote")
	}
}

func TestServicePending_OrderTypes(t *testing.T) {
	cases := []struct {
		name string
		call func(*Service, context.Context, PendingTradeIntent) (Outcome, error)
		want terminal.OrderType
	}{
		{"buy_limit", (*Service).BuyLimit, terminal.OrderTypeBuyLimit},
		{"sell_limit", (*Service).SellLimit, terminal.OrderTypeSellLimit},
		{"buy_stop", (*Service).BuyStop, terminal.OrderTypeBuyStop},
		{"sell_stop", (*Service).SellStop, terminal.OrderTypeSellStop},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := newFakeGateway()
			svc, _ := newTestService(gw)
			_, err := tc.call(svc, context.Background(), PendingTradeIntent{
				TradeIntent: TradeIntent{Symbol: "EURUSD", Volume: 0.1},
				Price:       1.15,
			})
			if err != nil {
				t.Fatalf("returned error: %v", err)
			}
			if got := gw.submits[0].Type; got != tc.want {
				t.Errorf("expected type %d, got %d", tc.want, got)
			}
		})
	}
}

func TestServicePending_RejectsNonPositivePrice(t *testing.T) {
	gw := newFakeGateway()
	svc, _ := newTestService(gw)

	_, err := svc.BuyLimit(context.Background(), PendingTradeIntent{
		TradeIntent: TradeIntent{Symbol: "EURUSD", Volume: 0.1},
		Price:       0,
	})
	if !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
	if gw.called("Submit") != 0 {
		t.Errorf("submit should not be called")
	}
}

func TestServiceBuy_RejectedRetcodeLogsWarning(t *testing.T) {
	gw := newFakeGateway()
	gw.result = &terminal.Result{Retcode: terminal.RetcodeReject, Comment: "Rejected by dealer"}
	core, logs := observer.New(zapcore.WarnLevel)
	svc := NewService(gw, DefaultDefaults(), zap.New(core), nil)

	_, err := svc.Buy(context.Background(), TradeIntent{Symbol: "EURUSD", Volume: 0.1})
	if err == nil {
		t.Fatalf("expected error")
	}
	if KindOf(err) != KindExecution {
		t.Errorf("expected execution kind, got %v", KindOf(err))
	}
	if !strings.Contains(err.Error(), "Rejected") {
		t.Errorf("expected message to contain Rejected, got %s", err.Error())
	}
	var rej *RejectedError
	if !errors.As(err, &rej) || rej.Code != terminal.RetcodeReject || rej.Comment != "Rejected by dealer" {
		t.Errorf("unexpected rejected error: %+v", rej)
	}
	if logs.Len() != 1 {
		t.Fatalf("expected one warning, got %d", logs.Len())
	}
	fields := logs.All()[0].ContextMap()
	if fields["meaning"] != "Rejected" || fields["comment"] != "Rejected by dealer" {
		t.Errorf("unexpected log fields: %v", fields)
	}
}

func TestServiceBuy_NoResponse(t *testing.T) {
	gw := newFakeGateway()
	gw.result = nil
	svc, _ := newTestService(gw)

	_, err := svc.Buy(context.Background(), TradeIntent{Symbol: "EURUSD", Volume: 0.1})
	if !errors.Is(err, ErrNoGatewayResponse) {
		t.Fatalf("expected ErrNoGatewayResponse, got %v", err)
	}
}

func TestServiceBuy_GatewayDownShortCircuits(t *testing.T) {
	gw := newFakeGateway()
	gw.alive = false
	svc, _ := newTestService(gw)

	_, err := svc.Buy(context.Background(), TradeIntent{Symbol: "EURUSD", Volume: 0.1})
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
	if gw.called("SymbolInfo") != 0 || gw.called("Submit") != 0 {
		t.Errorf("no other gateway calls expected, got %v", gw.calls)
	}
}

func TestServiceBuy_NoQuote(t *testing.T) {
	gw := newFakeGateway()
	delete(gw.ticks, "EURUSD")
	svc, _ := newTestService(gw)

	_, err := svc.Buy(context.Background(), TradeIntent{Symbol: "EURUSD", Volume: 0.1})
	if !errors.Is(err, ErrQuoteUnavailable) {
		t.Fatalf("expected ErrQuoteUnavailable, got %v", err)
	}
	if gw.called("Submit") != 0 {
		t.Errorf("submit should not be called")
	}
}

func TestServiceBuy_SubmitTransportError(t *testing.T) {
	gw := newFakeGateway()
	gw.submitErr = errors.New("connection reset")
	svc, _ := newTestService(gw)

	_, err := svc.Buy(context.Background(), TradeIntent{Symbol: "EURUSD", Volume: 0.1})
	if KindOf(err) != KindConnection {
		t.Fatalf("expected connection kind, got %v", err)
	}
	if gw.called("Submit") != 1 {
		t.Errorf("submit must be attempted exactly once, got %d", gw.called("Submit"))
	}
}

func TestServiceBuy_VolumeChecks(t *testing.T) {
	cases := []struct {
		volume float64
		ok     bool
	}{
		{0.15, true},
		{0.01, true},
		{0, false},
		{-1, false},
		{0.005, false},
		{0.015, false},
		{150, false},
	}
	for _, tc := range cases {
		gw := newFakeGateway()
		svc, _ := newTestService(gw)
		_, err := svc.Buy(context.Background(), TradeIntent{Symbol: "EURUSD", Volume: tc.volume})
		if tc.ok && err != nil {
			t.Errorf("volume %v: unexpected error %v", tc.volume, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidVolume) {
			t.Errorf("volume %v: expected ErrInvalidVolume, got %v", tc.volume, err)
		}
	}
}

func TestServiceBuy_SymbolValidation(t *testing.T) {
	cases := []struct {
		name       string
		mutate     func(*fakeGateway)
		symbol     string
		wantErr    error
		wantSelect int
	}{
		{
			name:    "unknown symbol",
			symbol:  "XXXYYY",
			wantErr: ErrSymbolNotFound,
		},
		{
			name:    "empty symbol",
			symbol:  "",
			wantErr: ErrSymbolNotFound,
		},
		{
			name: "hidden symbol is selected",
			mutate: func(g *fakeGateway) {
				g.symbols["EURUSD"].Visible = false
			},
			symbol:     "EURUSD",
			wantSelect: 1,
		},
		{
			name: "hidden symbol cannot be selected",
			mutate: func(g *fakeGateway) {
				g.symbols["EURUSD"].Visible = false
				g.selectOK = false
			},
			symbol:     "EURUSD",
			wantErr:    ErrSymbolUnselectable,
			wantSelect: 1,
		},
		{
			name: "visible close only",
			mutate: func(g *fakeGateway) {
				g.symbols["EURUSD"].TradeMode = terminal.TradeModeCloseOnly
			},
			symbol:  "EURUSD",
			wantErr: ErrSymbolNotTradable,
		},
		{
			name: "hidden close only selects first",
			mutate: func(g *fakeGateway) {
				g.symbols["EURUSD"].Visible = false
				g.symbols["EURUSD"].TradeMode = terminal.TradeModeCloseOnly
			},
			symbol:     "EURUSD",
			wantErr:    ErrSymbolNotTradable,
			wantSelect: 1,
		},
		{
			name: "disabled",
			mutate: func(g *fakeGateway) {
				g.symbols["EURUSD"].TradeMode = terminal.TradeModeDisabled
			},
			symbol:  "EURUSD",
			wantErr: ErrSymbolNotTradable,
		},
		{
			name: "short only allows buy",
			mutate: func(g *fakeGateway) {
				g.symbols["EURUSD"].TradeMode = terminal.TradeModeShortOnly
			},
			symbol: "EURUSD",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := newFakeGateway()
			if tc.mutate != nil {
				tc.mutate(gw)
			}
			svc, _ := newTestService(gw)
			_, err := svc.Buy(context.Background(), TradeIntent{Symbol: tc.symbol, Volume: 0.1})
			if tc.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				if KindOf(err) != KindValidation {
					t.Errorf("expected validation kind, got %v", KindOf(err))
				}
				if gw.called("Submit") != 0 {
					t.Errorf("submit should not be called")
				}
			}
			if got := gw.called("SelectSymbol"); got != tc.wantSelect {
				t.Errorf("expected %d select calls, got %d", tc.wantSelect, got)
			}
		})
	}
}

func TestServiceClosePosition_BuildsOppositeDeal(t *testing.T) {
	gw := newFakeGateway()
	gw.positions[42] = &terminal.Position{
		Ticket: 42,
		Symbol: "EURUSD",
		Type:   terminal.OrderTypeBuy,
		Volume: 0.3,
		Magic:  99,
	}
	svc, rec := newTestService(gw)

	if _, err := svc.ClosePosition(context.Background(), CloseIntent{Ticket: 42}); err != nil {
		t.Fatalf("ClosePosition returned error: %v", err)
	}
	req := gw.submits[0]
	if req.Action != terminal.ActionDeal || req.Type != terminal.OrderTypeSell {
		t.Errorf("unexpected action/type: %d/%d", req.Action, req.Type)
	}
	if req.Position != 42 || req.Volume != 0.3 || req.Magic != 99 {
		t.Errorf("unexpected close request: %+v", req)
	}
	if req.Price != 1.2000 {
		t.Errorf("closing a buy should use bid, got %v", req.Price)
	}
	if req.Deviation != 10 {
		t.Errorf("expected default deviation, got %d", req.Deviation)
	}
	if len(rec.records) != 1 || rec.records[0].Operation != OpClose || rec.records[0].Symbol != "EURUSD" {
		t.Errorf("unexpected records: %+v", rec.records)
	}
}

func TestServiceClosePosition_SellUsesAsk(t *testing.T) {
	gw := newFakeGateway()
	gw.positions[7] = &terminal.Position{Ticket: 7, Symbol: "EURUSD", Type: terminal.OrderTypeSell, Volume: 1}
	svc, _ := newTestService(gw)

	if _, err := svc.ClosePosition(context.Background(), CloseIntent{Ticket: 7}); err != nil {
		t.Fatalf("ClosePosition returned error: %v", err)
	}
	req := gw.submits[0]
	if req.Type != terminal.OrderTypeBuy || req.Price != 1.2005 {
		t.Errorf("unexpected close request: %+v", req)
	}
}

func TestServiceClosePosition_NotFound(t *testing.T) {
	gw := newFakeGateway()
	svc, rec := newTestService(gw)

	_, err := svc.ClosePosition(context.Background(), CloseIntent{Ticket: 999})
	if !errors.Is(err, ErrPositionNotFound) {
		t.Fatalf("expected ErrPositionNotFound, got %v", err)
	}
	if KindOf(err) != KindNotFound {
		t.Errorf("expected not found kind")
	}
	if gw.called("Submit") != 0 {
		t.Errorf("submit should not be called")
	}
	if len(rec.records) != 1 || rec.records[0].Err == nil {
		t.Errorf("expected failed record, got %+v", rec.records)
	}
}

func TestServiceModifyOrder_KeepsUnsetStops(t *testing.T) {
	gw := newFakeGateway()
	gw.orders[555] = &terminal.Order{
		Ticket:         555,
		Symbol:         "EURUSD",
		Type:           terminal.OrderTypeBuyLimit,
		PriceOpen:      1.1,
		StopLoss:       1.05,
		TakeProfit:     1.2,
		TimeExpiration: 1700000000,
	}
	svc, _ := newTestService(gw)

	out, err := svc.ModifyOrder(context.Background(), ModifyIntent{
		OrderID:       555,
		NewPrice:      1.11,
		NewTakeProfit: floatPtr(1.25),
	})
	if err != nil {
		t.Fatalf("ModifyOrder returned error: %v", err)
	}
	if out.Status != "modified" || out.Ticket != 555 {
		t.Errorf("unexpected outcome: %+v", out)
	}
	req := gw.modifies[0]
	if req.Price != 1.11 || req.StopLoss != 1.05 || req.TakeProfit != 1.25 || req.Expiration != 1700000000 {
		t.Errorf("unexpected modify request: %+v", req)
	}
}

func TestServiceModifyOrder_Failures(t *testing.T) {
	gw := newFakeGateway()
	svc, _ := newTestService(gw)

	_, err := svc.ModifyOrder(context.Background(), ModifyIntent{OrderID: 1, NewPrice: 1.1})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	gw.orders[1] = &terminal.Order{Ticket: 1, Symbol: "EURUSD"}
	gw.modifyOK = false
	_, err = svc.ModifyOrder(context.Background(), ModifyIntent{OrderID: 1, NewPrice: 1.1})
	if !errors.Is(err, ErrModifyFailed) || KindOf(err) != KindExecution {
		t.Fatalf("expected ErrModifyFailed, got %v", err)
	}

	_, err = svc.ModifyOrder(context.Background(), ModifyIntent{OrderID: 1, NewPrice: -1})
	if !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
}

func TestServiceCheck(t *testing.T) {
	gw := newFakeGateway()
	svc, _ := newTestService(gw)

	out, err := svc.Check(context.Background(), TradeIntent{Symbol: "EURUSD", Side: SideSell, Volume: 0.1})
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if out.RetcodeMeaning != "Done" || out.Balance != 1000 {
		t.Errorf("unexpected check outcome: %+v", out)
	}
	if gw.called("Submit") != 0 {
		t.Errorf("check must not submit")
	}
	if gw.checks[0].Price != 1.2000 {
		t.Errorf("sell check should use bid")
	}

	gw.checkResult = &terminal.CheckResult{Retcode: terminal.RetcodeNoMoney, Comment: "No money"}
	_, err = svc.Check(context.Background(), TradeIntent{Symbol: "EURUSD", Side: SideBuy, Volume: 0.1})
	if !errors.Is(err, ErrTradeRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}

	_, err = svc.Check(context.Background(), TradeIntent{Symbol: "EURUSD", Side: "hold", Volume: 0.1})
	if !errors.Is(err, ErrInvalidSide) || KindOf(err) != KindValidation {
		t.Fatalf("expected ErrInvalidSide, got %v", err)
	}

	gw.checkResult = &terminal.CheckResult{Retcode: terminal.RetcodeCheckOK}
	if _, err := svc.Check(context.Background(), TradeIntent{Symbol: "EURUSD", Side: " Buy ", Volume: 0.1}); err != nil {
		t.Fatalf("side should be normalized, got %v", err)
	}
	if last := gw.checks[len(gw.checks)-1]; last.Price != 1.2005 || last.Type != terminal.OrderTypeBuy {
		t.Errorf("unexpected buy check request: %+v", last)
	}
}

func TestServiceCheck_GatewayDownBeforeSide(t *testing.T) {
	gw := newFakeGateway()
	gw.alive = false
	svc, _ := newTestService(gw)

	_, err := svc.Check(context.Background(), TradeIntent{Symbol: "EURUSD", Side: "hold", Volume: 0.1})
	if !errors.Is(err, ErrGatewayUnavailable) || Code(err) != "MT5_CONN_FAILED" {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
}

func TestService_ConnectionCheckedFirst(t *testing.T) {
	pending := PendingTradeIntent{TradeIntent: TradeIntent{Symbol: "EURUSD", Volume: 0.1}, Price: 1.1}
	cases := []struct {
		name string
		call func(*Service) error
	}{
		{"sell", func(s *Service) error {
			_, err := s.Sell(context.Background(), TradeIntent{Symbol: "EURUSD", Volume: 0.1})
			return err
		}},
		{"buy_limit", func(s *Service) error {
			_, err := s.BuyLimit(context.Background(), pending)
			return err
		}},
		{"sell_limit", func(s *Service) error {
			_, err := s.SellLimit(context.Background(), pending)
			return err
		}},
		{"buy_stop", func(s *Service) error {
			_, err := s.BuyStop(context.Background(), pending)
			return err
		}},
		{"sell_stop", func(s *Service) error {
			_, err := s.SellStop(context.Background(), pending)
			return err
		}},
		{"close_position", func(s *Service) error {
			_, err := s.ClosePosition(context.Background(), CloseIntent{Ticket: 1})
			return err
		}},
		{"modify_order", func(s *Service) error {
			_, err := s.ModifyOrder(context.Background(), ModifyIntent{OrderID: 1, NewPrice: 1.1})
			return err
		}},
		{"check", func(s *Service) error {
			_, err := s.Check(context.Background(), TradeIntent{Symbol: "EURUSD", Side: SideBuy, Volume: 0.1})
			return err
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := newFakeGateway()
			gw.alive = false
			svc, _ := newTestService(gw)

			err := tc.call(svc)
			if !errors.Is(err, ErrGatewayUnavailable) {
				t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
			}
			if len(gw.calls) != 1 || gw.calls[0] != "Alive" {
				t.Errorf("expected only Alive to be called, got %v", gw.calls)
			}
		})
	}
}

func TestServiceSubmit_RejectsModifyRequest(t *testing.T) {
	gw := newFakeGateway()
	svc, _ := newTestService(gw)

	_, err := svc.submit(context.Background(), OpModify, ModifyRequest{Ticket: 1, Price: 1.1})
	if !errors.Is(err, ErrUnsupportedRequest) {
		t.Fatalf("expected ErrUnsupportedRequest, got %v", err)
	}
	if !strings.Contains(err.Error(), string(RequestModify)) {
		t.Errorf("error should name the request kind: %v", err)
	}
	if gw.called("Submit") != 0 {
		t.Errorf("modify request must not reach Submit")
	}
}

func TestServiceRecordsEveryOperation(t *testing.T) {
	gw := newFakeGateway()
	svc, rec := newTestService(gw)
	ctx := context.Background()

	_, _ = svc.Buy(ctx, TradeIntent{Symbol: "EURUSD", Volume: 0.1})
	_, _ = svc.Sell(ctx, TradeIntent{Symbol: "NOPE", Volume: 0.1})

	if len(rec.records) != 2 {
		t.Fatalf("expected two records, got %d", len(rec.records))
	}
	ok := rec.records[0]
	if ok.Operation != OpBuy || ok.Err != nil || ok.Outcome == nil || ok.Price != 1.2005 {
		t.Errorf("unexpected success record: %+v", ok)
	}
	failed := rec.records[1]
	if failed.Operation != OpSell || failed.Err == nil || failed.Outcome != nil {
		t.Errorf("unexpected failure record: %+v", failed)
	}
}

func TestMultiRecorder(t *testing.T) {
	a, b := &captureRecorder{}, &captureRecorder{}
	MultiRecorder{a, nil, b}.RecordTrade(context.Background(), Record{Operation: OpBuy})
	if len(a.records) != 1 || len(b.records) != 1 {
		t.Errorf("expected both recorders to receive the record")
	}
}

func TestParseSide(t *testing.T) {
	if s, err := ParseSide(" BUY "); err != nil || s != SideBuy {
		t.Errorf("unexpected parse: %v %v", s, err)
	}
	if _, err := ParseSide("long"); !errors.Is(err, ErrInvalidSide) {
		t.Errorf("expected ErrInvalidSide, got %v", err)
	}
}
