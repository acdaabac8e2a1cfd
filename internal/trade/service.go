package trade

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mt5-bridge/internal/terminal"
)

// Gateway 为交易门面所需的终端能力。
type Gateway interface {
	Alive(ctx context.Context) bool
	SymbolInfo(ctx context.Context, symbol string) (*terminal.SymbolInfo, error)
	SelectSymbol(ctx context.Context, symbol string) (bool, error)
	Tick(ctx context.Context, symbol string) (*terminal.Tick, error)
	Position(ctx context.Context, ticket int64) (*terminal.Position, error)
	PendingOrder(ctx context.Context, id int64) (*terminal.Order, error)
	Submit(ctx context.Context, req terminal.Request) (*terminal.Result, error)
	Check(ctx context.Context, req terminal.Request) (*terminal.CheckResult, error)
	Modify(ctx context.Context, req terminal.ModifyRequest) (bool, error)
}

var _ Gateway = (*terminal.Client)(nil)

// Service 是交易门面：探活、校验品种、构造请求、发送并解释结果。
// 不缓存任何终端状态，也不自动重试任何下单。
type Service struct {
	gateway   Gateway
	validator *SymbolValidator
	builder   *RequestBuilder
	recorder  Recorder
	logger    *zap.Logger
}

// NewService 创建交易门面。recorder 可为 nil。
func NewService(gateway Gateway, defaults Defaults, logger *zap.Logger, recorder Recorder) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Service{
		gateway:   gateway,
		validator: NewSymbolValidator(gateway, logger),
		builder:   NewRequestBuilder(gateway, defaults),
		recorder:  recorder,
		logger:    logger,
	}
}

// Buy 市价买入。
func (s *Service) Buy(ctx context.Context, intent TradeIntent) (Outcome, error) {
	return s.market(ctx, OpBuy, intent, SideBuy)
}

// Sell 市价卖出。
func (s *Service) Sell(ctx context.Context, intent TradeIntent) (Outcome, error) {
	return s.market(ctx, OpSell, intent, SideSell)
}

// BuyLimit 在指定价格挂买入限价单。
func (s *Service) BuyLimit(ctx context.Context, intent PendingTradeIntent) (Outcome, error) {
	return s.pending(ctx, OpBuyLimit, intent, PendingBuyLimit)
}

// SellLimit 在指定价格挂卖出限价单。
func (s *Service) SellLimit(ctx context.Context, intent PendingTradeIntent) (Outcome, error) {
	return s.pending(ctx, OpSellLimit, intent, PendingSellLimit)
}

// BuyStop 在现价上方挂买入止损单。
func (s *Service) BuyStop(ctx context.Context, intent PendingTradeIntent) (Outcome, error) {
	return s.pending(ctx, OpBuyStop, intent, PendingBuyStop)
}

// SellStop 在现价下方挂卖出止损单。
func (s *Service) SellStop(ctx context.Context, intent PendingTradeIntent) (Outcome, error) {
	return s.pending(ctx, OpSellStop, intent, PendingSellStop)
}

// ClosePosition 按票号平仓。
func (s *Service) ClosePosition(ctx context.Context, intent CloseIntent) (Outcome, error) {
	rec := Record{Operation: OpClose, Ticket: intent.Ticket}

	outcome, err := func() (Outcome, error) {
		if err := s.checkConnection(ctx); err != nil {
			return Outcome{}, err
		}

		pos, err := s.gateway.Position(ctx, intent.Ticket)
		if err != nil {
			return Outcome{}, gatewayError("positions_get", err)
		}
		if pos == nil {
			return Outcome{}, fmt.Errorf("%w: %d", ErrPositionNotFound, intent.Ticket)
		}
		rec.Symbol = pos.Symbol
		rec.Volume = pos.Volume

		req, err := s.builder.Close(ctx, *pos)
		if err != nil {
			return Outcome{}, err
		}
		rec.Price = req.Price

		return s.submit(ctx, OpClose, req)
	}()

	return s.finish(ctx, rec, outcome, err)
}

// ModifyOrder 修改挂单价格，未给出的止损止盈保留原值。
func (s *Service) ModifyOrder(ctx context.Context, intent ModifyIntent) (ModifyOutcome, error) {
	rec := Record{Operation: OpModify, Ticket: intent.OrderID, Price: intent.NewPrice}

	if err := s.checkConnection(ctx); err != nil {
		s.recorder.RecordTrade(ctx, withErr(rec, err))
		return ModifyOutcome{}, err
	}
	if err := checkPrice(intent.NewPrice); err != nil {
		s.recorder.RecordTrade(ctx, withErr(rec, err))
		return ModifyOutcome{}, err
	}

	order, err := s.gateway.PendingOrder(ctx, intent.OrderID)
	if err != nil {
		err = gatewayError("orders_get", err)
		s.recorder.RecordTrade(ctx, withErr(rec, err))
		return ModifyOutcome{}, err
	}
	if order == nil {
		err = fmt.Errorf("%w: %d", ErrOrderNotFound, intent.OrderID)
		s.recorder.RecordTrade(ctx, withErr(rec, err))
		return ModifyOutcome{}, err
	}
	rec.Symbol = order.Symbol
	rec.Volume = order.VolumeCurrent

	req := s.builder.Modify(*order, intent)
	ok, err := s.gateway.Modify(ctx, req.Wire())
	if err != nil {
		err = gatewayError("order_modify", err)
		s.recorder.RecordTrade(ctx, withErr(rec, err))
		return ModifyOutcome{}, err
	}
	if !ok {
		err = fmt.Errorf("%w: %d", ErrModifyFailed, intent.OrderID)
		s.logger.Warn("挂单修改失败",
			zap.Int64("order", intent.OrderID),
			zap.Float64("price", req.Price),
		)
		s.recorder.RecordTrade(ctx, withErr(rec, err))
		return ModifyOutcome{}, err
	}

	s.logger.Info("挂单已修改",
		zap.Int64("order", order.Ticket),
		zap.Float64("price", req.Price),
		zap.Float64("sl", req.StopLoss),
		zap.Float64("tp", req.TakeProfit),
	)
	s.recorder.RecordTrade(ctx, rec)

	return ModifyOutcome{Status: "modified", Ticket: order.Ticket}, nil
}

// Check 按市价单的流程构造请求交给终端预检，不会成交。
func (s *Service) Check(ctx context.Context, intent TradeIntent) (CheckOutcome, error) {
	rec := Record{Operation: OpCheck, Symbol: intent.Symbol, Volume: intent.Volume}

	outcome, err := func() (CheckOutcome, error) {
		if err := s.checkConnection(ctx); err != nil {
			return CheckOutcome{}, err
		}
		side, err := ParseSide(string(intent.Side))
		if err != nil {
			return CheckOutcome{}, err
		}

		req, err := s.prepareMarket(ctx, intent, side)
		if err != nil {
			return CheckOutcome{}, err
		}
		rec.Price = req.Price

		result, err := s.gateway.Check(ctx, req.Wire())
		if err != nil {
			return CheckOutcome{}, gatewayError("order_check", err)
		}
		outcome, accepted, err := interpretCheck(result)
		if err != nil {
			return CheckOutcome{}, err
		}
		if !accepted {
			s.logger.Warn("交易预检未通过",
				zap.String("symbol", intent.Symbol),
				zap.Uint32("retcode", outcome.Retcode),
				zap.String("meaning", outcome.RetcodeMeaning),
				zap.String("comment", outcome.Comment),
			)
			return outcome, &RejectedError{Code: outcome.Retcode, Meaning: outcome.RetcodeMeaning, Comment: outcome.Comment}
		}
		return outcome, nil
	}()

	s.recorder.RecordTrade(ctx, withErr(rec, err))
	return outcome, err
}

func (s *Service) market(ctx context.Context, op Operation, intent TradeIntent, side Side) (Outcome, error) {
	intent.Side = side
	rec := Record{Operation: op, Symbol: intent.Symbol, Volume: intent.Volume}

	outcome, err := func() (Outcome, error) {
		if err := s.checkConnection(ctx); err != nil {
			return Outcome{}, err
		}
		req, err := s.prepareMarket(ctx, intent, side)
		if err != nil {
			return Outcome{}, err
		}
		rec.Price = req.Price
		return s.submit(ctx, op, req)
	}()

	return s.finish(ctx, rec, outcome, err)
}

// prepareMarket 校验品种与手数后按最新报价构造市价请求，调用方负责先探活。
func (s *Service) prepareMarket(ctx context.Context, intent TradeIntent, side Side) (MarketRequest, error) {
	info, err := s.validator.Validate(ctx, intent.Symbol)
	if err != nil {
		return MarketRequest{}, err
	}
	if err := checkVolume(info, intent.Volume); err != nil {
		return MarketRequest{}, err
	}
	return s.builder.Market(ctx, intent, side)
}

func (s *Service) pending(ctx context.Context, op Operation, intent PendingTradeIntent, kind PendingKind) (Outcome, error) {
	intent.Side = kind.Side()
	rec := Record{Operation: op, Symbol: intent.Symbol, Volume: intent.Volume, Price: intent.Price}

	outcome, err := func() (Outcome, error) {
		if err := s.checkConnection(ctx); err != nil {
			return Outcome{}, err
		}
		info, err := s.validator.Validate(ctx, intent.Symbol)
		if err != nil {
			return Outcome{}, err
		}
		if err := checkVolume(info, intent.Volume); err != nil {
			return Outcome{}, err
		}
		if err := checkPrice(intent.Price); err != nil {
			return Outcome{}, err
		}
		return s.submit(ctx, op, s.builder.Pending(intent, kind))
	}()

	return s.finish(ctx, rec, outcome, err)
}

func (s *Service) checkConnection(ctx context.Context) error {
	if !s.gateway.Alive(ctx) {
		return ErrGatewayUnavailable
	}
	return nil
}

// submit 只发送一次；非 Done 的返回码转为 *RejectedError。
// 改单走终端的单独接口，不经过这里。
func (s *Service) submit(ctx context.Context, op Operation, native NativeRequest) (Outcome, error) {
	var req terminal.Request
	switch r := native.(type) {
	case MarketRequest:
		req = r.Wire()
	case PendingRequest:
		req = r.Wire()
	case CloseRequest:
		req = r.Wire()
	default:
		return Outcome{}, fmt.Errorf("%w: %s request cannot be sent as an order", ErrUnsupportedRequest, native.Kind())
	}

	result, err := s.gateway.Submit(ctx, req)
	if err != nil {
		return Outcome{}, gatewayError("order_send", err)
	}

	outcome, err := Interpret(result)
	if err != nil {
		return Outcome{}, err
	}

	if !outcome.Succeeded() {
		s.logger.Warn("交易被终端拒绝",
			zap.String("operation", string(op)),
			zap.String("kind", string(native.Kind())),
			zap.String("symbol", req.Symbol),
			zap.Uint32("retcode", outcome.Retcode),
			zap.String("meaning", outcome.RetcodeMeaning),
			zap.String("comment", outcome.Comment),
		)
		return outcome, rejected(outcome)
	}

	s.logger.Info("交易已执行",
		zap.String("operation", string(op)),
		zap.String("symbol", req.Symbol),
		zap.Int64("order", outcome.Order),
		zap.Float64("price", outcome.Price),
		zap.Float64("volume", outcome.Volume),
	)
	return outcome, nil
}

func (s *Service) finish(ctx context.Context, rec Record, outcome Outcome, err error) (Outcome, error) {
	if outcome.Retcode != 0 || err == nil {
		o := outcome
		rec.Outcome = &o
	}
	rec.Err = err
	s.recorder.RecordTrade(ctx, rec)

	if err != nil {
		return Outcome{}, err
	}
	return outcome, nil
}

func withErr(rec Record, err error) Record {
	rec.Err = err
	return rec
}
