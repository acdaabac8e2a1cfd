package terminal

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type accountReader interface {
	Account(ctx context.Context) (*Account, error)
	Positions(ctx context.Context) ([]Position, error)
	Orders(ctx context.Context) ([]Order, error)
}

// AccountService 聚合账户相关的只读查询。
type AccountService struct {
	client accountReader
	logger *zap.Logger
}

// NewAccountService 创建账户查询服务。
func NewAccountService(client accountReader, logger *zap.Logger) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		client: client,
		logger: logger,
	}
}

// Overview 并发拉取账户、持仓与挂单。任一查询失败即返回错误。
func (s *AccountService) Overview(ctx context.Context) (AccountOverview, error) {
	var (
		account   *Account
		positions []Position
		orders    []Order
	)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		data, err := s.client.Account(groupCtx)
		if err != nil {
			return err
		}
		if data == nil {
			return ErrNotInitialized
		}
		account = data
		return nil
	})

	group.Go(func() error {
		data, err := s.client.Positions(groupCtx)
		if err != nil {
			return err
		}
		positions = data
		return nil
	})

	group.Go(func() error {
		data, err := s.client.Orders(groupCtx)
		if err != nil {
			return err
		}
		orders = data
		return nil
	})

	if err := group.Wait(); err != nil {
		return AccountOverview{}, err
	}

	overview := AccountOverview{
		Account:     *account,
		Positions:   positions,
		Orders:      orders,
		RetrievedAt: time.Now().UTC(),
	}

	s.logger.Debug("账户快照获取完成",
		zap.Int64("login", overview.Account.Login),
		zap.Time("retrieved_at", overview.RetrievedAt),
		zap.Int("positions", len(overview.Positions)),
		zap.Int("orders", len(overview.Orders)),
	)

	return overview, nil
}

// PortfolioStats 汇总账户资金与全部持仓的盈亏和手数。
func (s *AccountService) PortfolioStats(ctx context.Context) (PortfolioStats, error) {
	var (
		account   *Account
		positions []Position
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		data, err := s.client.Account(groupCtx)
		if err != nil {
			return err
		}
		if data == nil {
			return ErrNotInitialized
		}
		account = data
		return nil
	})
	group.Go(func() error {
		data, err := s.client.Positions(groupCtx)
		if err != nil {
			return err
		}
		positions = data
		return nil
	})
	if err := group.Wait(); err != nil {
		return PortfolioStats{}, err
	}

	// 逐笔累加浮点会带出 0.30000000000000004 这类尾数
	profit := decimal.Zero
	volume := decimal.Zero
	for _, pos := range positions {
		profit = profit.Add(decimal.NewFromFloat(pos.Profit))
		volume = volume.Add(decimal.NewFromFloat(pos.Volume))
	}

	return PortfolioStats{
		Balance:             account.Balance,
		Equity:              account.Equity,
		Margin:              account.Margin,
		FreeMargin:          account.MarginFree,
		MarginLevel:         account.MarginLevel,
		OpenPositionsCount:  len(positions),
		OpenPositionsProfit: profit.InexactFloat64(),
		OpenPositionsVolume: volume.InexactFloat64(),
	}, nil
}
