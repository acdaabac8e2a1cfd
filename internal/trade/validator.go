package trade

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"mt5-bridge/internal/terminal"
)

type symbolSource interface {
	SymbolInfo(ctx context.Context, symbol string) (*terminal.SymbolInfo, error)
	SelectSymbol(ctx context.Context, symbol string) (bool, error)
}

// SymbolValidator 确认品种存在、可见且允许开仓。
type SymbolValidator struct {
	source symbolSource
	logger *zap.Logger
}

// NewSymbolValidator 创建品种校验器。
func NewSymbolValidator(source symbolSource, logger *zap.Logger) *SymbolValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SymbolValidator{source: source, logger: logger}
}

// Validate 每次都向终端重新获取品种信息。
// 不可见的品种会先尝试加入报价窗口，之后才检查交易权限。
func (v *SymbolValidator) Validate(ctx context.Context, symbol string) (terminal.SymbolInfo, error) {
	if strings.TrimSpace(symbol) == "" {
		return terminal.SymbolInfo{}, fmt.Errorf("%w: empty symbol", ErrSymbolNotFound)
	}

	info, err := v.source.SymbolInfo(ctx, symbol)
	if err != nil {
		return terminal.SymbolInfo{}, gatewayError("symbol_info", err)
	}
	if info == nil {
		return terminal.SymbolInfo{}, fmt.Errorf("%w: %q", ErrSymbolNotFound, symbol)
	}

	if !info.Visible {
		selected, err := v.source.SelectSymbol(ctx, symbol)
		if err != nil {
			return terminal.SymbolInfo{}, gatewayError("symbol_select", err)
		}
		if !selected {
			return terminal.SymbolInfo{}, fmt.Errorf("%w: %q", ErrSymbolUnselectable, symbol)
		}
		v.logger.Debug("品种已加入报价窗口", zap.String("symbol", symbol))
	}

	switch info.TradeMode {
	case terminal.TradeModeFull, terminal.TradeModeLongOnly, terminal.TradeModeShortOnly:
	default:
		return terminal.SymbolInfo{}, fmt.Errorf("%w: %q (%s)", ErrSymbolNotTradable, symbol, info.TradeMode)
	}

	return *info, nil
}

// checkVolume 校验手数为正，并在终端提供限制时检查范围与步长。
func checkVolume(info terminal.SymbolInfo, volume float64) error {
	if math.IsNaN(volume) || math.IsInf(volume, 0) || volume <= 0 {
		return fmt.Errorf("%w: %v must be positive", ErrInvalidVolume, volume)
	}
	if info.VolumeMin > 0 && volume < info.VolumeMin {
		return fmt.Errorf("%w: %v below minimum %v", ErrInvalidVolume, volume, info.VolumeMin)
	}
	if info.VolumeMax > 0 && volume > info.VolumeMax {
		return fmt.Errorf("%w: %v above maximum %v", ErrInvalidVolume, volume, info.VolumeMax)
	}
	if info.VolumeStep > 0 {
		step := decimal.NewFromFloat(info.VolumeStep)
		if !decimal.NewFromFloat(volume).Mod(step).IsZero() {
			return fmt.Errorf("%w: %v is not a multiple of step %v", ErrInvalidVolume, volume, info.VolumeStep)
		}
	}
	return nil
}

func checkPrice(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return fmt.Errorf("%w: %v must be positive", ErrInvalidPrice, price)
	}
	return nil
}
