package trade

import "mt5-bridge/internal/terminal"

// Interpret 将终端结果转为 Outcome。
// 非 Done 的返回码同样生成完整 Outcome，是否视为失败由调用方决定。
func Interpret(result *terminal.Result) (Outcome, error) {
	if result == nil {
		return Outcome{}, ErrNoGatewayResponse
	}

	code := ReturnCodeOf(result.Retcode)
	return Outcome{
		ReturnCode:     code,
		Retcode:        result.Retcode,
		RetcodeMeaning: code.Meaning(),
		Order:          result.Order,
		Price:          result.Price,
		Volume:         result.Volume,
		Comment:        result.Comment,
	}, nil
}

// interpretCheck 预检成功时终端返回 0，其余编号按交易返回码解释。
func interpretCheck(result *terminal.CheckResult) (CheckOutcome, bool, error) {
	if result == nil {
		return CheckOutcome{}, false, ErrNoGatewayResponse
	}

	accepted := result.Retcode == terminal.RetcodeCheckOK || ReturnCodeOf(result.Retcode) == Done
	meaning := Done.Meaning()
	if !accepted {
		meaning = ReturnCodeOf(result.Retcode).Meaning()
	}

	return CheckOutcome{
		Retcode:        result.Retcode,
		RetcodeMeaning: meaning,
		Balance:        result.Balance,
		Equity:         result.Equity,
		Margin:         result.Margin,
		MarginFree:     result.MarginFree,
		MarginLevel:    result.MarginLevel,
		Comment:        result.Comment,
	}, accepted, nil
}
