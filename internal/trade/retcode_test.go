package trade

import (
	"errors"
	"strings"
	"testing"

	"mt5-bridge/internal/terminal"
)

func TestReturnCodeMeanings(t *testing.T) {
	cases := map[uint32]string{
		terminal.RetcodeDone:            "Done",
		terminal.RetcodeRequote:         "Requote",
		terminal.RetcodeReject:          "Rejected",
		terminal.RetcodeInvalid:         "Invalid request",
		terminal.RetcodeNoMoney:         "Not enough funds",
		terminal.RetcodeInvalidVolume:   "Invalid volume",
		terminal.RetcodeMarketClosed:    "Market closed",
		terminal.RetcodePriceChanged:    "Price changed",
		terminal.RetcodeConnection:      "No connection",
		terminal.RetcodeTooManyRequests: "Server busy",
		terminal.RetcodeTradeDisabled:   "Trading disabled",
	}
	for native, want := range cases {
		if got := ReturnCodeOf(native).Meaning(); got != want {
			t.Errorf("retcode %d: expected %q, got %q", native, want, got)
		}
	}

	for _, native := range []uint32{0, 1, 10005, 99999} {
		if got := ReturnCodeOf(native); got != Unknown {
			t.Errorf("retcode %d: expected Unknown, got %v", native, got)
		}
		if got := ReturnCodeOf(native).Meaning(); got != "Unknown error" {
			t.Errorf("retcode %d: expected Unknown error, got %q", native, got)
		}
	}
}

func TestReturnCodeNativeRoundTrip(t *testing.T) {
	for _, code := range ReturnCodes {
		native, ok := code.Native()
		if !ok {
			t.Fatalf("%v has no native value", code)
		}
		if back := ReturnCodeOf(native); back != code {
			t.Errorf("native %d maps back to %v, want %v", native, back, code)
		}
	}
	if _, ok := Unknown.Native(); ok {
		t.Errorf("Unknown should not have a native value")
	}
}

func TestInterpret_NilResult(t *testing.T) {
	_, err := Interpret(nil)
	if !errors.Is(err, ErrNoGatewayResponse) {
		t.Fatalf("expected ErrNoGatewayResponse, got %v", err)
	}
	if KindOf(err) != KindConnection {
		t.Errorf("expected connection kind, got %v", KindOf(err))
	}
}

func TestInterpret_NonDoneKeepsFullOutcome(t *testing.T) {
	outcome, err := Interpret(&terminal.Result{
		Retcode: terminal.RetcodeNoMoney,
		Order:   0,
		Price:   1.1,
		Volume:  2,
		Comment: "No money",
	})
	if err != nil {
		t.Fatalf("Interpret returned error: %v", err)
	}
	if outcome.Succeeded() {
		t.Errorf("expected outcome not to succeed")
	}
	if outcome.RetcodeMeaning != "Not enough funds" || outcome.Comment != "No money" || outcome.Volume != 2 {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
}

func TestRejectedError_Message(t *testing.T) {
	err := rejected(Outcome{Retcode: terminal.RetcodeReject, RetcodeMeaning: "Rejected"})
	if !strings.Contains(err.Error(), "Rejected") || !strings.Contains(err.Error(), "10006") {
		t.Errorf("unexpected message: %s", err.Error())
	}
	if !errors.Is(err, ErrTradeRejected) {
		t.Errorf("expected errors.Is ErrTradeRejected")
	}
	if KindOf(err) != KindExecution {
		t.Errorf("expected execution kind, got %v", KindOf(err))
	}
}

func TestKindOf_WrappedGatewayError(t *testing.T) {
	err := gatewayError("symbol_info", errors.New("dial tcp: refused"))
	if KindOf(err) != KindConnection {
		t.Errorf("expected connection kind, got %v", KindOf(err))
	}
	if Code(err) != "MT5_CONN_FAILED" {
		t.Errorf("unexpected code %s", Code(err))
	}
	if Code(errors.New("boom")) != "INTERNAL" || KindOf(errors.New("boom")) != KindUnknown {
		t.Errorf("unexpected classification for plain error")
	}
}
