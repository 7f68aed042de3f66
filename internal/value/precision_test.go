package value

import (
	"math/big"
	"testing"
)

func TestBigFloatSettingsDefaultRoundsToNearestEven(t *testing.T) {
	got := CurrentBigFloatSettings()
	if got.Mode != big.ToNearestEven {
		t.Fatalf("default rounding mode = %v, want ToNearestEven", got.Mode)
	}
	if got.Prec != 0 {
		t.Fatalf("default precision = %d, want 0 (grow to fit)", got.Prec)
	}
}

func TestBigFloatArithmeticRespectsConfiguredPrecision(t *testing.T) {
	prev := CurrentBigFloatSettings()
	defer SetBigFloatSettings(prev)

	SetBigFloatSettings(BigFloatSettings{Prec: 24, Mode: big.ToNearestEven})

	a := new(big.Float).SetPrec(24).SetFloat64(1.0)
	b := new(big.Float).SetPrec(24).SetFloat64(3.0)
	result, err := bigFloatBinop(a, b, "/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := result.AsBigFloat()
	if got.Prec() != 24 {
		t.Fatalf("result precision = %d, want 24", got.Prec())
	}
}

func TestBigFloatDivisionByZeroStillErrors(t *testing.T) {
	a := big.NewFloat(1.0)
	b := big.NewFloat(0.0)
	_, err := bigFloatBinop(a, b, "/")
	if err == nil {
		t.Fatalf("expected a division-by-zero error")
	}
}
