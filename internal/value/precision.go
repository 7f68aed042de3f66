package value

import (
	"math/big"
	"sync/atomic"
)

// BigFloatSettings is the process-wide BigFloat precision/rounding
// configuration (SPEC_FULL.md §5 ambient note): like the VM's
// cancellation flag, this is explicitly shared across every VM instance
// in the process rather than threaded through per-call arguments.
type BigFloatSettings struct {
	Prec uint
	Mode big.RoundingMode
}

// DefaultBigFloatSettings matches big.Float's own zero-value behavior:
// precision grows to fit the operands, round-to-nearest-even.
var DefaultBigFloatSettings = BigFloatSettings{Prec: 0, Mode: big.ToNearestEven}

var bigFloatSettings atomic.Value

func init() {
	bigFloatSettings.Store(DefaultBigFloatSettings)
}

// SetBigFloatSettings replaces the process-wide precision/rounding mode
// used by every subsequent BigFloat arithmetic result.
func SetBigFloatSettings(s BigFloatSettings) { bigFloatSettings.Store(s) }

// CurrentBigFloatSettings reads the process-wide precision/rounding mode.
func CurrentBigFloatSettings() BigFloatSettings {
	return bigFloatSettings.Load().(BigFloatSettings)
}

// applyBigFloatSettings stamps f with the current process-wide
// precision/rounding mode when one has been configured (Prec 0 keeps
// big.Float's own "grow to fit" default).
func applyBigFloatSettings(f *big.Float) *big.Float {
	s := CurrentBigFloatSettings()
	f.SetMode(s.Mode)
	if s.Prec != 0 {
		f.SetPrec(s.Prec)
	}
	return f
}
