package execution

import "math/rand/v2"

// simulateFill draws a uniform return in [-5%, +5%], sign-flipped for
// shorts, and returns the resulting pnl for the given notional. This
// exercises the full PENDING -> OPEN -> CLOSED_* ledger path without
// contacting any venue (spec §4.4 paper mode).
func simulateFill(sizeUSD float64, short bool) float64 {
	ret := rand.Float64()*0.10 - 0.05 // uniform in [-0.05, 0.05]
	if short {
		ret = -ret
	}
	return sizeUSD * ret
}
