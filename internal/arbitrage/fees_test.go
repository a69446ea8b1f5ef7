package arbitrage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTakerFee_SymmetricAroundMidpoint(t *testing.T) {
	// fee(p, bps) = (bps/10000) * min(p, 1-p) * (1-rebate)
	require.InDelta(t, TakerFee(0.10, 200), TakerFee(0.90, 200), 1e-9)
}

func TestTakerFee_Zero(t *testing.T) {
	require.Equal(t, 0.0, TakerFee(0.5, 0))
}

func TestTakerFee_KnownValue(t *testing.T) {
	// bps=200 -> 2%, min(0.3,0.7)=0.3, rebate 10% -> 0.3*0.02*0.9 = 0.0054
	require.InDelta(t, 0.0054, TakerFee(0.30, 200), 1e-6)
}
