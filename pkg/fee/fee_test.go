package fee

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"relay-swap/pkg/types"
)

func TestCalculateFee(t *testing.T) {
	tests := []struct {
		name       string
		cost       float64
		margin     float64
		minUserFee float64
		want       float64
	}{
		{"applies margin", 0.001, 0.1, 0, 0.001 * 1.1},
		{"zero cost", 0, 0.1, 0, 0},
		{"zero margin", 2, 0, 0, 2},
		{"floor wins", 0.001, 0.1, 0.5, 0.5},
		{"product wins over floor", 10, 0.1, 0.5, 11},
		{"negative cost treated as zero", -5, 0.1, 0, 0},
		{"NaN margin treated as zero", 3, math.NaN(), 0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CalculateFee(tt.cost, tt.margin, tt.minUserFee), 1e-12)
		})
	}
}

func TestCalculateFee_ScenarioA(t *testing.T) {
	assert.InDelta(t, 0.0011, CalculateFee(0.001, DefaultSafetyMargin, 0), 1e-12)
}

func TestIsFeeCovered(t *testing.T) {
	t.Run("exact boundary is covered", func(t *testing.T) {
		q := types.QuoteResult{SponsorCost: 1, UserFee: 1 * (1 + 0.1)}
		assert.True(t, IsFeeCovered(q, 0.1))
	})

	t.Run("within epsilon is covered", func(t *testing.T) {
		q := types.QuoteResult{SponsorCost: 1, UserFee: 1.1 - 5e-10}
		assert.True(t, IsFeeCovered(q, 0.1))
	})

	t.Run("below required is not covered", func(t *testing.T) {
		q := types.QuoteResult{SponsorCost: 1, UserFee: 0.5}
		assert.False(t, IsFeeCovered(q, 0.1))
	})

	t.Run("NaN fee is never covered", func(t *testing.T) {
		q := types.QuoteResult{SponsorCost: 1, UserFee: math.NaN()}
		assert.False(t, IsFeeCovered(q, 0.1))
	})
}

func TestApplySlippage(t *testing.T) {
	assert.InDelta(t, 99, ApplySlippage(100, 0.01), 1e-9)
	assert.Equal(t, 100.0, ApplySlippage(100, 0))
	assert.Equal(t, 100.0, ApplySlippage(100, -0.1))
	assert.Equal(t, 0.0, ApplySlippage(100, 2))
	assert.Equal(t, 100.0, ApplySlippage(100, math.NaN()))
}

func TestCalculateFee_AlwaysCovered(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10000; i++ {
		cost := rng.Float64() * math.Pow(10, float64(rng.Intn(12)-6))
		margin := rng.Float64()
		floor := 0.0
		if rng.Intn(4) == 0 {
			floor = rng.Float64()
		}

		userFee := CalculateFee(cost, margin, floor)
		q := types.QuoteResult{RouteAvailable: true, SponsorCost: cost, UserFee: userFee}
		if !assert.True(t, IsFeeCovered(q, margin), "cost=%v margin=%v floor=%v", cost, margin, floor) {
			return
		}
		assert.GreaterOrEqual(t, userFee, floor)
	}
}
