package quote

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRecommendSlippageTable(t *testing.T) {
	tests := []struct {
		impact string
		want   string
	}{
		{"0", "0.3"},
		{"0.05", "0.3"},
		{"0.1", "0.3"},
		{"0.4", "0.5"},
		{"0.5", "0.5"},
		{"0.9", "1"},
		{"1", "1"},
		{"1.5", "2"},   // impact + 0.5
		{"2.8", "3"},   // capped at 3
		{"3", "3"},     // min(3.5, 3)
		{"4", "5"},     // impact + 1
		{"4.5", "5"},   // min(5.5, 5)
		{"5", "5"},     // min(6, 5)
		{"7", "9"},     // impact + 2
		{"8.1", "10"},  // min(10.1, 10)
		{"50", "10"},   // hard cap
	}

	for _, tt := range tests {
		got := RecommendSlippage(d(tt.impact))
		assert.True(t, got.Equal(d(tt.want)), "impact %s: want %s, got %s", tt.impact, tt.want, got)
	}
}

func TestRecommendSlippageMonotonic(t *testing.T) {
	prev := decimal.Zero
	for p := decimal.Zero; p.LessThanOrEqual(d("20")); p = p.Add(d("0.05")) {
		got := RecommendSlippage(p)
		assert.True(t, got.GreaterThanOrEqual(prev),
			"recommendation decreased at impact %s: %s < %s", p, got, prev)
		assert.True(t, got.LessThanOrEqual(d("10")), "above hard cap at impact %s", p)
		prev = got
	}
}

func TestEffectiveSlippageManualPassthrough(t *testing.T) {
	manual := d("1.5")
	got := EffectiveSlippage(d("7"), manual, false)
	assert.True(t, got.Equal(manual))

	got = EffectiveSlippage(d("7"), manual, true)
	assert.True(t, got.Equal(d("9")))
}

func TestClassifyImpact(t *testing.T) {
	tests := []struct {
		impact string
		want   ImpactSeverity
	}{
		{"0", ImpactLow},
		{"0.5", ImpactLow},
		{"0.51", ImpactMedium},
		{"2", ImpactMedium},
		{"2.01", ImpactHigh},
		{"5", ImpactHigh},
		{"5.01", ImpactExtreme},
		{"42", ImpactExtreme},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyImpact(d(tt.impact)), "impact %s", tt.impact)
	}
}
