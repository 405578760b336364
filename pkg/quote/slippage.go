package quote

import "github.com/shopspring/decimal"

// ImpactSeverity buckets a quote's price impact for display.
type ImpactSeverity string

const (
	ImpactLow     ImpactSeverity = "low"
	ImpactMedium  ImpactSeverity = "medium"
	ImpactHigh    ImpactSeverity = "high"
	ImpactExtreme ImpactSeverity = "extreme"
)

var (
	slipPct01  = decimal.RequireFromString("0.1")
	slipPct03  = decimal.RequireFromString("0.3")
	slipPct05  = decimal.RequireFromString("0.5")
	slipPct1   = decimal.NewFromInt(1)
	slipPct2   = decimal.NewFromInt(2)
	slipPct3   = decimal.NewFromInt(3)
	slipPct5   = decimal.NewFromInt(5)
	slipPct10  = decimal.NewFromInt(10)
	slipHalf   = decimal.RequireFromString("0.5")
)

// RecommendSlippage derives a slippage tolerance from a quote's price
// impact percentage. The function is a monotonic step function of the
// impact, capped at 10%.
func RecommendSlippage(priceImpactPct decimal.Decimal) decimal.Decimal {
	p := priceImpactPct.Abs()

	switch {
	case p.LessThanOrEqual(slipPct01):
		return slipPct03
	case p.LessThanOrEqual(slipPct05):
		return slipPct05
	case p.LessThanOrEqual(slipPct1):
		return slipPct1
	case p.LessThanOrEqual(slipPct3):
		return decimal.Min(p.Add(slipHalf), slipPct3)
	case p.LessThanOrEqual(slipPct5):
		return decimal.Min(p.Add(slipPct1), slipPct5)
	default:
		return decimal.Min(p.Add(slipPct2), slipPct10)
	}
}

// EffectiveSlippage returns the tolerance to apply for a trade: the
// recommendation when auto mode is on, otherwise the manual setting
// unchanged.
func EffectiveSlippage(priceImpactPct, manual decimal.Decimal, auto bool) decimal.Decimal {
	if auto {
		return RecommendSlippage(priceImpactPct)
	}
	return manual
}

// ClassifyImpact buckets the price impact percentage by severity.
func ClassifyImpact(priceImpactPct decimal.Decimal) ImpactSeverity {
	p := priceImpactPct.Abs()
	switch {
	case p.LessThanOrEqual(slipPct05):
		return ImpactLow
	case p.LessThanOrEqual(slipPct2):
		return ImpactMedium
	case p.LessThanOrEqual(slipPct5):
		return ImpactHigh
	default:
		return ImpactExtreme
	}
}
