package quote

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omniswap/pkg/types"
)

func TestRankRoutesByNetOutput(t *testing.T) {
	routes := []types.Route{
		{Provider: "alpha", AmountOut: d("100"), Fee: d("5")},  // net 95
		{Provider: "beta", AmountOut: d("99"), Fee: d("1")},    // net 98
		{Provider: "gamma", AmountOut: d("100"), Fee: d("10")}, // net 90
	}

	ranked := RankRoutes(routes)
	require.Len(t, ranked, 3)
	assert.Equal(t, "beta", ranked[0].Provider)
	assert.Equal(t, "alpha", ranked[1].Provider)
	assert.Equal(t, "gamma", ranked[2].Provider)

	// Input order is untouched.
	assert.Equal(t, "alpha", routes[0].Provider)
}

func TestRankRoutesGasTiebreak(t *testing.T) {
	routes := []types.Route{
		{Provider: "slow", AmountOut: d("100"), Fee: d("2"), EstimatedGas: d("300000")},
		{Provider: "cheap", AmountOut: d("100"), Fee: d("2"), EstimatedGas: d("120000")},
	}

	ranked := RankRoutes(routes)
	assert.Equal(t, "cheap", ranked[0].Provider)
}

func TestRankRoutesZeroedFieldsRankLow(t *testing.T) {
	// Missing numeric fields arrive as zero from the client boundary.
	routes := []types.Route{
		{Provider: "sparse"},
		{Provider: "full", AmountOut: d("10"), Fee: d("1")},
	}

	ranked := RankRoutes(routes)
	assert.Equal(t, "full", ranked[0].Provider)
	assert.True(t, ranked[1].NetOutput().IsZero())
}

func TestBestRoute(t *testing.T) {
	_, ok := BestRoute(nil)
	assert.False(t, ok)

	best, ok := BestRoute([]types.Route{
		{Provider: "a", AmountOut: d("5")},
		{Provider: "b", AmountOut: d("7")},
	})
	require.True(t, ok)
	assert.Equal(t, "b", best.Provider)
	assert.True(t, best.NetOutput().Equal(decimal.NewFromInt(7)))
}
