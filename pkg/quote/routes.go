package quote

import (
	"sort"

	"omniswap/pkg/types"
)

// RankRoutes orders candidate routes by net output (amount out minus
// provider fee) descending, breaking ties with lower estimated gas.
// Missing or unparseable numeric fields were already zeroed at the client
// boundary, so a sparse route simply ranks low instead of failing.
func RankRoutes(routes []types.Route) []types.Route {
	ranked := make([]types.Route, len(routes))
	copy(ranked, routes)

	sort.SliceStable(ranked, func(i, j int) bool {
		ni, nj := ranked[i].NetOutput(), ranked[j].NetOutput()
		if !ni.Equal(nj) {
			return ni.GreaterThan(nj)
		}
		return ranked[i].EstimatedGas.LessThan(ranked[j].EstimatedGas)
	})
	return ranked
}

// BestRoute returns the top-ranked route, or false when there are none.
func BestRoute(routes []types.Route) (types.Route, bool) {
	if len(routes) == 0 {
		return types.Route{}, false
	}
	return RankRoutes(routes)[0], true
}
