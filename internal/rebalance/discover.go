// Package rebalance implements the discover → score → execute pipeline:
// the decision engine invoked on every pool update.
package rebalance

import (
	"sort"

	"github.com/holiman/uint256"

	"github.com/lbf-labs/rebalancer/internal/domain"
)

// BalanceView is the read surface the pipeline needs from the balance
// tracker. *balance.Tracker satisfies this structurally.
type BalanceView interface {
	Token(network domain.NetworkName, symbol domain.TokenSymbol) *uint256.Int
}

// Thresholds gates when a deficit or surplus is worth acting on.
type Thresholds struct {
	Deficit *uint256.Int
	Surplus *uint256.Int
}

// Discoverer enumerates candidate opportunities from the joint pool and
// balance state, bounded by the net-exposure cap.
type Discoverer struct {
	thresholds        Thresholds
	netTotalAllowance *uint256.Int
}

func NewDiscoverer(thresholds Thresholds, netTotalAllowance *uint256.Int) *Discoverer {
	return &Discoverer{thresholds: thresholds, netTotalAllowance: netTotalAllowance}
}

// Discover returns the (possibly empty) list of candidate opportunities.
// networks need not be sorted; Discover sorts its own working copy so
// results (and the bridge destination tie-break) are deterministic.
func (d *Discoverer) Discover(
	networks []domain.NetworkName,
	poolData map[domain.NetworkName]domain.PoolData,
	balances BalanceView,
	totalIOU, totalRedeemedUsdc *uint256.Int,
) []domain.Opportunity {
	sorted := append([]domain.NetworkName(nil), networks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	netAllowance := d.netAllowance(totalIOU, totalRedeemedUsdc)

	var out []domain.Opportunity
	out = append(out, d.discoverFillDeficit(sorted, poolData, balances, netAllowance)...)
	out = append(out, d.discoverTakeSurplus(sorted, poolData, balances)...)
	out = append(out, d.discoverBridgeIOU(sorted, poolData, balances)...)
	return out
}

// netAllowance computes max(0, NET_TOTAL_ALLOWANCE - exposure), where
// exposure is max(0, totalIOU - totalRedeemedUsdc).
func (d *Discoverer) netAllowance(totalIOU, totalRedeemedUsdc *uint256.Int) *uint256.Int {
	exposure := uint256.NewInt(0)
	if totalIOU.Cmp(totalRedeemedUsdc) > 0 {
		exposure = new(uint256.Int).Sub(totalIOU, totalRedeemedUsdc)
	}
	if d.netTotalAllowance.Cmp(exposure) <= 0 {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Sub(d.netTotalAllowance, exposure)
}

func (d *Discoverer) discoverFillDeficit(
	networks []domain.NetworkName,
	poolData map[domain.NetworkName]domain.PoolData,
	balances BalanceView,
	netAllowance *uint256.Int,
) []domain.Opportunity {
	if netAllowance.IsZero() {
		return nil
	}

	var out []domain.Opportunity
	for _, n := range networks {
		pd, ok := poolData[n]
		if !ok || pd.Deficit.Cmp(d.thresholds.Deficit) < 0 {
			continue
		}
		usdc := balances.Token(n, domain.USDC)
		if usdc.IsZero() {
			continue
		}
		amount := minUint256(usdc, pd.Deficit)
		amount = minUint256(amount, netAllowance)
		if amount.IsZero() {
			continue
		}
		out = append(out, domain.NewFillDeficit(n, amount))
	}
	return out
}

func (d *Discoverer) discoverTakeSurplus(
	networks []domain.NetworkName,
	poolData map[domain.NetworkName]domain.PoolData,
	balances BalanceView,
) []domain.Opportunity {
	var out []domain.Opportunity
	for _, n := range networks {
		pd, ok := poolData[n]
		if !ok || pd.Surplus.Cmp(d.thresholds.Surplus) < 0 {
			continue
		}
		iou := balances.Token(n, domain.IOU)
		if iou.IsZero() {
			continue
		}
		amount := minUint256(iou, pd.Surplus)
		out = append(out, domain.NewTakeSurplus(n, amount))
	}
	return out
}

func (d *Discoverer) discoverBridgeIOU(
	networks []domain.NetworkName,
	poolData map[domain.NetworkName]domain.PoolData,
	balances BalanceView,
) []domain.Opportunity {
	var destination domain.NetworkName
	var destSurplus *uint256.Int

	for _, n := range networks {
		pd, ok := poolData[n]
		if !ok || pd.Surplus.Cmp(d.thresholds.Surplus) < 0 {
			continue
		}
		if destSurplus == nil || pd.Surplus.Cmp(destSurplus) > 0 {
			destination = n
			destSurplus = pd.Surplus
		}
	}
	if destSurplus == nil {
		return nil
	}

	var out []domain.Opportunity
	for _, n := range networks {
		if n == destination {
			continue
		}
		pd, ok := poolData[n]
		if !ok {
			continue
		}
		if pd.Deficit.Cmp(d.thresholds.Deficit) >= 0 || pd.Surplus.Cmp(d.thresholds.Surplus) >= 0 {
			continue
		}
		iou := balances.Token(n, domain.IOU)
		if iou.IsZero() {
			continue
		}
		out = append(out, domain.NewBridgeIOU(n, destination, iou))
	}
	return out
}

func minUint256(a, b *uint256.Int) *uint256.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}
