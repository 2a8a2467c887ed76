package rebalance

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/holiman/uint256"

	"github.com/lbf-labs/rebalancer/internal/domain"
)

const (
	usdcDecimalsFactor      = 1_000_000 // USDC has 6 decimals
	gasUSDPlaceholder       = 1.0
	bridgeFeeUSDPlaceholder = 0.0
	minCostFactor           = 0.1
)

var baseWeight = map[domain.OpportunityKind]float64{
	domain.FillDeficit: 200,
	domain.TakeSurplus: 200,
	domain.BridgeIOU:   40,
}

// NativeView is the read surface the scorer needs for the gas-availability
// feasibility check.
type NativeView interface {
	Native(network domain.NetworkName) *uint256.Int
}

// Scorer rechecks feasibility against the latest balance snapshot and
// ranks feasible opportunities by score.
type Scorer struct {
	minScore float64
}

func NewScorer(minScore float64) *Scorer {
	return &Scorer{minScore: minScore}
}

// Score returns only the feasible, above-threshold opportunities, sorted by
// descending score. Sorting is stable so equal scores keep discovery order.
func (s *Scorer) Score(opps []domain.Opportunity, balances BalanceView, natives NativeView) []domain.ScoredOpportunity {
	var out []domain.ScoredOpportunity
	for _, opp := range opps {
		scored := s.scoreOne(opp, balances, natives)
		if scored.Feasible && scored.Score >= s.minScore {
			out = append(out, scored)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func (s *Scorer) scoreOne(opp domain.Opportunity, balances BalanceView, natives NativeView) domain.ScoredOpportunity {
	var reasons []string
	feasible := true

	switch opp.Kind {
	case domain.FillDeficit:
		if balances.Token(opp.To, domain.USDC).Cmp(opp.Amount) < 0 {
			feasible = false
			reasons = append(reasons, "insufficient USDC balance")
		}
	case domain.TakeSurplus:
		if balances.Token(opp.To, domain.IOU).Cmp(opp.Amount) < 0 {
			feasible = false
			reasons = append(reasons, "insufficient IOU balance")
		}
	case domain.BridgeIOU:
		if balances.Token(opp.From, domain.IOU).Cmp(opp.Amount) < 0 {
			feasible = false
			reasons = append(reasons, "insufficient IOU balance")
		}
	}

	gasNetwork := opp.GasNetwork()
	if natives.Native(gasNetwork).IsZero() {
		feasible = false
		reasons = append(reasons, fmt.Sprintf("no native gas balance on %s", gasNetwork))
	}

	score := 0.0
	if feasible {
		score = baseWeight[opp.Kind] * costFactor(opp.Amount)
	}

	return domain.ScoredOpportunity{Opportunity: opp, Score: score, Feasible: feasible, Reasons: reasons}
}

func costFactor(amount *uint256.Int) float64 {
	valueUSD := toFloatUSDC(amount)
	costUSD := gasUSDPlaceholder + bridgeFeeUSDPlaceholder
	factor := 1 - costUSD/valueUSD
	if factor < minCostFactor {
		factor = minCostFactor
	}
	return factor
}

func toFloatUSDC(amount *uint256.Int) float64 {
	f := new(big.Float).SetInt(amount.ToBig())
	f.Quo(f, big.NewFloat(usdcDecimalsFactor))
	out, _ := f.Float64()
	return out
}
