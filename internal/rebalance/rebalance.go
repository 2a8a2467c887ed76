package rebalance

import (
	"context"
	"log/slog"

	"github.com/holiman/uint256"

	"github.com/lbf-labs/rebalancer/internal/domain"
	"github.com/lbf-labs/rebalancer/internal/ports"
)

// PoolSnapshot returns the latest observed pool data for every active network.
type PoolSnapshot func() map[domain.NetworkName]domain.PoolData

// Rebalancer is the heart of the system: discover candidate opportunities,
// score them against the latest balances, then execute the feasible ones in
// score order. It is invoked on every pool update.
type Rebalancer struct {
	discoverer *Discoverer
	scorer     *Scorer
	executor   *Executor

	balances PoolBalances
	pools    PoolSnapshot
	notifier ports.Notifier
}

// PoolBalances is the combined read surface the pipeline needs from the
// balance tracker: BalanceView for token balances, NativeView for gas, plus
// the cross-network IOU total the net-exposure cap is computed against.
type PoolBalances interface {
	BalanceView
	NativeView
	Total(symbol domain.TokenSymbol) *uint256.Int
}

func NewRebalancer(discoverer *Discoverer, scorer *Scorer, executor *Executor, balances PoolBalances, pools PoolSnapshot) *Rebalancer {
	return &Rebalancer{discoverer: discoverer, scorer: scorer, executor: executor, balances: balances, pools: pools}
}

// SetNotifier attaches a reporter that receives every scored opportunity
// list before execution. Optional: a Rebalancer with no notifier attached
// still runs the full discover-score-execute pipeline.
func (r *Rebalancer) SetNotifier(notifier ports.Notifier) {
	r.notifier = notifier
}

// Run executes one full discover-score-execute cycle for the given active
// network set and returns the resulting execution records. eventID stamps
// every record and log line for this cycle so they can be correlated.
func (r *Rebalancer) Run(ctx context.Context, eventID string, active []domain.Network) []domain.ExecutionRecord {
	names := make([]domain.NetworkName, 0, len(active))
	for _, n := range active {
		names = append(names, n.Name)
	}

	poolData := r.pools()
	totalIOU := r.balances.Total(domain.IOU)
	totalRedeemed := r.executor.TotalRedeemedUsdc()

	opps := r.discoverer.Discover(names, poolData, r.balances, totalIOU, totalRedeemed)
	if len(opps) == 0 {
		slog.Debug("rebalance: no candidate opportunities", "event", eventID)
		return nil
	}

	scored := r.scorer.Score(opps, r.balances, r.balances)
	if r.notifier != nil {
		if err := r.notifier.Notify(ctx, scored); err != nil {
			slog.Warn("rebalance: notifier failed", "event", eventID, "err", err)
		}
	}
	if len(scored) == 0 {
		slog.Debug("rebalance: no feasible opportunities after scoring", "event", eventID, "candidates", len(opps))
		return nil
	}

	slog.Info("rebalance: executing opportunities", "event", eventID, "count", len(scored))
	return r.executor.Execute(ctx, eventID, scored, active)
}
