// Package core owns the single logical task that mutates the rebalancer's
// in-memory model: one inbox, drained serially, per spec.md's concurrency
// model — every write happens on this task, every other goroutine only does
// I/O and posts a result back here.
package core

import (
	"context"
	"log/slog"
	"time"

	"github.com/lbf-labs/rebalancer/internal/balance"
	"github.com/lbf-labs/rebalancer/internal/network"
	"github.com/lbf-labs/rebalancer/internal/pool"
	"github.com/lbf-labs/rebalancer/internal/rebalance"
)

// Config controls the core task's periodic timers. The pool/balance watchers
// own their own intervals internally; these two are the ones the core task
// itself is responsible for ticking, including the network refresh, which the
// network coordinator does not schedule on its own.
type Config struct {
	NetworkRefreshInterval time.Duration
	RebalanceCheckInterval time.Duration
}

// Loop wires the network coordinator, the balance and pool watchers, and the
// rebalancer together behind a single select loop.
type Loop struct {
	cfg     Config
	network *network.Coordinator
	balance *balance.Tracker
	pool    *pool.Observer
	rebal   *rebalance.Rebalancer
}

func NewLoop(cfg Config, net *network.Coordinator, bal *balance.Tracker, pl *pool.Observer, rebal *rebalance.Rebalancer) *Loop {
	net.Register(bal)
	net.Register(pl)
	return &Loop{cfg: cfg, network: net, balance: bal, pool: pl, rebal: rebal}
}

// Run blocks until ctx is cancelled. A failure during the initial network
// refresh is fatal and returned to the caller; every later error is logged
// and the loop keeps running.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.network.Refresh(ctx); err != nil {
		return err
	}

	networkTicker := time.NewTicker(l.cfg.NetworkRefreshInterval)
	defer networkTicker.Stop()
	rebalanceTicker := time.NewTicker(l.cfg.RebalanceCheckInterval)
	defer rebalanceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("core: shutdown signal received")
			return nil

		case <-networkTicker.C:
			l.handle(ctx, newEvent(NetworkChanged))

		case <-rebalanceTicker.C:
			l.handle(ctx, newEvent(Tick))

		case u, ok := <-l.pool.Updates():
			if !ok {
				continue
			}
			l.handle(ctx, newPoolEvent(u))

		case u, ok := <-l.balance.Updates():
			if !ok {
				continue
			}
			l.handle(ctx, newBalanceEvent(u))
		}
	}
}

// handle processes a single inbox event on the core task. Nothing here
// suspends across a lock: all state is single-owned by this task.
func (l *Loop) handle(ctx context.Context, e Event) {
	switch e.Kind {
	case NetworkChanged:
		if err := l.network.Refresh(ctx); err != nil {
			slog.Error("core: periodic network refresh failed", "event_id", e.ID, "err", err)
		}

	case PoolUpdated:
		l.pool.Apply(e.Pool)
		l.runRebalance(ctx, e.ID)

	case BalanceUpdated:
		l.balance.Apply(e.Balance)

	case Tick:
		l.runRebalance(ctx, e.ID)
	}
}

// runRebalance evaluates the discover→score→execute pipeline against the
// current snapshot. It fires on every pool update, and on the periodic
// rebalance-check tick as a fallback so a standing opportunity that only
// became feasible because of a balance change (not a pool change) is still
// picked up within one check interval.
func (l *Loop) runRebalance(ctx context.Context, eventID string) {
	active := l.network.ActiveNetworks()
	if len(active) == 0 {
		return
	}
	records := l.rebal.Run(ctx, eventID, active)
	for _, r := range records {
		if !r.Success {
			slog.Warn("core: opportunity execution failed", "event_id", eventID, "kind", r.Opportunity.Kind, "err", r.Error)
		}
	}
}
