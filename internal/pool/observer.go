// Package pool streams (deficit, surplus) observations from every active
// network's pool contract.
package pool

import (
	"context"
	"log/slog"
	"time"

	"github.com/lbf-labs/rebalancer/internal/chainabi"
	"github.com/lbf-labs/rebalancer/internal/domain"
	"github.com/lbf-labs/rebalancer/internal/ports"
)

// Update is one (deficit, surplus) observation for a network, pushed in
// source order per network; distinct networks may interleave arbitrarily.
type Update struct {
	Network domain.NetworkName
	Data    domain.PoolData
}

// Config controls watcher cadence.
type Config struct {
	UpdateInterval time.Duration
}

// DeploymentsSnapshot returns the current deployment set.
type DeploymentsSnapshot func() domain.Deployments

// Observer implements ports.NetworkUpdateListener. It never updates
// PoolData itself; the core task is the sole consumer of Updates and the
// sole caller of Apply.
type Observer struct {
	cfg         Config
	chain       ports.ChainClient
	deployments DeploymentsSnapshot

	updates chan Update
	cancels map[domain.NetworkName]context.CancelFunc
	data    map[domain.NetworkName]domain.PoolData
}

func New(cfg Config, chain ports.ChainClient, deployments DeploymentsSnapshot) *Observer {
	return &Observer{
		cfg:         cfg,
		chain:       chain,
		deployments: deployments,
		updates:     make(chan Update, 64),
		cancels:     make(map[domain.NetworkName]context.CancelFunc),
		data:        make(map[domain.NetworkName]domain.PoolData),
	}
}

func (o *Observer) Name() string { return "pool-observer" }

// Updates exposes the channel watchers post observations to.
func (o *Observer) Updates() <-chan Update { return o.updates }

// Apply records an observation. Must only be called from the core task.
func (o *Observer) Apply(u Update) {
	o.data[u.Network] = u.Data
}

// Get returns the last observed PoolData for network, or a zero value with
// a zero LastUpdated if never observed.
func (o *Observer) Get(network domain.NetworkName) domain.PoolData {
	if d, ok := o.data[network]; ok {
		return d
	}
	return domain.NewPoolData()
}

// Snapshot returns a copy of every currently tracked network's PoolData.
func (o *Observer) Snapshot() map[domain.NetworkName]domain.PoolData {
	out := make(map[domain.NetworkName]domain.PoolData, len(o.data))
	for k, v := range o.data {
		out[k] = v
	}
	return out
}

// OnNetworksUpdated drops watchers for networks that left the active set
// and starts one for each newly active network, resolving its pool address
// from the deployment snapshot at registration time.
func (o *Observer) OnNetworksUpdated(ctx context.Context, active []domain.Network) error {
	next := make(map[domain.NetworkName]struct{}, len(active))
	for _, n := range active {
		next[n.Name] = struct{}{}
	}

	for name, cancel := range o.cancels {
		if _, ok := next[name]; !ok {
			cancel()
			delete(o.cancels, name)
			delete(o.data, name)
		}
	}

	deps := o.deployments()
	for _, n := range active {
		if _, ok := o.cancels[n.Name]; ok {
			continue
		}
		poolAddr, ok := deps.PoolAddress(n.Name)
		if !ok {
			slog.Error("pool: no pool address in deployment snapshot for active network", "network", n.Name)
			continue
		}
		wctx, cancel := context.WithCancel(ctx)
		o.cancels[n.Name] = cancel
		go o.watch(wctx, n.Name, poolAddr)
	}
	return nil
}

func (o *Observer) watch(ctx context.Context, network domain.NetworkName, poolAddr domain.Address) {
	ticker := time.NewTicker(o.cfg.UpdateInterval)
	defer ticker.Stop()

	for {
		data, err := o.read(ctx, network, poolAddr)
		if err != nil {
			slog.Warn("pool: watcher read failed", "network", network, "err", err)
		} else {
			select {
			case o.updates <- Update{Network: network, Data: data}:
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (o *Observer) read(ctx context.Context, network domain.NetworkName, poolAddr domain.Address) (domain.PoolData, error) {
	call, err := chainabi.PackGetPoolData()
	if err != nil {
		return domain.PoolData{}, err
	}
	raw, err := o.chain.Read(ctx, ports.ReadCall{Network: network, To: poolAddr, Data: call})
	if err != nil {
		return domain.PoolData{}, domain.NewError(domain.ErrRPCReadFailed, "pool.read", err)
	}
	decoded, err := chainabi.UnpackPoolData(raw)
	if err != nil {
		return domain.PoolData{}, err
	}
	return domain.PoolData{Deficit: decoded.Deficit, Surplus: decoded.Surplus, LastUpdated: time.Now()}, nil
}
