// Package network resolves which chains the rebalancer is currently active
// on and fans that set out to the components that need to react to it.
package network

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lbf-labs/rebalancer/internal/deployment"
	"github.com/lbf-labs/rebalancer/internal/domain"
	"github.com/lbf-labs/rebalancer/internal/ports"
)

// Config controls how the Coordinator selects and filters candidate networks.
type Config struct {
	UpdateInterval time.Duration
	Mode           domain.Mode
	Whitelist      []uint64
	Blacklist      []uint64
	// LocalhostNetworks is used verbatim when Mode is domain.ModeLocalhost,
	// bypassing the registry port entirely.
	LocalhostNetworks []domain.Network
}

// Coordinator owns the active network set. It is not safe for concurrent
// use: the core loop is its only caller, and refresh/query calls must not
// interleave across goroutines.
type Coordinator struct {
	cfg         Config
	registry    ports.NetworkRegistry
	deployments *deployment.Coordinator

	listenerNames []string
	listeners     map[string]ports.NetworkUpdateListener

	initialized bool
	active      []domain.Network
	byName      map[domain.NetworkName]domain.Network
	byChainID   map[uint64]domain.Network
	bySelector  map[string]domain.Network
}

func New(cfg Config, registry ports.NetworkRegistry, deployments *deployment.Coordinator) *Coordinator {
	return &Coordinator{
		cfg:         cfg,
		registry:    registry,
		deployments: deployments,
		listeners:   make(map[string]ports.NetworkUpdateListener),
	}
}

// Register adds a listener that will be notified, in registration order,
// whenever the active network set changes. Re-registering the same name is
// a no-op.
func (c *Coordinator) Register(listener ports.NetworkUpdateListener) {
	name := listener.Name()
	if _, ok := c.listeners[name]; ok {
		return
	}
	c.listeners[name] = listener
	c.listenerNames = append(c.listenerNames, name)
}

// Refresh re-derives the active network set from the registry (or the
// static localhost list) and the current deployment snapshot, then notifies
// listeners if the set changed.
//
// Listener errors are always logged and never abort notification of the
// next listener. On the very first Refresh call, a listener error is also
// returned to the caller so startup can abort; on later calls it is
// swallowed, matching periodic-refresh semantics elsewhere in the core.
func (c *Coordinator) Refresh(ctx context.Context) error {
	initial := !c.initialized

	candidates, err := c.candidates(ctx)
	if err != nil {
		return fmt.Errorf("network.Refresh: %w", err)
	}
	if err := c.deployments.Refresh(ctx); err != nil {
		return fmt.Errorf("network.Refresh: %w", err)
	}
	deps := c.deployments.Snapshot()

	kept := filterActive(candidates, deps, c.cfg.Whitelist, c.cfg.Blacklist)
	c.initialized = true

	if !setChanged(c.active, kept) {
		return nil
	}
	c.setActive(kept)

	var firstErr error
	for _, name := range c.listenerNames {
		l := c.listeners[name]
		if err := l.OnNetworksUpdated(ctx, kept); err != nil {
			slog.Error("network: listener failed to apply update", "listener", name, "err", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("network.Refresh: listener %q: %w", name, err)
			}
		}
	}
	if initial {
		return firstErr
	}
	return nil
}

// ForceRefresh refreshes immediately. It is the same as Refresh: the
// coordinator keeps no schedule of its own and never reads UpdateInterval;
// periodic refreshes come from the core loop's ticker.
func (c *Coordinator) ForceRefresh(ctx context.Context) error {
	return c.Refresh(ctx)
}

func (c *Coordinator) candidates(ctx context.Context) ([]domain.Network, error) {
	if c.cfg.Mode == domain.ModeLocalhost {
		return c.cfg.LocalhostNetworks, nil
	}
	return c.registry.Networks(ctx, c.cfg.Mode)
}

func (c *Coordinator) setActive(networks []domain.Network) {
	c.active = networks
	c.byName = make(map[domain.NetworkName]domain.Network, len(networks))
	c.byChainID = make(map[uint64]domain.Network, len(networks))
	c.bySelector = make(map[string]domain.Network, len(networks))
	for _, n := range networks {
		c.byName[n.Name] = n
		c.byChainID[n.ChainID] = n
		c.bySelector[n.Selector] = n
	}
}

// ActiveNetworks returns a copy of the current active network set.
func (c *Coordinator) ActiveNetworks() []domain.Network {
	out := make([]domain.Network, len(c.active))
	copy(out, c.active)
	return out
}

func (c *Coordinator) ByName(name domain.NetworkName) (domain.Network, error) {
	n, ok := c.byName[name]
	if !ok {
		return domain.Network{}, domain.NewError(domain.ErrNetworkNotActive, "network.ByName",
			fmt.Errorf("network %q is not active", name))
	}
	return n, nil
}

func (c *Coordinator) ByChainID(id uint64) (domain.Network, error) {
	n, ok := c.byChainID[id]
	if !ok {
		return domain.Network{}, domain.NewError(domain.ErrNetworkNotActive, "network.ByChainID",
			fmt.Errorf("chain id %d is not active", id))
	}
	return n, nil
}

func (c *Coordinator) BySelector(selector string) (domain.Network, error) {
	n, ok := c.bySelector[selector]
	if !ok {
		return domain.Network{}, domain.NewError(domain.ErrNetworkNotActive, "network.BySelector",
			fmt.Errorf("selector %q is not active", selector))
	}
	return n, nil
}

// Partition returns the active networks restricted to the given mode.
func (c *Coordinator) Partition(mode domain.Mode) []domain.Network {
	var out []domain.Network
	for _, n := range c.active {
		if n.Mode == mode {
			out = append(out, n)
		}
	}
	return out
}

func filterActive(candidates []domain.Network, deps domain.Deployments, whitelist, blacklist []uint64) []domain.Network {
	blocked := toSet(blacklist)
	allowed := toSet(whitelist)

	var out []domain.Network
	for _, n := range candidates {
		if !deps.HasPool(n.Name) {
			continue
		}
		if n.Name == deps.ParentPool.Network {
			out = append(out, n)
			continue
		}
		if len(allowed) > 0 {
			if _, ok := allowed[n.ChainID]; !ok {
				continue
			}
		}
		if _, ok := blocked[n.ChainID]; ok {
			continue
		}
		out = append(out, n)
	}
	return out
}

func setChanged(prev, next []domain.Network) bool {
	if len(prev) != len(next) {
		return true
	}
	prevSet := make(map[uint64]struct{}, len(prev))
	for _, n := range prev {
		prevSet[n.ChainID] = struct{}{}
	}
	for _, n := range next {
		if _, ok := prevSet[n.ChainID]; !ok {
			return true
		}
	}
	return false
}

func toSet(ids []uint64) map[uint64]struct{} {
	s := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}
