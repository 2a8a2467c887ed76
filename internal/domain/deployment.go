package domain

// ParentPool identifies the single pool that also acts as the redemption hub.
type ParentPool struct {
	Network NetworkName
	Address Address
}

// Deployments is a consistent snapshot of contract addresses across all networks.
// Invariant: after a successful load exactly one parent pool exists, and its
// network is always kept in the active set regardless of whitelist/blacklist.
type Deployments struct {
	Pools      map[NetworkName]Address
	ParentPool ParentPool
	USDC       map[NetworkName]Address
	IOU        map[NetworkName]Address
}

// NewDeployments returns an empty Deployments with initialized maps.
func NewDeployments() Deployments {
	return Deployments{
		Pools: make(map[NetworkName]Address),
		USDC:  make(map[NetworkName]Address),
		IOU:   make(map[NetworkName]Address),
	}
}

// HasPool reports whether network has either a child pool deployment or is
// the parent pool's network.
func (d Deployments) HasPool(network NetworkName) bool {
	if network == d.ParentPool.Network {
		return true
	}
	_, ok := d.Pools[network]
	return ok
}

// PoolAddress resolves the pool address for network: the parent pool address
// if network is the parent pool's network, the child pool address otherwise.
func (d Deployments) PoolAddress(network NetworkName) (Address, bool) {
	if network == d.ParentPool.Network {
		return d.ParentPool.Address, true
	}
	addr, ok := d.Pools[network]
	return addr, ok
}

// TokenAddress resolves the address of symbol's token deployment on network.
func (d Deployments) TokenAddress(network NetworkName, symbol TokenSymbol) (Address, bool) {
	switch symbol {
	case USDC:
		addr, ok := d.USDC[network]
		return addr, ok
	case IOU:
		addr, ok := d.IOU[network]
		return addr, ok
	default:
		return Address{}, false
	}
}

// Clone returns a deep copy so callers can hold a snapshot that outlives the
// next refresh without aliasing the coordinator's maps.
func (d Deployments) Clone() Deployments {
	out := NewDeployments()
	out.ParentPool = d.ParentPool
	for k, v := range d.Pools {
		out.Pools[k] = v
	}
	for k, v := range d.USDC {
		out.USDC[k] = v
	}
	for k, v := range d.IOU {
		out.IOU[k] = v
	}
	return out
}
