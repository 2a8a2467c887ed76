// Package balance maintains the operator's native, USDC, and IOU balances
// across every active network and manages ERC-20 allowances against pool
// contracts.
package balance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/holiman/uint256"
	"golang.org/x/sync/errgroup"

	"github.com/lbf-labs/rebalancer/internal/chainabi"
	"github.com/lbf-labs/rebalancer/internal/domain"
	"github.com/lbf-labs/rebalancer/internal/ports"
)

// UpdateKind distinguishes a token-balance observation from a native one.
type UpdateKind int

const (
	UpdateToken UpdateKind = iota
	UpdateNative
)

// Update is one balance observation posted by a watcher for the core loop
// to apply.
type Update struct {
	Network domain.NetworkName
	Kind    UpdateKind
	Symbol  domain.TokenSymbol
	Amount  *uint256.Int
}

// Config controls watcher cadence.
type Config struct {
	TokenUpdateInterval time.Duration
}

// DeploymentsSnapshot returns the current deployment set. It is a closure
// over deployment.Coordinator.Snapshot so this package does not need to
// import it directly.
type DeploymentsSnapshot func() domain.Deployments

// Tracker implements ports.NetworkUpdateListener. Its balance map is only
// ever mutated from the core task via Apply; watcher goroutines only do I/O
// and post results on Updates().
type Tracker struct {
	cfg         Config
	chain       ports.ChainClient
	signer      ports.SignerRegistry
	deployments DeploymentsSnapshot

	updates chan Update
	cancels map[domain.NetworkName]context.CancelFunc

	balances map[domain.NetworkName]domain.TokenBalance

	allowance *allowanceManager
}

func New(cfg Config, chain ports.ChainClient, signer ports.SignerRegistry, deployments DeploymentsSnapshot) *Tracker {
	return &Tracker{
		cfg:         cfg,
		chain:       chain,
		signer:      signer,
		deployments: deployments,
		updates:     make(chan Update, 64),
		cancels:     make(map[domain.NetworkName]context.CancelFunc),
		balances:    make(map[domain.NetworkName]domain.TokenBalance),
		allowance:   newAllowanceManager(),
	}
}

func (t *Tracker) Name() string { return "balance-tracker" }

// Updates exposes the channel watchers post observations to. The core loop
// is the sole reader and the sole caller of Apply.
func (t *Tracker) Updates() <-chan Update { return t.updates }

// Apply mutates the balance map in response to an observation. Must only be
// called from the core task.
func (t *Tracker) Apply(u Update) {
	current, ok := t.balances[u.Network]
	if !ok {
		current = domain.NewTokenBalance()
	}
	switch u.Kind {
	case UpdateToken:
		t.balances[u.Network] = current.WithToken(u.Symbol, u.Amount)
	case UpdateNative:
		t.balances[u.Network] = current.WithNative(u.Amount)
	}
}

// OnNetworksUpdated drops watchers for networks that left the active set,
// starts watchers for newly active ones, and immediately refreshes native
// balances for the whole new set.
func (t *Tracker) OnNetworksUpdated(ctx context.Context, active []domain.Network) error {
	next := make(map[domain.NetworkName]domain.Network, len(active))
	for _, n := range active {
		next[n.Name] = n
	}

	for name, cancel := range t.cancels {
		if _, ok := next[name]; !ok {
			cancel()
			delete(t.cancels, name)
			delete(t.balances, name)
		}
	}

	deps := t.deployments()
	for _, n := range active {
		if _, ok := t.cancels[n.Name]; ok {
			continue
		}
		t.startWatchers(ctx, n, deps)
	}

	return t.ForceUpdate(ctx, active)
}

func (t *Tracker) startWatchers(parent context.Context, network domain.Network, deps domain.Deployments) {
	wctx, cancel := context.WithCancel(parent)
	t.cancels[network.Name] = cancel
	if _, ok := t.balances[network.Name]; !ok {
		t.balances[network.Name] = domain.NewTokenBalance()
	}

	if addr, ok := deps.TokenAddress(network.Name, domain.USDC); ok {
		go t.watchToken(wctx, network.Name, domain.USDC, addr)
	}
	if addr, ok := deps.TokenAddress(network.Name, domain.IOU); ok {
		go t.watchToken(wctx, network.Name, domain.IOU, addr)
	}
}

func (t *Tracker) watchToken(ctx context.Context, network domain.NetworkName, symbol domain.TokenSymbol, token domain.Address) {
	ticker := time.NewTicker(t.cfg.TokenUpdateInterval)
	defer ticker.Stop()

	for {
		amount, err := t.readTokenBalance(ctx, network, token)
		if err != nil {
			slog.Warn("balance: token watcher read failed", "network", network, "symbol", symbol, "err", err)
		} else {
			select {
			case t.updates <- Update{Network: network, Kind: UpdateToken, Symbol: symbol, Amount: amount}:
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

func (t *Tracker) readTokenBalance(ctx context.Context, network domain.NetworkName, token domain.Address) (*uint256.Int, error) {
	operator, err := t.signer.OperatorAddress(network)
	if err != nil {
		return nil, fmt.Errorf("resolve operator address: %w", err)
	}
	data, err := chainabi.PackBalanceOf(operator)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}
	raw, err := t.chain.Read(ctx, ports.ReadCall{Network: network, To: token, Data: data})
	if err != nil {
		return nil, domain.NewError(domain.ErrRPCReadFailed, "balance.readTokenBalance", err)
	}
	return chainabi.UnpackUint256("balanceOf", raw)
}

// ForceUpdate synchronously refreshes native balances (and, in the same
// pass, token balances) for the given networks. Unlike the background
// watchers this runs to completion before returning, matching the
// executor's need to see fresh state between opportunities.
func (t *Tracker) ForceUpdate(ctx context.Context, active []domain.Network) error {
	deps := t.deployments()

	g, gctx := errgroup.WithContext(ctx)
	results := make(chan Update, len(active)*3)

	for _, n := range active {
		n := n
		g.Go(func() error {
			operator, err := t.signer.OperatorAddress(n.Name)
			if err != nil {
				slog.Warn("balance: force update resolve operator failed", "network", n.Name, "err", err)
				return nil
			}
			amount, err := t.chain.NativeBalance(gctx, n.Name, operator)
			if err != nil {
				slog.Warn("balance: force update native read failed", "network", n.Name, "err", err)
				return nil
			}
			results <- Update{Network: n.Name, Kind: UpdateNative, Amount: amount}
			return nil
		})

		if addr, ok := deps.TokenAddress(n.Name, domain.USDC); ok {
			g.Go(func() error {
				amount, err := t.readTokenBalance(gctx, n.Name, addr)
				if err != nil {
					slog.Warn("balance: force update usdc read failed", "network", n.Name, "err", err)
					return nil
				}
				results <- Update{Network: n.Name, Kind: UpdateToken, Symbol: domain.USDC, Amount: amount}
				return nil
			})
		}
		if addr, ok := deps.TokenAddress(n.Name, domain.IOU); ok {
			g.Go(func() error {
				amount, err := t.readTokenBalance(gctx, n.Name, addr)
				if err != nil {
					slog.Warn("balance: force update iou read failed", "network", n.Name, "err", err)
					return nil
				}
				results <- Update{Network: n.Name, Kind: UpdateToken, Symbol: domain.IOU, Amount: amount}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}
	close(results)
	for u := range results {
		t.Apply(u)
	}
	return nil
}

// Balance returns the current balance snapshot for a network.
func (t *Tracker) Balance(network domain.NetworkName) domain.TokenBalance {
	if b, ok := t.balances[network]; ok {
		return b
	}
	return domain.NewTokenBalance()
}

// Token returns the balance of symbol on network.
func (t *Tracker) Token(network domain.NetworkName, symbol domain.TokenSymbol) *uint256.Int {
	return t.Balance(network).Token(symbol)
}

// Native returns the native gas balance on network.
func (t *Tracker) Native(network domain.NetworkName) *uint256.Int {
	return t.Balance(network).Native
}

// Total sums symbol's balance across every tracked network.
func (t *Tracker) Total(symbol domain.TokenSymbol) *uint256.Int {
	total := uint256.NewInt(0)
	for _, b := range t.balances {
		total = new(uint256.Int).Add(total, b.Token(symbol))
	}
	return total
}

// HasNative reports whether network's native balance is at least min.
func (t *Tracker) HasNative(network domain.NetworkName, min *uint256.Int) bool {
	return t.Balance(network).Native.Cmp(min) >= 0
}

// HasToken reports whether network's symbol balance is at least min.
func (t *Tracker) HasToken(network domain.NetworkName, symbol domain.TokenSymbol, min *uint256.Int) bool {
	return t.Token(network, symbol).Cmp(min) >= 0
}
