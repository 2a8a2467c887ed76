package balance

import (
	"context"
	"errors"
	"sync"

	"github.com/holiman/uint256"

	"github.com/lbf-labs/rebalancer/internal/chainabi"
	"github.com/lbf-labs/rebalancer/internal/domain"
	"github.com/lbf-labs/rebalancer/internal/ports"
)

const approveGasLimit = 80_000

// Floors sets the minimum allowance to request per token symbol, regardless
// of the amount actually required. Zero value for a symbol means no floor.
type Floors struct {
	USDC *uint256.Int
	IOU  *uint256.Int
}

func (f Floors) forSymbol(symbol domain.TokenSymbol) *uint256.Int {
	switch symbol {
	case domain.USDC:
		if f.USDC != nil {
			return f.USDC
		}
	case domain.IOU:
		if f.IOU != nil {
			return f.IOU
		}
	}
	return uint256.NewInt(0)
}

type allowanceKey struct {
	Network domain.NetworkName
	Token   domain.Address
	Spender domain.Address
}

// allowanceManager serializes concurrent ensure-allowance calls against the
// same (network, token, spender) so at most one approve is ever in flight
// per key.
type allowanceManager struct {
	mu    sync.Mutex
	locks map[allowanceKey]*sync.Mutex
}

func newAllowanceManager() *allowanceManager {
	return &allowanceManager{locks: make(map[allowanceKey]*sync.Mutex)}
}

func (m *allowanceManager) lockFor(key allowanceKey) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	return l
}

// GetAllowance reads the current allowance the operator has granted spender
// over token on network.
func (t *Tracker) GetAllowance(ctx context.Context, network domain.NetworkName, token, spender domain.Address) (*uint256.Int, error) {
	owner, err := t.signer.OperatorAddress(network)
	if err != nil {
		return nil, domain.NewError(domain.ErrAllowanceFailed, "balance.GetAllowance", err)
	}
	data, err := chainabi.PackAllowance(owner, spender)
	if err != nil {
		return nil, domain.NewError(domain.ErrAllowanceFailed, "balance.GetAllowance", err)
	}
	raw, err := t.chain.Read(ctx, ports.ReadCall{Network: network, To: token, Data: data})
	if err != nil {
		return nil, domain.NewError(domain.ErrRPCReadFailed, "balance.GetAllowance", err)
	}
	return chainabi.UnpackUint256("allowance", raw)
}

// EnsureAllowance guarantees the operator has approved spender for at least
// required units of token on network. It never submits an approve that
// would lower a currently sufficient allowance, and floors the requested
// amount per symbol's configured floor.
func (t *Tracker) EnsureAllowance(ctx context.Context, network domain.NetworkName, token, spender domain.Address, symbol domain.TokenSymbol, floors Floors, required *uint256.Int) error {
	key := allowanceKey{Network: network, Token: token, Spender: spender}
	lock := t.allowance.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	current, err := t.GetAllowance(ctx, network, token, spender)
	if err != nil {
		return err
	}
	if current.Cmp(required) >= 0 {
		return nil
	}

	target := required
	if floor := floors.forSymbol(symbol); floor.Cmp(target) > 0 {
		target = floor
	}

	data, err := chainabi.PackApprove(spender, target)
	if err != nil {
		return domain.NewError(domain.ErrAllowanceFailed, "balance.EnsureAllowance", err)
	}
	txHash, err := t.chain.Write(ctx, ports.WriteCall{Network: network, To: token, Data: data, GasLimit: approveGasLimit})
	if err != nil {
		return domain.NewError(domain.ErrRPCWriteFailed, "balance.EnsureAllowance", err)
	}
	receipt, err := t.chain.WaitForReceipt(ctx, network, txHash)
	if err != nil {
		return domain.NewError(domain.ErrReceiptTimeout, "balance.EnsureAllowance", err)
	}
	if !receipt.Success {
		return domain.NewError(domain.ErrAllowanceFailed, "balance.EnsureAllowance", errors.New("approve transaction reverted"))
	}
	return nil
}
