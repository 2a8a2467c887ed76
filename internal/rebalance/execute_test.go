package rebalance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lbf-labs/rebalancer/internal/balance"
	"github.com/lbf-labs/rebalancer/internal/domain"
	"github.com/lbf-labs/rebalancer/internal/ports"
)

type fakeChainClient struct {
	writeFn func(ctx context.Context, call ports.WriteCall) (domain.TxHash, error)
	waitFn  func(ctx context.Context, network domain.NetworkName, tx domain.TxHash) (ports.Receipt, error)
}

func (f *fakeChainClient) Read(ctx context.Context, call ports.ReadCall) ([]byte, error) {
	return nil, nil
}
func (f *fakeChainClient) Write(ctx context.Context, call ports.WriteCall) (domain.TxHash, error) {
	return f.writeFn(ctx, call)
}
func (f *fakeChainClient) WaitForReceipt(ctx context.Context, network domain.NetworkName, tx domain.TxHash) (ports.Receipt, error) {
	return f.waitFn(ctx, network, tx)
}
func (f *fakeChainClient) NativeBalance(ctx context.Context, network domain.NetworkName, a domain.Address) (*uint256.Int, error) {
	return uint256.NewInt(0), nil
}
func (f *fakeChainClient) DefaultTimeout() time.Duration { return time.Second }

type fakeAllowance struct {
	err   error
	calls int
}

func (f *fakeAllowance) EnsureAllowance(ctx context.Context, network domain.NetworkName, token, spender domain.Address, symbol domain.TokenSymbol, floors balance.Floors, required *uint256.Int) error {
	f.calls++
	return f.err
}

type fakeForceUpdater struct{ calls int }

func (f *fakeForceUpdater) ForceUpdate(ctx context.Context, active []domain.Network) error {
	f.calls++
	return nil
}

type fakeLedger struct {
	records []domain.ExecutionRecord
}

func (f *fakeLedger) RecordExecution(ctx context.Context, record domain.ExecutionRecord) error {
	f.records = append(f.records, record)
	return nil
}
func (f *fakeLedger) Close() error { return nil }

func testDeployments() domain.Deployments {
	deps := domain.NewDeployments()
	deps.ParentPool = domain.ParentPool{Network: "eth-mainnet", Address: domain.Address{1}}
	deps.USDC["eth-mainnet"] = domain.Address{2}
	deps.IOU["eth-mainnet"] = domain.Address{3}
	deps.Pools["arb-mainnet"] = domain.Address{4}
	deps.USDC["arb-mainnet"] = domain.Address{5}
	deps.IOU["arb-mainnet"] = domain.Address{6}
	return deps
}

func TestExecuteFillDeficitSuccess(t *testing.T) {
	deps := testDeployments()
	chain := &fakeChainClient{
		writeFn: func(ctx context.Context, call ports.WriteCall) (domain.TxHash, error) {
			return domain.TxHash{9}, nil
		},
		waitFn: func(ctx context.Context, network domain.NetworkName, tx domain.TxHash) (ports.Receipt, error) {
			return ports.Receipt{TxHash: tx, Success: true}, nil
		},
	}
	allow := &fakeAllowance{}
	fu := &fakeForceUpdater{}
	ledger := &fakeLedger{}

	exec := NewExecutor(Config{GasLimits: GasLimits{FillDeficit: 100000}}, chain, allow, fu, func() domain.Deployments { return deps }, ledger)

	opp := domain.NewFillDeficit("eth-mainnet", uint256.NewInt(1000))
	scored := []domain.ScoredOpportunity{{Opportunity: opp, Score: 100, Feasible: true}}

	records := exec.Execute(context.Background(), "evt-1", scored, []domain.Network{{Name: "eth-mainnet", ChainID: 1}})
	require.Len(t, records, 1)
	assert.True(t, records[0].Success)
	assert.Empty(t, records[0].Error)
	assert.Equal(t, domain.TxHash{9}, records[0].TxHash)
	assert.Equal(t, 1, allow.calls)
	assert.Equal(t, 1, fu.calls)
	assert.Len(t, ledger.records, 1)
	assert.True(t, exec.TotalRedeemedUsdc().IsZero(), "only TakeSurplus increments the redeemed counter")
}

func TestExecuteTakeSurplusIncrementsRedeemedCounter(t *testing.T) {
	deps := testDeployments()
	chain := &fakeChainClient{
		writeFn: func(ctx context.Context, call ports.WriteCall) (domain.TxHash, error) {
			return domain.TxHash{9}, nil
		},
		waitFn: func(ctx context.Context, network domain.NetworkName, tx domain.TxHash) (ports.Receipt, error) {
			return ports.Receipt{TxHash: tx, Success: true}, nil
		},
	}
	exec := NewExecutor(Config{GasLimits: GasLimits{TakeSurplus: 100000}}, chain, &fakeAllowance{}, &fakeForceUpdater{}, func() domain.Deployments { return deps }, nil)

	opp := domain.NewTakeSurplus("eth-mainnet", uint256.NewInt(5_000_000))
	scored := []domain.ScoredOpportunity{{Opportunity: opp, Score: 100, Feasible: true}}

	exec.Execute(context.Background(), "evt-2", scored, []domain.Network{{Name: "eth-mainnet", ChainID: 1}})
	assert.True(t, exec.TotalRedeemedUsdc().Eq(uint256.NewInt(5_000_000)))
}

func TestExecuteMissingDeploymentIsolatesFailure(t *testing.T) {
	deps := domain.NewDeployments() // no parent pool configured: PoolAddress lookup will fail
	chain := &fakeChainClient{}
	exec := NewExecutor(Config{}, chain, &fakeAllowance{}, &fakeForceUpdater{}, func() domain.Deployments { return deps }, nil)

	opp := domain.NewFillDeficit("eth-mainnet", uint256.NewInt(100))
	scored := []domain.ScoredOpportunity{{Opportunity: opp, Score: 100, Feasible: true}}

	records := exec.Execute(context.Background(), "evt-3", scored, nil)
	require.Len(t, records, 1)
	assert.False(t, records[0].Success)
	assert.NotEmpty(t, records[0].Error)
}

func TestExecuteContinuesBatchAfterOneFailure(t *testing.T) {
	deps := testDeployments()
	chain := &fakeChainClient{
		writeFn: func(ctx context.Context, call ports.WriteCall) (domain.TxHash, error) {
			return domain.TxHash{}, errors.New("rpc unavailable")
		},
	}
	exec := NewExecutor(Config{}, chain, &fakeAllowance{}, &fakeForceUpdater{}, func() domain.Deployments { return deps }, nil)

	scored := []domain.ScoredOpportunity{
		{Opportunity: domain.NewFillDeficit("eth-mainnet", uint256.NewInt(100)), Score: 200, Feasible: true},
		{Opportunity: domain.NewFillDeficit("arb-mainnet", uint256.NewInt(50)), Score: 100, Feasible: true},
	}

	records := exec.Execute(context.Background(), "evt-4", scored, nil)
	require.Len(t, records, 2)
	assert.False(t, records[0].Success)
	assert.False(t, records[1].Success)
}

func TestExecuteDryRunDoesNotSubmit(t *testing.T) {
	deps := testDeployments()
	called := false
	chain := &fakeChainClient{
		writeFn: func(ctx context.Context, call ports.WriteCall) (domain.TxHash, error) {
			called = true
			return domain.TxHash{}, nil
		},
	}
	exec := NewExecutor(Config{DryRun: true}, chain, &fakeAllowance{}, &fakeForceUpdater{}, func() domain.Deployments { return deps }, nil)

	opp := domain.NewFillDeficit("eth-mainnet", uint256.NewInt(100))
	scored := []domain.ScoredOpportunity{{Opportunity: opp, Score: 100, Feasible: true}}

	records := exec.Execute(context.Background(), "evt-5", scored, nil)
	require.Len(t, records, 1)
	assert.True(t, records[0].Success)
	assert.False(t, called)
}

func TestExecuteRevertedTransactionIsFailure(t *testing.T) {
	deps := testDeployments()
	chain := &fakeChainClient{
		writeFn: func(ctx context.Context, call ports.WriteCall) (domain.TxHash, error) {
			return domain.TxHash{9}, nil
		},
		waitFn: func(ctx context.Context, network domain.NetworkName, tx domain.TxHash) (ports.Receipt, error) {
			return ports.Receipt{TxHash: tx, Success: false}, nil
		},
	}
	exec := NewExecutor(Config{}, chain, &fakeAllowance{}, &fakeForceUpdater{}, func() domain.Deployments { return deps }, nil)

	opp := domain.NewFillDeficit("eth-mainnet", uint256.NewInt(100))
	scored := []domain.ScoredOpportunity{{Opportunity: opp, Score: 100, Feasible: true}}

	records := exec.Execute(context.Background(), "evt-6", scored, nil)
	require.Len(t, records, 1)
	assert.False(t, records[0].Success)
	assert.Contains(t, records[0].Error, "reverted")
}
