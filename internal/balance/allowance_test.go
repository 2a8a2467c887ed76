package balance

import (
	"context"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lbf-labs/rebalancer/internal/domain"
	"github.com/lbf-labs/rebalancer/internal/ports"
)

func TestEnsureAllowanceNoOpWhenSufficient(t *testing.T) {
	approveCalls := 0
	chain := &fakeChainClient{
		readFn: func(ctx context.Context, call ports.ReadCall) ([]byte, error) {
			return encodeUint256(uint256.NewInt(1_000_000)), nil
		},
		writeFn: func(ctx context.Context, call ports.WriteCall) (domain.TxHash, error) {
			approveCalls++
			return domain.TxHash{1}, nil
		},
	}
	signer := &fakeSigner{operator: addr(9)}
	tr := New(Config{TokenUpdateInterval: time.Minute}, chain, signer, func() domain.Deployments { return domain.NewDeployments() })

	err := tr.EnsureAllowance(context.Background(), "eth-mainnet", addr(3), addr(4), domain.USDC, Floors{}, uint256.NewInt(500_000))
	require.NoError(t, err)
	assert.Zero(t, approveCalls)
}

func TestEnsureAllowanceApprovesWithFloor(t *testing.T) {
	chain := &fakeChainClient{
		readFn: func(ctx context.Context, call ports.ReadCall) ([]byte, error) {
			return encodeUint256(uint256.NewInt(0)), nil
		},
		writeFn: func(ctx context.Context, call ports.WriteCall) (domain.TxHash, error) {
			return domain.TxHash{1}, nil
		},
		waitFn: func(ctx context.Context, network domain.NetworkName, tx domain.TxHash) (ports.Receipt, error) {
			return ports.Receipt{TxHash: tx, Success: true}, nil
		},
	}
	signer := &fakeSigner{operator: addr(9)}
	tr := New(Config{TokenUpdateInterval: time.Minute}, chain, signer, func() domain.Deployments { return domain.NewDeployments() })

	floors := Floors{USDC: uint256.NewInt(1_000_000)}
	err := tr.EnsureAllowance(context.Background(), "eth-mainnet", addr(3), addr(4), domain.USDC, floors, uint256.NewInt(100))
	require.NoError(t, err)

	// A second call with a required amount still below the floor issues no new approve.
	chain.readFn = func(ctx context.Context, call ports.ReadCall) ([]byte, error) {
		return encodeUint256(uint256.NewInt(1_000_000)), nil
	}
	writeCalls := 0
	chain.writeFn = func(ctx context.Context, call ports.WriteCall) (domain.TxHash, error) {
		writeCalls++
		return domain.TxHash{1}, nil
	}
	err = tr.EnsureAllowance(context.Background(), "eth-mainnet", addr(3), addr(4), domain.USDC, floors, uint256.NewInt(500_000))
	require.NoError(t, err)
	assert.Zero(t, writeCalls)
}

func TestEnsureAllowanceRevertedTransaction(t *testing.T) {
	chain := &fakeChainClient{
		readFn: func(ctx context.Context, call ports.ReadCall) ([]byte, error) {
			return encodeUint256(uint256.NewInt(0)), nil
		},
		writeFn: func(ctx context.Context, call ports.WriteCall) (domain.TxHash, error) {
			return domain.TxHash{1}, nil
		},
		waitFn: func(ctx context.Context, network domain.NetworkName, tx domain.TxHash) (ports.Receipt, error) {
			return ports.Receipt{TxHash: tx, Success: false}, nil
		},
	}
	signer := &fakeSigner{operator: addr(9)}
	tr := New(Config{TokenUpdateInterval: time.Minute}, chain, signer, func() domain.Deployments { return domain.NewDeployments() })

	err := tr.EnsureAllowance(context.Background(), "eth-mainnet", addr(3), addr(4), domain.USDC, Floors{}, uint256.NewInt(100))
	require.Error(t, err)
	assert.True(t, domain.Is(err, domain.ErrAllowanceFailed))
}
