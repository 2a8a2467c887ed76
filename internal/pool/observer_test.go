package pool

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

type fakeChainClient struct {
	readFn func(ctx context.Context, call ports.ReadCall) ([]byte, error)
}

func (f *fakeChainClient) Read(ctx context.Context, call ports.ReadCall) ([]byte, error) {
	return f.readFn(ctx, call)
}
func (f *fakeChainClient) Write(ctx context.Context, call ports.WriteCall) (domain.TxHash, error) {
	return domain.TxHash{}, nil
}
func (f *fakeChainClient) WaitForReceipt(ctx context.Context, network domain.NetworkName, tx domain.TxHash) (ports.Receipt, error) {
	return ports.Receipt{}, nil
}
func (f *fakeChainClient) NativeBalance(ctx context.Context, network domain.NetworkName, a domain.Address) (*uint256.Int, error) {
	return uint256.NewInt(0), nil
}
func (f *fakeChainClient) DefaultTimeout() time.Duration { return time.Second }

func encodePoolData(deficit, surplus *uint256.Int) []byte {
	d := deficit.Bytes32()
	s := surplus.Bytes32()
	out := make([]byte, 0, 64)
	out = append(out, d[:]...)
	out = append(out, s[:]...)
	return out
}

func TestObserverStartsWatcherAndDeliversUpdates(t *testing.T) {
	deps := domain.NewDeployments()
	deps.ParentPool = domain.ParentPool{Network: "eth-mainnet", Address: domain.Address{1}}

	chain := &fakeChainClient{
		readFn: func(ctx context.Context, call ports.ReadCall) ([]byte, error) {
			return encodePoolData(uint256.NewInt(10), uint256.NewInt(20)), nil
		},
	}
	obs := New(Config{UpdateInterval: 10 * time.Millisecond}, chain, func() domain.Deployments { return deps })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, obs.OnNetworksUpdated(ctx, []domain.Network{{Name: "eth-mainnet", ChainID: 1}}))

	select {
	case u := <-obs.Updates():
		assert.Equal(t, domain.NetworkName("eth-mainnet"), u.Network)
		assert.True(t, u.Data.Deficit.Eq(uint256.NewInt(10)))
		assert.True(t, u.Data.Surplus.Eq(uint256.NewInt(20)))
		obs.Apply(u)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for pool update")
	}

	got := obs.Get("eth-mainnet")
	assert.True(t, got.Deficit.Eq(uint256.NewInt(10)))
}

func TestObserverMissingDeploymentSkipsWatcher(t *testing.T) {
	deps := domain.NewDeployments()
	chain := &fakeChainClient{
		readFn: func(ctx context.Context, call ports.ReadCall) ([]byte, error) {
			return encodePoolData(uint256.NewInt(0), uint256.NewInt(0)), nil
		},
	}
	obs := New(Config{UpdateInterval: 10 * time.Millisecond}, chain, func() domain.Deployments { return deps })

	require.NoError(t, obs.OnNetworksUpdated(context.Background(), []domain.Network{{Name: "unknown", ChainID: 99}}))

	select {
	case <-obs.Updates():
		t.Fatal("did not expect an update for a network with no pool deployment")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestObserverDropsWatcherWhenNetworkLeavesActiveSet(t *testing.T) {
	deps := domain.NewDeployments()
	deps.ParentPool = domain.ParentPool{Network: "eth-mainnet", Address: domain.Address{1}}

	chain := &fakeChainClient{
		readFn: func(ctx context.Context, call ports.ReadCall) ([]byte, error) {
			return encodePoolData(uint256.NewInt(1), uint256.NewInt(1)), nil
		},
	}
	obs := New(Config{UpdateInterval: 10 * time.Millisecond}, chain, func() domain.Deployments { return deps })

	ctx := context.Background()
	require.NoError(t, obs.OnNetworksUpdated(ctx, []domain.Network{{Name: "eth-mainnet", ChainID: 1}}))
	<-obs.Updates()
	obs.Apply(Update{Network: "eth-mainnet", Data: domain.PoolData{Deficit: uint256.NewInt(1), Surplus: uint256.NewInt(1)}})

	require.NoError(t, obs.OnNetworksUpdated(ctx, nil))
	_, tracked := obs.data["eth-mainnet"]
	assert.False(t, tracked)
}
