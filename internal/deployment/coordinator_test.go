package deployment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lbf-labs/rebalancer/internal/domain"
	"github.com/lbf-labs/rebalancer/internal/ports"
)

type fakeManifestSource struct {
	entries []ports.ManifestEntry
	err     error
}

func (f *fakeManifestSource) FetchManifest(ctx context.Context) ([]ports.ManifestEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

func TestCoordinatorRefreshMergesBothManifests(t *testing.T) {
	pools := &fakeManifestSource{entries: []ports.ManifestEntry{
		{Key: "LBF_PARENT_POOL_ETH_MAINNET", Value: "0x0000000000000000000000000000000000000001", Network: "eth-mainnet"},
		{Key: "LBF_CHILD_POOL_ARB_MAINNET", Value: "0x0000000000000000000000000000000000000002", Network: "arb-mainnet"},
	}}
	tokens := &fakeManifestSource{entries: []ports.ManifestEntry{
		{Key: "USDC_ETH_MAINNET", Value: "0x0000000000000000000000000000000000000003", Network: "eth-mainnet"},
	}}

	c := New(Config{Mode: domain.ModeMainnet}, pools, tokens)
	require.NoError(t, c.Refresh(context.Background()))

	snap := c.Snapshot()
	assert.Equal(t, domain.NetworkName("eth-mainnet"), snap.ParentPool.Network)
	_, ok := snap.PoolAddress("arb-mainnet")
	assert.True(t, ok)
	_, ok = snap.TokenAddress("eth-mainnet", domain.USDC)
	assert.True(t, ok)
}

func TestCoordinatorRefreshRetainsPreviousOnFetchFailure(t *testing.T) {
	pools := &fakeManifestSource{entries: []ports.ManifestEntry{
		{Key: "LBF_PARENT_POOL_ETH_MAINNET", Value: "0x0000000000000000000000000000000000000001", Network: "eth-mainnet"},
	}}
	tokens := &fakeManifestSource{entries: nil}

	c := New(Config{Mode: domain.ModeMainnet}, pools, tokens)
	require.NoError(t, c.Refresh(context.Background()))
	firstSnap := c.Snapshot()

	tokens.err = errors.New("unreachable")
	err := c.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, domain.Is(err, domain.ErrManifestFetchFailed))

	secondSnap := c.Snapshot()
	assert.Equal(t, firstSnap, secondSnap)
}

func TestCoordinatorLocalhostUsesStaticDeployments(t *testing.T) {
	static := domain.NewDeployments()
	static.ParentPool = domain.ParentPool{Network: "localhost-a"}

	c := New(Config{Mode: domain.ModeLocalhost, StaticDeployments: static}, nil, nil)
	require.NoError(t, c.Refresh(context.Background()))

	snap := c.Snapshot()
	assert.Equal(t, domain.NetworkName("localhost-a"), snap.ParentPool.Network)
}
