package registry_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lbf-labs/rebalancer/internal/adapters/registry"
	"github.com/lbf-labs/rebalancer/internal/domain"
)

func TestNetworksFiltersByMode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"name": "eth-mainnet", "chain_id": 1, "selector": "eth", "mode": "mainnet", "rpc_urls": []string{"https://eth.example"}},
			{"name": "eth-sepolia", "chain_id": 11155111, "selector": "eth-sep", "mode": "testnet", "rpc_urls": []string{"https://sepolia.example"}},
		})
	}))
	defer server.Close()

	reg := registry.New(server.URL, time.Second)
	networks, err := reg.Networks(context.Background(), domain.ModeMainnet)
	require.NoError(t, err)
	require.Len(t, networks, 1)
	assert.Equal(t, domain.NetworkName("eth-mainnet"), networks[0].Name)
	assert.Equal(t, uint64(1), networks[0].ChainID)
}

func TestNetworksErrorsOnNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	reg := registry.New(server.URL, time.Second)
	_, err := reg.Networks(context.Background(), domain.ModeMainnet)
	require.Error(t, err)
	assert.True(t, domain.Is(err, domain.ErrManifestFetchFailed))
}
