// Package registry implements ports.NetworkRegistry over a single HTTP GET
// returning a JSON list of candidate networks, the network-registry twin of
// internal/adapters/httpmanifest.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lbf-labs/rebalancer/internal/domain"
)

// entry mirrors one element of the registry's JSON response.
type entry struct {
	Name     string   `json:"name"`
	ChainID  uint64   `json:"chain_id"`
	Selector string   `json:"selector"`
	Mode     string   `json:"mode"`
	RPCURLs  []string `json:"rpc_urls"`
}

// HTTP is a ports.NetworkRegistry backed by one static registry URL serving
// every mode; Networks filters client-side by the requested mode.
type HTTP struct {
	url    string
	client *http.Client
}

func New(url string, timeout time.Duration) *HTTP {
	return &HTTP{url: url, client: &http.Client{Timeout: timeout}}
}

// Networks implements ports.NetworkRegistry.
func (h *HTTP) Networks(ctx context.Context, mode domain.Mode) ([]domain.Network, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, domain.NewError(domain.ErrManifestFetchFailed, "registry.Networks", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, domain.NewError(domain.ErrManifestFetchFailed, "registry.Networks", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewError(domain.ErrManifestFetchFailed, "registry.Networks",
			fmt.Errorf("unexpected status %d from %s", resp.StatusCode, h.url))
	}

	var entries []entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, domain.NewError(domain.ErrManifestFetchFailed, "registry.Networks", fmt.Errorf("decode: %w", err))
	}

	out := make([]domain.Network, 0, len(entries))
	for _, e := range entries {
		entryMode, ok := domain.ParseMode(e.Mode)
		if !ok || entryMode != mode {
			continue
		}
		out = append(out, domain.Network{
			Name:     domain.NetworkName(e.Name),
			ChainID:  e.ChainID,
			Selector: e.Selector,
			Mode:     entryMode,
			RPCURLs:  e.RPCURLs,
		})
	}
	return out, nil
}
