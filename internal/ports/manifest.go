package ports

import (
	"context"

	"github.com/lbf-labs/rebalancer/internal/domain"
)

// ManifestEntry is one parsed KEY=VALUE line plus the network name extracted
// from the key's regex capture group.
type ManifestEntry struct {
	Key     string
	Value   string
	Network domain.NetworkName
}

// ManifestSource fetches one manifest (pools, or tokens) and returns its raw
// parsed entries. HTTP fetching and response framing live entirely in the
// adapter — the core only ever sees entries.
type ManifestSource interface {
	FetchManifest(ctx context.Context) ([]ManifestEntry, error)
}
