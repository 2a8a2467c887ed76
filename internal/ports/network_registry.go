package ports

import (
	"context"

	"github.com/lbf-labs/rebalancer/internal/domain"
)

// NetworkRegistry returns every candidate network for a given mode. For
// Mode == Localhost the coordinator uses an injected static list instead of
// calling this port.
type NetworkRegistry interface {
	Networks(ctx context.Context, mode domain.Mode) ([]domain.Network, error)
}
