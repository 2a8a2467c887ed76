package ports

import (
	"context"

	"github.com/lbf-labs/rebalancer/internal/domain"
)

// NetworkUpdateListener is notified, in registration order, whenever the
// active network set changes. Name keys the listener set: re-registering the
// same name is a no-op.
type NetworkUpdateListener interface {
	Name() string
	OnNetworksUpdated(ctx context.Context, active []domain.Network) error
}
