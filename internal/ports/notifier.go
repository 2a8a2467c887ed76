package ports

import (
	"context"

	"github.com/lbf-labs/rebalancer/internal/domain"
)

// Notifier presents a batch of scored opportunities to the operator.
type Notifier interface {
	Notify(ctx context.Context, scored []domain.ScoredOpportunity) error
}
