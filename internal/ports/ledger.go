package ports

import (
	"context"

	"github.com/lbf-labs/rebalancer/internal/domain"
)

// ExecutionLedger persists a write-only audit trail of attempted executions.
// Nothing reads it back into the running process; see internal/adapters/ledger.
type ExecutionLedger interface {
	RecordExecution(ctx context.Context, record domain.ExecutionRecord) error
	Close() error
}
