package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lbf-labs/rebalancer/internal/adapters/ledger"
	"github.com/lbf-labs/rebalancer/internal/domain"
)

func TestRecordExecutionInsertsRow(t *testing.T) {
	db, err := ledger.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	record := domain.ExecutionRecord{
		EventID:     "evt-1",
		Opportunity: domain.NewFillDeficit("eth-mainnet", uint256.NewInt(1_000)),
		Success:     true,
		TxHash:      domain.TxHash{1, 2, 3},
		ExecutedAt:  time.Now(),
	}

	err = db.RecordExecution(context.Background(), record)
	assert.NoError(t, err)
}

func TestRecordExecutionFailureIsPersisted(t *testing.T) {
	db, err := ledger.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	record := domain.ExecutionRecord{
		EventID:     "evt-2",
		Opportunity: domain.NewBridgeIOU("arb-mainnet", "base-mainnet", uint256.NewInt(500)),
		Success:     false,
		Error:       "receipt timeout",
		ExecutedAt:  time.Now(),
	}

	err = db.RecordExecution(context.Background(), record)
	assert.NoError(t, err)
}

func TestRecordExecutionMultipleRowsDoNotConflict(t *testing.T) {
	db, err := ledger.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		record := domain.ExecutionRecord{
			EventID:     "evt-batch",
			Opportunity: domain.NewTakeSurplus("eth-mainnet", uint256.NewInt(uint64(i+1))),
			Success:     true,
			ExecutedAt:  time.Now(),
		}
		require.NoError(t, db.RecordExecution(ctx, record))
	}
}
