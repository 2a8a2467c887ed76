package report_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lbf-labs/rebalancer/internal/adapters/report"
	"github.com/lbf-labs/rebalancer/internal/domain"
)

func makeScored(kind domain.OpportunityKind, to domain.NetworkName, amount uint64, score float64, feasible bool) domain.ScoredOpportunity {
	return domain.ScoredOpportunity{
		Opportunity: domain.Opportunity{Kind: kind, To: to, Amount: uint256.NewInt(amount)},
		Score:       score,
		Feasible:    feasible,
		Reasons:     []string{"ok"},
	}
}

func TestConsoleNotifyCompactWithOpportunities(t *testing.T) {
	var buf bytes.Buffer
	n := report.NewConsoleWriter(&buf, false)

	scored := []domain.ScoredOpportunity{
		makeScored(domain.FillDeficit, "eth-mainnet", 1000, 0.8, true),
		makeScored(domain.TakeSurplus, "arb-mainnet", 500, 0.3, false),
	}

	err := n.Notify(context.Background(), scored)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "2 opportunities")
	assert.Contains(t, out, "1 feasible")
	assert.Contains(t, out, "eth-mainnet")
}

func TestConsoleNotifyEmptyList(t *testing.T) {
	var buf bytes.Buffer
	n := report.NewConsoleWriter(&buf, false)

	err := n.Notify(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "no rebalancing opportunities found")
}

func TestConsoleNotifyFullTableMode(t *testing.T) {
	var buf bytes.Buffer
	n := report.NewConsoleWriter(&buf, true)

	scored := []domain.ScoredOpportunity{
		makeScored(domain.BridgeIOU, "base-mainnet", 250, 0.5, true),
	}

	err := n.Notify(context.Background(), scored)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "BridgeIOU")
	assert.Contains(t, out, "base-mainnet")
	assert.Contains(t, out, "250")
}
