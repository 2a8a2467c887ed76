package domain

import "time"

// ExecutionRecord is one append-only audit entry for an attempted opportunity.
// It is never read back into the running process — see the executor's ledger
// adapter for why this does not reintroduce persistent state across restarts.
type ExecutionRecord struct {
	EventID     string
	Opportunity Opportunity
	Success     bool
	Error       string
	TxHash      TxHash
	ExecutedAt  time.Time
}
