// Package ledger implements ports.ExecutionLedger as a write-only audit
// trail, the rebalancer-facing twin of the teacher's opportunity storage.
package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/holiman/uint256"
	_ "modernc.org/sqlite"

	"github.com/lbf-labs/rebalancer/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS executions (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    event_id     TEXT     NOT NULL,
    kind         TEXT     NOT NULL,
    from_network TEXT     NOT NULL DEFAULT '',
    to_network   TEXT     NOT NULL,
    amount       TEXT     NOT NULL,
    success      INTEGER  NOT NULL DEFAULT 0,
    error        TEXT     NOT NULL DEFAULT '',
    tx_hash      TEXT     NOT NULL DEFAULT '',
    executed_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_executions_event ON executions(event_id);
CREATE INDEX IF NOT EXISTS idx_executions_at    ON executions(executed_at DESC);
`

// SQLite is an append-only ports.ExecutionLedger. It is never queried back
// into the running process: active networks, balances, pool data, and
// totalRedeemedUsdc are always rebuilt from scratch on process start. This
// exists purely so an operator can inspect what the rebalancer has done.
type SQLite struct {
	db *sql.DB
}

// Open creates (or reuses) the database at path and applies the schema.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger.Open: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // sqlite is single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger.Open: apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// RecordExecution implements ports.ExecutionLedger.
func (s *SQLite) RecordExecution(ctx context.Context, record domain.ExecutionRecord) error {
	opp := record.Opportunity
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO executions
			(event_id, kind, from_network, to_network, amount, success, error, tx_hash, executed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.EventID,
		opp.Kind.String(),
		string(opp.From),
		string(opp.To),
		amountString(opp.Amount),
		boolToInt(record.Success),
		record.Error,
		fmt.Sprintf("%x", record.TxHash),
		record.ExecutedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("ledger.RecordExecution: insert: %w", err)
	}
	return nil
}

// Close implements ports.ExecutionLedger.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func amountString(a *uint256.Int) string {
	if a == nil {
		return "0"
	}
	return a.Dec()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
