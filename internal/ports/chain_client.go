package ports

import (
	"context"
	"time"

	"github.com/holiman/uint256"
	"github.com/lbf-labs/rebalancer/internal/domain"
)

// ReadCall is a view call against a contract on one network.
type ReadCall struct {
	Network domain.NetworkName
	To      domain.Address
	Data    []byte
}

// WriteCall is a state-changing call to submit as a transaction.
type WriteCall struct {
	Network  domain.NetworkName
	To       domain.Address
	Data     []byte
	GasLimit uint64
}

// Receipt is the outcome of a mined transaction.
type Receipt struct {
	TxHash  domain.TxHash
	Success bool
	GasUsed uint64
}

// ChainClient is the low-level per-chain transport the core depends on.
// Transport fallback, nonce allocation, retries, and transaction monitoring
// are the adapter's responsibility; the core only sees read/write primitives
// and a receipt wait. DefaultTimeout reports the adapter's configured
// per-call timeout; the methods do not apply it themselves, so each call is
// bounded only by the ctx it is given.
type ChainClient interface {
	Read(ctx context.Context, call ReadCall) ([]byte, error)
	Write(ctx context.Context, call WriteCall) (domain.TxHash, error)
	WaitForReceipt(ctx context.Context, network domain.NetworkName, tx domain.TxHash) (Receipt, error)
	NativeBalance(ctx context.Context, network domain.NetworkName, addr domain.Address) (*uint256.Int, error)
	DefaultTimeout() time.Duration
}
