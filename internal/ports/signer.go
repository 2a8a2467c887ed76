package ports

import "github.com/lbf-labs/rebalancer/internal/domain"

// SignerRegistry hands out the operator's address per network and signs raw
// transaction payloads on request. Private-key material never crosses this
// boundary into the core — only addresses and signatures do.
type SignerRegistry interface {
	OperatorAddress(network domain.NetworkName) (domain.Address, error)
	Sign(network domain.NetworkName, unsignedTx []byte) ([]byte, error)
}
