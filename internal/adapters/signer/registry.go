// Package signer implements ports.SignerRegistry: it is the only place in
// the module that ever touches private key material, the way the teacher's
// MergeClient keeps privateKey unexported and out of the rest of the codebase.
package signer

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/lbf-labs/rebalancer/internal/domain"
)

type keyEntry struct {
	privateKey *ecdsa.PrivateKey
	address    domain.Address
	chainID    *big.Int
}

// Registry is a per-network key store keyed by network name. Keys are never
// logged or returned to callers; only addresses and signatures cross the
// ports.SignerRegistry boundary.
type Registry struct {
	mu   sync.RWMutex
	keys map[domain.NetworkName]*keyEntry
}

func New() *Registry {
	return &Registry{keys: make(map[domain.NetworkName]*keyEntry)}
}

// AddKey registers the operator's private key for network. privateKeyHex may
// be 0x-prefixed.
func (r *Registry) AddKey(network domain.NetworkName, chainID uint64, privateKeyHex string) error {
	pkBytes, err := hex.DecodeString(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return domain.NewError(domain.ErrConfigInvalid, "signer.AddKey", fmt.Errorf("decode private key: %w", err))
	}
	privKey, err := crypto.ToECDSA(pkBytes)
	if err != nil {
		return domain.NewError(domain.ErrConfigInvalid, "signer.AddKey", fmt.Errorf("invalid private key: %w", err))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[network] = &keyEntry{
		privateKey: privKey,
		address:    domain.Address(crypto.PubkeyToAddress(privKey.PublicKey)),
		chainID:    new(big.Int).SetUint64(chainID),
	}
	return nil
}

// Name implements ports.NetworkUpdateListener.
func (r *Registry) Name() string { return "signer" }

// OnNetworksUpdated loads a key for any active network that doesn't have one
// yet, from the environment variable PRIVATE_KEY_<NETWORK>, with NETWORK
// upper-cased and dashes turned into underscores (e.g. network "eth-mainnet"
// reads PRIVATE_KEY_ETH_MAINNET) — the per-network suffix convention the
// manifest keys already use for LBF_CHILD_POOL_<network> and friends. A
// network with no corresponding variable set is left unkeyed; it simply
// can't be written to until one is provided.
func (r *Registry) OnNetworksUpdated(ctx context.Context, active []domain.Network) error {
	for _, n := range active {
		if r.hasKey(n.Name) {
			continue
		}
		envKey := "PRIVATE_KEY_" + strings.ToUpper(strings.ReplaceAll(string(n.Name), "-", "_"))
		raw := os.Getenv(envKey)
		if raw == "" {
			continue
		}
		if err := r.AddKey(n.Name, n.ChainID, raw); err != nil {
			return fmt.Errorf("signer.OnNetworksUpdated: %s: %w", envKey, err)
		}
	}
	return nil
}

func (r *Registry) hasKey(network domain.NetworkName) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.keys[network]
	return ok
}

// OperatorAddress returns the address derived from network's registered key.
func (r *Registry) OperatorAddress(network domain.NetworkName) (domain.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.keys[network]
	if !ok {
		return domain.Address{}, domain.NewError(domain.ErrConfigInvalid, "signer.OperatorAddress", fmt.Errorf("no key for network %s", network))
	}
	return entry.address, nil
}

// Sign decodes unsignedTx, signs it with network's key under an EIP-155
// signer for that network's chain ID, and returns the re-encoded signed
// transaction bytes.
func (r *Registry) Sign(network domain.NetworkName, unsignedTx []byte) ([]byte, error) {
	r.mu.RLock()
	entry, ok := r.keys[network]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.NewError(domain.ErrConfigInvalid, "signer.Sign", fmt.Errorf("no key for network %s", network))
	}

	var tx types.Transaction
	if err := tx.UnmarshalBinary(unsignedTx); err != nil {
		return nil, domain.NewError(domain.ErrConfigInvalid, "signer.Sign", fmt.Errorf("unmarshal tx: %w", err))
	}

	signed, err := types.SignTx(&tx, types.NewEIP155Signer(entry.chainID), entry.privateKey)
	if err != nil {
		return nil, domain.NewError(domain.ErrAllowanceFailed, "signer.Sign", fmt.Errorf("sign tx: %w", err))
	}

	return signed.MarshalBinary()
}
