package domain

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Address is a 20-byte EVM address.
type Address [20]byte

// ParseAddress parses a 0x-prefixed 40 hex char address.
func ParseAddress(s string) (Address, error) {
	var a Address
	trimmed := strings.TrimPrefix(s, "0x")
	if len(trimmed) != 40 {
		return a, fmt.Errorf("domain.ParseAddress: want 40 hex chars, got %d in %q", len(trimmed), s)
	}
	b, err := hex.DecodeString(trimmed)
	if err != nil {
		return a, fmt.Errorf("domain.ParseAddress: %w", err)
	}
	copy(a[:], b)
	return a, nil
}

// IsZero reports whether the address is the zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// TxHash is a 32-byte transaction hash.
type TxHash [32]byte

func (h TxHash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h TxHash) IsZero() bool {
	return h == TxHash{}
}
