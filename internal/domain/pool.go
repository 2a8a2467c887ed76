package domain

import (
	"time"

	"github.com/holiman/uint256"
)

// PoolData is the latest observed (deficit, surplus) for one network's pool.
// LastUpdated is the only staleness signal — the observer enforces no TTL
// itself; a consumer that cares about age compares LastUpdated to time.Now().
type PoolData struct {
	Deficit     *uint256.Int
	Surplus     *uint256.Int
	LastUpdated time.Time
}

// NewPoolData returns a zeroed PoolData with a zero LastUpdated (never observed).
func NewPoolData() PoolData {
	return PoolData{Deficit: uint256.NewInt(0), Surplus: uint256.NewInt(0)}
}
