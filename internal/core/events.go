package core

import (
	"github.com/google/uuid"

	"github.com/lbf-labs/rebalancer/internal/balance"
	"github.com/lbf-labs/rebalancer/internal/pool"
)

// EventKind discriminates the single inbox the core task drains.
type EventKind int

const (
	NetworkChanged EventKind = iota
	PoolUpdated
	BalanceUpdated
	Tick
)

func (k EventKind) String() string {
	switch k {
	case NetworkChanged:
		return "NetworkChanged"
	case PoolUpdated:
		return "PoolUpdated"
	case BalanceUpdated:
		return "BalanceUpdated"
	case Tick:
		return "Tick"
	default:
		return "Unknown"
	}
}

// Event is one inbox item. Exactly one of the kind-specific fields is
// populated, matching Kind. ID stamps every log line this event produces
// for correlation, the way the teacher stamps orders with a uuid.
type Event struct {
	ID   string
	Kind EventKind

	Pool    pool.Update
	Balance balance.Update
}

func newEvent(kind EventKind) Event {
	return Event{ID: uuid.NewString(), Kind: kind}
}

func newPoolEvent(u pool.Update) Event {
	e := newEvent(PoolUpdated)
	e.Pool = u
	return e
}

func newBalanceEvent(u balance.Update) Event {
	e := newEvent(BalanceUpdated)
	e.Balance = u
	return e
}
