package domain

import "github.com/holiman/uint256"

// OpportunityKind discriminates the tagged Opportunity union.
type OpportunityKind int

const (
	FillDeficit OpportunityKind = iota
	TakeSurplus
	BridgeIOU
)

func (k OpportunityKind) String() string {
	switch k {
	case FillDeficit:
		return "FillDeficit"
	case TakeSurplus:
		return "TakeSurplus"
	case BridgeIOU:
		return "BridgeIOU"
	default:
		return "Unknown"
	}
}

// Opportunity is a candidate on-chain action produced by the discoverer.
//
//   - FillDeficit: To is the network to fill, From is unused.
//   - TakeSurplus:  To is the network to redeem on ("on" in the spec), From is unused.
//   - BridgeIOU:    From is the source network, To is the destination network.
type Opportunity struct {
	Kind   OpportunityKind
	To     NetworkName
	From   NetworkName
	Amount *uint256.Int
}

// NewFillDeficit builds a FillDeficit opportunity.
func NewFillDeficit(to NetworkName, amount *uint256.Int) Opportunity {
	return Opportunity{Kind: FillDeficit, To: to, Amount: amount}
}

// NewTakeSurplus builds a TakeSurplus opportunity.
func NewTakeSurplus(on NetworkName, amount *uint256.Int) Opportunity {
	return Opportunity{Kind: TakeSurplus, To: on, Amount: amount}
}

// NewBridgeIOU builds a BridgeIOU opportunity.
func NewBridgeIOU(from, to NetworkName, amount *uint256.Int) Opportunity {
	return Opportunity{Kind: BridgeIOU, From: from, To: to, Amount: amount}
}

// GasNetwork returns the network whose native balance must be checked before
// executing: From if present, To otherwise.
func (o Opportunity) GasNetwork() NetworkName {
	if o.From != "" {
		return o.From
	}
	return o.To
}

// ScoredOpportunity is an Opportunity annotated with feasibility and score.
type ScoredOpportunity struct {
	Opportunity Opportunity
	Score       float64
	Feasible    bool
	Reasons     []string
}
